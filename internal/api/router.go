package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vcabral19/json-placeholder-elt/internal/api/handler"
	"github.com/vcabral19/json-placeholder-elt/internal/api/middleware"
	"github.com/vcabral19/json-placeholder-elt/internal/metrics"
	"github.com/vcabral19/json-placeholder-elt/internal/pipeline"
	"github.com/vcabral19/json-placeholder-elt/internal/repository"
)

// RouterDeps are the collaborators the ops endpoints read from.
type RouterDeps struct {
	Gatherer     prometheus.Gatherer
	Registry     *pipeline.Registry
	RawDir       string
	ProcessedDir string
	// DB, Runs and Users are optional; without them /health skips the
	// database check and the stored-data endpoints are not served.
	DB    handler.Pinger
	Runs  *repository.IngestRunRepository
	Users *repository.UserRepository
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps RouterDeps, mode string) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger("/health", "/metrics"))

	healthHandler := handler.NewHealthHandler(deps.DB)
	batchHandler := handler.NewBatchHandler(deps.RawDir, deps.ProcessedDir, deps.Registry)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/batches/outstanding", batchHandler.ListOutstanding)

		if deps.Runs != nil {
			runHandler := handler.NewRunHandler(deps.Runs)
			v1.GET("/ingest/runs", runHandler.ListRuns)
			v1.GET("/ingest/runs/:id", runHandler.GetRun)
		}
		if deps.Users != nil {
			userHandler := handler.NewUserHandler(deps.Users)
			v1.GET("/users", userHandler.ListUsers)
			v1.GET("/companies/count", userHandler.CountCompanies)
		}
	}

	return r
}
