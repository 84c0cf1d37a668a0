package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vcabral19/json-placeholder-elt/internal/api"
	"github.com/vcabral19/json-placeholder-elt/internal/config"
	"github.com/vcabral19/json-placeholder-elt/internal/domain"
	"github.com/vcabral19/json-placeholder-elt/internal/logger"
	"github.com/vcabral19/json-placeholder-elt/internal/metrics"
	"github.com/vcabral19/json-placeholder-elt/internal/pipeline"
	"github.com/vcabral19/json-placeholder-elt/internal/rawstore"
	"github.com/vcabral19/json-placeholder-elt/internal/repository"
	"github.com/vcabral19/json-placeholder-elt/internal/scheduler"
	"github.com/vcabral19/json-placeholder-elt/internal/service"
	"github.com/vcabral19/json-placeholder-elt/internal/sink"
	"github.com/vcabral19/json-placeholder-elt/internal/source"
	"github.com/vcabral19/json-placeholder-elt/internal/source/jsonplaceholder"
	"github.com/vcabral19/json-placeholder-elt/internal/source/staging"
	"github.com/vcabral19/json-placeholder-elt/internal/storage"
	"gorm.io/gorm"
)

// app holds what every command shares: config, metrics and the lazily
// opened database.
type app struct {
	cfg      *config.Config
	reg      *prometheus.Registry
	metrics  *metrics.Collector
	registry *pipeline.Registry
	db       *gorm.DB
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &app{
		cfg:      cfg,
		reg:      reg,
		metrics:  metrics.NewCollector(reg),
		registry: pipeline.DefaultRegistry(),
	}, nil
}

func (a *app) openDB() (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := repository.InitDB(&a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.metrics.RecordDBConnection()
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (a *app) newSource() source.Source {
	if a.cfg.Source.StagingFile != "" {
		return staging.NewAdapter(a.cfg.Source.StagingFile)
	}
	return jsonplaceholder.NewAdapter(&jsonplaceholder.Config{
		URL:                a.cfg.Source.URL,
		Timeout:            a.cfg.Source.Timeout,
		InsecureSkipVerify: a.cfg.Source.InsecureSkipVerify,
	})
}

func (a *app) newRawStore(ctx context.Context) (*rawstore.Store, error) {
	if !a.cfg.Archive.Enabled {
		return rawstore.New(a.cfg.Paths.RawDir), nil
	}

	mirror, err := storage.NewStorage(ctx, a.cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive storage: %w", err)
	}
	if err := mirror.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure archive bucket: %w", err)
	}
	return rawstore.New(a.cfg.Paths.RawDir, rawstore.WithMirror(mirror, a.cfg.Archive.Prefix)), nil
}

func (a *app) newIngestService(ctx context.Context) (*service.IngestService, error) {
	store, err := a.newRawStore(ctx)
	if err != nil {
		return nil, err
	}

	var userRepo *repository.UserRepository
	var runRepo *repository.IngestRunRepository
	if a.cfg.Ingest.PersistDB {
		db, err := a.openDB()
		if err != nil {
			return nil, err
		}
		userRepo = repository.NewUserRepository(db)
		runRepo = repository.NewIngestRunRepository(db)
	}

	return service.NewIngestService(a.newSource(), store, userRepo, runRepo, a.metrics,
		&service.IngestConfig{Interval: a.cfg.Ingest.Interval}), nil
}

func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	engine, err := pipeline.NewEngine(pipeline.EngineConfig{
		Registry:  a.registry,
		Transform: domain.DefaultTransform,
		Sink:      sink.NewCSVSink(a.cfg.Paths.ProcessedDir),
		Metrics:   a.metrics,
	})
	if err != nil {
		return nil, err
	}
	return scheduler.New(scheduler.Config{
		RawDir:       a.cfg.Paths.RawDir,
		ProcessedDir: a.cfg.Paths.ProcessedDir,
		Registry:     a.registry,
		Interval:     a.cfg.Transform.Interval,
		Workers:      a.cfg.Transform.Workers,
	}, engine, a.metrics)
}

// serve runs the ops server until ctx is cancelled. It returns nil right
// away when the server is disabled.
func (a *app) serve(ctx context.Context) error {
	if !a.cfg.Server.Enabled {
		return nil
	}

	deps := api.RouterDeps{
		Gatherer:     a.reg,
		Registry:     a.registry,
		RawDir:       a.cfg.Paths.RawDir,
		ProcessedDir: a.cfg.Paths.ProcessedDir,
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			deps.DB = sqlDB
		}
		deps.Runs = repository.NewIngestRunRepository(a.db)
		deps.Users = repository.NewUserRepository(a.db)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           api.SetupRouter(deps, a.cfg.Server.Mode),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.GetDefault().WithFields(logger.Fields{
			"port": a.cfg.Server.Port,
			"mode": a.cfg.Server.Mode,
		}).Info("Starting ops server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("ops server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ops server forced to shutdown: %w", err)
	}
	logger.Info("Ops server exited")
	return nil
}
