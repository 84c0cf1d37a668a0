package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vcabral19/json-placeholder-elt/internal/logger"
	"github.com/vcabral19/json-placeholder-elt/internal/repository"
	"gorm.io/gorm"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// RunHandler exposes ingest run history.
type RunHandler struct {
	repo *repository.IngestRunRepository
}

func NewRunHandler(repo *repository.IngestRunRepository) *RunHandler {
	return &RunHandler{repo: repo}
}

// ListRuns handles GET /api/v1/ingest/runs?limit=N
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.repo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to list ingest runs")
		respondError(c, http.StatusInternalServerError, "failed to list ingest runs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun handles GET /api/v1/ingest/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to load ingest run")
		respondError(c, http.StatusInternalServerError, "failed to load ingest run")
		return
	}
	c.JSON(http.StatusOK, run)
}
