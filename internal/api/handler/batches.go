package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcabral19/json-placeholder-elt/internal/logger"
	"github.com/vcabral19/json-placeholder-elt/internal/pipeline"
	"github.com/vcabral19/json-placeholder-elt/internal/tracker"
)

// BatchHandler reports materialization progress of raw batches.
type BatchHandler struct {
	rawDir       string
	processedDir string
	registry     *pipeline.Registry
}

func NewBatchHandler(rawDir, processedDir string, registry *pipeline.Registry) *BatchHandler {
	return &BatchHandler{rawDir: rawDir, processedDir: processedDir, registry: registry}
}

// ListOutstanding handles GET /api/v1/batches/outstanding
func (h *BatchHandler) ListOutstanding(c *gin.Context) {
	batches, err := tracker.ListOutstanding(h.rawDir, h.processedDir, h.registry)
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to list outstanding batches")
		respondError(c, http.StatusInternalServerError, "failed to list outstanding batches")
		return
	}
	if batches == nil {
		batches = []tracker.Outstanding{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(batches),
		"batches": batches,
	})
}
