package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vcabral19/json-placeholder-elt/internal/logger"
	"github.com/vcabral19/json-placeholder-elt/internal/repository"
)

// UserHandler serves users stored by the ingestor.
type UserHandler struct {
	repo *repository.UserRepository
}

func NewUserHandler(repo *repository.UserRepository) *UserHandler {
	return &UserHandler{repo: repo}
}

// ListUsers handles GET /api/v1/users?extraction_ts=N
func (h *UserHandler) ListUsers(c *gin.Context) {
	ts, err := strconv.ParseInt(c.Query("extraction_ts"), 10, 64)
	if err != nil || ts < 0 {
		respondError(c, http.StatusBadRequest, "extraction_ts must be a non-negative epoch in seconds")
		return
	}

	users, err := h.repo.ListByExtraction(c.Request.Context(), ts)
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).WithField(logger.FieldBatchTS, ts).Error("Failed to list users")
		respondError(c, http.StatusInternalServerError, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"extraction_ts": ts,
		"count":         len(users),
		"users":         users,
	})
}

// CountCompanies handles GET /api/v1/companies/count
func (h *UserHandler) CountCompanies(c *gin.Context) {
	n, err := h.repo.CountCompanies(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to count companies")
		respondError(c, http.StatusInternalServerError, "failed to count companies")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}
