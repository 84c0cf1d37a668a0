package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/vcabral19/json-placeholder-elt/internal/logger"
)

// respondError writes {"error", "request_id"} so clients can quote the id
// when reporting a failure.
func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"error":      msg,
		"request_id": logger.GetRequestID(c.Request.Context()),
	})
}
