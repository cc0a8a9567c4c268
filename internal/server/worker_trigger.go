package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunWorker drains one batch of pending tasks. Exposed so a cron scheduler
// can drive processing in deployments without a long-running worker.
func (s *Server) RunWorker(c *gin.Context) {
	result, err := s.worker.RunOnce(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
