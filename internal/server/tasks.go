package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	taskdomain "github.com/pixelmint/pixelmint/internal/task/domain"
)

type createTaskRequest struct {
	Prompt        string         `json:"prompt"`
	InputImageURL string         `json:"input_image_url"`
	Type          string         `json:"type"`
	Settings      map[string]any `json:"settings"`
}

func (s *Server) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.tasksvc.Create(c.Request.Context(), taskdomain.CreateTaskRequest{
		UserID:        currentUserID(c),
		Prompt:        req.Prompt,
		InputImageURL: req.InputImageURL,
		Type:          req.Type,
		Settings:      req.Settings,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (s *Server) GetTask(c *gin.Context) {
	task, err := s.tasksvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	// Tasks are private; a foreign id behaves exactly like a missing one.
	if task.UserID != currentUserID(c) {
		AbortWithError(c, taskdomain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) ListTasks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	tasks, err := s.tasksvc.ListByUser(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}
