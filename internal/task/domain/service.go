package domain

import (
	"context"
	"errors"
)

type CreateTaskRequest struct {
	UserID        string
	Prompt        string
	InputImageURL string
	Type          string
	Settings      map[string]any
}

type CreateTaskResponse struct {
	TaskID string `json:"task_id"`
	Status Status `json:"status"`
	Cost   int64  `json:"cost"`
	Usage  string `json:"usage"`
}

type Service interface {
	// Create authorizes the cost against the credit ledger, commits the chosen
	// channel up front and inserts the pending task.
	Create(ctx context.Context, req CreateTaskRequest) (CreateTaskResponse, error)
	GetByID(ctx context.Context, taskID string) (Task, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Task, error)
}

var (
	ErrInvalidUser   = errors.New("invalid_user")
	ErrInvalidPrompt = errors.New("invalid_prompt")
	ErrInvalidType   = errors.New("invalid_type")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("task_not_found")
)
