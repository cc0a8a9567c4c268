package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, task *Task) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Task, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]Task, error)

	// ClaimPending atomically moves up to limit of the oldest pending tasks to
	// processing and returns the claimed rows. Rows grabbed by a concurrent
	// claimer are skipped, never double-claimed.
	ClaimPending(ctx context.Context, db *gorm.DB, limit int, now time.Time) ([]Task, error)

	// MarkCompleted and MarkFailed finalize a processing task. Terminal rows
	// are left untouched.
	MarkCompleted(ctx context.Context, db *gorm.DB, id, resultURL string, now time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id, reason string, now time.Time) error
}
