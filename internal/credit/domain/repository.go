package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByUser(ctx context.Context, db *gorm.DB, userID string) (*Account, error)

	// IncrementDailyUsage bumps today's free counter, resetting it to 1 when
	// the stored day is stale. Returns the number of rows updated.
	IncrementDailyUsage(ctx context.Context, db *gorm.DB, userID string, now time.Time) (int64, error)

	// DebitBalance subtracts cost guarded by balance >= cost. Zero rows updated
	// means the guard failed.
	DebitBalance(ctx context.Context, db *gorm.DB, userID string, cost int64) (int64, error)

	CreditBalance(ctx context.Context, db *gorm.DB, userID string, credits int64) (int64, error)
	UpdateSubscription(ctx context.Context, db *gorm.DB, userID, tier, status string, expiresAt time.Time) error

	InsertTransaction(ctx context.Context, db *gorm.DB, entry *CreditTransaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, userID string, limit int) ([]CreditTransaction, error)
}
