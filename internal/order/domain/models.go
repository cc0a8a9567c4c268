package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

type Order struct {
	ID     string `gorm:"primaryKey;column:id" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	PlanID string `gorm:"not null" json:"plan_id"`
	// Amount is the purchase price in the provider's currency, kept as a
	// decimal string to avoid float drift.
	Amount string `gorm:"not null" json:"amount"`
	Status Status `gorm:"not null" json:"status"`
	// TradeRef is the externally visible trade reference (order id with
	// separators stripped, 32 chars). First-class unique column so the
	// notification lookup never probes free-text metadata.
	TradeRef        string            `gorm:"column:trade_ref;uniqueIndex;not null" json:"trade_ref"`
	ProviderTradeNo string            `gorm:"column:provider_trade_no" json:"provider_trade_no,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"not null;default:'{}'" json:"metadata,omitempty"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Order, error)
	FindByTradeRef(ctx context.Context, db *gorm.DB, tradeRef string) (*Order, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]Order, error)

	// MarkPaid performs the single pending->paid transition. The returned row
	// count is the idempotency gate: zero means another delivery already won.
	MarkPaid(ctx context.Context, db *gorm.DB, id, providerTradeNo string, now time.Time) (int64, error)
}

var (
	ErrInvalidUser   = errors.New("invalid_user")
	ErrInvalidPlan   = errors.New("invalid_plan")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrNotFound      = errors.New("order_not_found")
)
