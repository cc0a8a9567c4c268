package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Usage is the channel a generation will be charged against.
type Usage string

const (
	UsageFree Usage = "free_usage"
	UsagePaid Usage = "paid_usage"
)

// SubscriptionGrant describes the subscription part of a fulfillment grant.
type SubscriptionGrant struct {
	Tier   string
	Months int
}

type GrantRequest struct {
	UserID       string
	Credits      int64
	Description  string
	Subscription *SubscriptionGrant
}

type Service interface {
	// GetOrInit returns the user's account, creating it with the seed balance
	// when absent. Concurrent first calls for the same user are safe.
	GetOrInit(ctx context.Context, userID string) (Account, error)

	// AuthorizeAndReserve decides which channel a generation of the given cost
	// will charge. It performs no mutation; the debit happens at commit time
	// with the decision re-validated against the stored balance.
	AuthorizeAndReserve(ctx context.Context, userID string, cost int64, now time.Time) (Usage, error)

	// CommitFreeUsage consumes one unit of today's free quota, lazily resetting
	// a stale counter.
	CommitFreeUsage(ctx context.Context, userID string, now time.Time) error

	// CommitPaidUsage debits cost from the balance. The debit is a single
	// conditional update; an insufficient balance surfaces as
	// ErrInsufficientCredits, never a negative balance.
	CommitPaidUsage(ctx context.Context, userID string, cost int64) error

	// Grant credits the balance and optionally extends the subscription.
	// Idempotency against duplicate grants is the caller's responsibility.
	Grant(ctx context.Context, req GrantRequest) (Account, error)

	// GrantTx is Grant running inside a caller-owned transaction, so a grant
	// can commit or roll back together with the caller's own writes.
	GrantTx(ctx context.Context, tx *gorm.DB, req GrantRequest) (Account, error)

	ListTransactions(ctx context.Context, userID string, limit int) ([]CreditTransaction, error)
}

var (
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidCost          = errors.New("invalid_cost")
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrInsufficientCredits  = errors.New("insufficient_credits")
	ErrAccountNotFound      = errors.New("account_not_found")
	ErrNothingToCommit      = errors.New("nothing_to_commit")
	ErrSubscriptionRequired = errors.New("subscription_months_required")
)
