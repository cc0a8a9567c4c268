package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	// SeedBalance is granted to every account on first access.
	SeedBalance int64 = 15
	// DailyFreeLimit is the number of generations per UTC day served from the
	// free quota regardless of balance.
	DailyFreeLimit = 3
)

const (
	SubscriptionStatusActive = "active"
)

type Account struct {
	UserID                string     `gorm:"primaryKey;column:user_id" json:"user_id"`
	Balance               int64      `gorm:"not null;default:0" json:"balance"`
	DailyGenerations      int        `gorm:"not null;default:0" json:"daily_generations"`
	LastDailyReset        time.Time  `gorm:"not null" json:"last_daily_reset"`
	SubscriptionTier      string     `gorm:"column:subscription_tier" json:"subscription_tier,omitempty"`
	SubscriptionStatus    string     `gorm:"column:subscription_status" json:"subscription_status,omitempty"`
	SubscriptionExpiresAt *time.Time `gorm:"column:subscription_expires_at" json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Account) TableName() string { return "user_credits" }

const (
	TransactionTypeGrant  = "grant"
	TransactionTypeDebit  = "debit"
	TransactionTypeFree   = "free_usage"
	TransactionTypeSystem = "system"
)

type CreditTransaction struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID       string       `gorm:"not null;index" json:"user_id"`
	Amount       int64        `gorm:"not null" json:"amount"`
	BalanceAfter int64        `gorm:"not null" json:"balance_after"`
	Type         string       `gorm:"not null" json:"type"`
	Description  string       `json:"description,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CreditTransaction) TableName() string { return "credit_transactions" }
