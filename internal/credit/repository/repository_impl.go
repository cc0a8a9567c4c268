package repository

import (
	"context"
	"time"

	"github.com/pixelmint/pixelmint/internal/credit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repo) IncrementDailyUsage(ctx context.Context, db *gorm.DB, userID string, now time.Time) (int64, error) {
	// Single statement so two concurrent commits cannot lose an increment.
	// date() casts work across postgres, mysql and sqlite.
	res := db.WithContext(ctx).Exec(
		`UPDATE user_credits
		 SET daily_generations = CASE WHEN date(last_daily_reset) = date(?) THEN daily_generations + 1 ELSE 1 END,
		     last_daily_reset = ?,
		     updated_at = ?
		 WHERE user_id = ?`,
		now, now, now, userID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) DebitBalance(ctx context.Context, db *gorm.DB, userID string, cost int64) (int64, error) {
	// The precondition lives in the statement; zero rows updated is the
	// insufficient-balance outcome, not an error.
	res := db.WithContext(ctx).Exec(
		`UPDATE user_credits
		 SET balance = balance - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND balance >= ?`,
		cost, userID, cost,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) CreditBalance(ctx context.Context, db *gorm.DB, userID string, credits int64) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE user_credits
		 SET balance = balance + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ?`,
		credits, userID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) UpdateSubscription(ctx context.Context, db *gorm.DB, userID, tier, status string, expiresAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE user_credits
		 SET subscription_tier = ?, subscription_status = ?, subscription_expires_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ?`,
		tier, status, expiresAt, userID,
	).Error
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, entry *domain.CreditTransaction) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.CreditTransaction, error) {
	var entries []domain.CreditTransaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
