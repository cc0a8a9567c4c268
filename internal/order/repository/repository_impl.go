package repository

import (
	"context"
	"time"

	"github.com/pixelmint/pixelmint/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByTradeRef(ctx context.Context, db *gorm.DB, tradeRef string) (*domain.Order, error) {
	return r.findOne(ctx, db, "trade_ref = ?", tradeRef)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Where(query, arg).
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Order, error) {
	var orders []domain.Order
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id, providerTradeNo string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, provider_trade_no = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusPaid, providerTradeNo, now, now, id, domain.StatusPending,
	)
	return res.RowsAffected, res.Error
}
