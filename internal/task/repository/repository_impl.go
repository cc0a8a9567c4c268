package repository

import (
	"context"
	"time"

	"github.com/pixelmint/pixelmint/internal/task/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, task *domain.Task) error {
	return db.WithContext(ctx).Create(task).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Task, error) {
	var task domain.Task
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&task).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Task, error) {
	var tasks []domain.Task
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *repo) ClaimPending(ctx context.Context, db *gorm.DB, limit int, now time.Time) ([]domain.Task, error) {
	var candidates []domain.Task
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusPending).
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	// The conditional update is the claim; a row a concurrent invocation
	// already moved out of pending updates zero rows and is dropped here.
	claimed := make([]domain.Task, 0, len(candidates))
	for _, task := range candidates {
		res := db.WithContext(ctx).Exec(
			`UPDATE generation_tasks
			 SET status = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			domain.StatusProcessing, now, task.ID, domain.StatusPending,
		)
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		task.Status = domain.StatusProcessing
		task.UpdatedAt = now
		claimed = append(claimed, task)
	}
	return claimed, nil
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id, resultURL string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE generation_tasks
		 SET status = ?, result_url = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusCompleted, resultURL, now, id, domain.StatusProcessing,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id, reason string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE generation_tasks
		 SET status = ?, error = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusFailed, reason, now, id, domain.StatusProcessing,
	).Error
}
