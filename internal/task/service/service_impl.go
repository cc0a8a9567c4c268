package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pixelmint/pixelmint/internal/clock"
	creditdomain "github.com/pixelmint/pixelmint/internal/credit/domain"
	"github.com/pixelmint/pixelmint/internal/task/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      domain.Repository
	CreditSvc creditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      domain.Repository
	creditSvc creditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("task.service"),
		clock:     p.Clock,
		repo:      p.Repo,
		creditSvc: p.CreditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTaskRequest) (domain.CreateTaskResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.CreateTaskResponse{}, domain.ErrInvalidUser
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return domain.CreateTaskResponse{}, domain.ErrInvalidPrompt
	}
	taskType := strings.TrimSpace(req.Type)
	if taskType == "" {
		taskType = domain.TypeTextToImage
	}

	settings := domain.SettingsFromMap(req.Settings)
	cost := domain.CreditCost(taskType, settings)
	now := s.clock.Now()

	usage, err := s.creditSvc.AuthorizeAndReserve(ctx, userID, cost, now)
	if err != nil {
		return domain.CreateTaskResponse{}, err
	}

	// Cost is charged at enqueue time. The commit re-validates the decision
	// against the stored row, so a stale authorization falls through to the
	// insufficient-balance outcome instead of a free ride.
	switch usage {
	case creditdomain.UsageFree:
		if err := s.creditSvc.CommitFreeUsage(ctx, userID, now); err != nil {
			return domain.CreateTaskResponse{}, err
		}
	case creditdomain.UsagePaid:
		if err := s.creditSvc.CommitPaidUsage(ctx, userID, cost); err != nil {
			return domain.CreateTaskResponse{}, err
		}
	}

	raw := datatypes.JSONMap{}
	for k, v := range req.Settings {
		raw[k] = v
	}

	task := domain.Task{
		ID:            uuid.NewString(),
		UserID:        userID,
		Prompt:        prompt,
		InputImageURL: strings.TrimSpace(req.InputImageURL),
		Type:          taskType,
		Settings:      raw,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, &task); err != nil {
		return domain.CreateTaskResponse{}, err
	}

	s.log.Info("task enqueued",
		zap.String("task_id", task.ID),
		zap.String("user_id", userID),
		zap.String("type", taskType),
		zap.Int64("cost", cost),
		zap.String("usage", string(usage)),
	)

	return domain.CreateTaskResponse{
		TaskID: task.ID,
		Status: task.Status,
		Cost:   cost,
		Usage:  string(usage),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, taskID string) (domain.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.Task{}, domain.ErrInvalidID
	}
	task, err := s.repo.FindByID(ctx, s.db, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if task == nil {
		return domain.Task{}, domain.ErrNotFound
	}
	return *task, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Task, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.repo.ListByUser(ctx, s.db, userID, limit)
}
