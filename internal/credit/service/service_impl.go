package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pixelmint/pixelmint/internal/clock"
	"github.com/pixelmint/pixelmint/internal/credit/domain"
	"github.com/pixelmint/pixelmint/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("credit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) GetOrInit(ctx context.Context, userID string) (domain.Account, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Account{}, domain.ErrInvalidUser
	}

	account, err := s.repo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return domain.Account{}, err
	}
	if account != nil {
		return *account, nil
	}

	now := s.clock.Now()
	seeded := domain.Account{
		UserID:         userID,
		Balance:        domain.SeedBalance,
		LastDailyReset: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, &seeded); err != nil {
		// A uniqueness violation means a concurrent call created the row first.
		if db.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindByUser(ctx, s.db, userID)
			if findErr != nil {
				return domain.Account{}, findErr
			}
			if existing != nil {
				return *existing, nil
			}
		}
		return domain.Account{}, err
	}

	s.log.Info("account seeded", zap.String("user_id", userID), zap.Int64("balance", seeded.Balance))
	return seeded, nil
}

func (s *Service) AuthorizeAndReserve(ctx context.Context, userID string, cost int64, now time.Time) (domain.Usage, error) {
	if cost <= 0 {
		return "", domain.ErrInvalidCost
	}

	account, err := s.GetOrInit(ctx, userID)
	if err != nil {
		return "", err
	}

	if domain.EffectiveDailyCount(account, now) < domain.DailyFreeLimit {
		return domain.UsageFree, nil
	}
	if account.Balance < cost {
		return "", domain.ErrInsufficientCredits
	}
	return domain.UsagePaid, nil
}

func (s *Service) CommitFreeUsage(ctx context.Context, userID string, now time.Time) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidUser
	}

	rows, err := s.repo.IncrementDailyUsage(ctx, s.db, userID, now)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (s *Service) CommitPaidUsage(ctx context.Context, userID string, cost int64) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidUser
	}
	if cost <= 0 {
		return domain.ErrInvalidCost
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.DebitBalance(ctx, tx, userID, cost)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrInsufficientCredits
		}

		account, err := s.repo.FindByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrAccountNotFound
		}

		return s.repo.InsertTransaction(ctx, tx, &domain.CreditTransaction{
			ID:           s.genID.Generate(),
			UserID:       userID,
			Amount:       -cost,
			BalanceAfter: account.Balance,
			Type:         domain.TransactionTypeDebit,
			Description:  "generation charge",
			CreatedAt:    s.clock.Now(),
		})
	})
}

func (s *Service) Grant(ctx context.Context, req domain.GrantRequest) (domain.Account, error) {
	var granted domain.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.GrantTx(ctx, tx, req)
		if err != nil {
			return err
		}
		granted = account
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return granted, nil
}

func (s *Service) GrantTx(ctx context.Context, tx *gorm.DB, req domain.GrantRequest) (domain.Account, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.Account{}, domain.ErrInvalidUser
	}
	if req.Credits <= 0 && req.Subscription == nil {
		return domain.Account{}, domain.ErrInvalidGrant
	}
	if req.Subscription != nil && req.Subscription.Months <= 0 {
		return domain.Account{}, domain.ErrSubscriptionRequired
	}

	now := s.clock.Now()

	account, err := s.repo.FindByUser(ctx, tx, userID)
	if err != nil {
		return domain.Account{}, err
	}

	if account == nil {
		// A payment must never be lost for want of an account row.
		fresh := domain.Account{
			UserID:         userID,
			Balance:        req.Credits,
			LastDailyReset: now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		applySubscription(&fresh, req.Subscription, now)
		if err := s.repo.Insert(ctx, tx, &fresh); err != nil {
			return domain.Account{}, err
		}
	} else {
		if req.Credits > 0 {
			if _, err := s.repo.CreditBalance(ctx, tx, userID, req.Credits); err != nil {
				return domain.Account{}, err
			}
		}
		if req.Subscription != nil {
			updated := *account
			applySubscription(&updated, req.Subscription, now)
			if err := s.repo.UpdateSubscription(ctx, tx, userID,
				updated.SubscriptionTier, updated.SubscriptionStatus, *updated.SubscriptionExpiresAt); err != nil {
				return domain.Account{}, err
			}
		}
	}

	result, err := s.repo.FindByUser(ctx, tx, userID)
	if err != nil {
		return domain.Account{}, err
	}
	if result == nil {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	granted := *result

	if req.Credits > 0 {
		err := s.repo.InsertTransaction(ctx, tx, &domain.CreditTransaction{
			ID:           s.genID.Generate(),
			UserID:       userID,
			Amount:       req.Credits,
			BalanceAfter: granted.Balance,
			Type:         domain.TransactionTypeGrant,
			Description:  req.Description,
			CreatedAt:    now,
		})
		if err != nil {
			return domain.Account{}, err
		}
	}

	s.log.Info("credits granted",
		zap.String("user_id", userID),
		zap.Int64("credits", req.Credits),
		zap.Bool("subscription", req.Subscription != nil),
	)
	return granted, nil
}

func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]domain.CreditTransaction, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListTransactions(ctx, s.db, userID, limit)
}

// applySubscription extends the expiry from max(now, current expiry) so an
// early renewal never shortens the remaining term.
func applySubscription(account *domain.Account, sub *domain.SubscriptionGrant, now time.Time) {
	if sub == nil {
		return
	}
	base := now
	if account.SubscriptionExpiresAt != nil && account.SubscriptionExpiresAt.After(now) {
		base = *account.SubscriptionExpiresAt
	}
	expiry := base.AddDate(0, sub.Months, 0)

	account.SubscriptionTier = sub.Tier
	account.SubscriptionStatus = domain.SubscriptionStatusActive
	account.SubscriptionExpiresAt = &expiry
}
