package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/pixelmint/pixelmint/internal/clock"
	"github.com/pixelmint/pixelmint/internal/credit/domain"
	"github.com/pixelmint/pixelmint/internal/credit/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Account{}, &domain.CreditTransaction{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
}

func TestGetOrInitSeedsAccount(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	account, err := svc.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeedBalance, account.Balance)
	assert.Equal(t, 0, account.DailyGenerations)

	// Second call must return the existing row, not re-seed.
	again, err := svc.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, account.Balance, again.Balance)

	var count int64
	require.NoError(t, db.Model(&domain.Account{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetOrInitRejectsEmptyUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, clock.NewFakeClock(time.Now()))

	_, err := svc.GetOrInit(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestFreeQuotaThenPaidFallback(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	_, err := svc.GetOrInit(ctx, "user-1")
	require.NoError(t, err)

	for i := 0; i < domain.DailyFreeLimit; i++ {
		usage, err := svc.AuthorizeAndReserve(ctx, "user-1", 3, clk.Now())
		require.NoError(t, err)
		assert.Equal(t, domain.UsageFree, usage)
		require.NoError(t, svc.CommitFreeUsage(ctx, "user-1", clk.Now()))
	}

	// Quota exhausted; the next generation is charged against the balance.
	usage, err := svc.AuthorizeAndReserve(ctx, "user-1", 3, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.UsagePaid, usage)

	require.NoError(t, svc.CommitPaidUsage(ctx, "user-1", 3))

	account, err := svc.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeedBalance-3, account.Balance)
	assert.Equal(t, domain.DailyFreeLimit, account.DailyGenerations)
}

func TestAuthorizeInsufficientAfterQuota(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	_, err := svc.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	for i := 0; i < domain.DailyFreeLimit; i++ {
		require.NoError(t, svc.CommitFreeUsage(ctx, "user-1", clk.Now()))
	}

	_, err = svc.AuthorizeAndReserve(ctx, "user-1", domain.SeedBalance+1, clk.Now())
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
}

func TestCommitPaidUsageNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	_, err := svc.GetOrInit(ctx, "user-1")
	require.NoError(t, err)

	err = svc.CommitPaidUsage(ctx, "user-1", domain.SeedBalance+1)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)

	account, err := svc.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeedBalance, account.Balance)

	// A rejected debit must not leave a transaction row behind.
	var count int64
	require.NoError(t, db.Model(&domain.CreditTransaction{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCommitPaidUsageRecordsTransaction(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	_, err := svc.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, svc.CommitPaidUsage(ctx, "user-1", 5))

	entries, err := svc.ListTransactions(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.EqualValues(t, -5, entries[0].Amount)
	assert.Equal(t, domain.TransactionTypeDebit, entries[0].Type)
	assert.Equal(t, domain.SeedBalance-5, entries[0].BalanceAfter)
}

func TestDailyQuotaResetsLazilyAcrossUTCDays(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	_, err := svc.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	for i := 0; i < domain.DailyFreeLimit; i++ {
		require.NoError(t, svc.CommitFreeUsage(ctx, "user-1", clk.Now()))
	}

	// One hour later it is the next UTC day; quota is fresh again.
	clk.Advance(time.Hour)

	usage, err := svc.AuthorizeAndReserve(ctx, "user-1", 3, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.UsageFree, usage)

	require.NoError(t, svc.CommitFreeUsage(ctx, "user-1", clk.Now()))

	account, err := svc.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, account.DailyGenerations)
}

func TestGrantToUnknownUserCreatesAccount(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	account, err := svc.Grant(ctx, domain.GrantRequest{
		UserID:      "new-user",
		Credits:     100,
		Description: "purchase starter",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 100, account.Balance)

	entries, err := svc.ListTransactions(ctx, "new-user", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.EqualValues(t, 100, entries[0].Amount)
	assert.Equal(t, domain.TransactionTypeGrant, entries[0].Type)
}

func TestGrantAddsToExistingBalance(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	_, err := svc.GetOrInit(ctx, "user-1")
	require.NoError(t, err)

	account, err := svc.Grant(ctx, domain.GrantRequest{UserID: "user-1", Credits: 650, Description: "purchase popular"})
	require.NoError(t, err)
	assert.Equal(t, domain.SeedBalance+650, account.Balance)
}

func TestGrantSubscriptionExtendsFromCurrentExpiry(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	svc := newTestService(t, db, clk)

	first, err := svc.Grant(ctx, domain.GrantRequest{
		UserID:       "user-1",
		Credits:      225,
		Subscription: &domain.SubscriptionGrant{Tier: "lite", Months: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, first.SubscriptionExpiresAt)
	assert.Equal(t, now.AddDate(0, 1, 0), first.SubscriptionExpiresAt.UTC())
	assert.Equal(t, "lite", first.SubscriptionTier)
	assert.Equal(t, domain.SubscriptionStatusActive, first.SubscriptionStatus)

	// An early renewal stacks on the remaining term instead of replacing it.
	second, err := svc.Grant(ctx, domain.GrantRequest{
		UserID:       "user-1",
		Credits:      225,
		Subscription: &domain.SubscriptionGrant{Tier: "lite", Months: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, second.SubscriptionExpiresAt)
	assert.Equal(t, now.AddDate(0, 2, 0), second.SubscriptionExpiresAt.UTC())
}

func TestGrantSubscriptionAfterLapseStartsFromNow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	svc := newTestService(t, db, clk)

	_, err := svc.Grant(ctx, domain.GrantRequest{
		UserID:       "user-1",
		Credits:      225,
		Subscription: &domain.SubscriptionGrant{Tier: "lite", Months: 1},
	})
	require.NoError(t, err)

	// Long after expiry, a new purchase starts a fresh term from now.
	clk.Advance(90 * 24 * time.Hour)

	account, err := svc.Grant(ctx, domain.GrantRequest{
		UserID:       "user-1",
		Credits:      750,
		Subscription: &domain.SubscriptionGrant{Tier: "pro", Months: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, account.SubscriptionExpiresAt)
	assert.Equal(t, clk.Now().AddDate(0, 1, 0), account.SubscriptionExpiresAt.UTC())
	assert.Equal(t, "pro", account.SubscriptionTier)
}

func TestGrantValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, clock.NewFakeClock(time.Now()))
	ctx := context.Background()

	_, err := svc.Grant(ctx, domain.GrantRequest{UserID: "", Credits: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = svc.Grant(ctx, domain.GrantRequest{UserID: "u"})
	assert.ErrorIs(t, err, domain.ErrInvalidGrant)

	_, err = svc.Grant(ctx, domain.GrantRequest{
		UserID:       "u",
		Credits:      10,
		Subscription: &domain.SubscriptionGrant{Tier: "lite"},
	})
	assert.ErrorIs(t, err, domain.ErrSubscriptionRequired)
}
