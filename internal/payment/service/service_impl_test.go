package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/pixelmint/pixelmint/internal/clock"
	"github.com/pixelmint/pixelmint/internal/config"
	creditdomain "github.com/pixelmint/pixelmint/internal/credit/domain"
	creditrepo "github.com/pixelmint/pixelmint/internal/credit/repository"
	creditservice "github.com/pixelmint/pixelmint/internal/credit/service"
	orderdomain "github.com/pixelmint/pixelmint/internal/order/domain"
	orderrepo "github.com/pixelmint/pixelmint/internal/order/repository"
	"github.com/pixelmint/pixelmint/internal/payment/domain"
	"github.com/pixelmint/pixelmint/internal/payment/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type fixture struct {
	db       *gorm.DB
	clk      *clock.FakeClock
	credits  creditdomain.Service
	orders   orderdomain.Repository
	payments domain.Service
	provider *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&creditdomain.Account{}, &creditdomain.CreditTransaction{}, &orderdomain.Order{}))

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errcode":0,"errmsg":"success","url":"https://pay.example/checkout/1"}`))
	}))
	t.Cleanup(provider.Close)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	credits := creditservice.New(creditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  creditrepo.Provide(),
	})

	gw := gateway.NewClient(config.Config{
		PayAppID:     "app-1",
		PayAppSecret: testSecret,
		PayAPIURL:    provider.URL,
	}, zap.NewNop())

	orders := orderrepo.Provide()
	payments := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Clock:   clk,
		Gateway: gw,
		Orders:  orders,
		Credits: credits,
		Catalog: config.NewPlanCatalog(config.DefaultPlanCatalog()),
	})

	return &fixture{db: db, clk: clk, credits: credits, orders: orders, payments: payments, provider: provider}
}

// notify builds a signed form-encoded delivery and feeds it through the service.
func (f *fixture) notify(t *testing.T, params map[string]string) error {
	t.Helper()

	params["hash"] = gateway.Sign(params, testSecret)
	body := url.Values{}
	for k, v := range params {
		body.Set(k, v)
	}
	return f.payments.HandleNotification(context.Background(), []byte(body.Encode()), "application/x-www-form-urlencoded")
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.payments.Checkout(ctx, domain.CheckoutRequest{
		UserID: "user-1",
		PlanID: "starter",
		Amount: "9.99",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/checkout/1", resp.CheckoutURL)
	assert.Len(t, resp.TradeRef, 32)
	assert.NotContains(t, resp.TradeRef, "-")

	order, err := f.orders.FindByTradeRef(ctx, f.db, resp.TradeRef)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, orderdomain.StatusPending, order.Status)
	assert.Equal(t, "starter", order.PlanID)
	assert.Equal(t, resp.OrderID, order.ID)
}

func TestCheckoutValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.payments.Checkout(ctx, domain.CheckoutRequest{UserID: "", PlanID: "starter", Amount: "9.99"})
	assert.ErrorIs(t, err, orderdomain.ErrInvalidUser)

	_, err = f.payments.Checkout(ctx, domain.CheckoutRequest{UserID: "u", PlanID: "no-such-plan", Amount: "9.99"})
	assert.ErrorIs(t, err, orderdomain.ErrInvalidPlan)

	_, err = f.payments.Checkout(ctx, domain.CheckoutRequest{UserID: "u", PlanID: "starter", Amount: "-1"})
	assert.ErrorIs(t, err, orderdomain.ErrInvalidAmount)
}

func TestNotificationFulfillsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.payments.Checkout(ctx, domain.CheckoutRequest{UserID: "user-1", PlanID: "starter", Amount: "9.99"})
	require.NoError(t, err)

	err = f.notify(t, map[string]string{
		"trade_order_id": resp.TradeRef,
		"status":         domain.StatusPaid,
		"transaction_id": "prov-tx-1",
		"total_fee":      "9.99",
	})
	require.NoError(t, err)

	order, err := f.orders.FindByTradeRef(ctx, f.db, resp.TradeRef)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusPaid, order.Status)
	assert.Equal(t, "prov-tx-1", order.ProviderTradeNo)
	require.NotNil(t, order.PaidAt)

	account, err := f.credits.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 100, account.Balance)
}

func TestNotificationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.payments.Checkout(ctx, domain.CheckoutRequest{UserID: "user-1", PlanID: "popular", Amount: "29.99"})
	require.NoError(t, err)

	params := func() map[string]string {
		return map[string]string{
			"trade_order_id": resp.TradeRef,
			"status":         domain.StatusPaid,
			"transaction_id": "prov-tx-1",
		}
	}

	require.NoError(t, f.notify(t, params()))
	// Redelivery of the same notification must be accepted and grant nothing.
	require.NoError(t, f.notify(t, params()))

	account, err := f.credits.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 650, account.Balance)

	var count int64
	require.NoError(t, f.db.Model(&creditdomain.CreditTransaction{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestNotificationRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.payments.Checkout(ctx, domain.CheckoutRequest{UserID: "user-1", PlanID: "starter", Amount: "9.99"})
	require.NoError(t, err)

	body := url.Values{}
	body.Set("trade_order_id", resp.TradeRef)
	body.Set("status", domain.StatusPaid)
	body.Set("hash", "0000000000000000000000000000dead")

	err = f.payments.HandleNotification(ctx, []byte(body.Encode()), "application/x-www-form-urlencoded")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	order, err := f.orders.FindByTradeRef(ctx, f.db, resp.TradeRef)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusPending, order.Status)
}

func TestNotificationUnknownOrder(t *testing.T) {
	f := newFixture(t)

	err := f.notify(t, map[string]string{
		"trade_order_id": "feedfacefeedfacefeedfacefeedface",
		"status":         domain.StatusPaid,
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestNotificationIgnoresNonPaidStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.payments.Checkout(ctx, domain.CheckoutRequest{UserID: "user-1", PlanID: "starter", Amount: "9.99"})
	require.NoError(t, err)

	require.NoError(t, f.notify(t, map[string]string{
		"trade_order_id": resp.TradeRef,
		"status":         "WP",
	}))

	order, err := f.orders.FindByTradeRef(ctx, f.db, resp.TradeRef)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusPending, order.Status)
}

func TestNotificationJSONBody(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.payments.Checkout(ctx, domain.CheckoutRequest{UserID: "user-1", PlanID: "gift", Amount: "0.99"})
	require.NoError(t, err)

	params := map[string]string{
		"trade_order_id": resp.TradeRef,
		"status":         domain.StatusPaid,
		"transaction_id": "prov-tx-9",
	}
	params["hash"] = gateway.Sign(params, testSecret)

	body := `{"trade_order_id":"` + resp.TradeRef + `","status":"OD","transaction_id":"prov-tx-9","hash":"` + params["hash"] + `"}`
	require.NoError(t, f.payments.HandleNotification(ctx, []byte(body), "application/json"))

	account, err := f.credits.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 30, account.Balance)
}

func TestMonthlySubscriptionGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.payments.Checkout(ctx, domain.CheckoutRequest{UserID: "user-1", PlanID: "pro", Amount: "49.99"})
	require.NoError(t, err)

	require.NoError(t, f.notify(t, map[string]string{
		"trade_order_id": resp.TradeRef,
		"status":         domain.StatusPaid,
	}))

	account, err := f.credits.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 750, account.Balance)
	assert.Equal(t, "pro", account.SubscriptionTier)
	require.NotNil(t, account.SubscriptionExpiresAt)
	assert.Equal(t, f.clk.Now().AddDate(0, 1, 0), account.SubscriptionExpiresAt.UTC())
}

func TestAnnualSubscriptionGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Priced above the plan's annual threshold: a year of credits up front.
	resp, err := f.payments.Checkout(ctx, domain.CheckoutRequest{UserID: "user-1", PlanID: "pro", Amount: "599.00"})
	require.NoError(t, err)

	require.NoError(t, f.notify(t, map[string]string{
		"trade_order_id": resp.TradeRef,
		"status":         domain.StatusPaid,
	}))

	account, err := f.credits.GetOrInit(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 750*12, account.Balance)
	assert.Equal(t, "pro", account.SubscriptionTier)
	require.NotNil(t, account.SubscriptionExpiresAt)
	assert.Equal(t, f.clk.Now().AddDate(0, 12, 0), account.SubscriptionExpiresAt.UTC())
}

func TestEntitlementFor(t *testing.T) {
	catalog := config.DefaultPlanCatalog()
	var pro config.Plan
	for _, p := range catalog.Plans {
		if p.ID == "pro" {
			pro = p
		}
	}

	monthly := entitlementFor(pro, "49.99")
	assert.EqualValues(t, 750, monthly.Credits)
	require.NotNil(t, monthly.Subscription)
	assert.Equal(t, 1, monthly.Subscription.Months)

	annual := entitlementFor(pro, "599.00")
	assert.EqualValues(t, 9000, annual.Credits)
	require.NotNil(t, annual.Subscription)
	assert.Equal(t, 12, annual.Subscription.Months)

	// Exactly at the threshold stays monthly.
	edge := entitlementFor(pro, "500")
	assert.Equal(t, 1, edge.Subscription.Months)
}
