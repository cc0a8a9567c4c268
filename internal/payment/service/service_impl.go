package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pixelmint/pixelmint/internal/clock"
	"github.com/pixelmint/pixelmint/internal/config"
	creditdomain "github.com/pixelmint/pixelmint/internal/credit/domain"
	"github.com/pixelmint/pixelmint/internal/observability/metrics"
	orderdomain "github.com/pixelmint/pixelmint/internal/order/domain"
	"github.com/pixelmint/pixelmint/internal/payment/domain"
	"github.com/pixelmint/pixelmint/internal/payment/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Gateway *gateway.Client
	Orders  orderdomain.Repository
	Credits creditdomain.Service
	Catalog *config.PlanCatalog
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	gateway *gateway.Client
	orders  orderdomain.Repository
	credits creditdomain.Service
	catalog *config.PlanCatalog
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("payment.service"),
		clock:   p.Clock,
		gateway: p.Gateway,
		orders:  p.Orders,
		credits: p.Credits,
		catalog: p.Catalog,
		metrics: p.Metrics,
	}
}

func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.CheckoutResponse{}, orderdomain.ErrInvalidUser
	}
	plan, ok := s.catalog.Find(strings.TrimSpace(req.PlanID))
	if !ok {
		return domain.CheckoutResponse{}, orderdomain.ErrInvalidPlan
	}
	amount := strings.TrimSpace(req.Amount)
	if parsed, err := strconv.ParseFloat(amount, 64); err != nil || parsed <= 0 {
		return domain.CheckoutResponse{}, orderdomain.ErrInvalidAmount
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = plan.ID + " plan"
	}

	now := s.clock.Now()
	orderID := uuid.NewString()
	// The provider limits trade references to alphanumerics; the order id
	// with hyphens stripped is exactly 32 chars and stays recoverable.
	tradeRef := strings.ReplaceAll(orderID, "-", "")

	order := orderdomain.Order{
		ID:        orderID,
		UserID:    userID,
		PlanID:    plan.ID,
		Amount:    amount,
		Status:    orderdomain.StatusPending,
		TradeRef:  tradeRef,
		Metadata:  datatypes.JSONMap{"title": title},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.Insert(ctx, s.db, &order); err != nil {
		return domain.CheckoutResponse{}, err
	}

	checkoutURL, err := s.gateway.CreatePayment(ctx, gateway.CreatePaymentRequest{
		TradeOrderID: tradeRef,
		TotalFee:     amount,
		Title:        title,
	})
	if err != nil {
		// The pending order row stays behind; it can never be fulfilled
		// without a provider notification, so it is harmless.
		return domain.CheckoutResponse{}, err
	}

	s.log.Info("checkout created",
		zap.String("order_id", orderID),
		zap.String("user_id", userID),
		zap.String("plan_id", plan.ID),
	)
	return domain.CheckoutResponse{
		OrderID:     orderID,
		TradeRef:    tradeRef,
		CheckoutURL: checkoutURL,
	}, nil
}

func (s *Service) HandleNotification(ctx context.Context, body []byte, contentType string) error {
	params, err := gateway.ParseNotification(body, contentType)
	if err != nil {
		s.metrics.IncPaymentNotification("rejected")
		return err
	}

	expected := gateway.Sign(params, s.gateway.AppSecret())
	if !strings.EqualFold(expected, params["hash"]) {
		s.metrics.IncPaymentNotification("rejected")
		s.log.Warn("notification signature mismatch", zap.String("trade_order_id", params["trade_order_id"]))
		return domain.ErrInvalidSignature
	}

	if params["status"] != domain.StatusPaid {
		// Intermediate statuses are acknowledged so the provider stops
		// retrying, but nothing is fulfilled.
		s.metrics.IncPaymentNotification("ignored")
		s.log.Info("notification ignored",
			zap.String("status", params["status"]),
			zap.String("trade_order_id", params["trade_order_id"]),
		)
		return nil
	}

	tradeRef := strings.TrimSpace(params["trade_order_id"])
	if tradeRef == "" {
		s.metrics.IncPaymentNotification("rejected")
		return domain.ErrMissingTradeRef
	}

	order, err := s.orders.FindByTradeRef(ctx, s.db, tradeRef)
	if err != nil {
		return err
	}
	if order == nil {
		s.metrics.IncPaymentNotification("rejected")
		s.log.Warn("notification for unknown order", zap.String("trade_order_id", tradeRef))
		return domain.ErrOrderNotFound
	}

	var fulfilled bool
	var grantedCredits int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.orders.MarkPaid(ctx, tx, order.ID, params["transaction_id"], s.clock.Now())
		if err != nil {
			return err
		}
		if rows == 0 {
			// Another delivery already flipped the order to paid. The grant
			// went with it, so this one is a pure acknowledgment.
			return nil
		}
		fulfilled = true

		plan, ok := s.catalog.Find(order.PlanID)
		if !ok {
			s.log.Warn("paid order references unknown plan",
				zap.String("order_id", order.ID),
				zap.String("plan_id", order.PlanID),
			)
			return nil
		}

		grant := entitlementFor(plan, order.Amount)
		grant.UserID = order.UserID
		grantedCredits = grant.Credits
		_, err = s.credits.GrantTx(ctx, tx, grant)
		return err
	})
	if err != nil {
		return err
	}

	if !fulfilled {
		s.metrics.IncPaymentNotification("duplicate")
		s.log.Info("duplicate notification", zap.String("order_id", order.ID))
		return nil
	}

	s.metrics.IncPaymentNotification("fulfilled")
	s.metrics.AddCreditsGranted(grantedCredits)
	s.log.Info("order fulfilled",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("plan_id", order.PlanID),
		zap.Int64("credits", grantedCredits),
	)
	return nil
}

// entitlementFor maps a paid order onto a credit grant. Subscription plans
// priced above their annual threshold are treated as yearly purchases: twelve
// months of credits up front and a twelve month term.
func entitlementFor(plan config.Plan, amount string) creditdomain.GrantRequest {
	credits := plan.Credits
	description := "purchase " + plan.ID

	var sub *creditdomain.SubscriptionGrant
	if plan.Tier != "" {
		months := 1
		paid, err := strconv.ParseFloat(amount, 64)
		if err == nil && plan.AnnualThreshold > 0 && paid > plan.AnnualThreshold {
			months = 12
			credits = plan.Credits * 12
		}
		sub = &creditdomain.SubscriptionGrant{Tier: plan.Tier, Months: months}
	}

	return creditdomain.GrantRequest{
		Credits:      credits,
		Description:  description,
		Subscription: sub,
	}
}
