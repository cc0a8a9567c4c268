package domain

import (
	"context"
	"errors"
)

// StatusPaid is the provider's "order delivered" notification status. Any
// other status is acknowledged without fulfillment.
const StatusPaid = "OD"

type CheckoutRequest struct {
	UserID string
	PlanID string
	Amount string
	Title  string
}

type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	TradeRef    string `json:"trade_ref"`
	CheckoutURL string `json:"checkout_url"`
}

type Service interface {
	// Checkout creates a pending order and registers it with the payment
	// provider, returning the hosted checkout URL.
	Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResponse, error)

	// HandleNotification verifies and fulfills an asynchronous payment
	// notification. A nil return means the delivery was accepted, including
	// replays of already fulfilled orders and non-paid status updates.
	HandleNotification(ctx context.Context, body []byte, contentType string) error
}

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrOrderNotFound    = errors.New("payment_order_not_found")
	ErrMissingTradeRef  = errors.New("missing_trade_order_id")
)
