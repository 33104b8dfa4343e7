package services

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderRef is what order initiation stores on the booking before
// returning to the caller: the processor's order id (the webhook
// correlation key) and the URL the client is redirected to.
type OrderRef struct {
	OrderID     string `json:"orderId"`
	ApprovalURL string `json:"approvalUrl,omitempty"`
}

// OrderCreator is implemented by both processor adapters. Amounts are
// full-precision decimals; adapters round to two places at the wire.
type OrderCreator interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, description string) (OrderRef, error)
}
