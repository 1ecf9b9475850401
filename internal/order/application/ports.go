package application

import (
	"context"

	invapp "github.com/acmecommerce/orderflow/internal/inventory/application"
	invdomain "github.com/acmecommerce/orderflow/internal/inventory/domain"
	"github.com/acmecommerce/orderflow/internal/order/domain"
	payapp "github.com/acmecommerce/orderflow/internal/payment/application"
)

type OrderRepository interface {
	// CreateWithEvent persists the order and its placement event in one
	// transaction (outbox pattern).
	CreateWithEvent(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error
	Get(ctx context.Context, id string) (domain.Order, bool, error)
	// Transition moves the order from one status to another and writes
	// the event in the same transaction; ok is false when the order was
	// not in the expected from status.
	Transition(ctx context.Context, id string, from, to domain.OrderStatus, eventType string, payload []byte, traceparent string) (ok bool, err error)
}

type InventoryCoordinator interface {
	CheckAvailability(ctx context.Context, items []invdomain.ReservedItem) (invapp.CheckResult, error)
	Reserve(ctx context.Context, orderID string, items []invdomain.ReservedItem) (string, error)
	ReleaseByOrder(ctx context.Context, orderID string) error
}

type PaymentCoordinator interface {
	Capture(ctx context.Context, req payapp.CaptureRequest) (payapp.CaptureResult, error)
	Refund(ctx context.Context, transactionID string) error
}

type ShippingQuoter interface {
	Quote(ctx context.Context, address string, items []domain.LineItem) (int64, error)
}

type Notifier interface {
	OrderConfirmation(customerID, orderID string, totalCents int64)
	OrderCancelled(customerID, orderID string)
}
