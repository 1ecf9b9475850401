package application

import (
	"context"

	"github.com/acmecommerce/orderflow/internal/inventory/domain"
)

type ProductStore interface {
	GetByID(ctx context.Context, id string) (domain.Product, bool, error)
	// AdjustQuantity credits (or debits) available stock atomically and
	// returns the product after the change.
	AdjustQuantity(ctx context.Context, id string, delta int64) (domain.Product, error)
}

type ReservationStore interface {
	// Reserve decrements stock for every item and records res in one
	// transaction. Each decrement keeps the quantity guard, so
	// concurrent reservations still serialize on the product rows;
	// when any product comes up short the whole transaction rolls
	// back and short names it. low carries products the reservation
	// left at or below their threshold.
	Reserve(ctx context.Context, res domain.Reservation) (low []domain.Product, short string, err error)
	Get(ctx context.Context, id string) (domain.Reservation, bool, error)
	GetByOrder(ctx context.Context, orderID string) (domain.Reservation, bool, error)
	// ReleaseAndCredit flips active to released and credits every item
	// back to stock in the same transaction, so a failed release
	// leaves the reservation active for the retry. ok is false when
	// the reservation was not active; nothing is credited then.
	ReleaseAndCredit(ctx context.Context, id string) (ok bool, err error)
	MarkFulfilled(ctx context.Context, id string) (ok bool, err error)
}

// Notifier delivers inventory side effects without blocking the
// operation that triggered them.
type Notifier interface {
	LowStock(productID string, remaining int64)
	BackInStock(productID string)
}
