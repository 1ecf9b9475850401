// Package application coordinates stock availability, reservation and
// release. The availability check is read-only and advisory; the
// reserve path re-checks and decrements each product under a quantity
// guard inside one transaction, so concurrent orders can never drive
// stock negative no matter what the earlier check reported.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/acmecommerce/orderflow/internal/inventory/domain"
	"github.com/acmecommerce/orderflow/pkg/apperr"
	"github.com/google/uuid"
)

type CheckResult struct {
	Available   bool
	Unavailable []string
}

type Service struct {
	log          *slog.Logger
	products     ProductStore
	reservations ReservationStore
	notify       Notifier
	window       time.Duration
	now          func() time.Time
}

func NewService(log *slog.Logger, products ProductStore, reservations ReservationStore, notify Notifier, window time.Duration) *Service {
	return &Service{
		log:          log,
		products:     products,
		reservations: reservations,
		notify:       notify,
		window:       window,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CheckAvailability is read-only: a product is unavailable when it is
// missing or has less stock than requested.
func (s *Service) CheckAvailability(ctx context.Context, items []domain.ReservedItem) (CheckResult, error) {
	var unavailable []string
	for _, item := range items {
		product, ok, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			return CheckResult{}, apperr.Dependency("inventory.check", err)
		}
		if !ok || product.Quantity < item.Quantity {
			unavailable = append(unavailable, item.ProductID)
		}
	}
	return CheckResult{Available: len(unavailable) == 0, Unavailable: unavailable}, nil
}

// Reserve deducts stock for every item and records a reservation with
// the configured expiry window. The store runs the deductions and the
// reservation insert as one transaction with a per-item quantity
// guard, so a reservation either covers all items or leaves
// quantities untouched.
func (s *Service) Reserve(ctx context.Context, orderID string, items []domain.ReservedItem) (string, error) {
	now := s.now()
	res := domain.Reservation{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Items:     items,
		Status:    domain.ReservationActive,
		CreatedAt: now,
		ExpiresAt: now.Add(s.window),
	}
	lowStock, short, err := s.reservations.Reserve(ctx, res)
	if err != nil {
		return "", apperr.Dependency("inventory.reserve", err)
	}
	if short != "" {
		return "", apperr.Availability("inventory.reserve", []string{short})
	}

	for _, p := range lowStock {
		s.notify.LowStock(p.ID, p.Quantity)
	}

	s.log.Info("reservation created", "reservation_id", res.ID, "order_id", orderID, "expires_at", res.ExpiresAt)
	return res.ID, nil
}

// Release returns a reservation's quantities to stock. The active to
// released flip and the credits commit together, and the flip is the
// idempotence guard: a second call finds the reservation already
// released and credits nothing, while a failed call leaves it active
// so the retry credits in full.
func (s *Service) Release(ctx context.Context, reservationID string) error {
	res, ok, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return apperr.Dependency("inventory.release", err)
	}
	if !ok {
		return apperr.State("inventory.release", "reservation not found")
	}

	released, err := s.reservations.ReleaseAndCredit(ctx, reservationID)
	if err != nil {
		return apperr.Dependency("inventory.release", err)
	}
	if !released {
		s.log.Info("reservation already closed, skipping credit", "reservation_id", reservationID)
		return nil
	}
	s.log.Info("reservation released", "reservation_id", reservationID, "order_id", res.OrderID)
	return nil
}

// ReleaseByOrder releases the reservation protecting orderID. A
// missing reservation is a no-op so cancellation retries stay safe.
func (s *Service) ReleaseByOrder(ctx context.Context, orderID string) error {
	res, ok, err := s.reservations.GetByOrder(ctx, orderID)
	if err != nil {
		return apperr.Dependency("inventory.release", err)
	}
	if !ok {
		return nil
	}
	return s.Release(ctx, res.ID)
}

// Fulfill closes the reservation permanently; quantities stay deducted.
func (s *Service) Fulfill(ctx context.Context, reservationID string) error {
	_, ok, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return apperr.Dependency("inventory.fulfill", err)
	}
	if !ok {
		return apperr.State("inventory.fulfill", "reservation not found")
	}
	flipped, err := s.reservations.MarkFulfilled(ctx, reservationID)
	if err != nil {
		return apperr.Dependency("inventory.fulfill", err)
	}
	if !flipped {
		return apperr.State("inventory.fulfill", "reservation is not active")
	}
	return nil
}

// Restock credits new stock and announces products coming back from
// zero.
func (s *Service) Restock(ctx context.Context, productID string, qty int64) error {
	if qty <= 0 {
		return apperr.Validation("inventory.restock", "quantity must be positive")
	}
	product, ok, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return apperr.Dependency("inventory.restock", err)
	}
	if !ok {
		return apperr.Validation("inventory.restock", "product not found")
	}

	wasOut := product.Quantity == 0
	if _, err := s.products.AdjustQuantity(ctx, productID, qty); err != nil {
		return apperr.Dependency("inventory.restock", err)
	}
	s.log.Info("product restocked", "product_id", productID, "qty", qty)

	if wasOut {
		s.notify.BackInStock(productID)
	}
	return nil
}
