package domain

import "time"

type Product struct {
	ID                string
	Name              string
	Quantity          int64
	LowStockThreshold int64
}

// LowStock reports whether available quantity has dropped below the
// product's configured threshold.
func (p Product) LowStock() bool {
	return p.Quantity < p.LowStockThreshold
}

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationReleased  ReservationStatus = "released"
	ReservationFulfilled ReservationStatus = "fulfilled"
)

type ReservedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// Reservation is a temporary hold on stock tied to one order. The
// quantities were already deducted from the products when it was
// created; releasing credits them back, fulfilling makes the deduction
// permanent. Both are one-way moves out of the active state.
type Reservation struct {
	ID        string
	OrderID   string
	Items     []ReservedItem
	Status    ReservationStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (r Reservation) Expired(now time.Time) bool {
	return r.Status == ReservationActive && now.After(r.ExpiresAt)
}
