package domain

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusFulfilled  OrderStatus = "fulfilled"
	StatusCancelled  OrderStatus = "cancelled"
)

// CanTransition reports whether moving from s to target is a legal
// lifecycle step. Cancellation from confirmed or processing is the only
// backward move; fulfilled and cancelled are terminal.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	switch s {
	case StatusPending:
		return target == StatusConfirmed
	case StatusConfirmed:
		return target == StatusProcessing || target == StatusCancelled
	case StatusProcessing:
		return target == StatusFulfilled || target == StatusCancelled
	default:
		return false
	}
}

func (s OrderStatus) Terminal() bool {
	return s == StatusFulfilled || s == StatusCancelled
}

func (s OrderStatus) Cancellable() bool {
	return s == StatusConfirmed || s == StatusProcessing
}

type LineItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`

	// WeightUnits is the per-unit shipping weight; zero means the
	// default unit weight applies at quote time.
	WeightUnits int64 `json:"weight_units,omitempty"`
}

func (i LineItem) SubtotalCents() int64 {
	return i.Quantity * i.UnitPriceCents
}

// Order is created by the saga once payment has been captured. Line
// items and amounts are immutable after placement; only the status
// moves, and only along the lifecycle above.
type Order struct {
	ID              string
	CustomerID      string
	Items           []LineItem
	ShippingAddress string
	PaymentMethod   string
	TotalCents      int64
	ShippingCents   int64
	TransactionID   string
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ItemsTotalCents sums the line-item subtotals without shipping.
func ItemsTotalCents(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.SubtotalCents()
	}
	return total
}

func NewOrder(id, customerID string, items []LineItem, address, method string, shippingCents int64, transactionID string) Order {
	now := time.Now().UTC()
	return Order{
		ID:              id,
		CustomerID:      customerID,
		Items:           items,
		ShippingAddress: address,
		PaymentMethod:   method,
		TotalCents:      ItemsTotalCents(items) + shippingCents,
		ShippingCents:   shippingCents,
		TransactionID:   transactionID,
		Status:          StatusConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
