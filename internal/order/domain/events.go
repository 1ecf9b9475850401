package domain

type OrderPlaced struct {
	OrderID       string     `json:"order_id"`
	CustomerID    string     `json:"customer_id"`
	Items         []LineItem `json:"items"`
	TotalCents    int64      `json:"total_cents"`
	ShippingCents int64      `json:"shipping_cents"`
	TransactionID string     `json:"transaction_id"`
	ReservationID string     `json:"reservation_id"`
}

type OrderCancelled struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason,omitempty"`
}
