package domain

type PaymentCaptured struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	CustomerID    string `json:"customer_id"`
	AmountCents   int64  `json:"amount_cents"`
	Method        string `json:"method"`
}

type PaymentRefunded struct {
	TransactionID string `json:"transaction_id"`
	CustomerID    string `json:"customer_id"`
	AmountCents   int64  `json:"amount_cents"`
}
