package domain

import "time"

type Status string

const (
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
)

// Transaction records a successful capture. Amount and method never
// change after creation; the only legal mutation is completed to
// refunded, and only once the gateway has confirmed the refund.
type Transaction struct {
	ID                   string
	OrderID              string
	CustomerID           string
	AmountCents          int64
	Method               string
	GatewayTransactionID string
	Status               Status
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
