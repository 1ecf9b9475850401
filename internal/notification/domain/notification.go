package domain

import "time"

type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindOrderCancelled    Kind = "order_cancelled"
	KindPaymentReceipt    Kind = "payment_receipt"
	KindRefundNotice      Kind = "refund_notice"
	KindLowStockAlert     Kind = "low_stock_alert"
	KindBackInStock       Kind = "back_in_stock"
	KindShippingUpdate    Kind = "shipping_update"
)

// Record logs one delivery attempt, successful or not.
type Record struct {
	ID          string
	CustomerID  string
	Kind        Kind
	ReferenceID string
	Delivered   bool
	Error       string
	CreatedAt   time.Time
}
