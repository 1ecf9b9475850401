package application

import (
	"context"

	"github.com/acmecommerce/orderflow/pkg/worker"
)

// Async wraps the dispatcher in the bounded worker queue so saga and
// coordinator call sites can fire a notification without waiting on it
// or seeing its failure. Retries and dead-lettering live in the pool.
type Async struct {
	dispatcher *Dispatcher
	pool       *worker.Pool
}

func NewAsync(dispatcher *Dispatcher, pool *worker.Pool) *Async {
	return &Async{dispatcher: dispatcher, pool: pool}
}

func (a *Async) OrderConfirmation(customerID, orderID string, totalCents int64) {
	a.pool.Submit(worker.Task{Name: "notify.order_confirmation", Run: func(ctx context.Context) error {
		return a.dispatcher.OrderConfirmation(ctx, customerID, orderID, totalCents)
	}})
}

func (a *Async) OrderCancelled(customerID, orderID string) {
	a.pool.Submit(worker.Task{Name: "notify.order_cancelled", Run: func(ctx context.Context) error {
		return a.dispatcher.OrderCancelled(ctx, customerID, orderID)
	}})
}

func (a *Async) PaymentReceipt(customerID, transactionID string, amountCents int64) {
	a.pool.Submit(worker.Task{Name: "notify.payment_receipt", Run: func(ctx context.Context) error {
		return a.dispatcher.PaymentReceipt(ctx, customerID, transactionID, amountCents)
	}})
}

func (a *Async) RefundNotice(customerID, transactionID string, amountCents int64) {
	a.pool.Submit(worker.Task{Name: "notify.refund_notice", Run: func(ctx context.Context) error {
		return a.dispatcher.RefundNotice(ctx, customerID, transactionID, amountCents)
	}})
}

func (a *Async) ShippingUpdate(customerID, orderID, status, trackingNumber string) {
	a.pool.Submit(worker.Task{Name: "notify.shipping_update", Run: func(ctx context.Context) error {
		return a.dispatcher.ShippingUpdate(ctx, customerID, orderID, status, trackingNumber)
	}})
}

func (a *Async) LowStock(productID string, remaining int64) {
	a.pool.Submit(worker.Task{Name: "notify.low_stock", Run: func(ctx context.Context) error {
		return a.dispatcher.LowStockAlert(ctx, productID, remaining)
	}})
}

func (a *Async) BackInStock(productID string) {
	a.pool.Submit(worker.Task{Name: "notify.back_in_stock", Run: func(ctx context.Context) error {
		return a.dispatcher.BackInStock(ctx, productID)
	}})
}
