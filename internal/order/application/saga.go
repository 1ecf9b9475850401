// Package application hosts the order placement saga and its inverse,
// cancellation. Placement runs as an explicit sequence of steps with a
// compensation stack: every committed step registers the action that
// semantically undoes it, and any later failure unwinds the stack
// before the error reaches the caller. There is no single transaction
// spanning payment, inventory and the order record, so the stack is
// what makes placement look atomic from the outside.
package application

import (
	"context"
	"encoding/json"
	"log/slog"

	invdomain "github.com/acmecommerce/orderflow/internal/inventory/domain"
	"github.com/acmecommerce/orderflow/internal/order/domain"
	payapp "github.com/acmecommerce/orderflow/internal/payment/application"
	"github.com/acmecommerce/orderflow/pkg/apperr"
	"github.com/acmecommerce/orderflow/pkg/retry"
	"github.com/acmecommerce/orderflow/pkg/tracing"
	"github.com/google/uuid"
)

const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderCancelled = "OrderCancelled"
)

type step string

const (
	stepValidate         step = "validate"
	stepCheckInventory   step = "check_inventory"
	stepQuoteShipping    step = "quote_shipping"
	stepCapturePayment   step = "capture_payment"
	stepReserveInventory step = "reserve_inventory"
	stepPersistOrder     step = "persist_order"
	stepBeginProcessing  step = "begin_processing"
)

type PlaceOrderRequest struct {
	CustomerID      string            `json:"customer_id"`
	Items           []domain.LineItem `json:"items"`
	ShippingAddress string            `json:"shipping_address"`
	PaymentMethod   string            `json:"payment_method"`
}

// compensation undoes one committed step; Name shows up in logs when
// the unwind itself needs retries.
type compensation struct {
	name string
	run  func(ctx context.Context) error
}

type Saga struct {
	log            *slog.Logger
	orders         OrderRepository
	inventory      InventoryCoordinator
	payments       PaymentCoordinator
	shipping       ShippingQuoter
	notify         Notifier
	allowedMethods map[string]bool
	compPolicy     retry.Policy
}

func NewSaga(log *slog.Logger, orders OrderRepository, inventory InventoryCoordinator, payments PaymentCoordinator, shipping ShippingQuoter, notify Notifier, allowedMethods []string, compPolicy retry.Policy) *Saga {
	allowed := make(map[string]bool, len(allowedMethods))
	for _, m := range allowedMethods {
		allowed[m] = true
	}
	return &Saga{
		log:            log,
		orders:         orders,
		inventory:      inventory,
		payments:       payments,
		shipping:       shipping,
		notify:         notify,
		allowedMethods: allowed,
		compPolicy:     compPolicy,
	}
}

// PlaceOrder runs validate, optimistic availability check, shipping
// quote, payment capture, authoritative reservation, order persistence
// and the transition to processing, in that order. Inventory is only
// read before payment; the binding check-and-decrement happens after a
// successful capture so funds are never held against stock that was
// never paid for. Confirmation mail is fire-and-forget.
func (s *Saga) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (string, error) {
	orderID := uuid.NewString()
	log := s.log.With("order_id", orderID)
	var comps []compensation

	fail := func(at step, err error) (string, error) {
		log.Warn("placement failed", "step", string(at), "err", err)
		s.compensate(ctx, log, comps)
		return "", err
	}

	// validate
	if err := validateRequest(req, s.allowedMethods); err != nil {
		return fail(stepValidate, err)
	}

	// check_inventory: advisory read to fail fast before charging; the
	// reserve step below re-checks under its own serialization.
	check, err := s.inventory.CheckAvailability(ctx, reservedItems(req.Items))
	if err != nil {
		return fail(stepCheckInventory, err)
	}
	if !check.Available {
		return fail(stepCheckInventory, apperr.Availability("order.place", check.Unavailable))
	}

	// quote_shipping
	shippingCents, err := s.shipping.Quote(ctx, req.ShippingAddress, req.Items)
	if err != nil {
		return fail(stepQuoteShipping, err)
	}
	totalCents := domain.ItemsTotalCents(req.Items) + shippingCents

	// capture_payment
	capture, err := s.payments.Capture(ctx, payapp.CaptureRequest{
		OrderID:     orderID,
		CustomerID:  req.CustomerID,
		Method:      req.PaymentMethod,
		AmountCents: totalCents,
	})
	if err != nil {
		return fail(stepCapturePayment, err)
	}
	if !capture.Authorized {
		return fail(stepCapturePayment, apperr.Payment("order.place", capture.Reason))
	}
	comps = append(comps, compensation{name: "refund_payment", run: func(ctx context.Context) error {
		return s.payments.Refund(ctx, capture.TransactionID)
	}})

	// reserve_inventory: authoritative; can still lose the race the
	// advisory check won, in which case the capture is refunded first.
	reservationID, err := s.inventory.Reserve(ctx, orderID, reservedItems(req.Items))
	if err != nil {
		return fail(stepReserveInventory, err)
	}
	comps = append(comps, compensation{name: "release_reservation", run: func(ctx context.Context) error {
		return s.inventory.ReleaseByOrder(ctx, orderID)
	}})

	// persist_order
	order := domain.NewOrder(orderID, req.CustomerID, req.Items, req.ShippingAddress, req.PaymentMethod, shippingCents, capture.TransactionID)
	placed, _ := json.Marshal(domain.OrderPlaced{
		OrderID:       orderID,
		CustomerID:    req.CustomerID,
		Items:         req.Items,
		TotalCents:    order.TotalCents,
		ShippingCents: shippingCents,
		TransactionID: capture.TransactionID,
		ReservationID: reservationID,
	})
	if err := s.orders.CreateWithEvent(ctx, order, EventOrderPlaced, placed, tracing.Traceparent(ctx)); err != nil {
		return fail(stepPersistOrder, apperr.Dependency("order.place", err))
	}
	comps = append(comps, compensation{name: "cancel_order_record", run: func(ctx context.Context) error {
		return s.markCancelled(ctx, orderID, req.CustomerID, domain.StatusConfirmed, "placement aborted")
	}})

	// begin_processing
	ok, err := s.orders.Transition(ctx, orderID, domain.StatusConfirmed, domain.StatusProcessing, "", nil, "")
	if err != nil {
		return fail(stepBeginProcessing, apperr.Dependency("order.place", err))
	}
	if !ok {
		return fail(stepBeginProcessing, apperr.State("order.place", "order left confirmed state unexpectedly"))
	}

	s.notify.OrderConfirmation(req.CustomerID, orderID, order.TotalCents)
	log.Info("order placed", "total_cents", order.TotalCents, "shipping_cents", shippingCents,
		"transaction_id", capture.TransactionID, "reservation_id", reservationID)
	return orderID, nil
}

// compensate unwinds committed steps in reverse order. Each action is
// retried with bounded backoff: abandoning a captured payment is worse
// than retrying a refund. Exhausted actions are dead-letter logged and
// the unwind continues.
func (s *Saga) compensate(ctx context.Context, log *slog.Logger, comps []compensation) {
	for i := len(comps) - 1; i >= 0; i-- {
		c := comps[i]
		if err := retry.Do(ctx, s.compPolicy, c.run); err != nil {
			log.Error("compensation dead-lettered", "action", c.name, "attempts", s.compPolicy.Attempts, "err", err)
			continue
		}
		log.Info("compensated", "action", c.name)
	}
}

// CancelOrder rejects only on its precondition: the order must exist
// and be confirmed or processing. Once accepted, refund, release,
// status transition and notification each run with their own retries;
// a step that exhausts its budget is dead-letter logged and the
// remaining steps still run, so an accepted cancellation always drives
// the order toward cancelled.
func (s *Saga) CancelOrder(ctx context.Context, orderID string) error {
	order, ok, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return apperr.Dependency("order.cancel", err)
	}
	if !ok {
		return apperr.State("order.cancel", "order not found")
	}
	if !order.Status.Cancellable() {
		return apperr.State("order.cancel", "order cannot be cancelled in status "+string(order.Status))
	}

	log := s.log.With("order_id", orderID)

	if err := retry.Do(ctx, s.compPolicy, func(ctx context.Context) error {
		err := s.payments.Refund(ctx, order.TransactionID)
		if apperr.IsKind(err, apperr.KindState) {
			// Not found or already refunded; nothing left to reverse.
			log.Info("refund skipped", "reason", err.Error())
			return nil
		}
		return err
	}); err != nil {
		log.Error("cancellation refund dead-lettered", "transaction_id", order.TransactionID, "err", err)
	}

	if err := retry.Do(ctx, s.compPolicy, func(ctx context.Context) error {
		return s.inventory.ReleaseByOrder(ctx, orderID)
	}); err != nil {
		log.Error("cancellation release dead-lettered", "err", err)
	}

	if err := retry.Do(ctx, s.compPolicy, func(ctx context.Context) error {
		return s.markCancelled(ctx, orderID, order.CustomerID, order.Status, "cancelled by customer")
	}); err != nil {
		log.Error("cancellation status update dead-lettered", "err", err)
	}

	s.notify.OrderCancelled(order.CustomerID, orderID)
	log.Info("order cancelled")
	return nil
}

func (s *Saga) markCancelled(ctx context.Context, orderID, customerID string, from domain.OrderStatus, reason string) error {
	payload, _ := json.Marshal(domain.OrderCancelled{OrderID: orderID, CustomerID: customerID, Reason: reason})
	for {
		ok, err := s.orders.Transition(ctx, orderID, from, domain.StatusCancelled, EventOrderCancelled, payload, tracing.Traceparent(ctx))
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		// The order moved since we read it; re-read and go again from
		// the fresh status unless it already reached a terminal state.
		current, found, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !found || current.Status == domain.StatusCancelled {
			return nil
		}
		if !current.Status.Cancellable() {
			return apperr.State("order.cancel", "order reached status "+string(current.Status))
		}
		from = current.Status
	}
}

func reservedItems(items []domain.LineItem) []invdomain.ReservedItem {
	out := make([]invdomain.ReservedItem, 0, len(items))
	for _, item := range items {
		out = append(out, invdomain.ReservedItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}
