// Package application formats and sends customer-facing notifications
// and records every attempt. Callers on post-commit paths route
// through the async dispatcher so a delivery failure can never unwind
// an order whose payment was already captured.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/acmecommerce/orderflow/internal/notification/domain"
	"github.com/acmecommerce/orderflow/pkg/apperr"
	"github.com/google/uuid"
)

type Dispatcher struct {
	log         *slog.Logger
	users       UserDirectory
	templates   TemplateFormatter
	mailer      Mailer
	records     RecordLog
	adminEmails []string
}

func NewDispatcher(log *slog.Logger, users UserDirectory, templates TemplateFormatter, mailer Mailer, records RecordLog, adminEmails []string) *Dispatcher {
	return &Dispatcher{
		log:         log,
		users:       users,
		templates:   templates,
		mailer:      mailer,
		records:     records,
		adminEmails: adminEmails,
	}
}

func (d *Dispatcher) OrderConfirmation(ctx context.Context, customerID, orderID string, totalCents int64) error {
	return d.toCustomer(ctx, customerID, domain.KindOrderConfirmation, orderID,
		"order-confirmation",
		fmt.Sprintf("Order Confirmation - %s", orderID),
		map[string]any{"order_id": orderID, "total_cents": totalCents},
		false)
}

func (d *Dispatcher) OrderCancelled(ctx context.Context, customerID, orderID string) error {
	return d.toCustomer(ctx, customerID, domain.KindOrderCancelled, orderID,
		"order-cancelled",
		fmt.Sprintf("Order Cancelled - %s", orderID),
		map[string]any{"order_id": orderID},
		false)
}

func (d *Dispatcher) PaymentReceipt(ctx context.Context, customerID, transactionID string, amountCents int64) error {
	return d.toCustomer(ctx, customerID, domain.KindPaymentReceipt, transactionID,
		"payment-receipt",
		fmt.Sprintf("Payment Receipt - %s", transactionID),
		map[string]any{"transaction_id": transactionID, "amount_cents": amountCents},
		false)
}

func (d *Dispatcher) RefundNotice(ctx context.Context, customerID, transactionID string, amountCents int64) error {
	return d.toCustomer(ctx, customerID, domain.KindRefundNotice, transactionID,
		"refund-notice",
		fmt.Sprintf("Refund Issued - %s", transactionID),
		map[string]any{"transaction_id": transactionID, "amount_cents": amountCents},
		false)
}

// ShippingUpdate honours the customer's email-notification preference;
// an opted-out customer is a silent no-op, not a failure.
func (d *Dispatcher) ShippingUpdate(ctx context.Context, customerID, orderID, status, trackingNumber string) error {
	prefs, err := d.users.Preferences(ctx, customerID)
	if err != nil {
		return apperr.Dependency("notification.shipping_update", err)
	}
	if !prefs.EmailNotifications {
		return nil
	}
	return d.toCustomer(ctx, customerID, domain.KindShippingUpdate, orderID,
		"shipping-update",
		fmt.Sprintf("Shipping Update - %s", orderID),
		map[string]any{"order_id": orderID, "status": status, "tracking_number": trackingNumber},
		true)
}

func (d *Dispatcher) LowStockAlert(ctx context.Context, productID string, remaining int64) error {
	return d.toAdmins(ctx, domain.KindLowStockAlert, productID,
		"low-stock-alert",
		fmt.Sprintf("Low Stock Alert - %s", productID),
		map[string]any{"product_id": productID, "remaining": remaining})
}

func (d *Dispatcher) BackInStock(ctx context.Context, productID string) error {
	return d.toAdmins(ctx, domain.KindBackInStock, productID,
		"back-in-stock",
		fmt.Sprintf("Back In Stock - %s", productID),
		map[string]any{"product_id": productID})
}

func (d *Dispatcher) toCustomer(ctx context.Context, customerID string, kind domain.Kind, refID, template, subject string, data map[string]any, skipIfNoEmail bool) error {
	email, ok, err := d.users.Email(ctx, customerID)
	if err != nil {
		return apperr.Dependency("notification."+string(kind), err)
	}
	if !ok {
		if skipIfNoEmail {
			return nil
		}
		return apperr.Dependency("notification."+string(kind), fmt.Errorf("no email on file for customer %s", customerID))
	}

	html, err := d.templates.Format(template, data)
	if err != nil {
		return apperr.Dependency("notification."+string(kind), err)
	}

	sendErr := d.mailer.Send(ctx, email, subject, html)
	d.record(ctx, customerID, kind, refID, sendErr)
	if sendErr != nil {
		return apperr.Dependency("notification."+string(kind), sendErr)
	}
	return nil
}

func (d *Dispatcher) toAdmins(ctx context.Context, kind domain.Kind, refID, template, subject string, data map[string]any) error {
	html, err := d.templates.Format(template, data)
	if err != nil {
		return apperr.Dependency("notification."+string(kind), err)
	}
	var firstErr error
	for _, email := range d.adminEmails {
		if err := d.mailer.Send(ctx, email, subject, html); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.record(ctx, "", kind, refID, firstErr)
	if firstErr != nil {
		return apperr.Dependency("notification."+string(kind), firstErr)
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, customerID string, kind domain.Kind, refID string, sendErr error) {
	rec := domain.Record{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		Kind:        kind,
		ReferenceID: refID,
		Delivered:   sendErr == nil,
		CreatedAt:   time.Now().UTC(),
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	if err := d.records.Append(ctx, rec); err != nil {
		d.log.Error("notification log append failed", "kind", kind, "ref", refID, "err", err)
	}
}
