// Package application captures and refunds payments against the
// gateway. Expected business failures (bad method, declined charge,
// fraud flag) come back as a tagged CaptureResult; only infrastructure
// problems surface as errors, so callers can branch exhaustively
// instead of inferring outcomes from missing fields.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/acmecommerce/orderflow/internal/payment/domain"
	"github.com/acmecommerce/orderflow/pkg/apperr"
	"github.com/google/uuid"
)

var (
	ErrTransactionNotFound = apperr.State("payment.refund", "transaction not found")
	ErrAlreadyRefunded     = apperr.State("payment.refund", "transaction already refunded")
)

type CaptureRequest struct {
	OrderID     string
	CustomerID  string
	Method      string
	AmountCents int64
}

type CaptureResult struct {
	Authorized    bool
	TransactionID string
	Reason        string
}

type Service struct {
	log            *slog.Logger
	transactions   TransactionRepository
	gateway        Gateway
	credentials    CredentialStore
	cipher         Cipher
	fraud          FraudChecker
	claims         CaptureClaims
	notify         Notifier
	allowedMethods map[string]bool
	now            func() time.Time
}

func NewService(log *slog.Logger, transactions TransactionRepository, gateway Gateway, credentials CredentialStore, cipher Cipher, fraud FraudChecker, claims CaptureClaims, notify Notifier, allowedMethods []string) *Service {
	allowed := make(map[string]bool, len(allowedMethods))
	for _, m := range allowedMethods {
		allowed[m] = true
	}
	return &Service{
		log:            log,
		transactions:   transactions,
		gateway:        gateway,
		credentials:    credentials,
		cipher:         cipher,
		fraud:          fraud,
		claims:         claims,
		notify:         notify,
		allowedMethods: allowed,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func declined(reason string) CaptureResult {
	return CaptureResult{Authorized: false, Reason: reason}
}

// Capture runs the full charge pipeline: request checks, capture claim
// for the order, stored credential, fraud assessment, gateway charge,
// transaction record. The claim is handed back whenever the attempt
// dies before the gateway accepted the charge.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (CaptureResult, error) {
	if !s.allowedMethods[req.Method] {
		return declined("unsupported payment method"), nil
	}
	if req.AmountCents <= 0 {
		return declined("amount must be positive"), nil
	}

	won, err := s.claims.ClaimCapture(ctx, req.OrderID)
	if err != nil {
		return CaptureResult{}, apperr.Dependency("payment.capture", err)
	}
	if !won {
		s.log.Warn("duplicate capture refused", "order_id", req.OrderID)
		return declined("capture already in progress for this order"), nil
	}

	encrypted, err := s.credentials.Get(ctx, req.CustomerID)
	if err != nil {
		s.forget(ctx, req.OrderID)
		return CaptureResult{}, apperr.Dependency("payment.capture", err)
	}
	credential, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		s.forget(ctx, req.OrderID)
		return CaptureResult{}, apperr.Dependency("payment.capture", err)
	}

	assessment, err := s.fraud.Assess(ctx, req.CustomerID, req.AmountCents)
	if err != nil {
		s.forget(ctx, req.OrderID)
		return CaptureResult{}, apperr.Dependency("payment.capture", err)
	}
	if assessment.HighRisk {
		s.forget(ctx, req.OrderID)
		s.log.Warn("transaction flagged for review", "order_id", req.OrderID, "customer_id", req.CustomerID, "amount_cents", req.AmountCents)
		return declined("transaction flagged for review"), nil
	}

	charge, err := s.gateway.Charge(ctx, req.AmountCents, credential)
	if err != nil {
		s.forget(ctx, req.OrderID)
		return CaptureResult{}, apperr.Dependency("payment.capture", err)
	}
	if !charge.Success {
		s.forget(ctx, req.OrderID)
		return declined(charge.Error), nil
	}

	tx := domain.Transaction{
		ID:                   uuid.NewString(),
		OrderID:              req.OrderID,
		CustomerID:           req.CustomerID,
		AmountCents:          req.AmountCents,
		Method:               req.Method,
		GatewayTransactionID: charge.TransactionID,
		Status:               domain.StatusCompleted,
		CreatedAt:            s.now(),
		UpdatedAt:            s.now(),
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		// Money moved but we cannot record it; undo the charge rather
		// than leave an untracked capture behind.
		if _, refundErr := s.gateway.Refund(ctx, charge.TransactionID, req.AmountCents); refundErr != nil {
			s.log.Error("reversal of unrecorded charge failed", "order_id", req.OrderID, "gateway_tx", charge.TransactionID, "err", refundErr)
		}
		s.forget(ctx, req.OrderID)
		return CaptureResult{}, apperr.Dependency("payment.capture", err)
	}

	s.log.Info("payment captured", "order_id", req.OrderID, "transaction_id", tx.ID, "amount_cents", tx.AmountCents)
	s.notify.PaymentReceipt(req.CustomerID, tx.ID, tx.AmountCents)

	return CaptureResult{Authorized: true, TransactionID: tx.ID}, nil
}

func (s *Service) forget(ctx context.Context, orderID string) {
	if err := s.claims.ForgetCapture(ctx, orderID); err != nil {
		s.log.Error("capture claim release failed", "order_id", orderID, "err", err)
	}
}

// Refund reverses a completed transaction. The local record flips to
// refunded only after the gateway confirmed; a gateway failure leaves
// it completed so the caller retries.
func (s *Service) Refund(ctx context.Context, transactionID string) error {
	tx, ok, err := s.transactions.Get(ctx, transactionID)
	if err != nil {
		return apperr.Dependency("payment.refund", err)
	}
	if !ok {
		return ErrTransactionNotFound
	}
	if tx.Status == domain.StatusRefunded {
		return ErrAlreadyRefunded
	}

	result, err := s.gateway.Refund(ctx, tx.GatewayTransactionID, tx.AmountCents)
	if err != nil {
		return apperr.Dependency("payment.refund", err)
	}
	if !result.Success {
		return apperr.Dependency("payment.refund", apperr.Payment("payment.refund", result.Error))
	}

	flipped, err := s.transactions.MarkRefunded(ctx, transactionID)
	if err != nil {
		return apperr.Dependency("payment.refund", err)
	}
	if !flipped {
		// A concurrent refund won; gateway refunds are idempotent on
		// their side, so this is already done.
		return nil
	}

	s.log.Info("payment refunded", "transaction_id", transactionID, "amount_cents", tx.AmountCents)
	s.notify.RefundNotice(tx.CustomerID, transactionID, tx.AmountCents)
	return nil
}
