package application

import (
	"context"

	"github.com/acmecommerce/orderflow/internal/payment/domain"
)

type GatewayResult struct {
	Success       bool
	TransactionID string
	Error         string
}

type Gateway interface {
	Charge(ctx context.Context, amountCents int64, credential string) (GatewayResult, error)
	Refund(ctx context.Context, gatewayTransactionID string, amountCents int64) (GatewayResult, error)
}

// CredentialStore returns the customer's stored (encrypted) payment
// credential. A missing or unreadable credential is an infrastructure
// fault, not a decline.
type CredentialStore interface {
	Get(ctx context.Context, customerID string) (string, error)
}

type Cipher interface {
	Decrypt(encrypted string) (string, error)
}

type FraudAssessment struct {
	HighRisk bool
}

type FraudChecker interface {
	Assess(ctx context.Context, customerID string, amountCents int64) (FraudAssessment, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, tx domain.Transaction) error
	Get(ctx context.Context, id string) (domain.Transaction, bool, error)
	// MarkRefunded flips completed to refunded; ok is false when the
	// transaction was already refunded.
	MarkRefunded(ctx context.Context, id string) (ok bool, err error)
}

// CaptureClaims enforces at most one capture per logical order.
type CaptureClaims interface {
	ClaimCapture(ctx context.Context, orderID string) (bool, error)
	ForgetCapture(ctx context.Context, orderID string) error
}

// Notifier sends receipts and refund notices off the critical path.
type Notifier interface {
	PaymentReceipt(customerID, transactionID string, amountCents int64)
	RefundNotice(customerID, transactionID string, amountCents int64)
}
