package application

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/acmecommerce/orderflow/internal/payment/domain"
	"github.com/acmecommerce/orderflow/pkg/apperr"
	"github.com/acmecommerce/orderflow/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTransactions struct {
	mu  sync.Mutex
	txs map[string]domain.Transaction

	createErr error
}

func newMemTransactions() *memTransactions {
	return &memTransactions{txs: map[string]domain.Transaction{}}
}

func (m *memTransactions) Create(ctx context.Context, tx domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.txs[tx.ID] = tx
	return nil
}

func (m *memTransactions) Get(ctx context.Context, id string) (domain.Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	return tx, ok, nil
}

func (m *memTransactions) MarkRefunded(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.Status != domain.StatusCompleted {
		return false, nil
	}
	tx.Status = domain.StatusRefunded
	m.txs[id] = tx
	return true, nil
}

type scriptedGateway struct {
	chargeSuccess bool
	chargeError   string
	chargeErr     error

	charges int
	refunds []string
}

func (g *scriptedGateway) Charge(ctx context.Context, amountCents int64, credential string) (GatewayResult, error) {
	g.charges++
	if g.chargeErr != nil {
		return GatewayResult{}, g.chargeErr
	}
	if !g.chargeSuccess {
		return GatewayResult{Success: false, Error: g.chargeError}, nil
	}
	return GatewayResult{Success: true, TransactionID: "gw-1"}, nil
}

func (g *scriptedGateway) Refund(ctx context.Context, gatewayTransactionID string, amountCents int64) (GatewayResult, error) {
	g.refunds = append(g.refunds, gatewayTransactionID)
	return GatewayResult{Success: true, TransactionID: gatewayTransactionID}, nil
}

type memCredentials struct {
	creds map[string]string
}

func (m *memCredentials) Get(ctx context.Context, customerID string) (string, error) {
	c, ok := m.creds[customerID]
	if !ok {
		return "", errors.New("no stored credential")
	}
	return c, nil
}

type plainCipher struct{}

func (plainCipher) Decrypt(encrypted string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

type scriptedFraud struct {
	highRisk bool
}

func (f scriptedFraud) Assess(ctx context.Context, customerID string, amountCents int64) (FraudAssessment, error) {
	return FraudAssessment{HighRisk: f.highRisk}, nil
}

type memClaims struct {
	mu     sync.Mutex
	claims map[string]bool
}

func newMemClaims() *memClaims {
	return &memClaims{claims: map[string]bool{}}
}

func (c *memClaims) ClaimCapture(ctx context.Context, orderID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claims[orderID] {
		return false, nil
	}
	c.claims[orderID] = true
	return true, nil
}

func (c *memClaims) ForgetCapture(ctx context.Context, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claims, orderID)
	return nil
}

type captureNotifier struct {
	receipts []string
	refunds  []string
}

func (n *captureNotifier) PaymentReceipt(customerID, transactionID string, amountCents int64) {
	n.receipts = append(n.receipts, transactionID)
}

func (n *captureNotifier) RefundNotice(customerID, transactionID string, amountCents int64) {
	n.refunds = append(n.refunds, transactionID)
}

type paymentFixture struct {
	svc     *Service
	txs     *memTransactions
	gateway *scriptedGateway
	claims  *memClaims
	notify  *captureNotifier
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		txs:     newMemTransactions(),
		gateway: &scriptedGateway{chargeSuccess: true},
		claims:  newMemClaims(),
		notify:  &captureNotifier{},
	}
	creds := &memCredentials{creds: map[string]string{
		"cust-1": base64.StdEncoding.EncodeToString([]byte("card-4242")),
	}}
	f.svc = NewService(logging.New("error"), f.txs, f.gateway, creds, plainCipher{}, scriptedFraud{},
		f.claims, f.notify, []string{"credit_card", "paypal"})
	return f
}

func captureReq() CaptureRequest {
	return CaptureRequest{OrderID: "o-1", CustomerID: "cust-1", Method: "credit_card", AmountCents: 3250}
}

func TestCaptureSuccess(t *testing.T) {
	f := newPaymentFixture()

	result, err := f.svc.Capture(context.Background(), captureReq())
	require.NoError(t, err)
	require.True(t, result.Authorized)
	require.NotEmpty(t, result.TransactionID)

	tx, ok, _ := f.txs.Get(context.Background(), result.TransactionID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	assert.Equal(t, "o-1", tx.OrderID)
	assert.Equal(t, int64(3250), tx.AmountCents)
	assert.Equal(t, "gw-1", tx.GatewayTransactionID)
	assert.Equal(t, []string{result.TransactionID}, f.notify.receipts)
}

func TestCaptureRejectsBadRequests(t *testing.T) {
	f := newPaymentFixture()

	bad := captureReq()
	bad.Method = "wire_transfer"
	result, err := f.svc.Capture(context.Background(), bad)
	require.NoError(t, err)
	assert.False(t, result.Authorized)
	assert.Equal(t, "unsupported payment method", result.Reason)

	bad = captureReq()
	bad.AmountCents = 0
	result, err = f.svc.Capture(context.Background(), bad)
	require.NoError(t, err)
	assert.False(t, result.Authorized)
	assert.Zero(t, f.gateway.charges)
}

func TestCaptureDuplicateOrderRefused(t *testing.T) {
	f := newPaymentFixture()

	first, err := f.svc.Capture(context.Background(), captureReq())
	require.NoError(t, err)
	require.True(t, first.Authorized)

	second, err := f.svc.Capture(context.Background(), captureReq())
	require.NoError(t, err)
	assert.False(t, second.Authorized)
	assert.Equal(t, 1, f.gateway.charges)
}

func TestCaptureDeclineReleasesClaim(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.chargeSuccess = false
	f.gateway.chargeError = "insufficient funds"

	result, err := f.svc.Capture(context.Background(), captureReq())
	require.NoError(t, err)
	assert.False(t, result.Authorized)
	assert.Equal(t, "insufficient funds", result.Reason)

	// The claim was handed back, so a retry reaches the gateway again.
	f.gateway.chargeSuccess = true
	retry, err := f.svc.Capture(context.Background(), captureReq())
	require.NoError(t, err)
	assert.True(t, retry.Authorized)
}

func TestCaptureHighRiskDeclined(t *testing.T) {
	f := newPaymentFixture()
	f.svc.fraud = scriptedFraud{highRisk: true}

	result, err := f.svc.Capture(context.Background(), captureReq())
	require.NoError(t, err)
	assert.False(t, result.Authorized)
	assert.Equal(t, "transaction flagged for review", result.Reason)
	assert.Zero(t, f.gateway.charges)
}

func TestCaptureMissingCredentialIsFault(t *testing.T) {
	f := newPaymentFixture()
	req := captureReq()
	req.CustomerID = "stranger"

	_, err := f.svc.Capture(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, apperr.KindDependency, apperr.KindOf(err))
}

func TestCaptureRecordFailureReversesCharge(t *testing.T) {
	f := newPaymentFixture()
	f.txs.createErr = errors.New("pg down")

	_, err := f.svc.Capture(context.Background(), captureReq())
	require.Error(t, err)
	assert.Equal(t, apperr.KindDependency, apperr.KindOf(err))
	assert.Equal(t, []string{"gw-1"}, f.gateway.refunds)
}

func TestRefundFlipsOnce(t *testing.T) {
	f := newPaymentFixture()

	result, err := f.svc.Capture(context.Background(), captureReq())
	require.NoError(t, err)

	require.NoError(t, f.svc.Refund(context.Background(), result.TransactionID))
	tx, _, _ := f.txs.Get(context.Background(), result.TransactionID)
	assert.Equal(t, domain.StatusRefunded, tx.Status)
	assert.Equal(t, []string{"gw-1"}, f.gateway.refunds)
	assert.Equal(t, []string{result.TransactionID}, f.notify.refunds)

	err = f.svc.Refund(context.Background(), result.TransactionID)
	require.ErrorIs(t, err, ErrAlreadyRefunded)
	assert.Len(t, f.gateway.refunds, 1)
}

func TestRefundUnknownTransaction(t *testing.T) {
	f := newPaymentFixture()
	err := f.svc.Refund(context.Background(), "missing")
	require.ErrorIs(t, err, ErrTransactionNotFound)
	assert.Equal(t, apperr.KindState, apperr.KindOf(err))
}
