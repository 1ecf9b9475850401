// Package gateway simulates the external payment provider so the
// service can run end to end without live credentials.
package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/acmecommerce/orderflow/internal/payment/application"
	"github.com/google/uuid"
)

// Simulator approves charges up to a configurable ceiling and declines
// everything above it, mimicking an issuer limit.
type Simulator struct {
	log          *slog.Logger
	declineAbove int64
}

func NewSimulator(log *slog.Logger, declineAboveCents int64) *Simulator {
	return &Simulator{log: log, declineAbove: declineAboveCents}
}

func (s *Simulator) Charge(ctx context.Context, amountCents int64, credential string) (application.GatewayResult, error) {
	if credential == "" {
		return application.GatewayResult{}, fmt.Errorf("gateway: empty credential")
	}
	if s.declineAbove > 0 && amountCents > s.declineAbove {
		s.log.InfoContext(ctx, "gateway declined charge", "amount_cents", amountCents)
		return application.GatewayResult{Success: false, Error: "insufficient funds"}, nil
	}
	id := "gw_" + uuid.NewString()
	s.log.InfoContext(ctx, "gateway charge approved", "amount_cents", amountCents, "gateway_tx", id)
	return application.GatewayResult{Success: true, TransactionID: id}, nil
}

// Refund always succeeds against this simulator; a live integration
// would surface provider errors here.
func (s *Simulator) Refund(ctx context.Context, gatewayTransactionID string, amountCents int64) (application.GatewayResult, error) {
	s.log.InfoContext(ctx, "gateway refund issued", "gateway_tx", gatewayTransactionID, "amount_cents", amountCents)
	return application.GatewayResult{Success: true, TransactionID: gatewayTransactionID}, nil
}

// Base64Cipher is a placeholder for a real KMS-backed cipher.
type Base64Cipher struct{}

func (Base64Cipher) Decrypt(encrypted string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt credential: %w", err)
	}
	return string(raw), nil
}

func (Base64Cipher) Encrypt(plain string) string {
	return base64.StdEncoding.EncodeToString([]byte(plain))
}

// FraudSimulator flags any single charge above its limit as high risk.
type FraudSimulator struct {
	highRiskAbove int64
}

func NewFraudSimulator(highRiskAboveCents int64) *FraudSimulator {
	return &FraudSimulator{highRiskAbove: highRiskAboveCents}
}

func (f *FraudSimulator) Assess(ctx context.Context, customerID string, amountCents int64) (application.FraudAssessment, error) {
	return application.FraudAssessment{HighRisk: f.highRiskAbove > 0 && amountCents > f.highRiskAbove}, nil
}
