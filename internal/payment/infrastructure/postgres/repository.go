package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/acmecommerce/orderflow/internal/payment/domain"
	"github.com/acmecommerce/orderflow/pkg/tracing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL DEFAULT '',
			customer_id TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			method TEXT NOT NULL,
			gateway_transaction_id TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS customer_credentials (
			customer_id TEXT PRIMARY KEY,
			credential TEXT NOT NULL
		)`)
	return err
}

// Create persists the capture and its PaymentCaptured event in one
// transaction, through the same outbox the order side uses.
func (r *Repository) Create(ctx context.Context, t domain.Transaction) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO payments (id, order_id, customer_id, amount_cents, method, gateway_transaction_id, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.OrderID, t.CustomerID, t.AmountCents, t.Method, t.GatewayTransactionID, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return err
	}

	payload, _ := json.Marshal(domain.PaymentCaptured{
		TransactionID: t.ID,
		OrderID:       t.OrderID,
		CustomerID:    t.CustomerID,
		AmountCents:   t.AmountCents,
		Method:        t.Method,
	})
	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent) VALUES ($1,$2,$3,$4,$5)`,
		"payment", t.ID, "PaymentCaptured", payload, tracing.Traceparent(ctx))
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Transaction, bool, error) {
	var t domain.Transaction
	err := r.pool.QueryRow(ctx, `SELECT id, order_id, customer_id, amount_cents, method, gateway_transaction_id, status, created_at, updated_at FROM payments WHERE id=$1`, id).
		Scan(&t.ID, &t.OrderID, &t.CustomerID, &t.AmountCents, &t.Method, &t.GatewayTransactionID, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, false, nil
	}
	if err != nil {
		return domain.Transaction{}, false, err
	}
	return t, true, nil
}

// MarkRefunded only moves completed records; the PaymentRefunded event
// rides in the same transaction as the flip, so a lost race writes no
// duplicate event.
func (r *Repository) MarkRefunded(ctx context.Context, id string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var customerID string
	var amountCents int64
	err = tx.QueryRow(ctx, `UPDATE payments SET status=$2, updated_at=$3 WHERE id=$1 AND status=$4
		RETURNING customer_id, amount_cents`,
		id, domain.StatusRefunded, time.Now().UTC(), domain.StatusCompleted).
		Scan(&customerID, &amountCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, tx.Commit(ctx)
	}
	if err != nil {
		return false, err
	}

	payload, _ := json.Marshal(domain.PaymentRefunded{
		TransactionID: id,
		CustomerID:    customerID,
		AmountCents:   amountCents,
	})
	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent) VALUES ($1,$2,$3,$4,$5)`,
		"payment", id, "PaymentRefunded", payload, tracing.Traceparent(ctx))
	if err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// CredentialStore reads stored payment credentials. A customer without
// a credential row is an infrastructure fault for the capture path, so
// it surfaces as an error rather than an absent flag.
type CredentialStore struct {
	pool *pgxpool.Pool
}

func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

func (s *CredentialStore) Get(ctx context.Context, customerID string) (string, error) {
	var credential string
	err := s.pool.QueryRow(ctx, `SELECT credential FROM customer_credentials WHERE customer_id=$1`, customerID).Scan(&credential)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("no stored credential for customer %s", customerID)
	}
	return credential, err
}
