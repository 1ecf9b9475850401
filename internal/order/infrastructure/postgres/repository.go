package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/acmecommerce/orderflow/internal/order/domain"
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

// EnsureSchema creates the order-side tables, including the shared
// outbox.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			shipping_address TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			total_cents BIGINT NOT NULL,
			shipping_cents BIGINT NOT NULL,
			transaction_id TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS order_items (
			order_id TEXT NOT NULL REFERENCES orders(id),
			product_id TEXT NOT NULL,
			quantity BIGINT NOT NULL,
			unit_price_cents BIGINT NOT NULL,
			weight_units BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (order_id, product_id)
		);
		CREATE TABLE IF NOT EXISTS outbox (
			id BIGSERIAL PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			type TEXT NOT NULL,
			payload BYTEA NOT NULL,
			traceparent TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			relay_id TEXT,
			lease_until TIMESTAMPTZ,
			retry_count INT NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

func (r *Repository) CreateWithEvent(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, customer_id, shipping_address, payment_method, total_cents, shipping_cents, transaction_id, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.CustomerID, o.ShippingAddress, o.PaymentMethod, o.TotalCents, o.ShippingCents, o.TransactionID, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents, weight_units)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, item.ProductID, item.Quantity, item.UnitPriceCents, item.WeightUnits)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent) VALUES ($1,$2,$3,$4,$5)`,
		"order", o.ID, eventType, payload, traceparent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, bool, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `SELECT id, customer_id, shipping_address, payment_method, total_cents, shipping_cents, transaction_id, status, created_at, updated_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CustomerID, &o.ShippingAddress, &o.PaymentMethod, &o.TotalCents, &o.ShippingCents, &o.TransactionID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, err
	}

	rows, err := r.pool.Query(ctx, `SELECT product_id, quantity, unit_price_cents, weight_units FROM order_items WHERE order_id=$1`, id)
	if err != nil {
		return domain.Order{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPriceCents, &item.WeightUnits); err != nil {
			return domain.Order{}, false, err
		}
		o.Items = append(o.Items, item)
	}
	return o, true, rows.Err()
}

// Transition is a guarded status move: zero rows affected means the
// order was not in the expected from status. The event rides in the
// same transaction when one is given.
func (r *Repository) Transition(ctx context.Context, id string, from, to domain.OrderStatus, eventType string, payload []byte, traceparent string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$3, updated_at=$4 WHERE id=$1 AND status=$2`,
		id, from, to, time.Now().UTC())
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	if eventType != "" {
		_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent) VALUES ($1,$2,$3,$4,$5)`,
			"order", id, eventType, payload, traceparent)
		if err != nil {
			return false, err
		}
	}
	return true, tx.Commit(ctx)
}
