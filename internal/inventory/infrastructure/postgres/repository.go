package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/acmecommerce/orderflow/internal/inventory/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewProductStore(log *slog.Logger, pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{log: log, pool: pool}
}

func (s *ProductStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			quantity BIGINT NOT NULL CHECK (quantity >= 0),
			low_stock_threshold BIGINT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			items JSONB NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS reservations_order_idx ON reservations (order_id)`)
	return err
}

func (s *ProductStore) GetByID(ctx context.Context, id string) (domain.Product, bool, error) {
	var p domain.Product
	err := s.pool.QueryRow(ctx, `SELECT id, name, quantity, low_stock_threshold FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Quantity, &p.LowStockThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, false, nil
	}
	if err != nil {
		return domain.Product{}, false, err
	}
	return p, true, nil
}

func (s *ProductStore) AdjustQuantity(ctx context.Context, id string, delta int64) (domain.Product, error) {
	var p domain.Product
	err := s.pool.QueryRow(ctx, `UPDATE products SET quantity = quantity + $2 WHERE id=$1
		RETURNING id, name, quantity, low_stock_threshold`, id, delta).
		Scan(&p.ID, &p.Name, &p.Quantity, &p.LowStockThreshold)
	return p, err
}

type ReservationStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewReservationStore(log *slog.Logger, pool *pgxpool.Pool) *ReservationStore {
	return &ReservationStore{log: log, pool: pool}
}

// Reserve runs every check-and-decrement and the reservation insert
// in one transaction: the quantity guard and the deduction are one
// statement per product, so concurrent reservations serialize on the
// rows, and a short product rolls the earlier deductions back with
// the transaction.
func (s *ReservationStore) Reserve(ctx context.Context, res domain.Reservation) ([]domain.Product, string, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var low []domain.Product
	for _, item := range res.Items {
		var p domain.Product
		err := tx.QueryRow(ctx, `UPDATE products SET quantity = quantity - $2 WHERE id=$1 AND quantity >= $2
			RETURNING id, name, quantity, low_stock_threshold`, item.ProductID, item.Quantity).
			Scan(&p.ID, &p.Name, &p.Quantity, &p.LowStockThreshold)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ProductID, nil
		}
		if err != nil {
			return nil, "", err
		}
		if p.LowStock() {
			low = append(low, p)
		}
	}

	items, err := json.Marshal(res.Items)
	if err != nil {
		return nil, "", err
	}
	_, err = tx.Exec(ctx, `INSERT INTO reservations (id, order_id, items, status, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		res.ID, res.OrderID, items, res.Status, res.CreatedAt, res.ExpiresAt)
	if err != nil {
		return nil, "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, "", err
	}
	return low, "", nil
}

func (s *ReservationStore) Get(ctx context.Context, id string) (domain.Reservation, bool, error) {
	return s.scanOne(s.pool.QueryRow(ctx, `SELECT id, order_id, items, status, created_at, expires_at FROM reservations WHERE id=$1`, id))
}

func (s *ReservationStore) GetByOrder(ctx context.Context, orderID string) (domain.Reservation, bool, error) {
	return s.scanOne(s.pool.QueryRow(ctx, `SELECT id, order_id, items, status, created_at, expires_at FROM reservations WHERE order_id=$1 ORDER BY created_at DESC LIMIT 1`, orderID))
}

func (s *ReservationStore) scanOne(row pgx.Row) (domain.Reservation, bool, error) {
	var res domain.Reservation
	var items []byte
	err := row.Scan(&res.ID, &res.OrderID, &items, &res.Status, &res.CreatedAt, &res.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, false, nil
	}
	if err != nil {
		return domain.Reservation{}, false, err
	}
	if err := json.Unmarshal(items, &res.Items); err != nil {
		return domain.Reservation{}, false, err
	}
	return res, true, nil
}

// ReleaseAndCredit flips active to released and credits the items
// back to stock in the same transaction. No row updated means the
// reservation is already closed; that is what makes release
// idempotent, and the shared commit means a failed credit leaves the
// reservation active for the retry.
func (s *ReservationStore) ReleaseAndCredit(ctx context.Context, id string) (bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var raw []byte
	err = tx.QueryRow(ctx, `UPDATE reservations SET status=$2 WHERE id=$1 AND status=$3 RETURNING items`,
		id, domain.ReservationReleased, domain.ReservationActive).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, tx.Commit(ctx)
	}
	if err != nil {
		return false, err
	}

	var items []domain.ReservedItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return false, err
	}
	for _, item := range items {
		if _, err := tx.Exec(ctx, `UPDATE products SET quantity = quantity + $2 WHERE id=$1`,
			item.ProductID, item.Quantity); err != nil {
			return false, err
		}
	}
	return true, tx.Commit(ctx)
}

func (s *ReservationStore) MarkFulfilled(ctx context.Context, id string) (bool, error) {
	ct, err := s.pool.Exec(ctx, `UPDATE reservations SET status=$2 WHERE id=$1 AND status=$3`,
		id, domain.ReservationFulfilled, domain.ReservationActive)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
