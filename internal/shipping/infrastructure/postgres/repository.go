package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/acmecommerce/orderflow/internal/shipping/application"
	"github.com/acmecommerce/orderflow/internal/shipping/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ShipmentStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewShipmentStore(log *slog.Logger, pool *pgxpool.Pool) *ShipmentStore {
	return &ShipmentStore{log: log, pool: pool}
}

func (s *ShipmentStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS shipments (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			carrier TEXT NOT NULL,
			tracking_number TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS shipping_rates (
			max_distance_km DOUBLE PRECISION NOT NULL,
			max_weight_units BIGINT NOT NULL,
			standard_cents BIGINT NOT NULL,
			PRIMARY KEY (max_distance_km, max_weight_units)
		)`)
	return err
}

func (s *ShipmentStore) Save(ctx context.Context, sh domain.Shipment) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO shipments (id, order_id, customer_id, carrier, tracking_number, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		sh.ID, sh.OrderID, sh.CustomerID, sh.Carrier, sh.TrackingNumber, sh.Status, sh.CreatedAt, sh.UpdatedAt)
	return err
}

func (s *ShipmentStore) GetByTracking(ctx context.Context, trackingNumber string) (domain.Shipment, bool, error) {
	var sh domain.Shipment
	err := s.pool.QueryRow(ctx, `SELECT id, order_id, customer_id, carrier, tracking_number, status, created_at, updated_at FROM shipments WHERE tracking_number=$1`, trackingNumber).
		Scan(&sh.ID, &sh.OrderID, &sh.CustomerID, &sh.Carrier, &sh.TrackingNumber, &sh.Status, &sh.CreatedAt, &sh.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Shipment{}, false, nil
	}
	if err != nil {
		return domain.Shipment{}, false, err
	}
	return sh, true, nil
}

func (s *ShipmentStore) UpdateStatus(ctx context.Context, id string, status domain.ShipmentStatus) error {
	_, err := s.pool.Exec(ctx, `UPDATE shipments SET status=$2, updated_at=$3 WHERE id=$1`, id, status, time.Now().UTC())
	return err
}

// RateStore resolves the cheapest band covering the parcel; when the
// parcel exceeds every band it falls back to the largest one.
type RateStore struct {
	pool *pgxpool.Pool
}

func NewRateStore(pool *pgxpool.Pool) *RateStore {
	return &RateStore{pool: pool}
}

func (s *RateStore) Rates(ctx context.Context, distanceKm float64, weightUnits int64) (application.RateCard, error) {
	var cents int64
	err := s.pool.QueryRow(ctx, `SELECT standard_cents FROM shipping_rates
		WHERE max_distance_km >= $1 AND max_weight_units >= $2
		ORDER BY max_distance_km, max_weight_units LIMIT 1`, distanceKm, weightUnits).Scan(&cents)
	if errors.Is(err, pgx.ErrNoRows) {
		err = s.pool.QueryRow(ctx, `SELECT standard_cents FROM shipping_rates
			ORDER BY max_distance_km DESC, max_weight_units DESC LIMIT 1`).Scan(&cents)
	}
	if err != nil {
		return application.RateCard{}, err
	}
	return application.RateCard{StandardCents: cents}, nil
}

// SeedDefaultRates installs a starter rate table when none exists.
func (s *RateStore) SeedDefaultRates(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO shipping_rates (max_distance_km, max_weight_units, standard_cents) VALUES
		(100, 10, 500), (100, 100, 900),
		(1000, 10, 750), (1000, 100, 1500),
		(5000, 10, 1200), (5000, 100, 2500)
		ON CONFLICT DO NOTHING`)
	return err
}
