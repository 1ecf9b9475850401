package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/acmecommerce/orderflow/internal/notification/application"
	"github.com/acmecommerce/orderflow/internal/notification/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RecordLog struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRecordLog(log *slog.Logger, pool *pgxpool.Pool) *RecordLog {
	return &RecordLog{log: log, pool: pool}
}

func (l *RecordLog) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			reference_id TEXT NOT NULL,
			delivered BOOLEAN NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			email_notifications BOOLEAN NOT NULL DEFAULT TRUE
		)`)
	return err
}

func (l *RecordLog) Append(ctx context.Context, rec domain.Record) error {
	_, err := l.pool.Exec(ctx, `INSERT INTO notifications (id, customer_id, kind, reference_id, delivered, error, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.CustomerID, rec.Kind, rec.ReferenceID, rec.Delivered, rec.Error, rec.CreatedAt)
	return err
}

type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

func (d *UserDirectory) Email(ctx context.Context, customerID string) (string, bool, error) {
	var email string
	err := d.pool.QueryRow(ctx, `SELECT email FROM users WHERE id=$1`, customerID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return email, email != "", nil
}

func (d *UserDirectory) Preferences(ctx context.Context, customerID string) (application.Preferences, error) {
	var emailNotifications bool
	err := d.pool.QueryRow(ctx, `SELECT email_notifications FROM users WHERE id=$1`, customerID).Scan(&emailNotifications)
	if errors.Is(err, pgx.ErrNoRows) {
		return application.Preferences{EmailNotifications: true}, nil
	}
	if err != nil {
		return application.Preferences{}, err
	}
	return application.Preferences{EmailNotifications: emailNotifications}, nil
}
