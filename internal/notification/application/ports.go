package application

import (
	"context"

	"github.com/acmecommerce/orderflow/internal/notification/domain"
)

type Preferences struct {
	EmailNotifications bool
}

type UserDirectory interface {
	// Email resolves a customer's address; ok is false when the
	// customer has no address on file.
	Email(ctx context.Context, customerID string) (email string, ok bool, err error)
	Preferences(ctx context.Context, customerID string) (Preferences, error)
}

type TemplateFormatter interface {
	Format(name string, data map[string]any) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type RecordLog interface {
	Append(ctx context.Context, rec domain.Record) error
}
