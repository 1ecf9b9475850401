package email

import (
	"context"
	"log/slog"
)

// LogMailer stands in for an SMTP or provider integration. It logs the
// send instead of talking to a real mail service.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, html string) error {
	m.log.InfoContext(ctx, "email sent", "to", to, "subject", subject, "bytes", len(html))
	return nil
}
