// Package shutdown ties process lifetime to SIGINT/SIGTERM so servers,
// relays and worker pools can drain through context cancellation.
package shutdown

import (
	"context"
	"os/signal"
	"syscall"
)

func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
