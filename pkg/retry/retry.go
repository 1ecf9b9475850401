// Package retry implements bounded retries with exponential backoff.
// The saga uses it for compensation calls: leaving a captured payment
// without its refund is worse than a slow retry, so dependency faults
// on the unwind path are retried before being surfaced.
package retry

import (
	"context"
	"time"
)

type Policy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Base: 100 * time.Millisecond, Max: 5 * time.Second}
}

// Do runs fn up to p.Attempts times, sleeping Base<<n between attempts
// (capped at Max). It returns nil on the first success, the last error
// after the budget is exhausted, or ctx.Err() if the context ends first.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	var err error
	delay := p.Base
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if p.Max > 0 && delay > p.Max {
				delay = p.Max
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}
