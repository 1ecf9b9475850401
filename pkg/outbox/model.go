// Package outbox implements the transactional outbox: state changes
// and the domain events describing them commit in one transaction, and
// a relay publishes the events to Kafka afterwards. Placement,
// cancellation and capture all announce themselves this way.
package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RetryCount    int
	LastError     *string
}
