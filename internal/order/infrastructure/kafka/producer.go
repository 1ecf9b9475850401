package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter builds the producer used by the outbox relay. Acks from all
// replicas: the relay marks an event sent only once the broker owns it.
// Hash balancing keeps every event for one order on one partition so
// consumers see them in order.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
}
