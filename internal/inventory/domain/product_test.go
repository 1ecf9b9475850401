package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLowStock(t *testing.T) {
	assert.True(t, Product{Quantity: 2, LowStockThreshold: 3}.LowStock())
	assert.False(t, Product{Quantity: 3, LowStockThreshold: 3}.LowStock())
	assert.False(t, Product{Quantity: 10, LowStockThreshold: 0}.LowStock())
}

func TestReservationExpired(t *testing.T) {
	now := time.Now().UTC()
	res := Reservation{Status: ReservationActive, ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, res.Expired(now))

	res.ExpiresAt = now.Add(time.Minute)
	assert.False(t, res.Expired(now))

	// Closed reservations never count as expired.
	res.Status = ReservationReleased
	res.ExpiresAt = now.Add(-time.Minute)
	assert.False(t, res.Expired(now))
}
