package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "orderflow", cfg.Application.Name)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Inventory.ReservationWindow)
	assert.Equal(t, []string{"credit_card", "debit_card", "paypal"}, cfg.Payment.AllowedMethods)
	assert.Equal(t, int64(50), cfg.Shipping.DiscountThresholdUnits)
	assert.Equal(t, int64(10), cfg.Shipping.DiscountPercent)
	assert.Equal(t, 3, cfg.Saga.CompensationAttempts)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
application:
  log_level: debug
shipping:
  discount_threshold_units: 80
  default_carrier: FedEx
`), 0o600))

	t.Setenv("PG_URL", "postgres://pg.test:5432/orders")
	t.Setenv("KAFKA_ADDR", "kafka.test:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Application.LogLevel)
	assert.Equal(t, int64(80), cfg.Shipping.DiscountThresholdUnits)
	assert.Equal(t, "FedEx", cfg.Shipping.DefaultCarrier)
	assert.Equal(t, "postgres://pg.test:5432/orders", cfg.Postgres.URL)
	assert.Equal(t, []string{"kafka.test:9092"}, cfg.Kafka.Brokers)

	// Unset fields still get their defaults.
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "order.events", cfg.Kafka.EventsTopic)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "orderflow", cfg.Application.Name)
}
