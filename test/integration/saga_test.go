package integration

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invapp "github.com/acmecommerce/orderflow/internal/inventory/application"
	invdomain "github.com/acmecommerce/orderflow/internal/inventory/domain"
	invpg "github.com/acmecommerce/orderflow/internal/inventory/infrastructure/postgres"
	orderapp "github.com/acmecommerce/orderflow/internal/order/application"
	"github.com/acmecommerce/orderflow/internal/order/domain"
	orderkafka "github.com/acmecommerce/orderflow/internal/order/infrastructure/kafka"
	orderpg "github.com/acmecommerce/orderflow/internal/order/infrastructure/postgres"
	payapp "github.com/acmecommerce/orderflow/internal/payment/application"
	"github.com/acmecommerce/orderflow/internal/payment/infrastructure/gateway"
	paypg "github.com/acmecommerce/orderflow/internal/payment/infrastructure/postgres"
	"github.com/acmecommerce/orderflow/pkg/idempotency"
	"github.com/acmecommerce/orderflow/pkg/logging"
	"github.com/acmecommerce/orderflow/pkg/outbox"
	"github.com/acmecommerce/orderflow/pkg/retry"
)

func eventType(headers []kafkago.Header) string {
	for _, h := range headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}

type staticQuoter struct{}

func (staticQuoter) Quote(ctx context.Context, address string, items []domain.LineItem) (int64, error) {
	return 750, nil
}

type silentNotifier struct{}

func (silentNotifier) OrderConfirmation(customerID, orderID string, totalCents int64)  {}
func (silentNotifier) OrderCancelled(customerID, orderID string)                       {}
func (silentNotifier) PaymentReceipt(customerID, transactionID string, cents int64)    {}
func (silentNotifier) RefundNotice(customerID, transactionID string, cents int64)      {}
func (silentNotifier) LowStock(productID string, remaining int64)                      {}
func (silentNotifier) BackInStock(productID string)                                    {}
func (silentNotifier) ShippingUpdate(customerID, orderID, status, trackingNumber string) {}

// TestPlacementEndToEnd drives the saga against real Postgres, Redis
// and Kafka: order and reservation rows land in Postgres, the capture
// claim lands in Redis, and the relay publishes the placement event.
func TestPlacementEndToEnd(t *testing.T) {
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run container tests")
	}

	ctx := context.Background()
	env, err := Setup(ctx)
	require.NoError(t, err)
	defer env.Teardown(ctx)

	log := logging.New("error")
	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: env.RedisAddr})
	defer rdb.Close()

	orders := orderpg.NewRepository(log, pool)
	outboxStore := orderpg.NewOutboxStore(log, pool)
	products := invpg.NewProductStore(log, pool)
	reservations := invpg.NewReservationStore(log, pool)
	payments := paypg.NewRepository(log, pool)
	credentials := paypg.NewCredentialStore(pool)

	require.NoError(t, orders.EnsureSchema(ctx))
	require.NoError(t, products.EnsureSchema(ctx))
	require.NoError(t, payments.EnsureSchema(ctx))

	_, err = pool.Exec(ctx, `INSERT INTO products (id, name, quantity, low_stock_threshold) VALUES ('p1', 'Widget', 10, 2)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO customer_credentials (customer_id, credential) VALUES ('cust-1', $1)`,
		base64.StdEncoding.EncodeToString([]byte("card-4242")))
	require.NoError(t, err)

	policy := retry.Policy{Attempts: 3, Base: 50 * time.Millisecond, Max: time.Second}
	notify := silentNotifier{}
	inventory := invapp.NewService(log, products, reservations, notify, 15*time.Minute)
	payment := payapp.NewService(log, payments, gateway.NewSimulator(log, 0), credentials,
		gateway.Base64Cipher{}, gateway.NewFraudSimulator(0),
		idempotency.NewStore(rdb, time.Minute), notify, []string{"credit_card"})
	saga := orderapp.NewSaga(log, orders, inventory, payment, staticQuoter{}, notify,
		[]string{"credit_card"}, policy)

	const topic = "order.events"
	writer := orderkafka.NewWriter(env.Brokers)
	defer writer.Close()
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	go func() {
		_ = outbox.NewRelay(log, outboxStore, outbox.NewDispatcher(log, writer, topic), "it-relay").Run(relayCtx)
	}()

	orderID, err := saga.PlaceOrder(ctx, orderapp.PlaceOrderRequest{
		CustomerID: "cust-1",
		Items: []domain.LineItem{
			{ProductID: "p1", Quantity: 2, UnitPriceCents: 1000},
		},
		ShippingAddress: "1 Main St, Springfield, IL, 62701",
		PaymentMethod:   "credit_card",
	})
	require.NoError(t, err)

	order, ok, err := orders.Get(ctx, orderID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.StatusProcessing, order.Status)
	assert.Equal(t, int64(2750), order.TotalCents)

	p, _, err := products.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), p.Quantity)

	res, ok, err := reservations.GetByOrder(ctx, orderID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, invdomain.ReservationActive, res.Status)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     env.Brokers,
		Topic:       topic,
		StartOffset: kafkago.FirstOffset,
	})
	defer reader.Close()

	// The capture writes its own event before the order row exists, so
	// read until the placement event shows up.
	readCtx, cancelRead := context.WithTimeout(ctx, 30*time.Second)
	defer cancelRead()
	var placed domain.OrderPlaced
	for {
		msg, err := reader.ReadMessage(readCtx)
		require.NoError(t, err)
		if eventType(msg.Headers) != "OrderPlaced" {
			continue
		}
		require.NoError(t, json.Unmarshal(msg.Value, &placed))
		assert.Equal(t, orderID, string(msg.Key))
		break
	}
	assert.Equal(t, orderID, placed.OrderID)

	// Cancellation reverses everything.
	require.NoError(t, saga.CancelOrder(ctx, orderID))

	order, _, err = orders.Get(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, order.Status)

	p, _, err = products.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.Quantity)

	res, _, err = reservations.GetByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, invdomain.ReservationReleased, res.Status)

	tx, _, err := payments.Get(ctx, order.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, "refunded", string(tx.Status))

	// Failed and lease-expired events come back into rotation; an
	// event out of publish attempts stays parked.
	stopRelay()
	time.Sleep(time.Second)
	_, err = pool.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, status, retry_count)
		VALUES ('order', 'requeue-failed', 'OrderPlaced', '{}', 'failed', 1)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, status, relay_id, lease_until)
		VALUES ('order', 'requeue-orphaned', 'OrderPlaced', '{}', 'in_progress', 'dead-relay', now() - interval '1 minute')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, status, retry_count)
		VALUES ('order', 'parked', 'OrderPlaced', '{}', 'failed', 10)`)
	require.NoError(t, err)

	batch, err := outboxStore.LockBatch(ctx, "it-verify", 100, 5*time.Second)
	require.NoError(t, err)
	ids := make([]string, 0, len(batch))
	for _, e := range batch {
		ids = append(ids, e.AggregateID)
	}
	assert.Contains(t, ids, "requeue-failed")
	assert.Contains(t, ids, "requeue-orphaned")
	assert.NotContains(t, ids, "parked")
}
