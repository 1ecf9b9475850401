package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	invapp "github.com/acmecommerce/orderflow/internal/inventory/application"
	invdomain "github.com/acmecommerce/orderflow/internal/inventory/domain"
	"github.com/acmecommerce/orderflow/internal/order/application"
	"github.com/acmecommerce/orderflow/internal/order/domain"
	payapp "github.com/acmecommerce/orderflow/internal/payment/application"
	"github.com/acmecommerce/orderflow/pkg/logging"
	"github.com/acmecommerce/orderflow/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrders struct {
	orders map[string]domain.Order
}

func (s *stubOrders) CreateWithEvent(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	s.orders[o.ID] = o
	return nil
}

func (s *stubOrders) Get(ctx context.Context, id string) (domain.Order, bool, error) {
	o, ok := s.orders[id]
	return o, ok, nil
}

func (s *stubOrders) Transition(ctx context.Context, id string, from, to domain.OrderStatus, eventType string, payload []byte, traceparent string) (bool, error) {
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	s.orders[id] = o
	return true, nil
}

type stubInventory struct {
	unavailable []string
}

func (s *stubInventory) CheckAvailability(ctx context.Context, items []invdomain.ReservedItem) (invapp.CheckResult, error) {
	return invapp.CheckResult{Available: len(s.unavailable) == 0, Unavailable: s.unavailable}, nil
}

func (s *stubInventory) Reserve(ctx context.Context, orderID string, items []invdomain.ReservedItem) (string, error) {
	return "res-1", nil
}

func (s *stubInventory) ReleaseByOrder(ctx context.Context, orderID string) error { return nil }

type stubPayments struct {
	declineReason string
}

func (s *stubPayments) Capture(ctx context.Context, req payapp.CaptureRequest) (payapp.CaptureResult, error) {
	if s.declineReason != "" {
		return payapp.CaptureResult{Authorized: false, Reason: s.declineReason}, nil
	}
	return payapp.CaptureResult{Authorized: true, TransactionID: "tx-1"}, nil
}

func (s *stubPayments) Refund(ctx context.Context, transactionID string) error { return nil }

type stubQuoter struct{}

func (stubQuoter) Quote(ctx context.Context, address string, items []domain.LineItem) (int64, error) {
	return 750, nil
}

type stubNotifier struct{}

func (stubNotifier) OrderConfirmation(customerID, orderID string, totalCents int64) {}
func (stubNotifier) OrderCancelled(customerID, orderID string)                      {}

func newTestServer(inventory *stubInventory, payments *stubPayments) (*httptest.Server, *stubOrders) {
	orders := &stubOrders{orders: map[string]domain.Order{}}
	log := logging.New("error")
	policy := retry.Policy{Attempts: 1, Base: time.Millisecond}
	saga := application.NewSaga(log, orders, inventory, payments, stubQuoter{}, stubNotifier{},
		[]string{"credit_card"}, policy)
	h := NewHandler(log, saga, orders, nil)
	return httptest.NewServer(h.Routes()), orders
}

const orderBody = `{
	"customer_id": "cust-1",
	"items": [{"product_id": "p1", "quantity": 2, "unit_price_cents": 1000}],
	"shipping_address": "1 Main St, Springfield, IL, 62701",
	"payment_method": "credit_card"
}`

func TestPlaceOrderEndpoint(t *testing.T) {
	srv, _ := newTestServer(&stubInventory{}, &stubPayments{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orders", "application/json", strings.NewReader(orderBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "processing", body["status"])
	assert.NotEmpty(t, body["order_id"])

	get, err := http.Get(srv.URL + "/orders/" + body["order_id"])
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)
}

func TestPlaceOrderErrorStatuses(t *testing.T) {
	t.Run("validation is 400", func(t *testing.T) {
		srv, _ := newTestServer(&stubInventory{}, &stubPayments{})
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/orders", "application/json",
			strings.NewReader(`{"customer_id": "", "payment_method": "credit_card"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unavailable stock is 409", func(t *testing.T) {
		srv, _ := newTestServer(&stubInventory{unavailable: []string{"p1"}}, &stubPayments{})
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/orders", "application/json", strings.NewReader(orderBody))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("declined payment is 402", func(t *testing.T) {
		srv, _ := newTestServer(&stubInventory{}, &stubPayments{declineReason: "insufficient funds"})
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/orders", "application/json", strings.NewReader(orderBody))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	})
}

func TestCancelEndpoint(t *testing.T) {
	srv, orders := newTestServer(&stubInventory{}, &stubPayments{})
	defer srv.Close()
	orders.orders["o-1"] = domain.Order{ID: "o-1", CustomerID: "cust-1", Status: domain.StatusProcessing, TransactionID: "tx-1"}

	resp, err := http.Post(srv.URL+"/orders/o-1/cancel", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusCancelled, orders.orders["o-1"].Status)

	again, err := http.Post(srv.URL+"/orders/o-1/cancel", "application/json", nil)
	require.NoError(t, err)
	defer again.Body.Close()
	assert.Equal(t, http.StatusConflict, again.StatusCode)

	missing, err := http.Post(srv.URL+"/orders/nope/cancel", "application/json", nil)
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusConflict, missing.StatusCode)
}

func TestGetUnknownOrder(t *testing.T) {
	srv, _ := newTestServer(&stubInventory{}, &stubPayments{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/orders/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
