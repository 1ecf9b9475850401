package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/acmecommerce/orderflow/internal/order/application"
	"github.com/acmecommerce/orderflow/internal/order/domain"
	shipapp "github.com/acmecommerce/orderflow/internal/shipping/application"
	"github.com/acmecommerce/orderflow/pkg/apperr"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	log      *slog.Logger
	saga     *application.Saga
	orders   application.OrderRepository
	shipping *shipapp.Estimator
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, saga *application.Saga, orders application.OrderRepository, shipping *shipapp.Estimator) *Handler {
	return &Handler{
		log:      log,
		saga:     saga,
		orders:   orders,
		shipping: shipping,
		tracer:   otel.Tracer("orderflow-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Post("/quotes", h.quote)
	r.Get("/tracking/{number}", h.track)

	return r
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrder")
	defer span.End()

	var req application.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	orderID, err := h.saga.PlaceOrder(ctx, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"order_id": orderID, "status": string(domain.StatusProcessing)})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	order, ok, err := h.orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, apperr.Dependency("order.get", err))
		return
	}
	if !ok {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(order)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	if err := h.saga.CancelOrder(ctx, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": string(domain.StatusCancelled)})
}

type quoteReq struct {
	ShippingAddress string            `json:"shipping_address"`
	Items           []domain.LineItem `json:"items"`
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "QuoteShipping")
	defer span.End()

	var req quoteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	cents, err := h.shipping.Quote(ctx, req.ShippingAddress, req.Items)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{"shipping_cents": cents})
}

func (h *Handler) track(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "TrackShipment")
	defer span.End()

	status, err := h.shipping.Track(ctx, chi.URLParam(r, "number"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": string(status)})
}

// writeError maps the error taxonomy onto HTTP statuses. Availability
// and illegal-state failures are conflicts, declines are 402, and
// infrastructure faults surface as 502 without leaking internals.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]string{"error": "internal error"}

	if k := apperr.KindOf(err); k != apperr.KindUnknown {
		body["kind"] = k.String()
		switch k {
		case apperr.KindValidation:
			status = http.StatusBadRequest
			body["error"] = err.Error()
		case apperr.KindAvailability, apperr.KindState:
			status = http.StatusConflict
			body["error"] = err.Error()
		case apperr.KindPayment:
			status = http.StatusPaymentRequired
			body["error"] = err.Error()
		case apperr.KindDependency:
			status = http.StatusBadGateway
			body["error"] = "upstream dependency failed"
			h.log.Error("request failed on dependency", "err", err)
		}
	} else {
		h.log.Error("request failed", "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
