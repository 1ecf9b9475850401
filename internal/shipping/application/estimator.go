// Package application quotes shipping costs and manages shipment
// labels and tracking. Quoting is pure computation over external
// lookups; label creation and tracking are side-effecting carrier
// calls that sit off the placement saga's critical path.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	orderdomain "github.com/acmecommerce/orderflow/internal/order/domain"
	"github.com/acmecommerce/orderflow/internal/shipping/domain"
	"github.com/acmecommerce/orderflow/pkg/apperr"
	"github.com/google/uuid"
)

const defaultUnitWeight = 1

type Config struct {
	Origin                 domain.Address
	DiscountThresholdUnits int64
	DiscountPercent        int64
	DefaultCarrier         string
	LabelBaseURL           string
}

type Estimator struct {
	log       *slog.Logger
	validator AddressValidator
	geo       GeoService
	rates     RateStore
	carrier   CarrierAPI
	shipments ShipmentStore
	notify    Notifier
	cfg       Config
	now       func() time.Time
}

func NewEstimator(log *slog.Logger, validator AddressValidator, geo GeoService, rates RateStore, carrier CarrierAPI, shipments ShipmentStore, notify Notifier, cfg Config) *Estimator {
	return &Estimator{
		log:       log,
		validator: validator,
		geo:       geo,
		rates:     rates,
		carrier:   carrier,
		shipments: shipments,
		notify:    notify,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// TotalWeightUnits sums quantity times unit weight, defaulting missing
// unit weights to one.
func TotalWeightUnits(items []orderdomain.LineItem) int64 {
	var total int64
	for _, item := range items {
		w := item.WeightUnits
		if w == 0 {
			w = defaultUnitWeight
		}
		total += item.Quantity * w
	}
	return total
}

// Quote validates the destination, prices the parcel from the rate
// table keyed by distance and weight, and applies the volume discount
// above the configured weight threshold. No state changes.
func (e *Estimator) Quote(ctx context.Context, address string, items []orderdomain.LineItem) (int64, error) {
	dest := domain.ParseAddress(address)
	report, err := e.validator.Validate(ctx, dest)
	if err != nil {
		return 0, apperr.Dependency("shipping.quote", err)
	}
	if !report.Valid {
		return 0, apperr.Validation("shipping.quote", "invalid shipping address: "+strings.Join(report.Errors, "; "))
	}

	weight := TotalWeightUnits(items)

	distance, err := e.geo.DistanceKm(ctx, e.cfg.Origin, dest)
	if err != nil {
		return 0, apperr.Dependency("shipping.quote", err)
	}

	card, err := e.rates.Rates(ctx, distance, weight)
	if err != nil {
		return 0, apperr.Dependency("shipping.quote", err)
	}

	cost := card.StandardCents
	if weight > e.cfg.DiscountThresholdUnits {
		cost = cost * (100 - e.cfg.DiscountPercent) / 100
	}
	return cost, nil
}

// CreateLabel books a shipment with the carrier and returns the label
// URL. Failures here are reported to the caller but are never part of
// placement compensation.
func (e *Estimator) CreateLabel(ctx context.Context, orderID, customerID, address string, items []orderdomain.LineItem) (string, error) {
	dest := domain.ParseAddress(address)
	report, err := e.validator.Validate(ctx, dest)
	if err != nil {
		return "", apperr.Dependency("shipping.label", err)
	}
	if !report.Valid {
		return "", apperr.Validation("shipping.label", "invalid address: "+strings.Join(report.Errors, "; "))
	}

	spec := ShipmentSpec{
		OrderID:     orderID,
		Carrier:     e.cfg.DefaultCarrier,
		Destination: dest,
		Package: domain.PackageSpec{
			WeightUnits: TotalWeightUnits(items),
			Length:      12,
			Width:       10,
			Height:      8,
		},
	}
	created, err := e.carrier.CreateShipment(ctx, spec)
	if err != nil {
		return "", apperr.Dependency("shipping.label", err)
	}

	now := e.now()
	shipment := domain.Shipment{
		ID:             created.ID,
		OrderID:        orderID,
		CustomerID:     customerID,
		Carrier:        e.cfg.DefaultCarrier,
		TrackingNumber: created.TrackingNumber,
		Status:         domain.ShipmentCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if shipment.ID == "" {
		shipment.ID = uuid.NewString()
	}
	if err := e.shipments.Save(ctx, shipment); err != nil {
		return "", apperr.Dependency("shipping.label", err)
	}

	e.log.Info("shipment created", "order_id", orderID, "tracking", created.TrackingNumber, "carrier", shipment.Carrier)
	return fmt.Sprintf("%s/%s", e.cfg.LabelBaseURL, shipment.ID), nil
}

// Track polls the carrier and, on a status change, persists it and
// fires a shipping-update notification.
func (e *Estimator) Track(ctx context.Context, trackingNumber string) (domain.ShipmentStatus, error) {
	shipment, ok, err := e.shipments.GetByTracking(ctx, trackingNumber)
	if err != nil {
		return "", apperr.Dependency("shipping.track", err)
	}
	if !ok {
		return "", apperr.State("shipping.track", "tracking number not found")
	}

	status, err := e.carrier.Track(ctx, shipment.Carrier, trackingNumber)
	if err != nil {
		return "", apperr.Dependency("shipping.track", err)
	}

	if status != shipment.Status {
		if err := e.shipments.UpdateStatus(ctx, shipment.ID, status); err != nil {
			return "", apperr.Dependency("shipping.track", err)
		}
		e.notify.ShippingUpdate(shipment.CustomerID, shipment.OrderID, string(status), trackingNumber)
	}
	return status, nil
}
