package application

import (
	"context"

	"github.com/acmecommerce/orderflow/internal/shipping/domain"
)

type ValidationReport struct {
	Valid  bool
	Errors []string
}

type AddressValidator interface {
	Validate(ctx context.Context, addr domain.Address) (ValidationReport, error)
}

type GeoService interface {
	// DistanceKm between two addresses.
	DistanceKm(ctx context.Context, from, to domain.Address) (float64, error)
}

type RateCard struct {
	StandardCents int64
}

type RateStore interface {
	Rates(ctx context.Context, distanceKm float64, weightUnits int64) (RateCard, error)
}

type ShipmentSpec struct {
	OrderID     string
	Carrier     string
	Destination domain.Address
	Package     domain.PackageSpec
}

type CarrierShipment struct {
	ID             string
	TrackingNumber string
}

type CarrierAPI interface {
	CreateShipment(ctx context.Context, spec ShipmentSpec) (CarrierShipment, error)
	Track(ctx context.Context, carrier, trackingNumber string) (domain.ShipmentStatus, error)
}

type ShipmentStore interface {
	Save(ctx context.Context, s domain.Shipment) error
	GetByTracking(ctx context.Context, trackingNumber string) (domain.Shipment, bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.ShipmentStatus) error
}

type Notifier interface {
	ShippingUpdate(customerID, orderID, status, trackingNumber string)
}
