// Package carrier simulates the carrier API used for label creation
// and tracking.
package carrier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/acmecommerce/orderflow/internal/shipping/application"
	"github.com/acmecommerce/orderflow/internal/shipping/domain"
	"github.com/google/uuid"
)

// Simulator hands out tracking numbers and walks each shipment through
// created, in_transit, delivered one Track call at a time.
type Simulator struct {
	log *slog.Logger

	mu    sync.Mutex
	polls map[string]int
}

func NewSimulator(log *slog.Logger) *Simulator {
	return &Simulator{log: log, polls: make(map[string]int)}
}

func (s *Simulator) CreateShipment(ctx context.Context, spec application.ShipmentSpec) (application.CarrierShipment, error) {
	if spec.Carrier == "" {
		return application.CarrierShipment{}, fmt.Errorf("carrier: carrier name is required")
	}
	id := uuid.NewString()
	tracking := fmt.Sprintf("%s-%s", strings.ToUpper(spec.Carrier), strings.ToUpper(id[:8]))
	s.log.InfoContext(ctx, "carrier shipment created", "order_id", spec.OrderID, "tracking", tracking)
	return application.CarrierShipment{ID: id, TrackingNumber: tracking}, nil
}

func (s *Simulator) Track(ctx context.Context, carrier, trackingNumber string) (domain.ShipmentStatus, error) {
	s.mu.Lock()
	n := s.polls[trackingNumber]
	s.polls[trackingNumber] = n + 1
	s.mu.Unlock()

	switch {
	case n == 0:
		return domain.ShipmentCreated, nil
	case n == 1:
		return domain.ShipmentInTransit, nil
	default:
		return domain.ShipmentDelivered, nil
	}
}
