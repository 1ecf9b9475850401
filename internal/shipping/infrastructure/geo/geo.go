// Package geo provides address validation and distance lookups without
// calling an external geocoding provider.
package geo

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/acmecommerce/orderflow/internal/shipping/application"
	"github.com/acmecommerce/orderflow/internal/shipping/domain"
)

// Validator checks that an address carries the fields a carrier needs.
type Validator struct{}

func (Validator) Validate(ctx context.Context, addr domain.Address) (application.ValidationReport, error) {
	var errs []string
	if strings.TrimSpace(addr.Street) == "" {
		errs = append(errs, "street is required")
	}
	if strings.TrimSpace(addr.City) == "" {
		errs = append(errs, "city is required")
	}
	if strings.TrimSpace(addr.Zip) == "" {
		errs = append(errs, "zip is required")
	}
	return application.ValidationReport{Valid: len(errs) == 0, Errors: errs}, nil
}

// Distancer derives a stable pseudo-distance from the address pair so
// repeated quotes for the same lane agree with each other.
type Distancer struct{}

func (Distancer) DistanceKm(ctx context.Context, from, to domain.Address) (float64, error) {
	if from.City == to.City && from.State == to.State {
		return 25, nil
	}
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(from.City + "|" + from.State + "|" + to.City + "|" + to.State)))
	// 50..3249 km, deterministic per lane.
	return float64(50 + h.Sum32()%3200), nil
}
