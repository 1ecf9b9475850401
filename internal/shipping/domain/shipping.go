package domain

import (
	"strings"
	"time"
)

type Address struct {
	Street  string
	City    string
	State   string
	Zip     string
	Country string
}

// ParseAddress splits a single-line "street, city, state, zip, country"
// address. Missing trailing fields stay empty except country, which
// defaults to US.
func ParseAddress(s string) Address {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	addr := Address{Country: "US"}
	if len(parts) > 0 {
		addr.Street = parts[0]
	}
	if len(parts) > 1 {
		addr.City = parts[1]
	}
	if len(parts) > 2 {
		addr.State = parts[2]
	}
	if len(parts) > 3 {
		addr.Zip = parts[3]
	}
	if len(parts) > 4 && parts[4] != "" {
		addr.Country = parts[4]
	}
	return addr
}

type ShipmentStatus string

const (
	ShipmentCreated   ShipmentStatus = "created"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelivered ShipmentStatus = "delivered"
)

type Shipment struct {
	ID             string
	OrderID        string
	CustomerID     string
	Carrier        string
	TrackingNumber string
	Status         ShipmentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PackageSpec describes the parcel handed to the carrier.
type PackageSpec struct {
	WeightUnits int64
	Length      int64
	Width       int64
	Height      int64
}
