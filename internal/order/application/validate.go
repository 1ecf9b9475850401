package application

import (
	"strings"

	"github.com/acmecommerce/orderflow/pkg/apperr"
)

// validateRequest runs the structural checks on a placement request
// and reports every violation at once rather than stopping at the
// first.
func validateRequest(req PlaceOrderRequest, allowedMethods map[string]bool) error {
	var violations []string

	if strings.TrimSpace(req.CustomerID) == "" {
		violations = append(violations, "customer is required")
	}
	if len(req.Items) == 0 {
		violations = append(violations, "order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			violations = append(violations, "item product id is required")
		}
		if item.Quantity <= 0 {
			violations = append(violations, "item quantity must be positive")
		}
		if item.UnitPriceCents < 0 {
			violations = append(violations, "item price must not be negative")
		}
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		violations = append(violations, "shipping address is required")
	}
	if !allowedMethods[req.PaymentMethod] {
		violations = append(violations, "unknown payment method")
	}

	if len(violations) > 0 {
		return apperr.Validation("order.validate", strings.Join(violations, "; "))
	}
	return nil
}
