package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwrapsNestedErrors(t *testing.T) {
	base := Availability("inventory.reserve", []string{"p1", "p2"})
	wrapped := fmt.Errorf("saga step failed: %w", base)

	assert.Equal(t, KindAvailability, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindAvailability))
	assert.False(t, IsKind(wrapped, KindPayment))

	var ae *Error
	assert.True(t, errors.As(wrapped, &ae))
	assert.Equal(t, []string{"p1", "p2"}, ae.Unavailable)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestDependencyWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Dependency("payment.capture", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "payment.capture")
	assert.Contains(t, err.Error(), "dependency")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestErrorStringIncludesUnavailableProducts(t *testing.T) {
	err := Availability("inventory.check", []string{"p9"})
	assert.Contains(t, err.Error(), "p9")
	assert.Contains(t, err.Error(), "insufficient stock")
}
