// Package address checks and normalizes shipping addresses before an order
// is created.
package address

import (
	"context"

	"github.com/dukerupert/tapnet/internal/domain"
)

// Validator defines the interface for address validation.
// Implementations could call a postal lookup API; BasicValidator only applies
// local format rules.
type Validator interface {
	// Validate checks an address and returns a normalized copy.
	// Even if IsValid is false, NormalizedAddress may contain corrections.
	Validate(ctx context.Context, addr domain.Address) (*ValidationResult, error)
}

// ValidationResult contains the outcome of address validation.
type ValidationResult struct {
	IsValid           bool
	NormalizedAddress *domain.Address
	Errors            []ValidationError
}

// ValidationError represents a specific validation error.
// Field is the JSON name of the address field.
type ValidationError struct {
	Field   string
	Message string
}
