package address

import (
	"context"
	"strings"

	"github.com/dukerupert/tapnet/internal/domain"
)

// BasicValidator performs format validation without external API calls.
// Indian addresses get PIN code and state checks; other countries only have
// their whitespace normalized.
type BasicValidator struct{}

var _ Validator = (*BasicValidator)(nil)

// NewBasicValidator creates a new basic address validator.
func NewBasicValidator() *BasicValidator {
	return &BasicValidator{}
}

// Validate performs basic validation checks on the address.
func (v *BasicValidator) Validate(ctx context.Context, addr domain.Address) (*ValidationResult, error) {
	normalized := domain.Address{
		Line1:      collapseSpaces(addr.Line1),
		Line2:      collapseSpaces(addr.Line2),
		City:       collapseSpaces(addr.City),
		State:      collapseSpaces(addr.State),
		PostalCode: strings.ReplaceAll(strings.TrimSpace(addr.PostalCode), " ", ""),
		Country:    strings.ToUpper(strings.TrimSpace(addr.Country)),
	}

	result := &ValidationResult{NormalizedAddress: &normalized}

	if normalized.Country == "IN" {
		if state, ok := LookupState(normalized.State); ok {
			normalized.State = state
		} else {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "state",
				Message: "must be an Indian state or union territory",
			})
		}

		if !validPIN(normalized.PostalCode) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "postalCode",
				Message: "must be a valid 6-digit PIN code",
			})
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result, nil
}

// validPIN reports whether pin is six digits not starting with 0.
func validPIN(pin string) bool {
	if len(pin) != 6 || pin[0] == '0' {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
