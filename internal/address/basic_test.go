package address

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/tapnet/internal/domain"
)

func TestBasicValidator_Validate(t *testing.T) {
	tests := []struct {
		name       string
		addr       domain.Address
		wantValid  bool
		wantFields []string
		wantState  string
	}{
		{
			name:      "valid Indian address",
			addr:      domain.Address{Line1: "12 MG Road", City: "Bengaluru", State: "Karnataka", PostalCode: "560001", Country: "IN"},
			wantValid: true,
			wantState: "Karnataka",
		},
		{
			name:      "state code normalized",
			addr:      domain.Address{Line1: "1 Marine Drive", City: "Mumbai", State: " mh ", PostalCode: "400 020", Country: "in"},
			wantValid: true,
			wantState: "Maharashtra",
		},
		{
			name:      "old state name",
			addr:      domain.Address{Line1: "Station Rd", City: "Cuttack", State: "Orissa", PostalCode: "753001", Country: "IN"},
			wantValid: true,
			wantState: "Odisha",
		},
		{
			name:       "unknown state",
			addr:       domain.Address{Line1: "1 Main St", City: "Springfield", State: "Ohio", PostalCode: "560001", Country: "IN"},
			wantFields: []string{"state"},
		},
		{
			name:       "PIN starting with zero",
			addr:       domain.Address{Line1: "12 MG Road", City: "Bengaluru", State: "KA", PostalCode: "060001", Country: "IN"},
			wantFields: []string{"postalCode"},
		},
		{
			name:      "foreign address only normalized",
			addr:      domain.Address{Line1: "  10   Downing St ", City: "London", State: "Greater London", PostalCode: "SW1A2AA", Country: "GB"},
			wantValid: true,
			wantState: "Greater London",
		},
	}

	v := NewBasicValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.Validate(context.Background(), tt.addr)
			require.NoError(t, err)
			require.NotNil(t, result.NormalizedAddress)

			assert.Equal(t, tt.wantValid, result.IsValid)

			var fields []string
			for _, e := range result.Errors {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.wantFields, fields)

			if tt.wantValid {
				assert.Equal(t, tt.wantState, result.NormalizedAddress.State)
				assert.NotContains(t, result.NormalizedAddress.Line1, "  ")
				assert.NotContains(t, result.NormalizedAddress.PostalCode, " ")
			}
		})
	}
}

func TestLookupState(t *testing.T) {
	name, ok := LookupState("tamil   nadu")
	assert.True(t, ok)
	assert.Equal(t, "Tamil Nadu", name)

	_, ok = LookupState("")
	assert.False(t, ok)
}
