package billing

import (
	"errors"
	"fmt"
	"strings"
)

// RazorpayConfig contains configuration for the Razorpay provider.
type RazorpayConfig struct {
	// KeyID is the public key id (rzp_test_... or rzp_live_...)
	KeyID string

	// KeySecret signs payment callbacks and authenticates API calls.
	KeySecret string

	// WebhookSecret is the secret configured on the Razorpay webhook.
	WebhookSecret string
}

// Validate checks that required configuration is present.
func (c *RazorpayConfig) Validate() error {
	if c.KeyID == "" || c.KeySecret == "" {
		return fmt.Errorf("razorpay: key id and secret are required: %w", ErrInvalidAPIKey)
	}
	if c.WebhookSecret == "" {
		return errors.New("razorpay: webhook secret is required")
	}
	return nil
}

// IsTestMode returns true if using test mode keys.
func (c *RazorpayConfig) IsTestMode() bool {
	return strings.HasPrefix(c.KeyID, "rzp_test_")
}

// StripeConfig contains configuration for the Stripe provider.
type StripeConfig struct {
	// APIKey is the Stripe secret key (sk_test_... or sk_live_...)
	APIKey string

	// PublishableKey is handed to Stripe.js (pk_test_... or pk_live_...)
	PublishableKey string

	// WebhookSecret is the webhook signing secret (whsec_...)
	WebhookSecret string
}

// Validate checks that required configuration is present.
func (c *StripeConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("stripe: API key is required: %w", ErrInvalidAPIKey)
	}
	if c.WebhookSecret == "" {
		return errors.New("stripe: webhook secret is required")
	}
	return nil
}

// IsTestMode returns true if using test mode API keys.
func (c *StripeConfig) IsTestMode() bool {
	return strings.HasPrefix(c.APIKey, "sk_test_")
}
