package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAPIKey is returned when gateway credentials are missing.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrInvalidSignature is returned when a payment or webhook signature does not match.
	ErrInvalidSignature = errors.New("billing: invalid signature")

	// ErrPaymentNotCompleted is returned when the gateway reports the payment is not captured.
	ErrPaymentNotCompleted = errors.New("billing: payment not completed")

	// ErrAmountTooSmall is returned when the amount is below the gateway minimum.
	ErrAmountTooSmall = errors.New("billing: amount too small (minimum ₹1.00)")

	// ErrMalformedWebhook is returned when a verified webhook body cannot be decoded.
	ErrMalformedWebhook = errors.New("billing: malformed webhook payload")
)

// MinimumAmountMinor is the smallest amount either gateway accepts for INR.
const MinimumAmountMinor = 100

// GatewayError wraps a gateway API error with additional context.
type GatewayError struct {
	Gateway       string // "razorpay" or "stripe"
	Message       string // Human-readable error message
	Code          string // Gateway error code (e.g., "card_declined", "BAD_REQUEST_ERROR")
	DeclineCode   string // Card decline reason (if applicable)
	StatusCode    int    // HTTP status code from the gateway
	RequestID     string // Gateway request ID for debugging
	OriginalError error  // Original error from the SDK
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Gateway, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Gateway, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.OriginalError
}

// IsDeclined returns true if error is due to card decline.
func (e *GatewayError) IsDeclined() bool {
	return e.Code == "card_declined" || e.DeclineCode != ""
}

// IsTemporary returns true if error is likely transient and retryable.
func (e *GatewayError) IsTemporary() bool {
	return e.Code == "rate_limit" || e.Code == "api_connection_error" || e.StatusCode >= 500
}
