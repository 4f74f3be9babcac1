package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStripeWebhookSecret = "whsec_test_secret"

func newTestStripe(t *testing.T) *StripeProvider {
	t.Helper()
	p, err := NewStripeProvider(StripeConfig{
		APIKey:         "sk_test_123",
		PublishableKey: "pk_test_123",
		WebhookSecret:  testStripeWebhookSecret,
	})
	require.NoError(t, err)
	return p
}

func signStripe(t *testing.T, payload string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testStripeWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestStripeProvider_CreateOrder(t *testing.T) {
	p := newTestStripe(t)

	var got *stripe.PaymentIntentParams
	p.newIntent = func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		got = params
		return &stripe.PaymentIntent{
			ID:           "pi_test_123",
			ClientSecret: "pi_test_123_secret_abc",
			Amount:       *params.Amount,
			Currency:     stripe.Currency(*params.Currency),
			Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
			Created:      1718445600,
		}, nil
	}

	order, err := p.CreateOrder(context.Background(), CreateOrderParams{
		AmountMinor:    90000,
		Currency:       "INR",
		Receipt:        "TN-20250615-ABCDEF",
		Notes:          map[string]string{"order_id": "o-1"},
		IdempotencyKey: "o-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "pi_test_123", order.ID)
	assert.Equal(t, "pi_test_123_secret_abc", order.ClientSecret)
	assert.Equal(t, int64(90000), order.AmountMinor)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "requires_payment_method", order.Status)

	require.NotNil(t, got)
	assert.Equal(t, "inr", *got.Currency)
	assert.Equal(t, "TN-20250615-ABCDEF", got.Metadata["order_number"])
	assert.Equal(t, "o-1", got.Metadata["order_id"])
	assert.Equal(t, "o-1", *got.IdempotencyKey)
	assert.True(t, *got.AutomaticPaymentMethods.Enabled)
}

func TestStripeProvider_CreateOrder_TooSmall(t *testing.T) {
	p := newTestStripe(t)
	p.newIntent = func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		t.Fatal("gateway must not be called")
		return nil, nil
	}

	_, err := p.CreateOrder(context.Background(), CreateOrderParams{AmountMinor: 50, Currency: "INR"})

	assert.ErrorIs(t, err, ErrAmountTooSmall)
}

func TestStripeProvider_CreateOrder_ConvertsStripeError(t *testing.T) {
	p := newTestStripe(t)
	p.newIntent = func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return nil, &stripe.Error{
			Code:           stripe.ErrorCodeCardDeclined,
			Msg:            "Your card was declined.",
			HTTPStatusCode: 402,
			RequestID:      "req_123",
		}
	}

	_, err := p.CreateOrder(context.Background(), CreateOrderParams{AmountMinor: 1000, Currency: "INR"})

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "stripe", gwErr.Gateway)
	assert.Equal(t, "card_declined", gwErr.Code)
	assert.Equal(t, 402, gwErr.StatusCode)
	assert.Equal(t, "req_123", gwErr.RequestID)
	assert.True(t, gwErr.IsDeclined())
}

func TestStripeProvider_VerifyPayment(t *testing.T) {
	tests := []struct {
		name    string
		status  stripe.PaymentIntentStatus
		getErr  error
		wantErr error
	}{
		{name: "succeeded", status: stripe.PaymentIntentStatusSucceeded},
		{name: "still processing", status: stripe.PaymentIntentStatusProcessing, wantErr: ErrPaymentNotCompleted},
		{name: "needs payment method", status: stripe.PaymentIntentStatusRequiresPaymentMethod, wantErr: ErrPaymentNotCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestStripe(t)
			p.getIntent = func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
				assert.Equal(t, "pi_123", id)
				return &stripe.PaymentIntent{ID: id, Status: tt.status}, nil
			}

			err := p.VerifyPayment(context.Background(), VerifyParams{GatewayOrderID: "pi_123", PaymentID: "pi_123"})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStripeProvider_ParseWebhook(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		badSig      bool
		wantErr     error
		wantType    WebhookEventType
		wantOrderID string
		wantPayment string
	}{
		{
			name:        "payment intent succeeded",
			payload:     `{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","amount":90000,"latest_charge":"ch_1"}}}`,
			wantType:    EventPaymentSucceeded,
			wantOrderID: "pi_1",
			wantPayment: "ch_1",
		},
		{
			name:        "payment intent failed",
			payload:     `{"id":"evt_2","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_2","object":"payment_intent","amount":500}}}`,
			wantType:    EventPaymentFailed,
			wantOrderID: "pi_2",
			wantPayment: "pi_2",
		},
		{
			name:     "unrelated event",
			payload:  `{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`,
			wantType: EventIgnored,
		},
		{
			name:    "bad signature",
			payload: `{"id":"evt_4","object":"event","type":"payment_intent.succeeded","data":{"object":{}}}`,
			badSig:  true,
			wantErr: ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestStripe(t)
			sig := signStripe(t, tt.payload)
			if tt.badSig {
				sig = "t=1,v1=deadbeef"
			}

			event, err := p.ParseWebhook([]byte(tt.payload), sig)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, event.Type)
			assert.Equal(t, tt.wantOrderID, event.GatewayOrderID)
			assert.Equal(t, tt.wantPayment, event.PaymentID)
		})
	}
}

func TestStripeConfig_Validation(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		cfg := StripeConfig{WebhookSecret: "whsec_x"}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidAPIKey)
	})

	t.Run("requires webhook secret", func(t *testing.T) {
		cfg := StripeConfig{APIKey: "sk_test_x"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("detects test mode", func(t *testing.T) {
		assert.True(t, (&StripeConfig{APIKey: "sk_test_abc"}).IsTestMode())
		assert.False(t, (&StripeConfig{APIKey: "sk_live_abc"}).IsTestMode())
	})
}

func TestGatewayError(t *testing.T) {
	t.Run("formats error message correctly", func(t *testing.T) {
		err := &GatewayError{
			Gateway: "stripe",
			Message: "Payment failed",
			Code:    "card_declined",
		}
		assert.Contains(t, err.Error(), "Payment failed")
		assert.Contains(t, err.Error(), "card_declined")
	})

	t.Run("identifies declined cards", func(t *testing.T) {
		err := &GatewayError{
			Code:        "card_declined",
			DeclineCode: "insufficient_funds",
		}
		assert.True(t, err.IsDeclined())

		notDeclined := &GatewayError{
			Code: "api_error",
		}
		assert.False(t, notDeclined.IsDeclined())
	})

	t.Run("identifies temporary errors", func(t *testing.T) {
		assert.True(t, (&GatewayError{Code: "rate_limit"}).IsTemporary())
		assert.True(t, (&GatewayError{Code: "api_connection_error"}).IsTemporary())
		assert.True(t, (&GatewayError{StatusCode: 503}).IsTemporary())
		assert.False(t, (&GatewayError{Code: "invalid_request", StatusCode: 400}).IsTemporary())
	})
}
