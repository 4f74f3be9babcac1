package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeySecret     = "rzp_secret_test"
	testWebhookSecret = "rzp_webhook_secret"
)

type fakeRazorpayOrders struct {
	data    map[string]interface{}
	headers map[string]string
	resp    map[string]interface{}
	err     error
}

func (f *fakeRazorpayOrders) Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error) {
	f.data = data
	f.headers = extraHeaders
	return f.resp, f.err
}

func sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestRazorpay(t *testing.T, orders razorpayOrders) *RazorpayProvider {
	t.Helper()
	p, err := NewRazorpayProvider(RazorpayConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     testKeySecret,
		WebhookSecret: testWebhookSecret,
	})
	require.NoError(t, err)
	if orders != nil {
		p.orders = orders
	}
	return p
}

func TestNewRazorpayProvider_RequiresKeys(t *testing.T) {
	_, err := NewRazorpayProvider(RazorpayConfig{KeyID: "rzp_test_key"})
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	_, err = NewRazorpayProvider(RazorpayConfig{KeyID: "rzp_test_key", KeySecret: "s"})
	assert.Error(t, err)
}

func TestRazorpayProvider_CreateOrder(t *testing.T) {
	orders := &fakeRazorpayOrders{resp: map[string]interface{}{
		"id":         "order_ABC123",
		"amount":     float64(90000),
		"currency":   "INR",
		"status":     "created",
		"created_at": float64(1718445600),
	}}
	p := newTestRazorpay(t, orders)

	order, err := p.CreateOrder(context.Background(), CreateOrderParams{
		AmountMinor:    90000,
		Currency:       "inr",
		Receipt:        "TN-20250615-ABCDEF",
		Notes:          map[string]string{"order_id": "o-1"},
		IdempotencyKey: "o-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "order_ABC123", order.ID)
	assert.Equal(t, int64(90000), order.AmountMinor)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, int64(1718445600), order.CreatedAt.Unix())

	assert.Equal(t, int64(90000), orders.data["amount"])
	assert.Equal(t, "INR", orders.data["currency"])
	assert.Equal(t, "TN-20250615-ABCDEF", orders.data["receipt"])
	assert.Equal(t, map[string]interface{}{"order_id": "o-1"}, orders.data["notes"])
	assert.Equal(t, "o-1", orders.headers["X-Razorpay-Idempotency-Key"])
}

func TestRazorpayProvider_CreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		orders  *fakeRazorpayOrders
		wantErr error
		gateway bool
	}{
		{
			name:    "below minimum",
			amount:  99,
			orders:  &fakeRazorpayOrders{},
			wantErr: ErrAmountTooSmall,
		},
		{
			name:    "api error",
			amount:  1000,
			orders:  &fakeRazorpayOrders{err: errors.New("BAD_REQUEST_ERROR")},
			gateway: true,
		},
		{
			name:    "missing id",
			amount:  1000,
			orders:  &fakeRazorpayOrders{resp: map[string]interface{}{"status": "created"}},
			gateway: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestRazorpay(t, tt.orders)

			_, err := p.CreateOrder(context.Background(), CreateOrderParams{AmountMinor: tt.amount, Currency: "INR"})

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.gateway {
				var gwErr *GatewayError
				assert.True(t, errors.As(err, &gwErr))
				assert.Equal(t, "razorpay", gwErr.Gateway)
			}
		})
	}
}

func TestRazorpayProvider_VerifyPayment(t *testing.T) {
	p := newTestRazorpay(t, nil)
	valid := sign("order_ABC|pay_XYZ", testKeySecret)

	tests := []struct {
		name    string
		params  VerifyParams
		wantErr bool
	}{
		{
			name:   "valid signature",
			params: VerifyParams{GatewayOrderID: "order_ABC", PaymentID: "pay_XYZ", Signature: valid},
		},
		{
			name:    "tampered payment id",
			params:  VerifyParams{GatewayOrderID: "order_ABC", PaymentID: "pay_OTHER", Signature: valid},
			wantErr: true,
		},
		{
			name:    "signed with another secret",
			params:  VerifyParams{GatewayOrderID: "order_ABC", PaymentID: "pay_XYZ", Signature: sign("order_ABC|pay_XYZ", "nope")},
			wantErr: true,
		},
		{
			name:    "missing signature",
			params:  VerifyParams{GatewayOrderID: "order_ABC", PaymentID: "pay_XYZ"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.VerifyPayment(context.Background(), tt.params)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSignature)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRazorpayProvider_ParseWebhook(t *testing.T) {
	p := newTestRazorpay(t, nil)

	tests := []struct {
		name        string
		payload     string
		signature   string
		wantErr     error
		wantType    WebhookEventType
		wantOrderID string
		wantPayment string
	}{
		{
			name:        "payment captured",
			payload:     `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":90000,"status":"captured"}}}}`,
			wantType:    EventPaymentSucceeded,
			wantOrderID: "order_1",
			wantPayment: "pay_1",
		},
		{
			name:        "order paid",
			payload:     `{"event":"order.paid","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_2","amount":500}},"order":{"entity":{"id":"order_2","amount":500,"status":"paid"}}}}`,
			wantType:    EventPaymentSucceeded,
			wantOrderID: "order_2",
			wantPayment: "pay_2",
		},
		{
			name:        "payment failed",
			payload:     `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_3","order_id":"order_3","status":"failed"}}}}`,
			wantType:    EventPaymentFailed,
			wantOrderID: "order_3",
			wantPayment: "pay_3",
		},
		{
			name:     "unrelated event",
			payload:  `{"event":"refund.created","payload":{}}`,
			wantType: EventIgnored,
		},
		{
			name:      "bad signature",
			payload:   `{"event":"payment.captured"}`,
			signature: "deadbeef",
			wantErr:   ErrInvalidSignature,
		},
		{
			name:    "captured without order id",
			payload: `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_4"}}}}`,
			wantErr: ErrMalformedWebhook,
		},
		{
			name:    "not json",
			payload: `not json`,
			wantErr: ErrMalformedWebhook,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := tt.signature
			if sig == "" {
				sig = sign(tt.payload, testWebhookSecret)
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

func TestRazorpayConfig_IsTestMode(t *testing.T) {
	assert.True(t, (&RazorpayConfig{KeyID: "rzp_test_abc"}).IsTestMode())
	assert.False(t, (&RazorpayConfig{KeyID: "rzp_live_abc"}).IsTestMode())
}
