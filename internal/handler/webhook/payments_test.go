package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/dukerupert/tapnet/internal/service"
)

// mockCheckoutService implements service.CheckoutService; only HandleWebhook is exercised.
type mockCheckoutService struct {
	service.CheckoutService
	handleWebhookFunc func(ctx context.Context, payload []byte, signature string) error
}

func (m *mockCheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.handleWebhookFunc(ctx, payload, signature)
}

func TestSignatureHeader(t *testing.T) {
	assert.Equal(t, "X-Razorpay-Signature", SignatureHeader("razorpay"))
	assert.Equal(t, "Stripe-Signature", SignatureHeader("stripe"))
	assert.Equal(t, "X-Webhook-Signature", SignatureHeader("mock"))
}

func TestPaymentsHandler_HandleWebhook(t *testing.T) {
	const payload = `{"event":"payment.captured"}`

	tests := []struct {
		name       string
		provider   string
		header     string
		serviceErr error
		wantStatus int
		wantCalled bool
	}{
		{
			name:       "razorpay delivery accepted",
			provider:   "razorpay",
			header:     "X-Razorpay-Signature",
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "stripe delivery accepted",
			provider:   "stripe",
			header:     "Stripe-Signature",
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "signature in the wrong header",
			provider:   "razorpay",
			header:     "Stripe-Signature",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "signature rejected",
			provider:   "razorpay",
			header:     "X-Razorpay-Signature",
			serviceErr: service.ErrInvalidWebhookSignature,
			wantStatus: http.StatusUnauthorized,
			wantCalled: true,
		},
		{
			name:       "malformed payload",
			provider:   "razorpay",
			header:     "X-Razorpay-Signature",
			serviceErr: service.ErrMalformedWebhook,
			wantStatus: http.StatusBadRequest,
			wantCalled: true,
		},
		{
			name:       "store failure is retried",
			provider:   "razorpay",
			header:     "X-Razorpay-Signature",
			serviceErr: domain.Internal(errors.New("deadlock"), "order.mark_paid", "failed to mark order paid"),
			wantStatus: http.StatusInternalServerError,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockCheckoutService{
				handleWebhookFunc: func(ctx context.Context, body []byte, signature string) error {
					called = true
					assert.Equal(t, payload, string(body))
					assert.Equal(t, "sig-123", signature)
					return tt.serviceErr
				},
			}
			h := NewPaymentsHandler(svc, tt.provider)

			req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(payload))
			req.Header.Set(tt.header, "sig-123")
			rec := httptest.NewRecorder()

			h.HandleWebhook(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}
