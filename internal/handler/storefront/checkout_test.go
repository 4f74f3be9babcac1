package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/dukerupert/tapnet/internal/service"
)

const checkoutBody = `{
	"customer": {"name": "Asha Rao", "email": "asha@example.com", "phone": "9876543210"},
	"shippingAddress": {"line1": "12 MG Road", "city": "Bengaluru", "state": "Karnataka", "postalCode": "560001", "country": "IN"},
	"paymentMethod": "online"
}`

func TestCheckoutHandler_PlaceOrder(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		result     *service.CheckoutResult
		err        error
		wantStatus int
		check      func(t *testing.T, body []byte)
	}{
		{
			name: "online order returns payment handoff",
			body: checkoutBody,
			result: &service.CheckoutResult{
				Order: testOrder(),
				Payment: &service.PaymentHandoff{
					Provider: "razorpay", PublicKey: "rzp_test_key", GatewayOrderID: "order_abc",
					AmountMinor: 90000, Currency: "INR",
				},
			},
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, body []byte) {
				var resp struct {
					Order struct {
						OrderNumber string `json:"orderNumber"`
						Total       string `json:"total"`
					} `json:"order"`
					Payment struct {
						GatewayOrderID string `json:"gatewayOrderId"`
						Amount         int64  `json:"amount"`
					} `json:"payment"`
				}
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "TN-20250615-ABC123", resp.Order.OrderNumber)
				assert.Equal(t, "900", resp.Order.Total)
				assert.Equal(t, "order_abc", resp.Payment.GatewayOrderID)
				assert.Equal(t, int64(90000), resp.Payment.Amount)
				assert.NotContains(t, string(body), "asha@example.com")
			},
		},
		{
			name: "validation errors carry fields",
			body: checkoutBody,
			err: &domain.ValidationError{Op: "checkout.place_order", Fields: map[string]string{
				"shippingAddress.postalCode": "must be 6 characters",
			}},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), `"shippingAddress.postalCode":"must be 6 characters"`)
			},
		},
		{
			name:       "empty cart",
			body:       checkoutBody,
			err:        domain.ErrCartEmpty,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "coupon no longer valid",
			body:       checkoutBody,
			err:        domain.ErrCouponExpired,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "gateway unavailable",
			body:       checkoutBody,
			err:        domain.WrapError(errors.New("503"), domain.EPAYMENT, "checkout.start_payment", "Payment gateway is unavailable"),
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "unknown field rejected before the service",
			body:       `{"total": 1}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockCheckoutService{
				placeOrderFunc: func(ctx context.Context, sessionID string, req service.CheckoutRequest) (*service.CheckoutResult, error) {
					called = true
					assert.Equal(t, existingSession, sessionID)
					assert.Equal(t, domain.PaymentMethodOnline, req.PaymentMethod)
					return tt.result, tt.err
				},
			}
			h := NewCheckoutHandler(svc)

			rec := httptest.NewRecorder()
			h.PlaceOrder(rec, newCartRequest(http.MethodPost, "/api/checkout", tt.body, existingSession))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.result != nil || tt.err != nil, called)
			if tt.check != nil {
				tt.check(t, rec.Body.Bytes())
			}
		})
	}
}

func TestCheckoutHandler_VerifyPayment(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "verified", wantStatus: http.StatusOK},
		{name: "bad signature", err: domain.ErrPaymentNotVerified, wantStatus: http.StatusPaymentRequired},
		{name: "unknown gateway order", err: domain.ErrOrderNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCheckoutService{
				verifyPaymentFunc: func(ctx context.Context, sessionID string, req service.VerifyPaymentRequest) (*domain.Order, error) {
					assert.Equal(t, "order_abc", req.GatewayOrderID)
					assert.Equal(t, "pay_123", req.PaymentID)
					assert.Equal(t, "sig", req.Signature)
					if tt.err != nil {
						return nil, tt.err
					}
					order := testOrder()
					order.Payment = domain.Payment{Method: domain.PaymentMethodOnline, Status: domain.PaymentStatusPaid}
					return order, nil
				},
			}
			h := NewCheckoutHandler(svc)

			body := `{"gatewayOrderId":"order_abc","paymentId":"pay_123","signature":"sig"}`
			rec := httptest.NewRecorder()
			h.VerifyPayment(rec, newCartRequest(http.MethodPost, "/api/checkout/verify", body, existingSession))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.err == nil {
				assert.Contains(t, rec.Body.String(), `"paymentStatus":"paid"`)
			}
		})
	}
}

func TestOrderHandler_Get(t *testing.T) {
	svc := &mockCheckoutService{
		getOrderFunc: func(ctx context.Context, orderNumber string) (*domain.Order, error) {
			if orderNumber == "TN-20250615-ABC123" {
				return testOrder(), nil
			}
			return nil, domain.ErrOrderNotFound
		},
	}
	h := NewOrderHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/orders/{orderNumber}", h.Get)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/TN-20250615-ABC123", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `"shipToCity":"Bengaluru"`)
		assert.Contains(t, body, `"couponCode":"SAVE10"`)
		assert.NotContains(t, body, "9876543210")
		assert.NotContains(t, body, "12 MG Road")
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/TN-0", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestProductHandler_List(t *testing.T) {
	t.Run("lists products", func(t *testing.T) {
		h := NewProductHandler(&mockCatalog{products: []domain.Product{
			{ID: "nfc-card", Name: "NFC Card", IsActive: true},
		}})

		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":"nfc-card"`)
	})

	t.Run("empty catalog is an empty array", func(t *testing.T) {
		h := NewProductHandler(&mockCatalog{})

		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"products":[]}`, rec.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		h := NewProductHandler(&mockCatalog{err: errors.New("connection refused")})

		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}
