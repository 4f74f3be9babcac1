package service

import (
	"github.com/dukerupert/tapnet/internal/domain"
)

// Catalog errors - use domain.ENOTFOUND
var (
	ErrProductUnavailable = domain.Errorf(domain.ENOTFOUND, "", "Product is not available")
)

const msgGatewayUnavailable = "Payment gateway is unavailable, please try again"

// Checkout errors
var (
	ErrTotalTooSmallForOnline = domain.Errorf(domain.EINVALID, "", "Order total is too small for online payment, choose cash on delivery")
	ErrGatewayUnavailable     = domain.Errorf(domain.EPAYMENT, "", msgGatewayUnavailable)
	ErrPaymentNotOnline       = domain.Errorf(domain.EINVALID, "", "Order was not placed for online payment")
)

// Webhook errors
var (
	ErrInvalidWebhookSignature = domain.Errorf(domain.EUNAUTHORIZED, "", "Invalid webhook signature")
	ErrMalformedWebhook        = domain.Errorf(domain.EINVALID, "", "Malformed webhook payload")
)
