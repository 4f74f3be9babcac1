package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"rupees": func(d decimal.Decimal) string {
		return "₹" + d.StringFixed(2)
	},
}

// Service handles email composition and sending
type Service struct {
	sender        Sender
	fromAddress   string
	fromName      string
	baseURL       string
	templateCache *template.Template
}

// NewService creates a new email service with the embedded templates.
func NewService(sender Sender, fromAddress, fromName, baseURL string) (*Service, error) {
	tmpl, err := template.New("email").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Service{
		sender:        sender,
		fromAddress:   fromAddress,
		fromName:      fromName,
		baseURL:       strings.TrimRight(baseURL, "/"),
		templateCache: tmpl,
	}, nil
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	data := OrderConfirmationEmail{
		OrderNumber:    order.OrderNumber,
		CustomerName:   order.Customer.Name,
		CustomerEmail:  order.Customer.Email,
		OrderDate:      order.CreatedAt,
		Subtotal:       order.Subtotal,
		DiscountAmount: order.DiscountAmount,
		CouponCode:     order.CouponCode,
		Total:          order.Total,
		PaymentMethod:  paymentLabel(order.Payment.Method),
		ShippingAddr:   toAddress(order.Customer.Name, order.ShippingAddress),
		OrderURL:       s.orderURL(order.OrderNumber),
	}
	for _, item := range order.Items {
		data.Items = append(data.Items, OrderItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}

	if err := s.send(ctx, data.CustomerEmail, data); err != nil {
		return fmt.Errorf("failed to send order confirmation email: %w", err)
	}
	return nil
}

// SendPaymentFailed tells the shopper an online payment attempt failed
func (s *Service) SendPaymentFailed(ctx context.Context, order *domain.Order) error {
	data := PaymentFailedEmail{
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.Customer.Name,
		CustomerEmail: order.Customer.Email,
		Total:         order.Total,
		RetryURL:      s.orderURL(order.OrderNumber),
	}

	if err := s.send(ctx, data.CustomerEmail, data); err != nil {
		return fmt.Errorf("failed to send payment failed email: %w", err)
	}
	return nil
}

func (s *Service) send(ctx context.Context, to string, data EmailTemplate) error {
	htmlBody, textBody, err := s.renderTemplate(data.TemplateName(), data)
	if err != nil {
		return err
	}

	_, err = s.sender.Send(ctx, &Email{
		To:       []string{to},
		From:     fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress),
		Subject:  data.Subject(),
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	return err
}

func (s *Service) orderURL(orderNumber string) string {
	if s.baseURL == "" {
		return ""
	}
	return s.baseURL + "/orders/" + orderNumber
}

// Helper method to render a template
func (s *Service) renderTemplate(templateName string, data interface{}) (string, string, error) {
	var htmlBuf bytes.Buffer
	if err := s.templateCache.ExecuteTemplate(&htmlBuf, templateName, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	htmlBody := htmlBuf.String()
	return htmlBody, generatePlainText(htmlBody), nil
}

func paymentLabel(m domain.PaymentMethod) string {
	if m == domain.PaymentMethodCOD {
		return "Cash on delivery"
	}
	return "Paid online"
}

func toAddress(name string, a domain.Address) Address {
	return Address{
		Name:       name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

var plainTextBreaks = strings.NewReplacer(
	"<br>", "\n",
	"<br/>", "\n",
	"<br />", "\n",
	"</p>", "\n\n",
	"</div>", "\n",
	"</tr>", "\n",
	"</td>", " ",
	"</h1>", "\n\n",
	"</h2>", "\n\n",
	"</h3>", "\n\n",
)

var plainTextEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&times;", "x",
	"&middot;", "-",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&#34;", "\"",
	"&#39;", "'",
)

// generatePlainText creates a simple plain text version from HTML
func generatePlainText(html string) string {
	text := plainTextBreaks.Replace(html)

	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	text = plainTextEntities.Replace(b.String())

	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
