package email

import (
	"context"
	"log/slog"
	"sync"
)

// Email represents an email message to be sent.
type Email struct {
	To       []string          // Recipient email addresses
	From     string            // Sender email address
	ReplyTo  string            // Optional reply-to address
	Subject  string            // Email subject
	TextBody string            // Plain text body
	HTMLBody string            // HTML body (optional)
	Headers  map[string]string // Custom headers (optional)
}

// Sender defines the interface for sending emails.
type Sender interface {
	// Send sends an email message.
	// Returns the message ID from the email provider (if available).
	Send(ctx context.Context, email *Email) (string, error)
}

// NoopSender logs instead of sending. Used when SMTP is not configured.
type NoopSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []*Email
}

func NewNoopSender(logger *slog.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

func (s *NoopSender) Send(ctx context.Context, email *Email) (string, error) {
	s.mu.Lock()
	s.sent = append(s.sent, email)
	s.mu.Unlock()

	s.logger.Info("email: smtp not configured, message dropped",
		"to", email.To,
		"subject", email.Subject,
	)
	return "", nil
}

// Sent returns every message passed to Send.
func (s *NoopSender) Sent() []*Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Email(nil), s.sent...)
}
