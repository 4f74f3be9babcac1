package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// natsConn is the part of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher publishes JSON events on core NATS subjects.
type NATSPublisher struct {
	conn   natsConn
	prefix string
	logger *slog.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// NATSConfig holds connection settings.
type NATSConfig struct {
	URL    string
	Name   string
	Prefix string // optional subject prefix, e.g. "tapnet"
}

// NewNATSPublisher connects to the server at cfg.URL.
func NewNATSPublisher(cfg NATSConfig, logger *slog.Logger) (*NATSPublisher, error) {
	name := cfg.Name
	if name == "" {
		name = "tapnet-storefront"
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return newNATSPublisher(nc, cfg.Prefix, logger), nil
}

func newNATSPublisher(conn natsConn, prefix string, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}
}

// Publish marshals event as JSON and publishes it. Core NATS publishes are
// fire-and-forget, so ctx is only checked before sending.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}

	subj := subject
	if p.prefix != "" {
		subj = p.prefix + "." + subject
	}

	if err := p.conn.Publish(subj, data); err != nil {
		return fmt.Errorf("publish %s: %w", subj, err)
	}

	p.logger.Debug("event published", "subject", subj, "bytes", len(data))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
