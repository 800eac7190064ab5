// Package events announces vault lifecycle events (backups, imports, clears)
// to other local processes over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event names published by the vault.
const (
	BackupCreated    = "backup.created"
	BackupRestored   = "backup.restored"
	SnapshotImported = "snapshot.imported"
	SnapshotCleared  = "snapshot.cleared"
	RowsImported     = "rows.imported"
)

// Publisher delivers vault events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// Envelope is the wire format of a published event.
type Envelope struct {
	Event   string    `json:"event"`
	SentAt  time.Time `json:"sent_at"`
	Payload any       `json:"payload"`
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, any) error { return nil }

// NATSPublisher publishes envelopes under "<prefix>.<event>".
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// Connect dials the NATS server at url.
func Connect(url, prefix string, logger zerolog.Logger) (*NATSPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("nats url must not be empty")
	}

	componentLogger := logger.With().Str("component", "events").Logger()
	conn, err := nats.Connect(url,
		nats.Name("counsel-vault"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				componentLogger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return NewNATSPublisher(conn, prefix, logger), nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn *nats.Conn, prefix string, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn:   conn,
		prefix: strings.Trim(prefix, "."),
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(event, payload, time.Now().UTC())
	if err != nil {
		return err
	}

	subject := Subject(p.prefix, event)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Debug().Str("subject", subject).Msg("event published")
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn().Err(err).Msg("failed to drain nats connection")
	}
}

// Subject joins the prefix and the event name.
func Subject(prefix, event string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return event
	}
	return prefix + "." + event
}

// Encode builds the JSON envelope for an event.
func Encode(event string, payload any, sentAt time.Time) ([]byte, error) {
	data, err := json.Marshal(Envelope{Event: event, SentAt: sentAt, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", event, err)
	}
	return data, nil
}
