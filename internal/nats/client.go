package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/lightnode/internal/version"
)

// ControlClient sends control messages to a running engine.
type ControlClient struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewControlClient connects to the NATS server at url.
func NewControlClient(url string, logger *slog.Logger) (*ControlClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name(version.ClientName("control")),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	return &ControlClient{
		conn:   conn,
		logger: logger.With("component", "nats-control"),
	}, nil
}

// Send publishes m and waits for the engine's ack until ctx is done.
// A rejected message is returned as an error alongside the ack.
func (c *ControlClient) Send(ctx context.Context, m ControlMessage) (Ack, error) {
	if m.Timestamp == "" {
		m.Timestamp = time.Now().Format(time.RFC3339)
	}

	data, err := m.Marshal()
	if err != nil {
		return Ack{}, err
	}

	reply, err := c.conn.RequestWithContext(ctx, SubjectControlDirective, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return Ack{}, fmt.Errorf("no engine is listening on %s", SubjectControlDirective)
		}
		return Ack{}, err
	}

	ack, err := UnmarshalAck(reply.Data)
	if err != nil {
		return Ack{}, fmt.Errorf("invalid ack: %w", err)
	}
	if !ack.OK {
		return ack, fmt.Errorf("engine rejected %s: %s", m.Action, ack.Error)
	}

	c.logger.Info("Control message accepted", "action", m.Action, "directive", ack.Directive)
	return ack, nil
}

// Close closes the connection.
func (c *ControlClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
