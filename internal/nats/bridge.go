package nats

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/lightnode/internal/events"
	"github.com/smazurov/lightnode/internal/heart"
	"github.com/smazurov/lightnode/internal/version"
)

// DirectiveSender accepts directives without blocking.
type DirectiveSender interface {
	TrySend(d heart.Directive) error
}

// Bridge turns control messages into directives and mirrors engine state
// events onto NATS subjects.
type Bridge struct {
	url      string
	sender   DirectiveSender
	eventBus *events.Bus
	conn     *nats.Conn
	sub      *nats.Subscription
	unsubs   []func()
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewBridge creates a bridge. eventBus may be nil to skip state mirroring.
func NewBridge(url string, sender DirectiveSender, eventBus *events.Bus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		url:      url,
		sender:   sender,
		eventBus: eventBus,
		logger:   logger.With("component", "nats-bridge"),
	}
}

// Start connects, subscribes to the control subject and starts mirroring state.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name(version.ClientName("bridge")),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}

	sub, err := conn.Subscribe(SubjectControlDirective, b.handleControl)
	if err != nil {
		conn.Close()
		return err
	}
	b.conn = conn
	b.sub = sub

	if b.eventBus != nil {
		b.unsubs = []func(){
			b.eventBus.Subscribe(func(e events.CursorStateEvent) { b.mirror(SubjectCursorState, e) }),
			b.eventBus.Subscribe(func(e events.DeviceStateEvent) { b.mirror(SubjectDeviceState, e) }),
		}
	}

	b.logger.Info("NATS bridge started", "url", b.url, "subject", SubjectControlDirective)
	return nil
}

// handleControl applies one control message and replies when the sender asked for it.
func (b *Bridge) handleControl(msg *nats.Msg) {
	ack := b.apply(msg.Data)
	if msg.Reply == "" {
		return
	}

	data, err := ack.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal ack", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("Failed to reply to control message", "error", err)
	}
}

func (b *Bridge) apply(data []byte) Ack {
	m, err := UnmarshalControl(data)
	if err != nil {
		b.logger.Warn("Failed to unmarshal control message", "error", err)
		return Ack{Error: "invalid message: " + err.Error()}
	}

	d, err := m.Directive()
	if err != nil {
		b.logger.Warn("Rejected control message", "action", m.Action, "error", err)
		return Ack{Error: err.Error()}
	}

	if err := b.sender.TrySend(d); err != nil {
		b.logger.Warn("Failed to queue directive", "directive", d.String(), "error", err)
		return Ack{Directive: d.String(), Error: err.Error()}
	}

	b.logger.Info("Received control command", "directive", d.String(), "reason", m.Reason)
	return Ack{OK: true, Directive: d.String()}
}

func (b *Bridge) mirror(subject string, ev any) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("Failed to marshal state event", "subject", subject, "error", err)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		b.logger.Debug("Failed to publish state event", "subject", subject, "error", err)
	}
}

// Stop unsubscribes and closes the connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
		b.sub = nil
	}
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	b.logger.Info("NATS bridge stopped")
}

// IsConnected reports whether the bridge holds a live connection.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
