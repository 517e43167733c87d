package device

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/smazurov/lightnode/internal/events"
	"github.com/smazurov/lightnode/internal/metrics"
	"k8s.io/utils/clock"
)

// emptyReadReportInterval throttles the "no data" telemetry log.
const emptyReadReportInterval = 5 * time.Second

// Factory builds a driver for a configuration.
type Factory func(cfg Config, logger *slog.Logger) (Driver, error)

// Manager owns the connection to one device: lazy connect, reconnect with
// cooldown, writes and opportunistic reads. It is not safe for concurrent
// use; the effect loop is its only caller.
type Manager struct {
	cfg         Config
	factory     Factory
	driver      Driver
	connected   bool
	lastAttempt time.Time

	emptyReads      int
	lastEmptyReport time.Time

	clock  clock.PassiveClock
	bus    *events.Bus
	logger *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.PassiveClock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithFactory replaces the driver factory.
func WithFactory(f Factory) ManagerOption {
	return func(m *Manager) {
		m.factory = f
	}
}

// WithEventBus publishes DeviceStateEvent on connection transitions.
func WithEventBus(bus *events.Bus) ManagerOption {
	return func(m *Manager) {
		m.bus = bus
	}
}

// NewManager creates a manager for cfg. No connection is attempted until Maintain.
func NewManager(cfg Config, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:     cfg.WithDefaults(),
		factory: New,
		clock:   clock.RealClock{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastEmptyReport = m.clock.Now()
	return m
}

// Config returns the active configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Connected reports whether a handle is open.
func (m *Manager) Connected() bool {
	return m.connected
}

// Maintain runs once per tick: it attempts a connection when absent and the
// cooldown has elapsed, otherwise drains inbound bytes.
func (m *Manager) Maintain(ctx context.Context) {
	if !m.connected {
		if m.coolingDown() {
			return
		}
		m.connect(ctx)
		return
	}
	m.drain()
}

// Send writes one command. Without a connection it fails fast with
// NOT_CONNECTED; a failed write drops the handle and starts the cooldown.
func (m *Manager) Send(cmd Command) error {
	if !m.connected {
		return newError(ErrCodeNotConnected, "device not connected", nil)
	}

	if err := m.driver.Send(cmd); err != nil {
		metrics.RecordWrite(false)
		m.logger.Warn("Device write failed, dropping connection", "command", cmd.String(), "error", err)
		m.drop(err)
		return err
	}
	metrics.RecordWrite(true)
	return nil
}

// Configure swaps the device description. Any open handle is released and
// the cooldown is cleared so the next Maintain connects immediately.
func (m *Manager) Configure(cfg Config) {
	if m.connected {
		m.drop(nil)
	} else if m.driver != nil {
		m.closeDriver()
	}
	m.driver = nil
	m.cfg = cfg.WithDefaults()
	m.lastAttempt = time.Time{}
	m.logger.Info("Device reconfigured", "kind", m.cfg.Kind, "target", m.cfg.Target())
}

// Reconnect drops the handle and clears the cooldown.
func (m *Manager) Reconnect() {
	if m.connected {
		m.drop(nil)
	}
	m.lastAttempt = time.Time{}
	m.logger.Info("Forced reconnect requested", "kind", m.cfg.Kind, "target", m.cfg.Target())
}

// Close releases the handle without starting a cooldown.
func (m *Manager) Close() error {
	if m.driver == nil {
		return nil
	}
	err := m.driver.Close()
	if m.connected {
		m.connected = false
		metrics.SetConnected(false)
		m.publish(nil)
	}
	return err
}

func (m *Manager) coolingDown() bool {
	return !m.lastAttempt.IsZero() && m.clock.Since(m.lastAttempt) < m.cfg.Cooldown
}

func (m *Manager) connect(ctx context.Context) {
	m.lastAttempt = m.clock.Now()

	if m.driver == nil {
		driver, err := m.factory(m.cfg, m.logger)
		if err != nil {
			metrics.RecordConnectAttempt(false)
			m.logger.Error("Failed to create device driver", "kind", m.cfg.Kind, "error", err)
			return
		}
		m.driver = driver
	}

	if err := m.driver.Connect(ctx); err != nil {
		metrics.RecordConnectAttempt(false)
		m.logger.Warn("Device connect failed",
			"kind", m.cfg.Kind,
			"target", m.cfg.Target(),
			"retry_in", m.cfg.Cooldown,
			"error", err)
		return
	}

	metrics.RecordConnectAttempt(true)
	metrics.SetConnected(true)
	m.connected = true
	m.emptyReads = 0
	m.logger.Info("Device connected", "kind", m.cfg.Kind, "target", m.cfg.Target())
	m.publish(nil)
}

func (m *Manager) drain() {
	data, err := m.driver.PollIncoming()
	if err != nil {
		m.logger.Warn("Device read failed, dropping connection", "error", err)
		m.drop(err)
		return
	}

	if len(data) == 0 {
		m.emptyReads++
		if m.clock.Since(m.lastEmptyReport) >= emptyReadReportInterval {
			m.logger.Debug("No data from device", "empty_reads", m.emptyReads)
			m.emptyReads = 0
			m.lastEmptyReport = m.clock.Now()
		}
		return
	}

	metrics.RecordBytesRead(len(data))
	text := strings.TrimSpace(string(data))
	if strings.Contains(text, "failed") {
		m.logger.Warn("Device reported failure", "data", text)
		return
	}
	m.logger.Debug("Device data", "data", text)
}

// drop releases the handle and stamps the cooldown.
func (m *Manager) drop(reason error) {
	m.closeDriver()
	m.connected = false
	m.lastAttempt = m.clock.Now()
	metrics.SetConnected(false)
	m.publish(reason)
}

func (m *Manager) closeDriver() {
	if err := m.driver.Close(); err != nil {
		m.logger.Debug("Error closing device", "error", err)
	}
}

func (m *Manager) publish(reason error) {
	ev := events.DeviceStateEvent{
		Kind:      m.cfg.Kind,
		Device:    m.cfg.Target(),
		Connected: m.connected,
		Timestamp: m.clock.Now().Format(time.RFC3339),
	}
	if reason != nil {
		ev.Error = reason.Error()
	}
	m.bus.Publish(ev)
}
