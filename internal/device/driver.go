package device

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smazurov/lightnode/internal/pattern"
)

// Driver kinds accepted in Config.Kind.
const (
	KindSerial = "serial"
	KindBlink  = "blink"
	KindOLA    = "ola"
	KindSysfs  = "sysfs"
	KindNoop   = "noop"
)

// Defaults applied by Config.WithDefaults.
const (
	DefaultCooldown    = 5 * time.Second
	DefaultReadTimeout = 10 * time.Millisecond
	DefaultBaud        = 9600
	DefaultOLAAddress  = "localhost:9010"
	DefaultUniverse    = 1
	BlinkVendorID      = 0x27b8
	BlinkProductID     = 0x01ed
)

// Driver talks to one physical device. Connect opens the handle, Close releases it.
// A Driver is used from a single goroutine.
type Driver interface {
	Connect(ctx context.Context) error
	Send(cmd Command) error
	// PollIncoming drains whatever the device has sent. A timeout is not an error.
	PollIncoming() ([]byte, error)
	Close() error
}

// Config describes the device the manager should own.
type Config struct {
	Kind        string
	Device      string
	Baud        int
	VendorID    uint16
	ProductID   uint16
	Address     string
	Universe    int
	Channels    pattern.ChannelRange
	Cooldown    time.Duration
	ReadTimeout time.Duration
}

// WithDefaults fills zero values.
func (c Config) WithDefaults() Config {
	c.Kind = strings.ToLower(strings.TrimSpace(c.Kind))
	if c.Kind == "" {
		c.Kind = KindNoop
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Baud <= 0 {
		c.Baud = DefaultBaud
	}
	if c.VendorID == 0 && c.ProductID == 0 {
		c.VendorID, c.ProductID = BlinkVendorID, BlinkProductID
	}
	if c.Address == "" {
		c.Address = DefaultOLAAddress
	}
	if c.Universe <= 0 {
		c.Universe = DefaultUniverse
	}
	return c
}

// Target names the device for logs and events.
func (c Config) Target() string {
	switch c.Kind {
	case KindBlink:
		return fmt.Sprintf("%04x:%04x", c.VendorID, c.ProductID)
	case KindOLA:
		return fmt.Sprintf("%s/%d", c.Address, c.Universe)
	default:
		return c.Device
	}
}

// New creates a driver for the configured kind.
func New(cfg Config, logger *slog.Logger) (Driver, error) {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Kind {
	case KindSerial:
		if cfg.Device == "" {
			return nil, newError(ErrCodeNotConfigured, "serial driver needs a device path", nil)
		}
		return newSerial(cfg, logger), nil
	case KindBlink:
		return newBlink(cfg, logger), nil
	case KindOLA:
		return newOLA(cfg, logger), nil
	case KindSysfs:
		if cfg.Device == "" {
			cfg.Device = DetectBoardLED()
			logger.Info("Detecting board for LED control", "led", cfg.Device)
		}
		if cfg.Device == "" {
			return nil, newError(ErrCodeNotConfigured, "no LED configured and board not recognized", nil)
		}
		return newSysfs(cfg, logger), nil
	case KindNoop:
		return newNoop(logger), nil
	default:
		return nil, newError(ErrCodeUnsupported, fmt.Sprintf("unknown driver kind %q", cfg.Kind), nil)
	}
}
