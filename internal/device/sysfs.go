package device

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/smazurov/lightnode/internal/pattern"
)

const (
	sysfsLEDPath        = "/sys/class/leds"
	deviceTreeModelPath = "/proc/device-tree/model"
)

// boardLEDs maps a device tree model substring to the board's user LED.
var boardLEDs = []struct {
	model string
	led   string
}{
	{"NanoPC-T6", "usr_led"},
	{"Orange Pi", "green_led"},
	{"Raspberry Pi", "ACT"},
}

// sysfsDriver drives a single on-board LED through the Linux sysfs LED class.
// Any non-black color lights it at max brightness.
type sysfsDriver struct {
	cfg           Config
	root          string
	ledPath       string
	maxBrightness int
	logger        *slog.Logger
}

func newSysfs(cfg Config, logger *slog.Logger) *sysfsDriver {
	return &sysfsDriver{
		cfg:    cfg,
		root:   sysfsLEDPath,
		logger: logger,
	}
}

func (s *sysfsDriver) Connect(_ context.Context) error {
	if s.ledPath != "" {
		return nil
	}

	ledPath := filepath.Join(s.root, s.cfg.Device)
	if _, err := os.Stat(ledPath); err != nil {
		return newError(ErrCodeConnectFailed, fmt.Sprintf("LED %q not found at %s", s.cfg.Device, ledPath), err)
	}

	maxBrightness := 1
	if data, err := os.ReadFile(filepath.Join(ledPath, "max_brightness")); err == nil {
		if v, convErr := strconv.Atoi(strings.TrimSpace(string(data))); convErr == nil && v > 0 {
			maxBrightness = v
		}
	}

	// Manual control needs the trigger cleared
	if err := os.WriteFile(filepath.Join(ledPath, "trigger"), []byte("none"), 0o644); err != nil {
		return newError(ErrCodeConnectFailed, "failed to set LED trigger", err)
	}

	s.ledPath = ledPath
	s.maxBrightness = maxBrightness
	s.logger.Info("Sysfs LED opened", "led", s.cfg.Device, "max_brightness", maxBrightness)
	return nil
}

func (s *sysfsDriver) Send(cmd Command) error {
	if s.ledPath == "" {
		return newError(ErrCodeNotConnected, "sysfs LED not open", nil)
	}

	brightness := 0
	if cmd.RGB() != pattern.Black {
		brightness = s.maxBrightness
	}

	if err := os.WriteFile(filepath.Join(s.ledPath, "brightness"), []byte(strconv.Itoa(brightness)), 0o644); err != nil {
		return newError(ErrCodeWriteFailed, "failed to set LED brightness", err)
	}
	return nil
}

// PollIncoming returns nothing; sysfs LEDs have no input.
func (s *sysfsDriver) PollIncoming() ([]byte, error) {
	if s.ledPath == "" {
		return nil, newError(ErrCodeNotConnected, "sysfs LED not open", nil)
	}
	return nil, nil
}

func (s *sysfsDriver) Close() error {
	s.ledPath = ""
	return nil
}

// DetectBoardLED returns the user LED of a known board, or "" when the board is unknown.
func DetectBoardLED() string {
	return boardLED(detectBoard())
}

func boardLED(model string) string {
	for _, b := range boardLEDs {
		if strings.Contains(model, b.model) {
			return b.led
		}
	}
	return ""
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	return strings.TrimRight(string(data), "\x00")
}
