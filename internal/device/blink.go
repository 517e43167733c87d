package device

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sstallion/go-hid"
)

type hidDevice interface {
	SendFeatureReport(b []byte) (int, error)
	Close() error
}

type hidOpener func(vid, pid uint16) (hidDevice, error)

func openHID(vid, pid uint16) (hidDevice, error) {
	if err := hid.Init(); err != nil {
		return nil, err
	}
	d, err := hid.OpenFirst(vid, pid)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// blinkDriver drives a blink(1) USB light through HID feature reports.
type blinkDriver struct {
	cfg    Config
	open   hidOpener
	dev    hidDevice
	logger *slog.Logger
}

func newBlink(cfg Config, logger *slog.Logger) *blinkDriver {
	return &blinkDriver{
		cfg:    cfg,
		open:   openHID,
		logger: logger,
	}
}

func (b *blinkDriver) Connect(_ context.Context) error {
	if b.dev != nil {
		return nil
	}

	d, err := b.open(b.cfg.VendorID, b.cfg.ProductID)
	if err != nil {
		return newError(ErrCodeConnectFailed, fmt.Sprintf("open hid %04x:%04x", b.cfg.VendorID, b.cfg.ProductID), err)
	}
	b.dev = d
	b.logger.Info("Blink device opened", "vendor_id", b.cfg.VendorID, "product_id", b.cfg.ProductID)
	return nil
}

func (b *blinkDriver) Send(cmd Command) error {
	if b.dev == nil {
		return newError(ErrCodeNotConnected, "hid device not open", nil)
	}

	report := blinkReport(cmd)
	if _, err := b.dev.SendFeatureReport(report); err != nil {
		return newError(ErrCodeWriteFailed, "send feature report", err)
	}
	return nil
}

// PollIncoming returns nothing; the blink(1) only answers explicit reads.
func (b *blinkDriver) PollIncoming() ([]byte, error) {
	if b.dev == nil {
		return nil, newError(ErrCodeNotConnected, "hid device not open", nil)
	}
	return nil, nil
}

func (b *blinkDriver) Close() error {
	if b.dev == nil {
		return nil
	}
	err := b.dev.Close()
	b.dev = nil
	return err
}

// blinkReport builds the "fade to RGB" report with zero fade time.
// LED 0 addresses every LED, channel n addresses LED n.
func blinkReport(cmd Command) []byte {
	c := cmd.RGB()
	var ledn uint8
	if cmd.Kind == KindImmediate && cmd.Channel != nil {
		ledn = *cmd.Channel
	}
	return []byte{0x01, 'c', c.R, c.G, c.B, 0x00, 0x00, ledn, 0x00}
}
