package config

import (
	"fmt"
	"time"

	"github.com/smazurov/lightnode/internal/device"
	"github.com/smazurov/lightnode/internal/logging"
	"github.com/smazurov/lightnode/internal/pattern"
)

// Lights mirrors the [lights] table. Durations are Go duration strings.
type Lights struct {
	Kind         string `toml:"kind"`
	Device       string `toml:"device"`
	Baud         int    `toml:"baud"`
	VendorID     int    `toml:"vendor_id"`
	ProductID    int    `toml:"product_id"`
	Address      string `toml:"address"`
	Universe     int    `toml:"universe"`
	ChannelStart int    `toml:"channel_start"`
	ChannelEnd   int    `toml:"channel_end"`
	Cooldown     string `toml:"cooldown"`
	ReadTimeout  string `toml:"read_timeout"`
}

// DeviceConfig validates the table and converts it for the device manager.
func (l Lights) DeviceConfig() (device.Config, error) {
	r, err := ChannelRange(l.ChannelStart, l.ChannelEnd)
	if err != nil {
		return device.Config{}, err
	}
	if l.VendorID < 0 || l.VendorID > 0xffff || l.ProductID < 0 || l.ProductID > 0xffff {
		return device.Config{}, fmt.Errorf("usb ids %#x:%#x out of range", l.VendorID, l.ProductID)
	}

	cooldown, err := parseDuration("lights.cooldown", l.Cooldown)
	if err != nil {
		return device.Config{}, err
	}
	readTimeout, err := parseDuration("lights.read_timeout", l.ReadTimeout)
	if err != nil {
		return device.Config{}, err
	}

	return device.Config{
		Kind:        l.Kind,
		Device:      l.Device,
		Baud:        l.Baud,
		VendorID:    uint16(l.VendorID),
		ProductID:   uint16(l.ProductID),
		Address:     l.Address,
		Universe:    l.Universe,
		Channels:    r,
		Cooldown:    cooldown,
		ReadTimeout: readTimeout,
	}.WithDefaults(), nil
}

// ChannelRange validates 8-bit channel bounds.
func ChannelRange(start, end int) (pattern.ChannelRange, error) {
	if start < 0 || start > 255 || end < 0 || end > 255 {
		return pattern.ChannelRange{}, fmt.Errorf("channel range %d..%d must be within 0..255", start, end)
	}
	return pattern.NewChannelRange(uint8(start), uint8(end)), nil
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Reloadable is the part of the config file applied without a restart.
type Reloadable struct {
	Lights  device.Config
	Logging logging.Config
}

// LoadDeviceConfig reads and validates the [lights] table from path.
func LoadDeviceConfig(path string) (device.Config, error) {
	f, err := ReadFile(path)
	if err != nil {
		return device.Config{}, err
	}
	return f.Lights.DeviceConfig()
}

// LoadReloadable reads the [lights] and [logging] tables from path.
func LoadReloadable(path string) (Reloadable, error) {
	f, err := ReadFile(path)
	if err != nil {
		return Reloadable{}, err
	}
	lights, err := f.Lights.DeviceConfig()
	if err != nil {
		return Reloadable{}, err
	}

	return Reloadable{
		Lights:  lights,
		Logging: loggingConfig(f.Logging),
	}, nil
}
