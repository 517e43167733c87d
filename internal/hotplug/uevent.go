// Package hotplug watches kernel uevents and forces a device reconnect when
// the configured light device reappears.
package hotplug

import (
	"bytes"
	"strings"
)

// Actions reported by the kernel.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// Subsystems that can carry a light device.
const (
	SubsystemTTY    = "tty"
	SubsystemUSB    = "usb"
	SubsystemHIDRaw = "hidraw"
	SubsystemLEDs   = "leds"
)

// Event is one kernel uevent.
type Event struct {
	Action    string
	KObj      string // /devices/... path of the kernel object
	Subsystem string
	DevType   string
	DevName   string // node name under /dev, e.g. ttyACM0
	DevPath   string
	Env       map[string]string
}

// ParseUEvent decodes "ACTION@KOBJ\0KEY=VALUE\0...". Messages relayed by
// udev carry a binary header that is skipped. It returns nil for anything
// that is not a uevent.
func ParseUEvent(data []byte) *Event {
	if len(data) == 0 {
		return nil
	}
	if bytes.HasPrefix(data, []byte("libudev")) {
		data = skipUdevHeader(data)
	}

	parts := bytes.Split(data, []byte{0})
	action, kobj, ok := strings.Cut(string(parts[0]), "@")
	if !ok || action == "" {
		return nil
	}

	ev := &Event{
		Action: action,
		KObj:   kobj,
		Env:    make(map[string]string),
	}
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(string(part), "=")
		if !ok || key == "" {
			continue
		}
		ev.Env[key] = value

		switch key {
		case "SUBSYSTEM":
			ev.Subsystem = value
		case "DEVTYPE":
			ev.DevType = value
		case "DEVNAME":
			ev.DevName = value
		case "DEVPATH":
			ev.DevPath = value
		}
	}
	return ev
}

// skipUdevHeader finds the first "action@" segment after the udev header.
func skipUdevHeader(data []byte) []byte {
	for i := 0; i < len(data)-1; i++ {
		if data[i] != 0 {
			continue
		}
		rest := data[i+1:]
		segment := rest
		if end := bytes.IndexByte(rest, 0); end >= 0 {
			segment = rest[:end]
		}
		if idx := bytes.IndexByte(segment, '@'); idx > 0 && idx < 20 {
			return rest
		}
	}
	return data
}
