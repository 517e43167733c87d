//go:build !linux

package hotplug

import "errors"

// NewMonitor is only available on Linux.
func NewMonitor() (Monitor, error) {
	return nil, errors.ErrUnsupported
}
