package device

import (
	"context"
	"log/slog"
)

// noop implements Driver for hosts without a light attached.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{
		logger: logger,
	}
}

func (n *noop) Connect(_ context.Context) error {
	return nil
}

// Send logs the command but drives no hardware
func (n *noop) Send(cmd Command) error {
	n.logger.Debug("Light control not available (no-op)", "command", cmd.String())
	return nil
}

func (n *noop) PollIncoming() ([]byte, error) {
	return nil, nil
}

func (n *noop) Close() error {
	return nil
}
