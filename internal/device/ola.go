package device

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nickysemenza/gola"
)

const dmxUniverseSize = 512

// olaClient is the interface for communicating with OLA.
type olaClient interface {
	SendDmx(universe int, values []byte) (status bool, err error)
	Close()
}

type olaDialer func(address string) (olaClient, error)

func dialOLA(address string) (olaClient, error) {
	c, err := gola.New(address)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// olaDriver maps channel n to DMX slots 3n..3n+2 of one universe.
type olaDriver struct {
	cfg    Config
	dial   olaDialer
	client olaClient
	values []byte
	logger *slog.Logger
}

func newOLA(cfg Config, logger *slog.Logger) *olaDriver {
	return &olaDriver{
		cfg:    cfg,
		dial:   dialOLA,
		values: make([]byte, dmxUniverseSize),
		logger: logger,
	}
}

func (o *olaDriver) Connect(_ context.Context) error {
	if o.client != nil {
		return nil
	}

	c, err := o.dial(o.cfg.Address)
	if err != nil {
		return newError(ErrCodeConnectFailed, fmt.Sprintf("connect to ola at %s", o.cfg.Address), err)
	}
	o.client = c
	o.logger.Info("Connected to OLA", "address", o.cfg.Address, "universe", o.cfg.Universe)
	return nil
}

func (o *olaDriver) Send(cmd Command) error {
	if o.client == nil {
		return newError(ErrCodeNotConnected, "ola client not connected", nil)
	}

	switch {
	case cmd.Kind == KindOff:
		clear(o.values)
	case cmd.Kind == KindImmediate && cmd.Channel != nil:
		o.setChannel(*cmd.Channel, cmd)
	default:
		for _, ch := range o.cfg.Channels.Channels() {
			o.setChannel(ch, cmd)
		}
	}

	ok, err := o.client.SendDmx(o.cfg.Universe, o.values)
	if err != nil {
		return newError(ErrCodeWriteFailed, fmt.Sprintf("send dmx universe %d", o.cfg.Universe), err)
	}
	if !ok {
		return newError(ErrCodeWriteFailed, fmt.Sprintf("ola rejected dmx for universe %d", o.cfg.Universe), nil)
	}
	return nil
}

func (o *olaDriver) setChannel(ch uint8, cmd Command) {
	slot := int(ch) * 3
	if slot+2 >= len(o.values) {
		return
	}
	c := cmd.RGB()
	o.values[slot], o.values[slot+1], o.values[slot+2] = c.R, c.G, c.B
}

// PollIncoming returns nothing; DMX output is one-directional.
func (o *olaDriver) PollIncoming() ([]byte, error) {
	if o.client == nil {
		return nil, newError(ErrCodeNotConnected, "ola client not connected", nil)
	}
	return nil, nil
}

func (o *olaDriver) Close() error {
	if o.client == nil {
		return nil
	}
	o.client.Close()
	o.client = nil
	return nil
}
