package device

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeDriver records every call and fails on demand.
type fakeDriver struct {
	connects   int
	closes     int
	sent       []Command
	open       bool
	connectErr error
	sendErr    error
	readErr    error
	incoming   [][]byte
}

func (f *fakeDriver) Connect(_ context.Context) error {
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.open = true
	return nil
}

func (f *fakeDriver) Send(cmd Command) error {
	if !f.open {
		return errors.New("send on closed fake")
	}
	f.sent = append(f.sent, cmd)
	return f.sendErr
}

func (f *fakeDriver) PollIncoming() ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.incoming) == 0 {
		return nil, nil
	}
	data := f.incoming[0]
	f.incoming = f.incoming[1:]
	return data, nil
}

func (f *fakeDriver) Close() error {
	f.closes++
	f.open = false
	return nil
}

func fakeFactory(d *fakeDriver) Factory {
	return func(Config, *slog.Logger) (Driver, error) {
		return d, nil
	}
}
