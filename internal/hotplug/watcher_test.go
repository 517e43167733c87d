package hotplug

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/lightnode/internal/device"
	"github.com/smazurov/lightnode/internal/events"
	"github.com/smazurov/lightnode/internal/heart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

type recordingSender struct {
	mu         sync.Mutex
	directives []heart.Directive
	err        error
}

func (s *recordingSender) TrySend(d heart.Directive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.directives = append(s.directives, d)
	return nil
}

func (s *recordingSender) sent() []heart.Directive {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]heart.Directive(nil), s.directives...)
}

type scriptedMonitor struct {
	events []Event
	closed atomic.Bool
}

func (m *scriptedMonitor) Run(ctx context.Context, out chan<- Event) error {
	defer close(out)
	for _, ev := range m.events {
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *scriptedMonitor) Close() error {
	m.closed.Store(true)
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func serialEvent(action, name string) Event {
	return Event{
		Action:    action,
		KObj:      "/devices/usb1/1-1/1-1:1.0/tty/" + name,
		Subsystem: SubsystemTTY,
		DevName:   name,
	}
}

func TestMatches(t *testing.T) {
	blink := device.Config{Kind: device.KindBlink}.WithDefaults()

	tests := []struct {
		name  string
		ev    Event
		cfg   device.Config
		match bool
	}{
		{
			name:  "serial by node name",
			ev:    serialEvent(ActionAdd, "ttyACM0"),
			cfg:   device.Config{Kind: device.KindSerial, Device: "/dev/ttyACM0"},
			match: true,
		},
		{
			name: "serial other node",
			ev:   serialEvent(ActionAdd, "ttyACM1"),
			cfg:  device.Config{Kind: device.KindSerial, Device: "/dev/ttyACM0"},
		},
		{
			name: "serial wrong subsystem",
			ev:   Event{Action: ActionAdd, Subsystem: SubsystemUSB, DevName: "ttyACM0"},
			cfg:  device.Config{Kind: device.KindSerial, Device: "/dev/ttyACM0"},
		},
		{
			name:  "blink product",
			ev:    Event{Action: ActionAdd, Subsystem: SubsystemUSB, DevType: "usb_device", Env: map[string]string{"PRODUCT": "27b8/1ed/2"}},
			cfg:   blink,
			match: true,
		},
		{
			name: "blink interface event",
			ev:   Event{Action: ActionAdd, Subsystem: SubsystemUSB, DevType: "usb_interface", Env: map[string]string{"PRODUCT": "27b8/1ed/2"}},
			cfg:  blink,
		},
		{
			name: "blink other product",
			ev:   Event{Action: ActionAdd, Subsystem: SubsystemUSB, DevType: "usb_device", Env: map[string]string{"PRODUCT": "27b8/1edd/2"}},
			cfg:  blink,
		},
		{
			name:  "sysfs led",
			ev:    Event{Action: ActionAdd, Subsystem: SubsystemLEDs, KObj: "/devices/platform/leds/leds/status:red"},
			cfg:   device.Config{Kind: device.KindSysfs, Device: "status:red"},
			match: true,
		},
		{
			name: "sysfs other led",
			ev:   Event{Action: ActionAdd, Subsystem: SubsystemLEDs, KObj: "/devices/platform/leds/leds/status:green"},
			cfg:  device.Config{Kind: device.KindSysfs, Device: "status:red"},
		},
		{
			name: "ola never matches",
			ev:   serialEvent(ActionAdd, "ttyACM0"),
			cfg:  device.Config{Kind: device.KindOLA, Device: "/dev/ttyACM0"},
		},
		{
			name: "noop never matches",
			ev:   serialEvent(ActionAdd, "ttyACM0"),
			cfg:  device.Config{Kind: device.KindNoop},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, Matches(tt.ev, tt.cfg))
		})
	}
}

func TestMatches_SerialSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "ttyUSB3")
	require.NoError(t, os.WriteFile(target, nil, 0o600))
	link := filepath.Join(dir, "usb-Arduino_Uno-if00")
	require.NoError(t, os.Symlink(target, link))

	cfg := device.Config{Kind: device.KindSerial, Device: link}
	assert.True(t, Matches(serialEvent(ActionAdd, "ttyUSB3"), cfg))
	assert.False(t, Matches(serialEvent(ActionAdd, "ttyUSB4"), cfg))
}

func TestWatcher_AddQueuesReconnect(t *testing.T) {
	sender := &recordingSender{}
	bus := events.New()
	var published atomic.Int32
	unsub := bus.Subscribe(func(e events.HotplugEvent) {
		if e.Action == ActionAdd && e.DevName == "ttyACM0" {
			published.Add(1)
		}
	})
	defer unsub()

	w := New(Options{
		Sender:   sender,
		Device:   device.Config{Kind: device.KindSerial, Device: "/dev/ttyACM0"},
		EventBus: bus,
		Clock:    testingclock.NewFakeClock(time.Unix(1700000000, 0)),
		Logger:   newTestLogger(),
	})

	assert.True(t, w.Handle(serialEvent(ActionAdd, "ttyACM0")))
	assert.Equal(t, []heart.Directive{heart.Reconnect()}, sender.sent())
	require.Eventually(t, func() bool { return published.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestWatcher_RemovePublishesOnly(t *testing.T) {
	sender := &recordingSender{}
	w := New(Options{
		Sender:   sender,
		Device:   device.Config{Kind: device.KindSerial, Device: "/dev/ttyACM0"},
		EventBus: events.New(),
		Logger:   newTestLogger(),
	})

	assert.True(t, w.Handle(serialEvent(ActionRemove, "ttyACM0")))
	assert.Empty(t, sender.sent())
}

func TestWatcher_IgnoresOtherDevices(t *testing.T) {
	sender := &recordingSender{}
	w := New(Options{
		Sender: sender,
		Device: device.Config{Kind: device.KindSerial, Device: "/dev/ttyACM0"},
		Logger: newTestLogger(),
	})

	assert.False(t, w.Handle(serialEvent(ActionAdd, "ttyS0")))
	assert.Empty(t, sender.sent())
}

func TestWatcher_Debounce(t *testing.T) {
	sender := &recordingSender{}
	clk := testingclock.NewFakeClock(time.Unix(1700000000, 0))
	w := New(Options{
		Sender:   sender,
		Device:   device.Config{Kind: device.KindBlink},
		Debounce: 2 * time.Second,
		Clock:    clk,
		Logger:   newTestLogger(),
	})

	usb := Event{Action: ActionAdd, Subsystem: SubsystemUSB, DevType: "usb_device", Env: map[string]string{"PRODUCT": "27b8/1ed/2"}}
	bind := usb
	bind.Action = ActionBind

	w.Handle(usb)
	w.Handle(bind)
	clk.Step(time.Second)
	w.Handle(usb)
	assert.Len(t, sender.sent(), 1)

	clk.Step(2 * time.Second)
	w.Handle(usb)
	assert.Len(t, sender.sent(), 2)
}

func TestWatcher_SetDevice(t *testing.T) {
	sender := &recordingSender{}
	w := New(Options{
		Sender: sender,
		Device: device.Config{Kind: device.KindNoop},
		Logger: newTestLogger(),
	})

	assert.False(t, w.Handle(serialEvent(ActionAdd, "ttyACM0")))

	w.SetDevice(device.Config{Kind: device.KindSerial, Device: "/dev/ttyACM0"})
	assert.True(t, w.Handle(serialEvent(ActionAdd, "ttyACM0")))
	assert.Len(t, sender.sent(), 1)
}

func TestWatcher_SendFailureIsLogged(t *testing.T) {
	sender := &recordingSender{err: heart.ErrMailboxFull}
	w := New(Options{
		Sender: sender,
		Device: device.Config{Kind: device.KindSerial, Device: "/dev/ttyACM0"},
		Logger: newTestLogger(),
	})

	assert.True(t, w.Handle(serialEvent(ActionAdd, "ttyACM0")))
	assert.Empty(t, sender.sent())
}

func TestWatcher_Run(t *testing.T) {
	sender := &recordingSender{}
	monitor := &scriptedMonitor{events: []Event{
		serialEvent(ActionRemove, "ttyACM0"),
		serialEvent(ActionAdd, "ttyS0"),
		serialEvent(ActionAdd, "ttyACM0"),
	}}
	w := New(Options{
		Monitor: monitor,
		Sender:  sender,
		Device:  device.Config{Kind: device.KindSerial, Device: "/dev/ttyACM0"},
		Logger:  newTestLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sender.sent()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	require.NoError(t, w.Close())
	assert.True(t, monitor.closed.Load())
}
