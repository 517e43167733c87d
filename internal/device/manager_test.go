package device

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/smazurov/lightnode/internal/events"
	"github.com/smazurov/lightnode/internal/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func newTestManager(d *fakeDriver) (*Manager, *testingclock.FakeClock) {
	clk := testingclock.NewFakeClock(time.Date(2025, 1, 27, 10, 30, 0, 0, time.UTC))
	m := NewManager(Config{Kind: KindSerial, Device: "/dev/ttyACM0"}, testLogger(),
		WithClock(clk),
		WithFactory(fakeFactory(d)),
	)
	return m, clk
}

func TestManagerConnectsLazily(t *testing.T) {
	d := &fakeDriver{}
	m, _ := newTestManager(d)

	assert.False(t, m.Connected())
	assert.Equal(t, 0, d.connects)

	m.Maintain(context.Background())
	assert.True(t, m.Connected())
	assert.Equal(t, 1, d.connects)

	// Connected: further ticks only drain
	m.Maintain(context.Background())
	assert.Equal(t, 1, d.connects)
}

func TestManagerSendWithoutConnection(t *testing.T) {
	d := &fakeDriver{}
	m, _ := newTestManager(d)

	err := m.Send(Off())
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeNotConnected))
	assert.Equal(t, 0, d.connects, "send must not trigger a connect")
}

func TestManagerWriteFailureCooldown(t *testing.T) {
	ctx := context.Background()
	d := &fakeDriver{}
	m, clk := newTestManager(d)

	m.Maintain(ctx)
	require.True(t, m.Connected())

	d.sendErr = newError(ErrCodeWriteFailed, "write", errors.New("input/output error"))
	require.Error(t, m.Send(Immediate(pattern.RGB(255, 0, 0), 0)))
	assert.False(t, m.Connected())
	assert.Equal(t, 1, d.closes)
	writes := len(d.sent)

	d.sendErr = nil
	d.connectErr = errors.New("no such device")

	for i := 0; i < 49; i++ {
		clk.Step(100 * time.Millisecond)
		m.Maintain(ctx)
		assert.True(t, IsCode(m.Send(On()), ErrCodeNotConnected))
	}
	assert.Equal(t, writes, len(d.sent), "no writes while disconnected")
	assert.Equal(t, 1, d.connects, "no reconnect inside the cooldown window")

	clk.Step(100 * time.Millisecond)
	m.Maintain(ctx)
	assert.Equal(t, 2, d.connects, "one reconnect once 5s elapsed")

	m.Maintain(ctx)
	assert.Equal(t, 2, d.connects, "failed reconnect restarts the cooldown")

	d.connectErr = nil
	clk.Step(5 * time.Second)
	m.Maintain(ctx)
	assert.Equal(t, 3, d.connects)
	assert.True(t, m.Connected())
	require.NoError(t, m.Send(On()))
}

func TestManagerReadFailureDropsConnection(t *testing.T) {
	ctx := context.Background()
	d := &fakeDriver{incoming: [][]byte{[]byte("ok\r\n")}}
	m, _ := newTestManager(d)

	m.Maintain(ctx)
	m.Maintain(ctx)
	m.Maintain(ctx)
	require.True(t, m.Connected())

	d.readErr = errors.New("device disconnected")
	m.Maintain(ctx)
	assert.False(t, m.Connected())
	assert.Equal(t, 1, d.closes)
}

func TestManagerConfigureResetsCooldown(t *testing.T) {
	ctx := context.Background()
	d := &fakeDriver{connectErr: errors.New("busy")}
	m, _ := newTestManager(d)

	m.Maintain(ctx)
	m.Maintain(ctx)
	assert.Equal(t, 1, d.connects)

	d.connectErr = nil
	m.Configure(Config{Kind: KindSerial, Device: "/dev/ttyUSB1", Baud: 115200})
	assert.Equal(t, "/dev/ttyUSB1", m.Config().Device)
	assert.Equal(t, DefaultCooldown, m.Config().Cooldown)

	m.Maintain(ctx)
	assert.Equal(t, 2, d.connects)
	assert.True(t, m.Connected())

	m.Configure(Config{Kind: KindSerial, Device: "/dev/ttyUSB2"})
	assert.False(t, m.Connected())
	assert.Equal(t, 2, d.closes)
}

func TestManagerReconnect(t *testing.T) {
	ctx := context.Background()
	d := &fakeDriver{}
	m, _ := newTestManager(d)

	m.Maintain(ctx)
	require.True(t, m.Connected())

	m.Reconnect()
	assert.False(t, m.Connected())

	m.Maintain(ctx)
	assert.True(t, m.Connected())
	assert.Equal(t, 2, d.connects)
}

func TestManagerFactoryFailureCountsAsAttempt(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	calls := 0
	m := NewManager(Config{Kind: "laser"}, testLogger(),
		WithClock(clk),
		WithFactory(func(cfg Config, logger *slog.Logger) (Driver, error) {
			calls++
			return New(cfg, logger)
		}),
	)

	m.Maintain(context.Background())
	m.Maintain(context.Background())
	assert.Equal(t, 1, calls)
	assert.False(t, m.Connected())

	clk.Step(DefaultCooldown)
	m.Maintain(context.Background())
	assert.Equal(t, 2, calls)
}

func TestManagerPublishesState(t *testing.T) {
	bus := events.New()
	received := make(chan events.DeviceStateEvent, 4)
	unsub := bus.Subscribe(func(e events.DeviceStateEvent) { received <- e })
	defer unsub()

	d := &fakeDriver{}
	clk := testingclock.NewFakeClock(time.Now())
	m := NewManager(Config{Kind: KindSerial, Device: "/dev/ttyACM0"}, testLogger(),
		WithClock(clk),
		WithFactory(fakeFactory(d)),
		WithEventBus(bus),
	)

	m.Maintain(context.Background())
	d.sendErr = errors.New("broken pipe")
	_ = m.Send(Off())

	first := waitEvent(t, received)
	assert.True(t, first.Connected)
	assert.Equal(t, "/dev/ttyACM0", first.Device)

	second := waitEvent(t, received)
	assert.False(t, second.Connected)
	assert.Contains(t, second.Error, "broken pipe")
}

func waitEvent(t *testing.T, ch <-chan events.DeviceStateEvent) events.DeviceStateEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for device event")
		return events.DeviceStateEvent{}
	}
}
