package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/lightnode/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func lightsTOML(kind, cooldown string) []byte {
	return fmt.Appendf(nil, "[lights]\nkind = %q\ncooldown = %q\n", kind, cooldown)
}

func newWatcher(t *testing.T, path string, opts ...WatcherOption[Reloadable]) *Watcher[Reloadable] {
	t.Helper()
	opts = append([]WatcherOption[Reloadable]{WithDebounce[Reloadable](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, LoadReloadable, newTestLogger(), opts...)
	return w
}

func run(t *testing.T, w *Watcher[Reloadable]) {
	t.Helper()
	require.NoError(t, w.Start())
	t.Cleanup(func() {
		assert.NoError(t, w.Stop())
	})
	// give fsnotify a moment to register the directory
	time.Sleep(100 * time.Millisecond)
}

func TestWatcherReloadsLights(t *testing.T) {
	path := writeConfig(t, string(lightsTOML("noop", "5s")))

	received := make(chan Reloadable, 1)
	w := newWatcher(t, path)
	w.OnReload(func(r Reloadable) {
		select {
		case received <- r:
		default:
		}
	})
	run(t, w)

	require.NoError(t, os.WriteFile(path, lightsTOML("serial", "2s"), 0o644))

	select {
	case r := <-received:
		assert.Equal(t, device.KindSerial, r.Lights.Kind)
		assert.Equal(t, 2*time.Second, r.Lights.Cooldown)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestWatcherSeesAtomicReplace(t *testing.T) {
	path := writeConfig(t, string(lightsTOML("noop", "5s")))

	received := make(chan Reloadable, 4)
	w := newWatcher(t, path)
	w.OnReload(func(r Reloadable) { received <- r })
	run(t, w)

	tmp := filepath.Join(filepath.Dir(path), ".config.toml.tmp")
	require.NoError(t, os.WriteFile(tmp, lightsTOML("blink", "1s"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case r := <-received:
		assert.Equal(t, device.KindBlink, r.Lights.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	path := writeConfig(t, string(lightsTOML("noop", "5s")))

	var count atomic.Int32
	w := newWatcher(t, path)
	w.OnReload(func(Reloadable) { count.Add(1) })
	run(t, w)

	sibling := filepath.Join(filepath.Dir(path), "init.txt")
	require.NoError(t, os.WriteFile(sibling, []byte("F0 L0 1 2 3\n"), 0o644))
	time.Sleep(300 * time.Millisecond)

	assert.Zero(t, count.Load())
}

func TestWatcherMultipleHandlersAndUnsubscribe(t *testing.T) {
	path := writeConfig(t, string(lightsTOML("noop", "5s")))

	var first, second atomic.Int32
	w := newWatcher(t, path)
	w.OnReload(func(Reloadable) { first.Add(1) })
	unsub := w.OnReload(func(Reloadable) { second.Add(1) })
	run(t, w)

	require.NoError(t, os.WriteFile(path, lightsTOML("serial", "1s"), 0o644))
	time.Sleep(300 * time.Millisecond)

	unsub()

	require.NoError(t, os.WriteFile(path, lightsTOML("blink", "1s"), 0o644))
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, int32(2), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestWatcherReportsInvalidLights(t *testing.T) {
	path := writeConfig(t, string(lightsTOML("noop", "5s")))

	errs := make(chan error, 1)
	reloads := make(chan Reloadable, 1)
	w := newWatcher(t, path, WithErrorHandler[Reloadable](func(err error) {
		select {
		case errs <- err:
		default:
		}
	}))
	w.OnReload(func(r Reloadable) { reloads <- r })
	run(t, w)

	require.NoError(t, os.WriteFile(path, lightsTOML("serial", "whenever"), 0o644))

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "lights.cooldown")
	case <-reloads:
		t.Fatal("handler should not run for an invalid file")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestWatcherDebounce(t *testing.T) {
	path := writeConfig(t, string(lightsTOML("noop", "5s")))

	var count atomic.Int32
	var last atomic.Value
	w := newWatcher(t, path, WithDebounce[Reloadable](200*time.Millisecond))
	w.OnReload(func(r Reloadable) {
		count.Add(1)
		last.Store(r.Lights.Cooldown)
	})
	run(t, w)

	for i := 1; i <= 5; i++ {
		require.NoError(t, os.WriteFile(path, lightsTOML("serial", fmt.Sprintf("%ds", i)), 0o644))
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, int32(1), count.Load())
	assert.Equal(t, 5*time.Second, last.Load())
}

func TestWatcherSkipsIdenticalRewrite(t *testing.T) {
	content := lightsTOML("noop", "5s")
	path := writeConfig(t, string(content))

	var count atomic.Int32
	w := newWatcher(t, path)
	w.OnReload(func(Reloadable) { count.Add(1) })
	run(t, w)

	require.NoError(t, os.WriteFile(path, content, 0o644))
	time.Sleep(300 * time.Millisecond)

	assert.Zero(t, count.Load())
}
