package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/lightnode/internal/api"
	"github.com/smazurov/lightnode/internal/config"
	"github.com/smazurov/lightnode/internal/device"
	"github.com/smazurov/lightnode/internal/events"
	"github.com/smazurov/lightnode/internal/heart"
	"github.com/smazurov/lightnode/internal/hotplug"
	"github.com/smazurov/lightnode/internal/logging"
	"github.com/smazurov/lightnode/internal/metrics"
	lightnats "github.com/smazurov/lightnode/internal/nats"
	"github.com/smazurov/lightnode/internal/pattern"
)

// shutdownTimeout bounds how long stop waits for the effect loop to exit.
const shutdownTimeout = 3 * time.Second

// app owns every long-running component of the engine process.
type app struct {
	opts   *Options
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	bus     *events.Bus
	store   *pattern.Store
	control *heart.Control
	manager *device.Manager
	heart   *heart.Heart
	server  *api.Server

	natsServer *lightnats.Server
	bridge     *lightnats.Bridge
	hotplug    *hotplug.Watcher
	watcher    *config.Watcher[config.Reloadable]

	mu        sync.Mutex
	device    device.Config
	heartDone chan struct{}
}

func newApp(opts *Options) (*app, error) {
	logger := logging.GetLogger("main")

	deviceCfg, err := opts.lights().DeviceConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid lights config: %w", err)
	}
	loop, err := opts.heartTable().Settings()
	if err != nil {
		return nil, fmt.Errorf("invalid heart config: %w", err)
	}

	store, err := pattern.NewStore(loop.PatternsDir, deviceCfg.Channels, logging.GetLogger("pattern"))
	if err != nil {
		return nil, err
	}

	bus := events.New()
	logging.SetLogCallback(func(entry logging.LogEntry) {
		bus.Publish(api.LogEvent(entry))
	})

	control := heart.NewControl(loop.Mailbox)
	manager := device.NewManager(deviceCfg, logging.GetLogger("device"), device.WithEventBus(bus))

	a := &app{
		opts:      opts,
		logger:    logger,
		bus:       bus,
		store:     store,
		control:   control,
		manager:   manager,
		device:    deviceCfg,
		heartDone: make(chan struct{}),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.heart = heart.New(heart.Options{
		Directives:             control.Directives(),
		Sink:                   manager,
		Patterns:               store,
		Delay:                  loop.Delay,
		Policy:                 loop.Policy,
		KeepRunningOnSendError: loop.KeepRunningOnError,
		EventBus:               bus,
		Logger:                 logging.GetLogger("heart"),
	})

	a.server = api.NewServer(&api.Options{
		AuthUsername:      opts.AuthUsername,
		AuthPassword:      opts.AuthPassword,
		Control:           control,
		Patterns:          store,
		EventBus:          bus,
		Device:            deviceCfg,
		PrometheusHandler: metrics.Handler(),
	})

	return a, nil
}

// start launches the effect loop and the optional transports. The HTTP
// server is started by the caller because it blocks.
func (a *app) start() {
	go func() {
		defer close(a.heartDone)
		if err := a.heart.Run(a.ctx); err != nil {
			a.logger.Error("Effect loop exited", "error", err)
		}
	}()

	if a.opts.NatsEnabled {
		a.startNATS()
	}
	if a.opts.HotplugEnabled {
		a.startHotplug()
	}
	a.startConfigWatcher()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.logger.Warn("Failed to notify systemd", "error", err)
	} else if sent {
		a.logger.Debug("Notified systemd readiness")
	}
}

func (a *app) startNATS() {
	logger := logging.GetLogger("nats")
	a.natsServer = lightnats.NewServer(lightnats.ServerOptions{
		Host:   a.opts.NatsHost,
		Port:   a.opts.NatsPort,
		Logger: logger,
	})
	if err := a.natsServer.Start(); err != nil {
		logger.Error("Failed to start NATS server, remote control disabled", "error", err)
		a.natsServer = nil
		return
	}

	a.bridge = lightnats.NewBridge(a.natsServer.ClientURL(), a.control, a.bus, logger)
	if err := a.bridge.Start(); err != nil {
		logger.Error("Failed to start NATS bridge", "error", err)
		a.bridge = nil
	}
}

func (a *app) startHotplug() {
	logger := logging.GetLogger("hotplug")
	monitor, err := hotplug.NewMonitor()
	if err != nil {
		if errors.Is(err, errors.ErrUnsupported) {
			logger.Info("Hotplug monitoring not supported on this platform")
		} else {
			logger.Warn("Failed to open uevent socket", "error", err)
		}
		return
	}

	a.hotplug = hotplug.New(hotplug.Options{
		Monitor:  monitor,
		Sender:   a.control,
		Device:   a.device,
		EventBus: a.bus,
		Logger:   logger,
	})
	go func() {
		if runErr := a.hotplug.Run(a.ctx); runErr != nil {
			logger.Warn("Hotplug watcher stopped", "error", runErr)
		}
	}()
}

// startConfigWatcher applies [lights] and [logging] edits without a restart.
func (a *app) startConfigWatcher() {
	if _, err := os.Stat(a.opts.Config); err != nil {
		a.logger.Debug("No config file to watch", "path", a.opts.Config)
		return
	}

	logger := logging.GetLogger("config")
	a.watcher = config.NewConfigWatcher(a.opts.Config, config.LoadReloadable, logger,
		config.WithErrorHandler[config.Reloadable](func(err error) {
			logger.Warn("Ignoring invalid config change", "error", err)
		}),
	)
	a.watcher.OnReload(a.applyReload)

	if err := a.watcher.Start(); err != nil {
		logger.Warn("Failed to watch config file", "path", a.opts.Config, "error", err)
		a.watcher = nil
	}
}

func (a *app) applyReload(r config.Reloadable) {
	logging.Initialize(r.Logging)

	a.mu.Lock()
	changed := r.Lights != a.device
	if changed {
		a.device = r.Lights
	}
	a.mu.Unlock()
	if !changed {
		return
	}

	if a.hotplug != nil {
		a.hotplug.SetDevice(r.Lights)
	}
	if err := a.control.TrySend(heart.Configure(r.Lights)); err != nil {
		a.logger.Warn("Failed to queue device reconfiguration", "error", err)
		return
	}
	a.logger.Info("Light device reconfigured", "kind", r.Lights.Kind, "target", r.Lights.Target())
}

func (a *app) stop() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		a.logger.Debug("Failed to notify systemd", "error", err)
	}

	if err := a.server.Stop(); err != nil {
		a.logger.Error("Error stopping HTTP server", "error", err)
	}
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("Error stopping config watcher", "error", err)
		}
	}
	if a.bridge != nil {
		a.bridge.Stop()
	}
	if a.natsServer != nil {
		a.natsServer.Stop()
	}

	a.cancel()
	if a.hotplug != nil {
		_ = a.hotplug.Close()
	}

	// The manager belongs to the effect loop until it exits
	if a.awaitHeart(shutdownTimeout) {
		if err := a.manager.Close(); err != nil {
			a.logger.Warn("Error closing light device", "error", err)
		}
	} else {
		a.logger.Warn("Effect loop did not stop in time, leaving light device open")
	}
	logging.SetLogCallback(nil)
}

// awaitHeart reports whether the effect loop exited within timeout.
func (a *app) awaitHeart(timeout time.Duration) bool {
	select {
	case <-a.heartDone:
		return true
	case <-time.After(timeout):
		return false
	}
}
