package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/lightnode/cmd"
	"github.com/smazurov/lightnode/internal/config"
	"github.com/smazurov/lightnode/internal/logging"
	"github.com/smazurov/lightnode/internal/version"
	"github.com/spf13/cobra"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Effect loop settings
	PatternsDir      string `help:"Directory holding pattern files" default:"patterns" toml:"heart.patterns_dir" env:"HEART_PATTERNS_DIR"`
	HeartDelay       string `help:"Tick interval" default:"100ms" toml:"heart.delay" env:"HEART_DELAY"`
	HeartLoadPolicy  string `help:"Play position after a load (reset, resume)" default:"reset" toml:"heart.load_policy" env:"HEART_LOAD_POLICY"`
	HeartKeepRunning bool   `help:"Keep animating after a failed device write" default:"false" toml:"heart.keep_running_on_error" env:"HEART_KEEP_RUNNING"`
	HeartMailbox     int    `help:"Directive mailbox capacity" default:"16" toml:"heart.mailbox" env:"HEART_MAILBOX"`

	// Light device settings, reloaded from the config file at runtime
	LightsKind         string `help:"Device kind (serial, blink, ola, sysfs, noop)" default:"noop" toml:"lights.kind" env:"LIGHTS_KIND"`
	LightsDevice       string `help:"Serial port path or sysfs LED name" default:"" toml:"lights.device" env:"LIGHTS_DEVICE"`
	LightsBaud         int    `help:"Serial baud rate" default:"9600" toml:"lights.baud" env:"LIGHTS_BAUD"`
	LightsVendorID     int    `help:"USB vendor id of the blink(1)" default:"0" toml:"lights.vendor_id" env:"LIGHTS_VENDOR_ID"`
	LightsProductID    int    `help:"USB product id of the blink(1)" default:"0" toml:"lights.product_id" env:"LIGHTS_PRODUCT_ID"`
	LightsAddress      string `help:"OLA daemon address" default:"" toml:"lights.address" env:"LIGHTS_ADDRESS"`
	LightsUniverse     int    `help:"OLA DMX universe" default:"1" toml:"lights.universe" env:"LIGHTS_UNIVERSE"`
	LightsChannelStart int    `help:"First channel id" default:"0" toml:"lights.channel_start" env:"LIGHTS_CHANNEL_START"`
	LightsChannelEnd   int    `help:"Last channel id" default:"0" toml:"lights.channel_end" env:"LIGHTS_CHANNEL_END"`
	LightsCooldown     string `help:"Minimum time between reconnect attempts" default:"5s" toml:"lights.cooldown" env:"LIGHTS_COOLDOWN"`
	LightsReadTimeout  string `help:"Serial read timeout" default:"10ms" toml:"lights.read_timeout" env:"LIGHTS_READ_TIMEOUT"`

	// NATS settings
	NatsEnabled bool   `help:"Run the embedded NATS server and control bridge" default:"true" toml:"nats.enabled" env:"NATS_ENABLED"`
	NatsHost    string `help:"NATS listen host" default:"127.0.0.1" toml:"nats.host" env:"NATS_HOST"`
	NatsPort    int    `help:"NATS listen port" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// Hotplug settings
	HotplugEnabled bool `help:"Reconnect as soon as the light device is plugged in" default:"true" toml:"hotplug.enabled" env:"HOTPLUG_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingHeart   string `help:"Effect loop logging level" default:"info" toml:"logging.heart" env:"LOGGING_HEART"`
	LoggingDevice  string `help:"Device logging level" default:"info" toml:"logging.device" env:"LOGGING_DEVICE"`
	LoggingPattern string `help:"Pattern store logging level" default:"info" toml:"logging.pattern" env:"LOGGING_PATTERN"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingNats    string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
	LoggingHotplug string `help:"Hotplug logging level" default:"info" toml:"logging.hotplug" env:"LOGGING_HOTPLUG"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		var engine *app

		hooks.OnStart(func() {
			var err error
			engine, err = newApp(opts)
			if err != nil {
				logger.Error("Failed to initialize", "error", err)
				os.Exit(1)
			}
			engine.start()

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := engine.server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if engine != nil {
				engine.stop()
			}
		})
	})

	root := cli.Root()
	root.Use = "lightnode"
	root.Short = "Light effect engine"
	root.AddCommand(
		cmd.CreatePatternCmd(),
		cmd.CreateSendCmd(),
		createVersionCmd(),
	)

	// Run the CLI
	cli.Run()
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"heart":   o.LoggingHeart,
			"device":  o.LoggingDevice,
			"pattern": o.LoggingPattern,
			"api":     o.LoggingAPI,
			"nats":    o.LoggingNats,
			"hotplug": o.LoggingHotplug,
		},
	}
}

func (o *Options) lights() config.Lights {
	return config.Lights{
		Kind:         o.LightsKind,
		Device:       o.LightsDevice,
		Baud:         o.LightsBaud,
		VendorID:     o.LightsVendorID,
		ProductID:    o.LightsProductID,
		Address:      o.LightsAddress,
		Universe:     o.LightsUniverse,
		ChannelStart: o.LightsChannelStart,
		ChannelEnd:   o.LightsChannelEnd,
		Cooldown:     o.LightsCooldown,
		ReadTimeout:  o.LightsReadTimeout,
	}
}

func (o *Options) heartTable() config.Heart {
	return config.Heart{
		PatternsDir:        o.PatternsDir,
		Delay:              o.HeartDelay,
		LoadPolicy:         o.HeartLoadPolicy,
		KeepRunningOnError: o.HeartKeepRunning,
		Mailbox:            o.HeartMailbox,
	}
}

func createVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(c *cobra.Command, _ []string) {
			c.Println(version.String())
		},
	}
}
