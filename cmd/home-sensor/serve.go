package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/homesensor/internal/api"
	"github.com/muurk/homesensor/internal/clock"
	"github.com/muurk/homesensor/internal/config"
	"github.com/muurk/homesensor/internal/discovery"
	"github.com/muurk/homesensor/internal/flash"
	"github.com/muurk/homesensor/internal/hw"
	"github.com/muurk/homesensor/internal/logging"
	"github.com/muurk/homesensor/internal/metrics"
	"github.com/muurk/homesensor/internal/pairing"
	"github.com/muurk/homesensor/internal/sampler"
	"github.com/muurk/homesensor/internal/server"
	"github.com/muurk/homesensor/internal/store"
	"github.com/muurk/homesensor/internal/version"
)

var (
	configPath string
	logLevel   string
	port       int
	simulate   bool
	inMemory   bool
	metricsOn  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sensor",
	Long: `Start sampling and serve requests on the sensor port.

Settings come from built-in defaults, then the config file, then
HOMESENSOR_* environment variables, then the flags below.

Send SIGUSR1 to simulate a press of the pairing button:

  kill -USR1 $(pidof home-sensor)`,
	Example: `  # Run on a board with an IIO DHT11 and a sysfs LED
  home-sensor serve --config /etc/home-sensor/config.yaml

  # Develop on a laptop: fake sensor, LED logged, nothing written to disk
  home-sensor serve --simulate --in-memory --log-level debug

  # Expose Prometheus metrics
  home-sensor serve --metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Config file (default: $HOMESENSOR_CONFIG or ./home-sensor.yaml)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config)")
	serveCmd.Flags().BoolVar(&simulate, "simulate", false, "Use a simulated sensor and a logging LED")
	serveCmd.Flags().BoolVar(&inMemory, "in-memory", false, "Keep flash in memory only")
	serveCmd.Flags().BoolVar(&metricsOn, "metrics", false, "Serve Prometheus metrics on metrics.addr")
}

// applyFlags layers explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.DeviceConfig) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("port") {
		cfg.Server.Port = port
	}
	if simulate {
		cfg.Hardware.Sensor = "simulated"
		cfg.Hardware.LED = "log"
	}
	if inMemory {
		cfg.Storage.InMemory = true
	}
	if metricsOn {
		cfg.Metrics.Enabled = true
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadDevice(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}
	defer logging.Sync()

	logging.Info("Starting home-sensor",
		zap.String("version", version.Full()),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := flash.OpenBadger(cfg.Storage.Dir, cfg.Storage.InMemory)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logging.Error("Failed to close flash", zap.Error(err))
		}
	}()

	settings := store.NewSettingsStore(storage)
	doc := settings.Load(ctx)

	button := hw.NewSignalButton(ctx)
	svc := pairing.New(store.NewPairStore(storage), button, pairing.WithWindow(cfg.Pairing.Window))

	sensor, led := buildHardware(cfg.Hardware)

	smp, err := sampler.New(sampler.Config{
		Capacity:     cfg.Sampler.Capacity,
		Interval:     cfg.Sampler.Interval,
		SaveInterval: cfg.Sampler.SaveInterval,
		Align:        cfg.Sampler.Align,
		AlignSlack:   cfg.Sampler.AlignSlack,
	}, sensor, storage)
	if err != nil {
		return fmt.Errorf("failed to create sampler: %w", err)
	}
	smp.Restore(ctx)

	clk := clock.Real()
	handlers := api.New(api.Deps{
		Settings: settings,
		Pairing:  svc,
		Sampler:  smp,
		LED:      led,
		Clock:    clk,
	})

	srv, err := server.New(&server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		TickInterval: cfg.Server.TickInterval,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, server.Deps{
		Dispatcher: handlers.Dispatcher(),
		Pairing:    svc,
		Sampler:    smp,
		Clock:      clk,
		LED:        led,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logging.Error("Metrics listener stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Discovery.Enabled {
		instance := cfg.Discovery.Instance
		if instance == "" {
			instance = doc.Name
		}
		if instance == "" {
			instance, _ = os.Hostname()
		}
		instance = discovery.InstanceName(instance)
		txt := []string{
			"id=" + strings.TrimPrefix(strings.TrimPrefix(instance, discovery.InstancePrefix), "-"),
			"version=" + version.Version,
		}
		if _, err := discovery.Advertise(ctx, instance, cfg.Server.Port, txt, nil); err != nil {
			// Clients can still connect by address.
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			logging.Info("Advertising on mDNS", zap.String("instance", instance))
		}
	}

	return srv.Start(ctx)
}

func buildHardware(cfg config.HardwareConfig) (hw.Sensor, hw.LED) {
	var sensor hw.Sensor
	switch cfg.Sensor {
	case "simulated":
		sensor = hw.NewSimulatedSensor()
	default:
		sensor = hw.NewIIOSensor(cfg.SensorDir)
	}

	var led hw.LED
	switch cfg.LED {
	case "log":
		led = &hw.LogLED{}
	default:
		led = hw.NewSysfsLED(cfg.LEDRoot, cfg.LEDName)
	}

	logging.Info("Hardware selected",
		zap.String("sensor", cfg.Sensor),
		zap.String("led", cfg.LED))
	return sensor, led
}
