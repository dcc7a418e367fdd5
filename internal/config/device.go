package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// DeviceConfigEnvVar overrides the device config file path.
	DeviceConfigEnvVar = "HOMESENSOR_CONFIG"

	// EnvPrefix starts every device setting read from the environment,
	// e.g. HOMESENSOR_SERVER_PORT -> server.port.
	EnvPrefix = "HOMESENSOR_"
)

// DefaultDevicePaths lists where the device config is searched, in order.
var DefaultDevicePaths = []string{
	"home-sensor.yaml",
	"home-sensor.yml",
	"/etc/home-sensor/config.yaml",
}

// DeviceConfig is the runtime configuration of the home-sensor daemon.
type DeviceConfig struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Pairing   PairingConfig   `koanf:"pairing"`
	Sampler   SamplerConfig   `koanf:"sampler"`
	Hardware  HardwareConfig  `koanf:"hardware"`
	Discovery DiscoveryConfig `koanf:"discovery"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port" validate:"gte=0,lte=65535"`
	TickInterval time.Duration `koanf:"tick_interval" validate:"gt=0"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
}

// StorageConfig selects the flash backend. Dir is ignored when InMemory is set.
type StorageConfig struct {
	Dir      string `koanf:"dir" validate:"required_without=InMemory"`
	InMemory bool   `koanf:"in_memory"`
}

type PairingConfig struct {
	Window time.Duration `koanf:"window" validate:"gt=0"`
}

type SamplerConfig struct {
	Capacity     int           `koanf:"capacity" validate:"gte=1,lte=255"`
	Interval     time.Duration `koanf:"interval" validate:"gt=0"`
	SaveInterval time.Duration `koanf:"save_interval" validate:"gt=0"`
	Align        bool          `koanf:"align"`
	AlignSlack   time.Duration `koanf:"align_slack" validate:"gte=0"`
}

// HardwareConfig picks the sensor, LED and button implementations.
type HardwareConfig struct {
	// Sensor is "iio" or "simulated".
	Sensor    string `koanf:"sensor" validate:"oneof=iio simulated"`
	SensorDir string `koanf:"sensor_dir" validate:"required_if=Sensor iio"`
	// LED is "sysfs" or "log".
	LED     string `koanf:"led" validate:"oneof=sysfs log"`
	LEDRoot string `koanf:"led_root"`
	LEDName string `koanf:"led_name" validate:"required_if=LED sysfs"`
}

type DiscoveryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Instance string `koanf:"instance"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr" validate:"required_if=Enabled true"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultDeviceConfig returns the stock settings: the firmware port, a
// 30 second pairing window and a 15 minute sampling cadence.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Server: ServerConfig{
			Port:         42069,
			TickInterval: 100 * time.Millisecond,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Dir: "/var/lib/home-sensor",
		},
		Pairing: PairingConfig{
			Window: 30 * time.Second,
		},
		Sampler: SamplerConfig{
			Capacity:     150,
			Interval:     15 * time.Minute,
			SaveInterval: 2 * time.Hour,
			AlignSlack:   2 * time.Second,
		},
		Hardware: HardwareConfig{
			Sensor:    "iio",
			SensorDir: "/sys/bus/iio/devices/iio:device0",
			LED:       "sysfs",
			LEDRoot:   "/sys/class/leds",
			LEDName:   "led0",
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9469",
		},
	}
}

// LoadDevice layers defaults, the config file and HOMESENSOR_* environment
// variables, in that order. An explicit path must exist; otherwise the
// first file found in DefaultDevicePaths is used, if any.
func LoadDevice(path string) (*DeviceConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultDeviceConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findDeviceConfig()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &DeviceConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findDeviceConfig returns the first config file found, or "".
func findDeviceConfig() string {
	if envPath := os.Getenv(DeviceConfigEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultDevicePaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKey maps HOMESENSOR_SAMPLER_SAVE_INTERVAL to sampler.save_interval.
// The first underscore after the prefix separates section from key, so
// HOMESENSOR_LOG_LEVEL lands on log.level. HOMESENSOR_CONFIG becomes an
// unused top-level key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + key
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section.
func (c *DeviceConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Sampler.Align && c.Sampler.AlignSlack <= 0 {
		return fmt.Errorf("sampler.align_slack must be positive when sampler.align is set")
	}
	return nil
}
