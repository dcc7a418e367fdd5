package main

import (
	"fmt"
	"testing"

	"github.com/muurk/homesensor/internal/config"
)

func TestApplyFlags(t *testing.T) {
	flags := serveCmd.Flags()
	for name, value := range map[string]string{
		"port":      "9000",
		"log-level": "debug",
		"simulate":  "true",
		"in-memory": "true",
		"metrics":   "true",
	} {
		if err := flags.Set(name, value); err != nil {
			t.Fatalf("Set(%s): %v", name, err)
		}
	}
	t.Cleanup(func() {
		port, logLevel = 0, ""
		simulate, inMemory, metricsOn = false, false, false
	})

	cfg := config.DefaultDeviceConfig()
	applyFlags(serveCmd, cfg)

	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Hardware.Sensor != "simulated" || cfg.Hardware.LED != "log" {
		t.Errorf("Hardware = %+v, want simulated/log", cfg.Hardware)
	}
	if !cfg.Storage.InMemory || !cfg.Metrics.Enabled {
		t.Errorf("InMemory=%v Metrics=%v, want both true", cfg.Storage.InMemory, cfg.Metrics.Enabled)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after flags: %v", err)
	}
}

func TestBuildHardware(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.HardwareConfig
		wantSensor string
		wantLED    string
	}{
		{
			name:       "simulated",
			cfg:        config.HardwareConfig{Sensor: "simulated", LED: "log"},
			wantSensor: "*hw.SimulatedSensor",
			wantLED:    "*hw.LogLED",
		},
		{
			name:       "linux",
			cfg:        config.HardwareConfig{Sensor: "iio", SensorDir: "/tmp/iio", LED: "sysfs", LEDRoot: "/tmp/leds", LEDName: "led0"},
			wantSensor: "*hw.IIOSensor",
			wantLED:    "*hw.SysfsLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sensor, led := buildHardware(tt.cfg)
			if got := fmt.Sprintf("%T", sensor); got != tt.wantSensor {
				t.Errorf("sensor = %s, want %s", got, tt.wantSensor)
			}
			if got := fmt.Sprintf("%T", led); got != tt.wantLED {
				t.Errorf("led = %s, want %s", got, tt.wantLED)
			}
		})
	}
}
