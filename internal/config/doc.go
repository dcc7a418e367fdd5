// Package config holds the configuration of both home-sensor binaries.
//
// # Device Configuration
//
// LoadDevice builds the daemon's DeviceConfig from three layers, later ones
// winning:
//
//  1. DefaultDeviceConfig
//  2. A YAML file: the --config flag, $HOMESENSOR_CONFIG, or the first of
//     DefaultDevicePaths that exists
//  3. HOMESENSOR_<SECTION>_<KEY> environment variables
//
// Example file:
//
//	server:
//	  port: 42069
//	storage:
//	  dir: /var/lib/home-sensor
//	sampler:
//	  interval: 15m
//	  align: true
//	hardware:
//	  sensor: simulated
//	  led: log
//
// # Client Registry
//
// The sensor-cfg client keeps the sensors it has paired with in a YAML file:
//   - Linux: $XDG_CONFIG_HOME/home-sensor/sensors.yaml or $HOME/.config/home-sensor/sensors.yaml
//   - macOS: $HOME/.config/home-sensor/sensors.yaml
//   - Windows: %LOCALAPPDATA%\home-sensor\sensors.yaml
//
// Pair ids grant write access to a sensor, so the file is written 0600.
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	registry.RecordPairing(id, "192.168.1.40", 42069, pairID)
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
package config
