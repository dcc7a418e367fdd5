package hw

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ErrNoReading is returned when the sensor produced nothing usable.
var ErrNoReading = errors.New("hw: no sensor reading")

// Reading is one humidity/temperature measurement.
type Reading struct {
	Humidity    float32 // %RH
	Temperature float32 // degrees Celsius
}

// Valid reports whether the reading is usable. The DHT11 reports exactly
// zero for both values when a transfer fails, so zero counts as invalid.
func (r Reading) Valid() bool {
	h, t := float64(r.Humidity), float64(r.Temperature)
	if math.IsNaN(h) || math.IsNaN(t) || math.IsInf(h, 0) || math.IsInf(t, 0) {
		return false
	}
	return r.Humidity != 0 && r.Temperature != 0
}

// Sensor produces readings.
type Sensor interface {
	Read() (Reading, error)
}

// IIOSensor reads a DHT11 exposed by the Linux IIO subsystem, e.g.
// /sys/bus/iio/devices/iio:device0. Values are in milli-units.
type IIOSensor struct {
	Dir string
}

// NewIIOSensor returns a sensor for the IIO device directory dir.
func NewIIOSensor(dir string) *IIOSensor {
	return &IIOSensor{Dir: dir}
}

func (s *IIOSensor) Read() (Reading, error) {
	t, err := readMilli(filepath.Join(s.Dir, "in_temp_input"))
	if err != nil {
		return Reading{}, err
	}
	h, err := readMilli(filepath.Join(s.Dir, "in_humidityrelative_input"))
	if err != nil {
		return Reading{}, err
	}
	return Reading{Humidity: h, Temperature: t}, nil
}

func readMilli(path string) (float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		// The dht11 driver answers EIO/ETIMEDOUT on a failed transfer.
		return 0, fmt.Errorf("%w: %v", ErrNoReading, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %v", ErrNoReading, path, err)
	}
	return float32(v) / 1000, nil
}

// SimulatedSensor returns plausible indoor readings with a little noise.
type SimulatedSensor struct {
	mu          sync.Mutex
	humidity    float32
	temperature float32
}

// NewSimulatedSensor starts at 45 %RH and 21 degrees.
func NewSimulatedSensor() *SimulatedSensor {
	return &SimulatedSensor{humidity: 45, temperature: 21}
}

func (s *SimulatedSensor) Read() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.humidity = clamp(s.humidity+float32(rand.NormFloat64()*0.5), 20, 90)
	s.temperature = clamp(s.temperature+float32(rand.NormFloat64()*0.2), 10, 35)
	return Reading{Humidity: s.humidity, Temperature: s.temperature}, nil
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}

// SensorFunc adapts a function to Sensor.
type SensorFunc func() (Reading, error)

func (f SensorFunc) Read() (Reading, error) { return f() }
