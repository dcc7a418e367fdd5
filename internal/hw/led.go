package hw

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/homesensor/internal/logging"
)

// LED is a single on/off output.
type LED interface {
	Set(on bool) error
}

// SysfsLED drives /sys/class/leds/<name>/brightness.
type SysfsLED struct {
	path string
}

// NewSysfsLED returns the LED called name under root (normally /sys/class/leds).
func NewSysfsLED(root, name string) *SysfsLED {
	return &SysfsLED{path: filepath.Join(root, name, "brightness")}
}

func (l *SysfsLED) Set(on bool) error {
	value := []byte("0")
	if on {
		value = []byte("1")
	}
	if err := os.WriteFile(l.path, value, 0o644); err != nil {
		return fmt.Errorf("set led %s: %w", l.path, err)
	}
	return nil
}

// LogLED only records the state it was asked to take.
type LogLED struct {
	mu sync.Mutex
	on bool
}

func (l *LogLED) Set(on bool) error {
	l.mu.Lock()
	l.on = on
	l.mu.Unlock()
	logging.Info("LED state changed", zap.Bool("on", on))
	return nil
}

// On reports the last state set.
func (l *LogLED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
