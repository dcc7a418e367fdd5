// Package sampler keeps a rolling window of sensor readings.
//
// Two cadences run off the same Tick: a reading is taken once per Interval
// (15 minutes by default) and the whole ring is written to flash once per
// SaveInterval (2 hours by default). Flash is only touched on the slow
// cadence or when Flush is called at shutdown.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/homesensor/internal/flash"
	"github.com/muurk/homesensor/internal/hw"
	"github.com/muurk/homesensor/internal/logging"
	"github.com/muurk/homesensor/internal/metrics"
	"github.com/muurk/homesensor/internal/protocol"
)

// Snapshot location in flash.
const (
	Namespace = "dht"
	Key       = "bytes"
)

// Config controls the sampling cadences.
type Config struct {
	Capacity     int
	Interval     time.Duration
	SaveInterval time.Duration
	// Align restricts sampling to a short slot just after each multiple of
	// Interval (wall clock), so readings land on a :00/:15/:30/:45 grid.
	Align bool
	// AlignSlack is the width of that slot.
	AlignSlack time.Duration
}

// DefaultConfig returns the stock cadences.
func DefaultConfig() Config {
	return Config{
		Capacity:     DefaultCapacity,
		Interval:     15 * time.Minute,
		SaveInterval: 2 * time.Hour,
		AlignSlack:   2 * time.Second,
	}
}

// Sampler owns the ring and decides when to read and when to persist.
type Sampler struct {
	cfg     Config
	sensor  hw.Sensor
	storage flash.Storage

	mu        sync.Mutex
	ring      *Ring
	lastFlush time.Time
	dirty     bool
}

// New creates a sampler with an empty ring.
func New(cfg Config, sensor hw.Sensor, storage flash.Storage) (*Sampler, error) {
	ring, err := NewRing(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 || cfg.SaveInterval <= 0 {
		return nil, fmt.Errorf("sampler intervals must be positive")
	}
	return &Sampler{cfg: cfg, sensor: sensor, storage: storage, ring: ring}, nil
}

// Capacity returns the ring size.
func (s *Sampler) Capacity() int { return s.cfg.Capacity }

// Restore loads the last snapshot. A missing or malformed snapshot leaves
// the ring empty.
func (s *Sampler) Restore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.storage.Get(ctx, Namespace, Key, SnapshotSize(s.cfg.Capacity))
	if errors.Is(err, flash.ErrNotFound) {
		logging.Info("No stored readings found")
		return
	}
	if err == nil {
		err = s.ring.UnmarshalBinary(raw)
	}
	if err != nil {
		logging.Warn("Discarding stored readings",
			zap.Error(protocol.NewStorageCorruptionError(Namespace, err)))
		return
	}
	logging.Info("Restored readings", zap.Int("samples", s.ring.Count()))
}

// Tick samples and flushes when their intervals have passed.
func (s *Sampler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sampleLocked(now)

	if s.lastFlush.IsZero() {
		s.lastFlush = now
		return
	}
	if now.Sub(s.lastFlush) >= s.cfg.SaveInterval {
		s.flushLocked(ctx, now, false)
	}
}

func (s *Sampler) sampleLocked(now time.Time) {
	unix := now.Unix()
	interval := int64(s.cfg.Interval / time.Second)
	if interval < 1 {
		interval = 1
	}

	if s.cfg.Align {
		diff := unix - roundTo(unix, interval)
		if diff < 0 || diff > int64(s.cfg.AlignSlack/time.Second) {
			return
		}
	}

	if latest, ok := s.ring.Latest(); ok {
		ref := latest.Timestamp
		if s.cfg.Align {
			ref = roundTo(ref, interval)
		}
		if unix-ref < interval {
			return
		}
	}

	reading, err := s.sensor.Read()
	if err == nil && !reading.Valid() {
		err = fmt.Errorf("%w: humidity=%v temperature=%v", hw.ErrNoReading, reading.Humidity, reading.Temperature)
	}
	if err != nil {
		metrics.SensorFailures.Inc()
		logging.Warn("Sensor reading skipped", zap.Error(protocol.NewSensorReadError(err)))
		return
	}

	s.ring.Append(Sample{Timestamp: unix, Humidity: reading.Humidity, Temperature: reading.Temperature})
	s.dirty = true
	metrics.RecordSample(reading.Humidity, reading.Temperature)
	logging.Debug("Sample stored",
		zap.Int64("timestamp", unix),
		zap.Float32("humidity", reading.Humidity),
		zap.Float32("temperature", reading.Temperature),
	)
}

// roundTo rounds a unix timestamp to the nearest multiple of interval seconds.
func roundTo(ts, interval int64) int64 {
	return ((ts + interval/2) / interval) * interval
}

// Flush writes the whole ring to flash regardless of the save interval, even
// when nothing changed since the last write.
func (s *Sampler) Flush(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked(ctx, now, true)
}

func (s *Sampler) flushLocked(ctx context.Context, now time.Time, force bool) {
	s.lastFlush = now
	if !s.dirty && !force {
		return
	}

	data, err := s.ring.MarshalBinary()
	if err == nil {
		err = s.storage.Put(ctx, Namespace, Key, data)
	}
	metrics.RecordFlush(err)
	if err != nil {
		logging.Error("Failed to save readings", zap.Error(err))
		return
	}
	s.dirty = false
	logging.Info("Saved readings", zap.Int("bytes", len(data)))
}

// Latest returns the most recent sample.
func (s *Sampler) Latest() (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Latest()
}

// History returns up to limit samples taken at or before asOf, newest first.
func (s *Sampler) History(asOf int64, limit int) []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.History(asOf, limit)
}
