package sampler

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// DefaultCapacity is the number of ring slots (150 x 15 min is ~37 hours).
	DefaultCapacity = 150
	// MaxCapacity keeps the write index inside the snapshot's single index byte.
	MaxCapacity = 255

	recordSize = 16
)

// Sample is one stored reading. Timestamp is unix seconds; zero marks a
// slot that was never written.
type Sample struct {
	Timestamp   int64   `json:"timestamp"`
	Temperature float32 `json:"temperature"`
	Humidity    float32 `json:"humidity"`
}

// Empty reports whether the slot was never written.
func (s Sample) Empty() bool { return s.Timestamp == 0 }

// Ring is a fixed-capacity circular buffer of samples.
type Ring struct {
	slots []Sample
	last  int
}

// NewRing allocates a ring with n slots.
func NewRing(n int) (*Ring, error) {
	if n < 1 || n > MaxCapacity {
		return nil, fmt.Errorf("ring capacity %d out of range 1..%d", n, MaxCapacity)
	}
	// The write index starts on the last slot so the first sample lands in slot 0.
	return &Ring{slots: make([]Sample, n), last: n - 1}, nil
}

// Capacity returns the number of slots.
func (r *Ring) Capacity() int { return len(r.slots) }

// LastIndex returns the slot written most recently.
func (r *Ring) LastIndex() int { return r.last }

// Append writes s into the next slot, overwriting the oldest sample once
// the ring is full.
func (r *Ring) Append(s Sample) {
	r.last = (r.last + 1) % len(r.slots)
	r.slots[r.last] = s
}

// Latest returns the most recent sample, if any.
func (r *Ring) Latest() (Sample, bool) {
	s := r.slots[r.last]
	return s, !s.Empty()
}

// Count returns the number of populated slots.
func (r *Ring) Count() int {
	n := 0
	for _, s := range r.slots {
		if !s.Empty() {
			n++
		}
	}
	return n
}

// History walks backwards from the newest sample and returns up to limit
// samples whose timestamp is at or before asOf. The walk ends at the first
// empty slot.
func (r *Ring) History(asOf int64, limit int) []Sample {
	n := len(r.slots)
	if limit <= 0 {
		return []Sample{}
	}
	out := make([]Sample, 0, min(limit, n))
	for i := 0; i < n && len(out) < limit; i++ {
		s := r.slots[(r.last-i+n)%n]
		if s.Empty() {
			break
		}
		if s.Timestamp > asOf {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SnapshotSize is the encoded length of a ring with n slots.
func SnapshotSize(n int) int { return 1 + n*recordSize }

// MarshalBinary encodes the write index followed by every slot as
// little-endian (int64 seconds, float32 humidity, float32 temperature).
func (r *Ring) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SnapshotSize(len(r.slots)))
	buf[0] = byte(r.last)
	for i, s := range r.slots {
		rec := buf[1+i*recordSize:]
		binary.LittleEndian.PutUint64(rec[0:8], uint64(s.Timestamp))
		binary.LittleEndian.PutUint32(rec[8:12], math.Float32bits(s.Humidity))
		binary.LittleEndian.PutUint32(rec[12:16], math.Float32bits(s.Temperature))
	}
	return buf, nil
}

// UnmarshalBinary restores a snapshot taken from a ring of the same capacity.
func (r *Ring) UnmarshalBinary(data []byte) error {
	n := len(r.slots)
	if len(data) != SnapshotSize(n) {
		return fmt.Errorf("snapshot is %d bytes, want %d", len(data), SnapshotSize(n))
	}
	last := int(data[0])
	if last >= n {
		return fmt.Errorf("snapshot index %d out of range", last)
	}

	slots := make([]Sample, n)
	for i := range slots {
		rec := data[1+i*recordSize:]
		slots[i] = Sample{
			Timestamp:   int64(binary.LittleEndian.Uint64(rec[0:8])),
			Humidity:    math.Float32frombits(binary.LittleEndian.Uint32(rec[8:12])),
			Temperature: math.Float32frombits(binary.LittleEndian.Uint32(rec[12:16])),
		}
	}
	r.slots = slots
	r.last = last
	return nil
}
