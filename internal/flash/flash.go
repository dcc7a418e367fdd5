// Package flash is the persistent key/value layer behind the stores and the
// sample ring. Values live under a (namespace, key) pair, the same shape as
// ESP32 NVS partitions.
package flash

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when nothing was stored under the key.
var ErrNotFound = errors.New("flash: key not found")

// Storage reads and writes small blobs.
//
// Get returns at most capacity bytes; a longer stored value is cut to
// capacity, exactly as a fixed-size read buffer would be.
type Storage interface {
	Get(ctx context.Context, namespace, key string, capacity int) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Close() error
}

func storageKey(namespace, key string) []byte {
	return []byte(namespace + "/" + key)
}

func bounded(val []byte, capacity int) []byte {
	n := len(val)
	if capacity >= 0 && n > capacity {
		n = capacity
	}
	out := make([]byte, n)
	copy(out, val[:n])
	return out
}
