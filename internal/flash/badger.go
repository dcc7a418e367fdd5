package flash

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/muurk/homesensor/internal/logging"
)

// Badger implements Storage on top of BadgerDB.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a database in dir. With inMemory set the
// directory is ignored and nothing touches disk.
func OpenBadger(dir string, inMemory bool) (*Badger, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}

	logging.Debug("Flash storage opened")
	return &Badger{db: db}, nil
}

// NewBadger wraps an already opened database.
func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db}
}

// Get reads namespace/key, bounded by capacity.
func (b *Badger) Get(ctx context.Context, namespace, key string, capacity int) ([]byte, error) {
	var out []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storageKey(namespace, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s/%s: %w", namespace, key, err)
		}

		return item.Value(func(val []byte) error {
			out = bounded(val, capacity)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put writes value to namespace/key.
func (b *Badger) Put(ctx context.Context, namespace, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(storageKey(namespace, key), value); err != nil {
			return fmt.Errorf("set %s/%s: %w", namespace, key, err)
		}
		return nil
	})
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	return b.db.Close()
}
