package store

import (
	"context"
	"fmt"

	"github.com/muurk/homesensor/internal/flash"
	"github.com/muurk/homesensor/internal/protocol"
)

const (
	// PairNamespace holds the confirmed pairing secrets.
	PairNamespace = "pair"
	// MaxPairedKeys bounds the pair set.
	MaxPairedKeys = 64
)

// PairSet is the ordered list of confirmed pairing secrets, oldest first.
// Duplicates are allowed.
type PairSet struct {
	Keys []string `json:"keys"`
}

// Default returns an empty pair set.
func (PairSet) Default() PairSet { return PairSet{Keys: []string{}} }

// PairStore persists the PairSet under the "pair" namespace.
type PairStore struct {
	*Store[PairSet]
	max int
}

// NewPairStore creates the pair store.
func NewPairStore(storage flash.Storage) *PairStore {
	return &PairStore{
		Store: New[PairSet](storage, PairNamespace, DefaultCapacity),
		max:   MaxPairedKeys,
	}
}

// Has reports whether key exactly matches a stored secret.
func (p *PairStore) Has(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	for _, k := range p.Document(ctx).Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Count returns the number of stored secrets.
func (p *PairStore) Count(ctx context.Context) int {
	return len(p.Document(ctx).Keys)
}

// Add appends key and saves the pair set.
func (p *PairStore) Add(ctx context.Context, key string) error {
	return p.Update(ctx, func(doc *PairSet) error {
		if len(doc.Keys) >= p.max {
			return protocol.NewStorageFullError(fmt.Sprintf("pair set is full (%d keys)", p.max))
		}
		keys := make([]string, len(doc.Keys), len(doc.Keys)+1)
		copy(keys, doc.Keys)
		doc.Keys = append(keys, key)
		return nil
	})
}
