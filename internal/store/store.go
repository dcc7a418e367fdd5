package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/muurk/homesensor/internal/flash"
	"github.com/muurk/homesensor/internal/logging"
	"github.com/muurk/homesensor/internal/protocol"
)

// DefaultCapacity is the record size used by the sensor's stores.
const DefaultCapacity = 0x1000

const recordKey = "store"

// Document is a value with a well-known default.
type Document[T any] interface {
	Default() T
}

// validatable documents are checked before a merged value is accepted.
type validatable interface {
	Validate() error
}

// Store is a size-bounded document persisted under one namespace.
type Store[T Document[T]] struct {
	storage   flash.Storage
	namespace string
	capacity  int

	mu     sync.Mutex
	doc    T
	used   int
	loaded bool
}

// New creates a store. Nothing is read until the first Load.
func New[T Document[T]](storage flash.Storage, namespace string, capacity int) *Store[T] {
	var zero T
	return &Store[T]{
		storage:   storage,
		namespace: namespace,
		capacity:  capacity,
		doc:       zero.Default(),
	}
}

// Namespace returns the flash namespace of the store.
func (s *Store[T]) Namespace() string { return s.namespace }

// Capacity returns the maximum serialized size.
func (s *Store[T]) Capacity() int { return s.capacity }

// Used returns the byte length of the last loaded or saved record.
func (s *Store[T]) Used() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Load reads the document from flash, resetting it to the default when the
// record is missing or does not decode.
func (s *Store[T]) Load(ctx context.Context) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	return s.doc
}

func (s *Store[T]) loadLocked(ctx context.Context) {
	s.loaded = true

	raw, err := s.storage.Get(ctx, s.namespace, recordKey, s.capacity)
	if err == nil {
		var doc T
		if err = json.Unmarshal(raw, &doc); err == nil {
			s.doc = doc
			s.used = len(raw)
			return
		}
		err = protocol.NewStorageCorruptionError(s.namespace, err)
	}

	if errors.Is(err, flash.ErrNotFound) {
		logging.Info("Initializing store", zap.String("namespace", s.namespace))
	} else {
		logging.Warn("Resetting store to default",
			zap.String("namespace", s.namespace),
			zap.Error(err),
		)
	}

	var zero T
	s.doc = zero.Default()
	if err := s.saveLocked(ctx); err != nil {
		logging.Error("Failed to persist default document",
			zap.String("namespace", s.namespace),
			zap.Error(err),
		)
	}
}

func (s *Store[T]) ensureLoaded(ctx context.Context) {
	if !s.loaded {
		s.loadLocked(ctx)
	}
}

// Document returns the in-memory document, loading it first if needed.
func (s *Store[T]) Document(ctx context.Context) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)
	return s.doc
}

// Set replaces the in-memory document without saving it.
func (s *Store[T]) Set(doc T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.loaded = true
}

// Save writes the in-memory document to flash.
func (s *Store[T]) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Store[T]) saveLocked(ctx context.Context) error {
	out, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", s.namespace, err)
	}
	if len(out) > s.capacity {
		logging.LogTruncation(s.namespace+"/"+recordKey, s.capacity, len(out)-s.capacity)
		out = out[:s.capacity]
	}
	s.used = len(out)

	if err := s.storage.Put(ctx, s.namespace, recordKey, out); err != nil {
		return fmt.Errorf("write %s document: %w", s.namespace, err)
	}
	return nil
}

// Update applies fn to the document and saves the result. If fn fails the
// document is left unchanged and nothing is written.
func (s *Store[T]) Update(ctx context.Context, fn func(doc *T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	doc := s.doc
	if err := fn(&doc); err != nil {
		return err
	}
	s.doc = doc
	return s.saveLocked(ctx)
}

// Merge overlays a partial JSON object onto the document and saves it.
// Keys absent from the serialized document are ignored, and so are null
// values: a merge never clears a field.
func (s *Store[T]) Merge(ctx context.Context, partial []byte) error {
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(partial, &patch); err != nil {
		return protocol.NewBodyDeserializationError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	current, err := json.Marshal(s.doc)
	if err != nil {
		return protocol.NewInternalError("encode current document", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(current, &fields); err != nil {
		return protocol.NewInternalError("decode current document", err)
	}

	changed := false
	for key, value := range patch {
		if isNull(value) {
			continue
		}
		if _, ok := fields[key]; ok {
			fields[key] = value
			changed = true
		}
	}
	if !changed {
		return nil
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return protocol.NewInternalError("encode merged document", err)
	}
	var doc T
	if err := json.Unmarshal(merged, &doc); err != nil {
		return protocol.NewValidationError("field has the wrong type", err)
	}
	if v, ok := any(doc).(validatable); ok {
		if err := v.Validate(); err != nil {
			return protocol.NewValidationError(err.Error(), err)
		}
	}

	s.doc = doc
	return s.saveLocked(ctx)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
