// Package pairing implements the button-gated pairing window.
//
// Pressing and releasing the button on the device opens a window (30s by
// default). While it is open a client may ask for candidate secrets and
// confirm one of them; a confirmed secret is stored in the pair set and
// authorizes every later request that carries it in the X-Pair-Id header.
// When the window closes all unconfirmed candidates are forgotten.
package pairing

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/homesensor/internal/hw"
	"github.com/muurk/homesensor/internal/logging"
	"github.com/muurk/homesensor/internal/protocol"
	"github.com/muurk/homesensor/internal/store"
)

const (
	// DefaultWindow is how long pairing stays open after a button release.
	DefaultWindow = 30 * time.Second
	// Header carries the pairing secret on every request.
	Header = "X-Pair-Id"
)

// Service owns the pairing session and the persisted pair set.
type Service struct {
	pairs  *store.PairStore
	button hw.Button
	window time.Duration

	mu         sync.Mutex
	open       bool
	deadline   time.Time
	candidates []string
	wasPressed bool
	newID      func() string
}

// Option configures a Service.
type Option func(*Service)

// WithWindow overrides the pairing window length.
func WithWindow(d time.Duration) Option {
	return func(s *Service) { s.window = d }
}

// WithIDGenerator overrides secret generation (tests).
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a closed pairing service.
func New(pairs *store.PairStore, button hw.Button, opts ...Option) *Service {
	s := &Service{
		pairs:  pairs,
		button: button,
		window: DefaultWindow,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pairs returns the persisted pair set.
func (s *Service) Pairs() *store.PairStore { return s.pairs }

// Tick polls the button and expires the window. now should come from a
// monotonic source.
func (s *Service) Tick(now time.Time) {
	pressed := s.button.Pressed()

	s.mu.Lock()
	defer s.mu.Unlock()

	released := s.wasPressed && !pressed
	s.wasPressed = pressed

	if released {
		s.openLocked(now)
		return
	}
	if s.open && !now.Before(s.deadline) {
		s.closeLocked("timeout")
	}
}

// Open starts (or restarts) the window at now.
func (s *Service) Open(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openLocked(now)
}

func (s *Service) openLocked(now time.Time) {
	s.open = true
	s.deadline = now.Add(s.window)
	logging.Info("Pairing window opened", zap.Duration("window", s.window))
}

// Close ends the window and drops every candidate.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked("closed")
}

func (s *Service) closeLocked(reason string) {
	if !s.open && len(s.candidates) == 0 {
		return
	}
	s.open = false
	s.candidates = nil
	logging.Info("Pairing window closed", zap.String("reason", reason))
}

// IsOpen reports whether the window is open.
func (s *Service) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Deadline returns when the open window expires. It is zero when closed.
func (s *Service) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return time.Time{}
	}
	return s.deadline
}

// Generate creates a new candidate secret.
func (s *Service) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return "", protocol.NewUnauthorizedError()
	}
	id := s.newID()
	s.candidates = append(s.candidates, id)
	logging.Debug("Pairing candidate generated", zap.Int("candidates", len(s.candidates)))
	return id, nil
}

// Confirm moves secret from the candidates into the pair set and saves it.
func (s *Service) Confirm(ctx context.Context, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return protocol.NewUnauthorizedError()
	}
	i := slices.Index(s.candidates, secret)
	if secret == "" || i < 0 {
		return protocol.NewInvalidPairingSecretError()
	}

	if err := s.pairs.Add(ctx, secret); err != nil {
		if protocol.IsStorageFull(err) {
			return err
		}
		// The key is held in memory; only the flash write failed.
		logging.Warn("Failed to persist pairing secret", zap.Error(err))
	}
	s.candidates = slices.Delete(s.candidates, i, i+1)
	logging.Info("Client paired", zap.Int("paired_keys", s.pairs.Count(ctx)))
	return nil
}

// IsAuthorized reports whether the request carries a confirmed secret. It
// ignores the session state and changes nothing.
func (s *Service) IsAuthorized(ctx context.Context, req *protocol.Request) bool {
	id, ok := req.Header(Header)
	if !ok {
		return false
	}
	return s.pairs.Has(ctx, id)
}
