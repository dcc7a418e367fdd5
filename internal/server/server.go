package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/homesensor/internal/clock"
	"github.com/muurk/homesensor/internal/hw"
	"github.com/muurk/homesensor/internal/logging"
	"github.com/muurk/homesensor/internal/metrics"
	"github.com/muurk/homesensor/internal/pairing"
	"github.com/muurk/homesensor/internal/router"
	"github.com/muurk/homesensor/internal/sampler"
)

// DefaultPort is the port the sensor firmware has always listened on.
const DefaultPort = 42069

// Config holds the server configuration
type Config struct {
	Host         string
	Port         int
	TickInterval time.Duration // Accept deadline; maintenance runs at least this often
	ReadTimeout  time.Duration // Per-connection read deadline
	WriteTimeout time.Duration // Per-connection write deadline
}

// DefaultConfig returns the stock listener settings.
func DefaultConfig() *Config {
	return &Config{
		Port:         DefaultPort,
		TickInterval: 100 * time.Millisecond,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Deps is the state the loop drives. Everything is created once in main and
// passed in; the server owns none of it.
type Deps struct {
	Dispatcher *router.Dispatcher
	Pairing    *pairing.Service
	Sampler    *sampler.Sampler
	Clock      clock.Clock
	LED        hw.LED // optional boot indicator
}

// Server accepts one connection at a time and interleaves maintenance ticks
// between connections.
type Server struct {
	config *Config
	deps   Deps

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// New creates a new Server instance
func New(config *Config, deps Deps) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if deps.Dispatcher == nil || deps.Pairing == nil || deps.Sampler == nil {
		return nil, errors.New("server: dispatcher, pairing and sampler are required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if config.TickInterval <= 0 {
		config.TickInterval = 100 * time.Millisecond
	}
	return &Server{config: config, deps: deps}, nil
}

// Listen binds the TCP listener.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logging.Info("Server listening for connections", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start lights the LED, binds, turns the LED off once listening and serves
// until SIGINT/SIGTERM or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.setLED(true)

	if err := s.Listen(); err != nil {
		return err
	}
	s.setLED(false)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Serve(ctx)
}

func (s *Server) setLED(on bool) {
	if s.deps.LED == nil {
		return
	}
	if err := s.deps.LED.Set(on); err != nil {
		logging.Warn("Failed to set status LED", zap.Error(err))
	}
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Serve runs the loop on an already bound listener until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server: Serve called before Listen")
	}
	dl, canDeadline := ln.(deadliner)

	// Unblock Accept as soon as ctx ends instead of waiting for the deadline.
	done := make(chan struct{})
	defer close(done)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-ctx.Done():
			if canDeadline {
				_ = dl.SetDeadline(time.Now())
			}
		case <-done:
		}
	}()

	for {
		if ctx.Err() != nil {
			logging.Info("Shutdown signal received, stopping server...")
			return s.Shutdown(context.Background())
		}

		s.tick(ctx)

		if canDeadline {
			_ = dl.SetDeadline(time.Now().Add(s.config.TickInterval))
		}
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		s.handleConnection(ctx, conn)
	}
}

// tick runs the periodic maintenance: pairing expiry and sampling/flush.
func (s *Server) tick(ctx context.Context) {
	now := s.deps.Clock.Now()
	s.deps.Pairing.Tick(now)
	s.deps.Sampler.Tick(ctx, now)
	metrics.SetPairing(s.deps.Pairing.IsOpen(), s.deps.Pairing.Pairs().Count(ctx))
}

// Wait blocks until helper goroutines started by Serve have exited.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Shutdown flushes the sample ring and closes the listener
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.deps.Sampler.Flush(ctx, s.deps.Clock.Now())

	s.mu.Lock()
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}
	s.mu.Unlock()

	logging.Sync()
	return nil
}
