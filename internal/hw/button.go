package hw

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Button reports whether the pairing button is held down. Callers poll it
// and act on the pressed-to-released edge.
type Button interface {
	Pressed() bool
}

// SignalButton turns each SIGUSR1 into one press followed by one release:
// the next poll sees the button pressed, the one after sees it released.
type SignalButton struct {
	mu      sync.Mutex
	pending int
	down    bool
}

// NewSignalButton listens for SIGUSR1 until ctx is done.
func NewSignalButton(ctx context.Context) *SignalButton {
	b := &SignalButton{}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)

	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				b.Press()
			}
		}
	}()
	return b
}

// Press queues one press/release cycle.
func (b *SignalButton) Press() {
	b.mu.Lock()
	b.pending++
	b.mu.Unlock()
}

func (b *SignalButton) Pressed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.down {
		b.down = false
		return false
	}
	if b.pending > 0 {
		b.pending--
		b.down = true
		return true
	}
	return false
}

// StaticButton holds whatever state it was last given.
type StaticButton struct {
	mu   sync.Mutex
	down bool
}

// Set holds the button down or releases it.
func (b *StaticButton) Set(down bool) {
	b.mu.Lock()
	b.down = down
	b.mu.Unlock()
}

func (b *StaticButton) Pressed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.down
}
