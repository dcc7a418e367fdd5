package pairing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/muurk/homesensor/internal/flash"
	"github.com/muurk/homesensor/internal/hw"
	"github.com/muurk/homesensor/internal/protocol"
	"github.com/muurk/homesensor/internal/store"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *hw.StaticButton) {
	t.Helper()
	button := &hw.StaticButton{}
	n := 0
	svc := New(store.NewPairStore(flash.NewMemory()), button,
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("candidate-%d", n)
		}),
	)
	return svc, button
}

// release simulates a press at now followed by a release one tick later.
func release(svc *Service, button *hw.StaticButton, now time.Time) {
	button.Set(true)
	svc.Tick(now)
	button.Set(false)
	svc.Tick(now.Add(100 * time.Millisecond))
}

func pairedRequest(id string) *protocol.Request {
	return protocol.NewRequest("POST", "/sensor", Header+": "+id+"\r\n", nil)
}

func TestButtonReleaseOpensWindow(t *testing.T) {
	svc, button := newTestService(t)

	button.Set(true)
	svc.Tick(epoch)
	if svc.IsOpen() {
		t.Fatal("window opened on press, want release")
	}

	button.Set(false)
	svc.Tick(epoch.Add(time.Second))
	if !svc.IsOpen() {
		t.Fatal("window not opened on release")
	}
	if want := epoch.Add(time.Second + DefaultWindow); !svc.Deadline().Equal(want) {
		t.Errorf("Deadline() = %v, want %v", svc.Deadline(), want)
	}

	// Holding nothing down keeps it open until the deadline.
	svc.Tick(epoch.Add(30 * time.Second))
	if !svc.IsOpen() {
		t.Error("window closed before the deadline")
	}
	svc.Tick(epoch.Add(31 * time.Second))
	if svc.IsOpen() {
		t.Error("window still open after the deadline")
	}
	if !svc.Deadline().IsZero() {
		t.Error("Deadline() should be zero when closed")
	}
}

func TestGenerateRequiresOpenWindow(t *testing.T) {
	svc, button := newTestService(t)

	if _, err := svc.Generate(); !protocol.IsUnauthorized(err) {
		t.Fatalf("Generate() while closed = %v, want Unauthorized", err)
	}

	release(svc, button, epoch)
	id1, err := svc.Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	id2, _ := svc.Generate()
	if id1 == id2 {
		t.Error("Generate() returned the same candidate twice")
	}
}

func TestConfirmOnce(t *testing.T) {
	svc, button := newTestService(t)
	ctx := context.Background()

	release(svc, button, epoch)
	id, _ := svc.Generate()

	if err := svc.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}
	if !svc.IsAuthorized(ctx, pairedRequest(id)) {
		t.Error("confirmed secret is not authorized")
	}

	// A candidate is consumed by its first confirmation.
	if err := svc.Confirm(ctx, id); !protocol.IsInvalidPairingSecret(err) {
		t.Errorf("second Confirm() = %v, want InvalidPairingSecret", err)
	}
	if svc.Pairs().Count(ctx) != 1 {
		t.Errorf("paired keys = %d, want 1", svc.Pairs().Count(ctx))
	}
}

func TestConfirmAfterCloseFails(t *testing.T) {
	svc, button := newTestService(t)
	ctx := context.Background()

	release(svc, button, epoch)
	id, _ := svc.Generate()

	svc.Tick(epoch.Add(time.Minute))
	if svc.IsOpen() {
		t.Fatal("window did not expire")
	}

	if err := svc.Confirm(ctx, id); !protocol.IsUnauthorized(err) {
		t.Errorf("Confirm() after close = %v, want Unauthorized", err)
	}

	// Reopening does not resurrect old candidates.
	release(svc, button, epoch.Add(2*time.Minute))
	if err := svc.Confirm(ctx, id); !protocol.IsInvalidPairingSecret(err) {
		t.Errorf("Confirm() of an expired candidate = %v, want InvalidPairingSecret", err)
	}
	if svc.Pairs().Count(ctx) != 0 {
		t.Error("failed confirmations changed the pair set")
	}
}

func TestConfirmUnknownSecret(t *testing.T) {
	svc, button := newTestService(t)
	ctx := context.Background()
	release(svc, button, epoch)

	for _, secret := range []string{"", "not-a-candidate"} {
		if err := svc.Confirm(ctx, secret); !protocol.IsInvalidPairingSecret(err) {
			t.Errorf("Confirm(%q) = %v, want InvalidPairingSecret", secret, err)
		}
	}
}

func TestConfirmWithFullPairSet(t *testing.T) {
	svc, button := newTestService(t)
	ctx := context.Background()

	for i := 0; i < store.MaxPairedKeys; i++ {
		if err := svc.Pairs().Add(ctx, fmt.Sprintf("old-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	release(svc, button, epoch)
	id, _ := svc.Generate()
	if err := svc.Confirm(ctx, id); !protocol.IsStorageFull(err) {
		t.Errorf("Confirm() = %v, want StorageFull", err)
	}
}

func TestIsAuthorizedIsIdempotent(t *testing.T) {
	svc, button := newTestService(t)
	ctx := context.Background()

	release(svc, button, epoch)
	id, _ := svc.Generate()
	if err := svc.Confirm(ctx, id); err != nil {
		t.Fatal(err)
	}
	svc.Close()

	req := pairedRequest(id)
	before := svc.Pairs().Used()
	for i := 0; i < 2; i++ {
		if !svc.IsAuthorized(ctx, req) {
			t.Errorf("IsAuthorized() call %d = false with pairing closed", i+1)
		}
	}
	if svc.Pairs().Count(ctx) != 1 || svc.Pairs().Used() != before {
		t.Error("IsAuthorized() mutated the pair set")
	}

	if svc.IsAuthorized(ctx, pairedRequest("someone-else")) {
		t.Error("unknown id authorized")
	}
	if svc.IsAuthorized(ctx, protocol.NewRequest("GET", "/", "", nil)) {
		t.Error("request without header authorized")
	}
}

func TestCloseDropsCandidates(t *testing.T) {
	svc, button := newTestService(t)
	release(svc, button, epoch)
	id, _ := svc.Generate()

	svc.Close()
	svc.Open(epoch.Add(time.Minute))

	if err := svc.Confirm(context.Background(), id); !protocol.IsInvalidPairingSecret(err) {
		t.Errorf("Confirm() = %v, want InvalidPairingSecret", err)
	}
}
