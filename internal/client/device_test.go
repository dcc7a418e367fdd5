package client

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/muurk/homesensor/internal/api"
	"github.com/muurk/homesensor/internal/flash"
	"github.com/muurk/homesensor/internal/hw"
	"github.com/muurk/homesensor/internal/pairing"
	"github.com/muurk/homesensor/internal/sampler"
	"github.com/muurk/homesensor/internal/server"
	"github.com/muurk/homesensor/internal/store"
)

// startSensor runs a full device stack on a loopback port.
func startSensor(t *testing.T) (*pairing.Service, *hw.LogLED, string, int) {
	t.Helper()

	mem := flash.NewMemory()
	svc := pairing.New(store.NewPairStore(mem), &hw.StaticButton{})
	smp, err := sampler.New(sampler.DefaultConfig(), hw.NewSimulatedSensor(), mem)
	if err != nil {
		t.Fatal(err)
	}
	led := &hw.LogLED{}
	handlers := api.New(api.Deps{
		Settings: store.NewSettingsStore(mem),
		Pairing:  svc,
		Sampler:  smp,
		LED:      led,
	})

	cfg := server.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.TickInterval = 5 * time.Millisecond
	srv, err := server.New(cfg, server.Deps{Dispatcher: handlers.Dispatcher(), Pairing: svc, Sampler: smp})
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	host, port, _ := net.SplitHostPort(srv.Addr().String())
	p, _ := strconv.Atoi(port)
	return svc, led, host, p
}

func TestClientAgainstSensor(t *testing.T) {
	svc, led, host, port := startSensor(t)
	ctx := context.Background()
	c := New(host, port, "")

	info, err := c.GetSensor(ctx)
	if err != nil {
		t.Fatalf("GetSensor() error = %v", err)
	}
	if info.Pairing {
		t.Error("pairing should start closed")
	}

	if _, err := c.GetSensorFull(ctx); !IsNotPaired(err) {
		t.Fatalf("GetSensorFull() before pairing error = %v, want not paired", err)
	}
	if _, err := c.Pair(ctx); !IsPairingClosed(err) {
		t.Fatalf("Pair() with window closed error = %v, want pairing closed", err)
	}

	svc.Open(time.Now())
	id, err := c.Pair(ctx)
	if err != nil {
		t.Fatalf("Pair() error = %v", err)
	}
	if id == "" {
		t.Fatal("Pair() returned empty id")
	}

	loc := "attic"
	if err := c.UpdateSensor(ctx, &SettingsUpdate{Location: &loc}); err != nil {
		t.Fatalf("UpdateSensor() error = %v", err)
	}
	full, err := c.GetSensorFull(ctx)
	if err != nil {
		t.Fatalf("GetSensorFull() error = %v", err)
	}
	if full.Location != "attic" || full.PairedKeys != 1 || full.Usage.DataTotal != store.DefaultCapacity {
		t.Errorf("full = %+v", full)
	}

	ms, err := c.History(ctx, time.Time{}, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	// The loop samples on its first tick, before the first accept.
	if len(ms) != 1 || ms[0].Humidity <= 0 {
		t.Errorf("History() = %+v, want the boot sample", ms)
	}

	if err := c.SetLED(ctx, true); err != nil {
		t.Fatalf("SetLED() error = %v", err)
	}
	if !led.On() {
		t.Error("LED should be on")
	}
}
