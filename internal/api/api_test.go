package api

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/muurk/homesensor/internal/clock"
	"github.com/muurk/homesensor/internal/flash"
	"github.com/muurk/homesensor/internal/hw"
	"github.com/muurk/homesensor/internal/pairing"
	"github.com/muurk/homesensor/internal/protocol"
	"github.com/muurk/homesensor/internal/router"
	"github.com/muurk/homesensor/internal/sampler"
	"github.com/muurk/homesensor/internal/store"
)

const pairedID = "11111111-2222-3333-4444-555555555555"

type fixture struct {
	dispatcher *router.Dispatcher
	pairing    *pairing.Service
	button     *hw.StaticButton
	settings   *store.SettingsStore
	sampler    *sampler.Sampler
	led        *hw.LogLED
	clock      *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := flash.NewMemory()
	fake := clock.NewFake(time.Unix(1700000000, 0))

	pairs := store.NewPairStore(mem)
	if err := pairs.Add(ctx, pairedID); err != nil {
		t.Fatal(err)
	}
	button := &hw.StaticButton{}
	svc := pairing.New(pairs, button)

	cfg := sampler.DefaultConfig()
	cfg.Capacity = 10
	smp, err := sampler.New(cfg, hw.NewSimulatedSensor(), mem)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		pairing:  svc,
		button:   button,
		settings: store.NewSettingsStore(mem),
		sampler:  smp,
		led:      &hw.LogLED{},
		clock:    fake,
	}
	f.dispatcher = New(Deps{
		Settings: f.settings,
		Pairing:  svc,
		Sampler:  smp,
		LED:      f.led,
		Clock:    fake,
	}).Dispatcher()
	return f
}

func (f *fixture) do(t *testing.T, method, route, pairID, body string) (int, map[string]any) {
	t.Helper()
	headers := ""
	if pairID != "" {
		headers = pairing.Header + ": " + pairID + "\r\n"
	}
	resp := f.dispatcher.Dispatch(protocol.NewRequest(method, route, headers, []byte(body)))

	raw, err := protocol.EncodeBody(resp.Body)
	if err != nil {
		t.Fatalf("encode body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode body %s: %v", raw, err)
	}
	return resp.Status, out
}

func (f *fixture) openPairing() {
	f.button.Set(true)
	f.pairing.Tick(f.clock.Now())
	f.button.Set(false)
	f.pairing.Tick(f.clock.Now())
}

func TestGetSensor(t *testing.T) {
	f := newFixture(t)
	f.settings.Set(store.Settings{Name: "kitchen", Location: "ground floor"})
	if err := f.settings.Save(context.Background()); err != nil {
		t.Fatal(err)
	}

	status, body := f.do(t, "GET", "/sensor", "", "")
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if body["name"] != "kitchen" || body["location"] != "ground floor" {
		t.Errorf("body = %v", body)
	}
	if body["pairing"] != false {
		t.Errorf("pairing = %v, want false", body["pairing"])
	}
	if _, ok := body["features"]; !ok {
		t.Error("features key missing")
	}
	if _, ok := body["paired_keys"]; ok {
		t.Error("GET /sensor leaked privileged fields")
	}

	f.openPairing()
	_, body = f.do(t, "GET", "/sensor", "", "")
	if body["pairing"] != true {
		t.Errorf("pairing = %v while the window is open", body["pairing"])
	}
}

func TestGetSensorFull(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, "GET", "/sensor/full", "", "")
	if status != 401 || body["error"] != protocol.UnauthorizedMessage {
		t.Errorf("unpaired GET /sensor/full = %d %v", status, body)
	}

	f.clock.Advance(90 * time.Second)
	status, body = f.do(t, "GET", "/sensor/full", pairedID, "")
	if status != 200 {
		t.Fatalf("status = %d, body %v", status, body)
	}
	if body["paired_keys"] != float64(1) {
		t.Errorf("paired_keys = %v, want 1", body["paired_keys"])
	}
	if body["uptime"] != float64(90) {
		t.Errorf("uptime = %v, want 90", body["uptime"])
	}
	u, ok := body["usage"].(map[string]any)
	if !ok {
		t.Fatalf("usage = %v", body["usage"])
	}
	if u["data_total"] != float64(store.DefaultCapacity) || u["pair_total"] != float64(store.DefaultCapacity) {
		t.Errorf("usage totals = %v", u)
	}
	if u["data_used"] == float64(0) || u["pair_used"] == float64(0) {
		t.Errorf("usage used = %v", u)
	}
	if _, ok := body["free_memory"]; !ok {
		t.Error("free_memory missing")
	}
}

func TestPostSensor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.settings.Set(store.Settings{Name: "kitchen", Location: "ground floor"})

	tests := []struct {
		name       string
		pairID     string
		body       string
		wantStatus int
	}{
		{"unpaired", "", `{"location":"attic"}`, 401},
		{"unknown id", "nope", `{"location":"attic"}`, 401},
		{"malformed", pairedID, `{"location":`, 400},
		{"too long", pairedID, `{"name":"` + strings.Repeat("n", 65) + `"}`, 400},
		{"merge", pairedID, `{"location":"attic"}`, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, "POST", "/sensor", tt.pairID, tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %v)", status, tt.wantStatus, body)
			}
		})
	}

	got := f.settings.Document(ctx)
	if got.Name != "kitchen" || got.Location != "attic" {
		t.Errorf("settings = %+v", got)
	}
}

func TestPairRoutes(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, "POST", "/pair", "", "")
	if status != 401 || body["error"] != protocol.UnauthorizedMessage {
		t.Errorf("POST /pair while closed = %d %v", status, body)
	}
	status, _ = f.do(t, "POST", "/pair/confirm", "anything", "")
	if status != 401 {
		t.Errorf("POST /pair/confirm while closed = %d, want 401", status)
	}

	f.openPairing()
	status, body = f.do(t, "POST", "/pair", "", "")
	id, _ := body["id"].(string)
	if status != 200 || len(id) != 36 {
		t.Fatalf("POST /pair = %d %v", status, body)
	}

	status, _ = f.do(t, "POST", "/pair/confirm", "wrong", "")
	if status != 400 {
		t.Errorf("confirm with a wrong id = %d, want 400", status)
	}

	status, body = f.do(t, "POST", "/pair/confirm", id, "")
	if status != 200 || body["result"] != "success" {
		t.Errorf("confirm = %d %v", status, body)
	}
}

func TestDHT(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := f.clock.Now()
	for i := 0; i < 12; i++ {
		f.sampler.Tick(ctx, start.Add(time.Duration(i)*15*time.Minute))
	}
	f.clock.Set(start.Add(3 * time.Hour))

	measurements := func(t *testing.T, body map[string]any) []any {
		t.Helper()
		m, ok := body["measurements"].([]any)
		if !ok {
			t.Fatalf("measurements = %v", body["measurements"])
		}
		return m
	}

	status, _ := f.do(t, "GET", "/dht", "", "")
	if status != 401 {
		t.Errorf("unpaired /dht = %d, want 401", status)
	}

	tests := []struct {
		name      string
		method    string
		body      string
		wantCount int
		wantFirst int64
	}{
		{"default latest", "GET", "", 1, start.Add(165 * time.Minute).Unix()},
		{"count", "POST", `{"count":3}`, 3, start.Add(165 * time.Minute).Unix()},
		{"count clamped", "POST", `{"count":1000}`, 10, start.Add(165 * time.Minute).Unix()},
		{"negative count", "POST", `{"count":-4}`, 1, start.Add(165 * time.Minute).Unix()},
		{"upper bound", "POST", `{"timestamp":` + itoa(start.Add(time.Hour).Unix()) + `,"count":10}`, 3, start.Add(time.Hour).Unix()},
		{"malformed falls back", "POST", `{"count":`, 1, start.Add(165 * time.Minute).Unix()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, tt.method, "/dht", pairedID, tt.body)
			if status != 200 {
				t.Fatalf("status = %d", status)
			}
			m := measurements(t, body)
			if len(m) != tt.wantCount {
				t.Fatalf("got %d measurements, want %d", len(m), tt.wantCount)
			}
			first := m[0].(map[string]any)
			if int64(first["timestamp"].(float64)) != tt.wantFirst {
				t.Errorf("first timestamp = %v, want %d", first["timestamp"], tt.wantFirst)
			}
			if _, ok := first["temperature"]; !ok {
				t.Error("temperature missing")
			}
		})
	}
}

func TestLED(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		method, route, pairID string
		wantStatus            int
		wantOn                bool
	}{
		{"POST", "/led/on", "", 401, false},
		{"POST", "/led/on", pairedID, 200, true},
		{"GET", "/led/off", pairedID, 200, false},
		{"GET", "/led/on", pairedID, 200, true},
		{"POST", "/led/blink", pairedID, 400, true},
		{"POST", "/led", pairedID, 400, true},
	}

	for _, tt := range tests {
		status, body := f.do(t, tt.method, tt.route, tt.pairID, "")
		if status != tt.wantStatus {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.route, status, tt.wantStatus)
		}
		if status == 400 && body["error"] != InvalidLEDPath {
			t.Errorf("%s %s error = %v", tt.method, tt.route, body["error"])
		}
		if f.led.On() != tt.wantOn {
			t.Errorf("after %s %s LED on = %v, want %v", tt.method, tt.route, f.led.On(), tt.wantOn)
		}
	}
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)
	status, body := f.do(t, "DELETE", "/sensor", pairedID, "")
	if status != 404 || body["error"] != "Not found" {
		t.Errorf("DELETE /sensor = %d %v", status, body)
	}
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
