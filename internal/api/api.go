// Package api holds the sensor's route handlers and their registration order.
package api

import (
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/muurk/homesensor/internal/clock"
	"github.com/muurk/homesensor/internal/hw"
	"github.com/muurk/homesensor/internal/logging"
	"github.com/muurk/homesensor/internal/metrics"
	"github.com/muurk/homesensor/internal/pairing"
	"github.com/muurk/homesensor/internal/protocol"
	"github.com/muurk/homesensor/internal/router"
	"github.com/muurk/homesensor/internal/sampler"
	"github.com/muurk/homesensor/internal/store"
)

// InvalidLEDPath is returned for /led sub-paths other than /on and /off.
const InvalidLEDPath = "Invalid path, must be /led/on or /led/off"

// Deps is the state shared by the handlers.
type Deps struct {
	Settings *store.SettingsStore
	Pairing  *pairing.Service
	Sampler  *sampler.Sampler
	LED      hw.LED
	Clock    clock.Clock
	Started  time.Time
}

// Handlers implements every device route.
type Handlers struct {
	deps Deps
}

// New returns handlers over deps.
func New(deps Deps) *Handlers {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Started.IsZero() {
		deps.Started = deps.Clock.Now()
	}
	return &Handlers{deps: deps}
}

// Routes returns the dispatch table. Strict routes come before the /led
// prefix routes.
func (h *Handlers) Routes() []router.Route {
	return []router.Route{
		router.Strict(http.MethodGet, "/sensor", h.getSensor),
		router.Strict(http.MethodGet, "/sensor/full", h.requirePairing(h.getSensorFull)),
		router.Strict(http.MethodPost, "/sensor", h.requirePairing(h.postSensor)),
		router.Strict(http.MethodPost, "/pair", h.pair),
		router.Strict(http.MethodPost, "/pair/confirm", h.confirm),
		router.Strict(http.MethodGet, "/dht", h.requirePairing(h.dht)),
		router.Strict(http.MethodPost, "/dht", h.requirePairing(h.dht)),
		router.Prefix(http.MethodGet, "/led", h.requirePairing(h.led)),
		router.Prefix(http.MethodPost, "/led", h.requirePairing(h.led)),
	}
}

// Dispatcher returns a dispatcher over Routes.
func (h *Handlers) Dispatcher() *router.Dispatcher {
	return router.New(h.Routes()...)
}

func (h *Handlers) requirePairing(next router.HandlerFunc) router.HandlerFunc {
	return func(req *protocol.Request) *protocol.Response {
		if !h.deps.Pairing.IsAuthorized(req.Context(), req) {
			return protocol.ErrorResponse(protocol.NewUnauthorizedError())
		}
		return next(req)
	}
}

type sensorInfo struct {
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Features *uint32 `json:"features"`
	Pairing  bool    `json:"pairing"`
}

type usage struct {
	DataUsed  int `json:"data_used"`
	DataTotal int `json:"data_total"`
	PairUsed  int `json:"pair_used"`
	PairTotal int `json:"pair_total"`
}

type sensorFull struct {
	sensorInfo
	PairedKeys int    `json:"paired_keys"`
	Usage      usage  `json:"usage"`
	Uptime     int64  `json:"uptime"`
	FreeMemory uint64 `json:"free_memory"`
}

func (h *Handlers) info(req *protocol.Request) sensorInfo {
	s := h.deps.Settings.Load(req.Context())
	metrics.StoreBytesUsed.WithLabelValues(store.SettingsNamespace).Set(float64(h.deps.Settings.Used()))
	return sensorInfo{
		Name:     s.Name,
		Location: s.Location,
		Features: s.Features,
		Pairing:  h.deps.Pairing.IsOpen(),
	}
}

func (h *Handlers) getSensor(req *protocol.Request) *protocol.Response {
	return protocol.OK(h.info(req))
}

func (h *Handlers) getSensorFull(req *protocol.Request) *protocol.Response {
	ctx := req.Context()
	pairs := h.deps.Pairing.Pairs()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return protocol.OK(sensorFull{
		sensorInfo: h.info(req),
		PairedKeys: pairs.Count(ctx),
		Usage: usage{
			DataUsed:  h.deps.Settings.Used(),
			DataTotal: h.deps.Settings.Capacity(),
			PairUsed:  pairs.Used(),
			PairTotal: pairs.Capacity(),
		},
		Uptime:     int64(h.deps.Clock.Now().Sub(h.deps.Started) / time.Second),
		FreeMemory: mem.HeapIdle - mem.HeapReleased,
	})
}

func (h *Handlers) postSensor(req *protocol.Request) *protocol.Response {
	if err := h.deps.Settings.Merge(req.Context(), req.Body()); err != nil {
		logging.Debug("Settings update rejected", zap.Error(err))
		return protocol.ErrorResponse(err)
	}
	metrics.StoreBytesUsed.WithLabelValues(store.SettingsNamespace).Set(float64(h.deps.Settings.Used()))
	return protocol.Result("ok")
}

func (h *Handlers) pair(req *protocol.Request) *protocol.Response {
	if !h.deps.Pairing.IsOpen() {
		return protocol.ErrorResponse(protocol.NewUnauthorizedError())
	}
	id, err := h.deps.Pairing.Generate()
	if err != nil {
		return protocol.ErrorResponse(err)
	}
	return protocol.OK(map[string]string{"id": id})
}

func (h *Handlers) confirm(req *protocol.Request) *protocol.Response {
	if !h.deps.Pairing.IsOpen() {
		return protocol.ErrorResponse(protocol.NewUnauthorizedError())
	}
	id, _ := req.Header(pairing.Header)
	if err := h.deps.Pairing.Confirm(req.Context(), id); err != nil {
		return protocol.ErrorResponse(err)
	}
	pairs := h.deps.Pairing.Pairs()
	metrics.StoreBytesUsed.WithLabelValues(store.PairNamespace).Set(float64(pairs.Used()))
	metrics.SetPairing(true, pairs.Count(req.Context()))
	return protocol.Result("success")
}

// dhtQuery is the optional /dht body. Timestamp is an upper bound.
type dhtQuery struct {
	Timestamp *int64 `json:"timestamp"`
	Count     *int   `json:"count"`
}

type dhtResponse struct {
	Measurements []sampler.Sample `json:"measurements"`
}

func (h *Handlers) dht(req *protocol.Request) *protocol.Response {
	asOf := h.deps.Clock.Now().Unix()
	count := 1

	var q dhtQuery
	if body := req.Body(); len(body) > 0 {
		// A body that does not decode falls back to the defaults.
		if err := json.Unmarshal(body, &q); err == nil {
			if q.Timestamp != nil {
				asOf = *q.Timestamp
			}
			if q.Count != nil {
				count = *q.Count
			}
		} else {
			logging.Debug("Ignoring malformed /dht query", zap.Error(err))
		}
	}
	count = min(max(count, 1), h.deps.Sampler.Capacity())

	return protocol.OK(dhtResponse{Measurements: h.deps.Sampler.History(asOf, count)})
}

func (h *Handlers) led(req *protocol.Request) *protocol.Response {
	var on bool
	switch strings.TrimPrefix(req.Route(), "/led") {
	case "/on":
		on = true
	case "/off":
		on = false
	default:
		return protocol.JSON(http.StatusBadRequest, map[string]string{"error": InvalidLEDPath})
	}

	if err := h.deps.LED.Set(on); err != nil {
		logging.Error("Failed to drive LED", zap.Error(err))
		return protocol.ErrorResponse(protocol.NewInternalError("LED unavailable", err))
	}
	return protocol.Result("ok")
}
