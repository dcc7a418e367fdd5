// Package metrics exposes Prometheus instrumentation for the sensor.
//
// Collectors are registered on the default registry at init. The device
// serves them on a separate listener only when metrics are enabled in the
// configuration; the request loop itself never blocks on them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/homesensor/internal/logging"
)

var (
	// Request handling
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homesensor_requests_total",
			Help: "Requests handled, by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "homesensor_request_duration_seconds",
			Help:    "Time from accept to response written",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	ParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homesensor_parse_failures_total",
			Help: "Requests rejected by the parser",
		},
	)

	// Sampler
	SamplesTaken = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homesensor_samples_total",
			Help: "Valid sensor readings stored in the ring",
		},
	)

	SensorFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homesensor_sensor_failures_total",
			Help: "Sensor reads that returned an error or an invalid value",
		},
	)

	Flushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homesensor_flushes_total",
			Help: "Ring snapshots written to flash",
		},
		[]string{"result"},
	)

	LastHumidity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homesensor_humidity_percent",
			Help: "Most recent relative humidity reading",
		},
	)

	LastTemperature = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homesensor_temperature_celsius",
			Help: "Most recent temperature reading",
		},
	)

	// Pairing
	PairingOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homesensor_pairing_open",
			Help: "1 while the pairing window is open",
		},
	)

	PairedKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homesensor_paired_keys",
			Help: "Confirmed pairing secrets in the pair set",
		},
	)

	// Storage
	StoreBytesUsed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homesensor_store_bytes_used",
			Help: "Serialized size of each store record",
		},
		[]string{"namespace"},
	)
)

// RecordRequest records one handled request.
func RecordRequest(method, route string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDuration.Observe(duration.Seconds())
}

// RecordSample records a stored reading.
func RecordSample(humidity, temperature float32) {
	SamplesTaken.Inc()
	LastHumidity.Set(float64(humidity))
	LastTemperature.Set(float64(temperature))
}

// RecordFlush records a snapshot write.
func RecordFlush(err error) {
	if err != nil {
		Flushes.WithLabelValues("error").Inc()
		return
	}
	Flushes.WithLabelValues("ok").Inc()
}

// SetPairing updates the pairing gauges.
func SetPairing(open bool, pairedKeys int) {
	if open {
		PairingOpen.Set(1)
	} else {
		PairingOpen.Set(0)
	}
	PairedKeys.Set(float64(pairedKeys))
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info("Metrics listener started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
