// Package metrics exposes Prometheus counters and gauges for the server's
// domain events, plus the /metrics and /ready HTTP endpoints.
package metrics

import (
	"net/http"
	"sync"

	"github.com/fedepagnotta/lotteryd/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus series.
var (
	ConnectionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connections_accepted_total",
		Help: "Total TCP connections accepted from agencies.",
	})
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_connections",
		Help: "Current number of open agency connections.",
	})
	BetsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bets_stored_total",
		Help: "Total bet records successfully persisted.",
	})
	BetsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bets_rejected_total",
		Help: "Total bet records rejected (malformed or storage failure).",
	})
	BatchesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batches_received_total",
		Help: "Total bet batches that were fully accepted (BATCH_RECEIVED).",
	})
	BatchesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batches_failed_total",
		Help: "Total bet batches with at least one rejected record (BATCH_FAILED).",
	})
	AgenciesFinished = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agencies_finished",
		Help: "Number of distinct agencies that have sent FINISHED.",
	})
	DrawCompleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "draw_completed",
		Help: "1 once the bets table has been materialized for the draw, 0 until then.",
	})
	WinnersServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winners_served_total",
		Help: "Total REQUEST_WINNERS responses served (including empty lists).",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by classified subsystem label.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// StartHTTP serves Prometheus metrics at /metrics and liveness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Infof("action: metrics_listen | result: success | addr: %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Errorf("action: metrics_listen | result: fail | error: %v", err)
		}
	}()
	return srv
}

// InitBuildInfo sets the build info gauge and pre-registers common error
// label series so the first occurrence of each doesn't pay registration cost.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{"conn_read", "conn_write", "frame_too_large", "protocol", "storage", "listener", "shutdown", "other"} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
