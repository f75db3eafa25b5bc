package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voxel-royale/internal/game"
)

// Metrics with bounded cardinality (no per-opponent labels)
var (
	// Match simulation metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in an arena tick including snapshot publication",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
	})

	minimapDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "minimap_render_duration_seconds",
		Help:    "Time spent rendering a minimap",
		Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1},
	})

	opponentCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_opponents_alive",
		Help: "Opponents currently alive",
	})

	particleCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_particle_count",
		Help: "Current number of particles",
	})

	itemCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_item_count",
		Help: "Dropped items waiting for pickup",
	})

	waveGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_wave",
		Help: "Current wave of the running match",
	})

	eliminationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_eliminations_total",
		Help: "Opponents eliminated by the avatar",
	})

	// Event log metrics. The log keeps its own counters so these are gauges.
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_accepted",
		Help: "Events accepted by the event log",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	// Bounded label values only
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // "rate_limit_read", "rate_limit_control", "origin", "ws_total_limit", "ws_ip_limit"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket snapshot frames broadcast",
	})
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be "127.0.0.1:6060" in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:       true,
		ListenAddr:    "127.0.0.1:6060",
		BasicAuthUser: os.Getenv("DEBUG_USER"),
		BasicAuthPass: os.Getenv("DEBUG_PASS"),
	}
}

// debugHandler builds the pprof, metrics and health mux
func debugHandler(cfg ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer starts the internal observability server.
// It binds to localhost unless ALLOW_DEBUG_EXTERNAL=true.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	handler := debugHandler(cfg)

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ObserveTick records per-tick metrics. Register it with
// Engine.SetTickObserver.
func ObserveTick(s game.TickStats) {
	tickDuration.Observe(s.Duration.Seconds())
	opponentCount.Set(float64(s.Opponents))
	particleCount.Set(float64(s.Particles))
	itemCount.Set(float64(s.Items))
	waveGauge.Set(float64(s.Wave))
	if s.Eliminations > 0 {
		eliminationsTotal.Add(float64(s.Eliminations))
	}
}

// RecordMinimap records minimap render timing
func RecordMinimap(duration time.Duration) {
	minimapDuration.Observe(duration.Seconds())
}

// UpdateEventLogStats mirrors the event log counters.
// Called periodically from cmd/server.
func UpdateEventLogStats(stats map[string]interface{}) {
	if total, ok := stats["total"].(uint64); ok {
		eventLogTotal.Set(float64(total))
	}
	if dropped, ok := stats["dropped"].(uint64); ok {
		eventLogDropped.Set(float64(dropped))
	}
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
