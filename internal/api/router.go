package api

import (
	"io"
	"net/http"
	"time"

	"voxel-royale/internal/game"
	"voxel-royale/internal/game/spatial"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the engine methods used by the API.
// This interface enables mocking for tests without spinning up the tick loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// Snapshot returns the latest immutable match state
	Snapshot() *game.Snapshot
	// SetInput replaces the held intents and look direction
	SetInput(in game.Intent, yaw, pitch float64)
	// QueueAction defers fire/destroy to the next tick
	QueueAction(act game.Action) bool
	ToggleBuild() bool
	CycleBlock() string
	SelectWeapon(k game.WeaponKind)
	ToggleInvulnerable() bool
	// Restart replaces a finished match
	Restart() error
	GetEventLogStats() map[string]interface{}
	GetPickupGridStats() spatial.GridStats
}

// RendererInterface defines the minimap methods used by the API.
type RendererInterface interface {
	EncodePNG(w io.Writer, snap *game.Snapshot, size int) error
	GetStats() map[string]interface{}
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine:   mockEngine,
//	    Renderer: mockRenderer,
//	    ThrottleConfig: &api.ThrottleConfig{
//	        Read:    api.Budget{PerSecond: 1000, Burst: 1000}, // High limits for tests
//	        Control: api.Budget{PerSecond: 1000, Burst: 1000},
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine drives the match (required)
	Engine EngineInterface

	// Renderer draws minimaps (required)
	Renderer RendererInterface

	// Throttle is an optional pre-configured request throttle.
	// If nil, a new one will be created using ThrottleConfig.
	Throttle *Throttle

	// ThrottleConfig is only used if Throttle is nil. If both are nil,
	// uses DefaultThrottleConfig.
	ThrottleConfig *ThrottleConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, only local origins are allowed.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler dependencies.
type routerHandlers struct {
	engine   EngineInterface
	renderer RendererInterface
	throttle *Throttle
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter has no side effects beyond the throttle's sweeper goroutine:
// no listeners are opened and the engine is not started. This makes it safe
// to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	throttle := cfg.Throttle
	if throttle == nil {
		throttleCfg := DefaultThrottleConfig
		if cfg.ThrottleConfig != nil {
			throttleCfg = *cfg.ThrottleConfig
		}
		throttle = NewThrottle(throttleCfg)
	}

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	h := &routerHandlers{
		engine:   cfg.Engine,
		renderer: cfg.Renderer,
		throttle: throttle,
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(throttle.limit(classRead))

			// Match state
			r.Get("/state", h.handleGetState)
			r.Get("/world", h.handleGetWorld)
			r.Get("/minimap.png", h.handleGetMinimap)
			r.Get("/stats", h.handleGetStats)

			// Static tables
			r.Get("/weapons", h.handleGetWeapons)
			r.Get("/blocks", h.handleGetBlocks)
		})

		r.Group(func(r chi.Router) {
			r.Use(throttle.limit(classControl))

			r.Post("/input", h.handleInput)
			r.Post("/action/weapon", h.handleSelectWeapon)
			r.Post("/action/{name}", h.handleAction)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	return r
}

// metricsMiddleware records latency per route pattern so URLs with
// query strings do not explode label cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, pattern, status, time.Since(start))
	})
}
