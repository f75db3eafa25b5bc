package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"voxel-royale/internal/config"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the WebSocket hub for snapshot push.
type Server struct {
	engine   EngineInterface
	cfg      config.ServerConfig
	router   *chi.Mux
	wsHub    *WebSocketHub
	throttle *Throttle

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new API server.
//
// Background workers do NOT start until Start() is called, so tests can
// construct the server and use Router() without goroutines or listeners.
func NewServer(engine EngineInterface, renderer RendererInterface, cfg config.ServerConfig) *Server {
	hub := NewWebSocketHub(engine, HubConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
	})
	s := &Server{
		engine: engine,
		cfg:    cfg,
		wsHub:  hub,
	}

	throttleCfg := DefaultThrottleConfig
	throttleCfg.TrustProxy = cfg.TrustProxy
	s.throttle = NewThrottle(throttleCfg)

	var corsOrigins []string
	if len(cfg.AllowedOrigins) > 0 {
		corsOrigins = append([]string{"http://localhost:*", "http://127.0.0.1:*"}, cfg.AllowedOrigins...)
	}

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		Renderer:    renderer,
		Throttle:    s.throttle,
		CORSOrigins: corsOrigins,
	})

	// WebSocket routes need the hub instance
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// Start begins the HTTP server AND starts background workers.
// It blocks until Shutdown is called or the listener fails.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.cfg.BroadcastHz)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("📡 Snapshot push: ws://localhost%s/ws at %d Hz", addr, s.cfg.BroadcastHz)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
//
//	server := api.NewServer(engine, minimap, config.DefaultServer())
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub for tests that drive it without Start
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops accepting requests, closes WebSocket clients and stops
// background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	if s.throttle != nil {
		s.throttle.Stop()
	}
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
