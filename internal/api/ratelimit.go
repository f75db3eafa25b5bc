package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// routeClass selects which per-client budget a route draws from. State
// polling and control input are metered separately so a client hammering
// /api/state cannot lock itself out of steering the avatar.
type routeClass uint8

const (
	classRead routeClass = iota
	classControl

	classCount
)

var classNames = [classCount]string{
	classRead:    "read",
	classControl: "control",
}

// Budget is a token bucket: PerSecond refill with room for Burst requests.
type Budget struct {
	PerSecond float64
	Burst     int
}

// ThrottleConfig sets the per-client budgets of each route class.
type ThrottleConfig struct {
	Read    Budget
	Control Budget

	// Buckets idle for longer than this are forgotten
	IdleTTL time.Duration

	// TrustProxy takes the client address from X-Forwarded-For or
	// X-Real-IP. Leave off unless a reverse proxy sets those headers.
	TrustProxy bool
}

// DefaultThrottleConfig fits a browser polling state at 10-20 Hz while
// streaming input at frame rate.
var DefaultThrottleConfig = ThrottleConfig{
	Read:    Budget{PerSecond: 20, Burst: 40},
	Control: Budget{PerSecond: 60, Burst: 120},
	IdleTTL: 10 * time.Minute,
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// classBuckets holds one route class's buckets keyed by client IP
type classBuckets struct {
	budget Budget

	mu      sync.Mutex
	buckets map[string]*bucket

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

func (cb *classBuckets) take(ip string, now time.Time) bool {
	cb.mu.Lock()
	b, ok := cb.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(cb.budget.PerSecond), cb.budget.Burst)}
		cb.buckets[ip] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)
	cb.mu.Unlock()

	if allowed {
		cb.allowed.Add(1)
	} else {
		cb.rejected.Add(1)
	}
	return allowed
}

// Throttle meters HTTP requests per client IP, one budget per route class.
type Throttle struct {
	cfg     ThrottleConfig
	classes [classCount]*classBuckets

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewThrottle creates a throttle and starts its idle sweeper. Zero fields of
// cfg fall back to DefaultThrottleConfig.
func NewThrottle(cfg ThrottleConfig) *Throttle {
	if cfg.Read.PerSecond <= 0 || cfg.Read.Burst <= 0 {
		cfg.Read = DefaultThrottleConfig.Read
	}
	if cfg.Control.PerSecond <= 0 || cfg.Control.Burst <= 0 {
		cfg.Control = DefaultThrottleConfig.Control
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultThrottleConfig.IdleTTL
	}

	t := &Throttle{cfg: cfg, stopChan: make(chan struct{})}
	budgets := [classCount]Budget{classRead: cfg.Read, classControl: cfg.Control}
	for c := range t.classes {
		t.classes[c] = &classBuckets{budget: budgets[c], buckets: make(map[string]*bucket)}
	}

	go t.sweepLoop()
	return t
}

// Stop ends the idle sweeper
func (t *Throttle) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
}

func (t *Throttle) sweepLoop() {
	ticker := time.NewTicker(t.cfg.IdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case now := <-ticker.C:
			t.sweep(now)
		}
	}
}

// sweep forgets buckets idle since before now-IdleTTL and returns how many
// were dropped
func (t *Throttle) sweep(now time.Time) int {
	cutoff := now.Add(-t.cfg.IdleTTL)
	dropped := 0
	for _, cb := range t.classes {
		cb.mu.Lock()
		for ip, b := range cb.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(cb.buckets, ip)
				dropped++
			}
		}
		cb.mu.Unlock()
	}
	return dropped
}

// limit returns middleware charging each request to the class budget
func (t *Throttle) limit(class routeClass) func(http.Handler) http.Handler {
	cb := t.classes[class]
	reason := "rate_limit_" + classNames[class]
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cb.take(clientIP(r, t.cfg.TrustProxy), time.Now()) {
				RecordConnectionRejected(reason)
				w.Header().Set("Retry-After", "1")
				writeError(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetStats returns allowed/rejected counts and tracked clients per class
func (t *Throttle) GetStats() map[string]map[string]uint64 {
	stats := make(map[string]map[string]uint64, classCount)
	for c, cb := range t.classes {
		cb.mu.Lock()
		clients := len(cb.buckets)
		cb.mu.Unlock()
		stats[classNames[c]] = map[string]uint64{
			"allowed":  cb.allowed.Load(),
			"rejected": cb.rejected.Load(),
			"clients":  uint64(clients),
		}
	}
	return stats
}

// clientIP returns the address requests are metered by. Forwarding headers
// are client controlled, so they only count behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
