package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"voxel-royale/internal/game"
	"voxel-royale/internal/game/spatial"
	"voxel-royale/internal/game/voxel"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockEngine implements EngineInterface for testing
type mockEngine struct {
	mu        sync.Mutex
	snap      *game.Snapshot
	intents   game.Intent
	yaw       float64
	pitch     float64
	queued    []game.Action
	queueCap  int
	buildMode bool
	weapon    game.WeaponKind
	restarts  int
}

func newMockEngine() *mockEngine {
	cells := make([]voxel.Block, 4*4*4)
	cells[0] = voxel.Stone
	return &mockEngine{
		queueCap: 2,
		snap: &game.Snapshot{
			Sequence: 1,
			MatchID:  "match-1",
			Wave:     1,
			Avatar:   game.AvatarSnapshot{Health: 100, MaxHealth: 100, Weapon: "pistol"},
			World:    game.WorldSnapshot{Size: 4, Height: 4, Revision: 7, Cells: cells},
		},
	}
}

func (m *mockEngine) Snapshot() *game.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockEngine) SetInput(in game.Intent, yaw, pitch float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents, m.yaw, m.pitch = in, yaw, pitch
}

func (m *mockEngine) QueueAction(act game.Action) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.Over || len(m.queued) >= m.queueCap {
		return false
	}
	m.queued = append(m.queued, act)
	return true
}

func (m *mockEngine) ToggleBuild() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buildMode = !m.buildMode
	return m.buildMode
}

func (m *mockEngine) CycleBlock() string { return "red" }

func (m *mockEngine) SelectWeapon(k game.WeaponKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weapon = k
}

func (m *mockEngine) ToggleInvulnerable() bool { return true }

func (m *mockEngine) Restart() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.snap.Over {
		return game.ErrMatchInProgress
	}
	m.restarts++
	next := *m.snap
	next.Over = false
	next.Sequence++
	m.snap = &next
	return nil
}

func (m *mockEngine) GetEventLogStats() map[string]interface{} {
	return map[string]interface{}{"total": uint64(0)}
}

func (m *mockEngine) GetPickupGridStats() spatial.GridStats {
	return spatial.GridStats{Cols: 8, Rows: 8, CellSize: 4, TotalCells: 64, TotalEntities: 3}
}

func (m *mockEngine) setOver() {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *m.snap
	next.Over = true
	m.snap = &next
}

// mockRenderer implements RendererInterface for testing
type mockRenderer struct {
	mu       sync.Mutex
	lastSize int
	err      error
}

func (m *mockRenderer) EncodePNG(w io.Writer, snap *game.Snapshot, size int) error {
	m.mu.Lock()
	m.lastSize = size
	m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	_, err := w.Write([]byte("\x89PNG"))
	return err
}

func (m *mockRenderer) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSize
}

func (m *mockRenderer) GetStats() map[string]interface{} {
	return map[string]interface{}{"renders": uint64(0)}
}

func newTestServer(t *testing.T, engine *mockEngine, renderer *mockRenderer) *httptest.Server {
	t.Helper()
	throttle := NewThrottle(ThrottleConfig{
		Read:    Budget{PerSecond: 1000, Burst: 1000},
		Control: Budget{PerSecond: 1000, Burst: 1000},
		IdleTTL: time.Hour,
	})
	t.Cleanup(throttle.Stop)

	ts := httptest.NewServer(NewRouter(RouterConfig{
		Engine:         engine,
		Renderer:       renderer,
		Throttle:       throttle,
		DisableLogging: true,
	}))
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// ============================================================================
// Read endpoints
// ============================================================================

func TestGetState(t *testing.T) {
	ts := newTestServer(t, newMockEngine(), &mockRenderer{})

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["matchId"] != "match-1" {
		t.Errorf("matchId = %v", body["matchId"])
	}
	avatar, ok := body["avatar"].(map[string]interface{})
	if !ok || avatar["weapon"] != "pistol" {
		t.Errorf("avatar = %v", body["avatar"])
	}
	if _, ok := body["World"]; ok {
		t.Error("state JSON should not carry voxel cells")
	}
	if _, ok := body["message"]; ok {
		t.Error("empty message should be omitted")
	}
}

func TestGetWorld(t *testing.T) {
	ts := newTestServer(t, newMockEngine(), &mockRenderer{})

	resp, err := http.Get(ts.URL + "/api/world")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/x-msgpack" {
		t.Errorf("content type = %q", ct)
	}
	if rev := resp.Header.Get("X-World-Revision"); rev != "7" {
		t.Errorf("revision header = %q", rev)
	}

	data, _ := io.ReadAll(resp.Body)
	var world game.WorldSnapshot
	if err := msgpack.Unmarshal(data, &world); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if world.Size != 4 || world.Height != 4 || len(world.Cells) != 64 {
		t.Errorf("world = %d x %d, %d cells", world.Size, world.Height, len(world.Cells))
	}
	if world.Block(0, 0, 0) != voxel.Stone {
		t.Errorf("cell 0 = %v, want stone", world.Block(0, 0, 0))
	}
}

func TestGetMinimap(t *testing.T) {
	renderer := &mockRenderer{}
	ts := newTestServer(t, newMockEngine(), renderer)

	tests := []struct {
		query    string
		status   int
		wantSize int
	}{
		{"", http.StatusOK, 0},
		{"?size=256", http.StatusOK, 256},
		{"?size=abc", http.StatusBadRequest, -1},
		{"?size=-4", http.StatusBadRequest, -1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			renderer.mu.Lock()
			renderer.lastSize = -1
			renderer.mu.Unlock()
			resp, err := http.Get(ts.URL + "/api/minimap.png" + tt.query)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status == http.StatusOK && resp.Header.Get("Content-Type") != "image/png" {
				t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
			}
			if got := renderer.size(); got != tt.wantSize {
				t.Errorf("renderer size = %d, want %d", got, tt.wantSize)
			}
		})
	}
}

func TestGetMinimapRenderError(t *testing.T) {
	ts := newTestServer(t, newMockEngine(), &mockRenderer{err: io.ErrShortWrite})

	resp, err := http.Get(ts.URL + "/api/minimap.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestGetBlocks(t *testing.T) {
	ts := newTestServer(t, newMockEngine(), &mockRenderer{})

	resp, err := http.Get(ts.URL + "/api/blocks")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var blocks []blockEntry
	if err := json.NewDecoder(resp.Body).Decode(&blocks); err != nil {
		t.Fatal(err)
	}
	if len(blocks) != voxel.BlockCount-1 {
		t.Fatalf("blocks = %d, want %d", len(blocks), voxel.BlockCount-1)
	}
	if blocks[0].ID != 1 || blocks[0].Name != "grass" {
		t.Errorf("first block = %+v", blocks[0])
	}
	for i := 1; i < len(blocks); i++ {
		if blocks[i].ID <= blocks[i-1].ID {
			t.Errorf("blocks not sorted at %d", i)
		}
	}
}

func TestGetWeaponsAndStats(t *testing.T) {
	ts := newTestServer(t, newMockEngine(), &mockRenderer{})

	resp, err := http.Get(ts.URL + "/api/weapons")
	if err != nil {
		t.Fatal(err)
	}
	var weapons []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&weapons)
	resp.Body.Close()
	if len(weapons) != 3 || weapons[0]["id"] != "pistol" {
		t.Errorf("weapons = %v", weapons)
	}

	resp, err = http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	var stats map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()
	for _, key := range []string{"eventLog", "pickupGrid", "renderer", "throttle", "matchId", "worldRevision"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("stats missing %q", key)
		}
	}
	grid, _ := stats["pickupGrid"].(map[string]interface{})
	if grid["totalCells"] != float64(64) || grid["totalEntities"] != float64(3) {
		t.Errorf("pickupGrid = %v", grid)
	}
}

// ============================================================================
// Control endpoints
// ============================================================================

func TestPostInput(t *testing.T) {
	engine := newMockEngine()
	ts := newTestServer(t, engine, &mockRenderer{})

	resp := post(t, ts.URL+"/api/input", `{"intents":["forward","jump"],"yaw":1.5,"pitch":-0.2}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	engine.mu.Lock()
	if engine.intents != game.IntentForward|game.IntentJump || engine.yaw != 1.5 || engine.pitch != -0.2 {
		t.Errorf("engine input = %b %.2f %.2f", engine.intents, engine.yaw, engine.pitch)
	}
	engine.mu.Unlock()

	resp = post(t, ts.URL+"/api/input", `{"intents":["forward","crouch"]}`)
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(body["error"], "crouch") {
		t.Errorf("unknown intent: status %d body %v", resp.StatusCode, body)
	}

	resp = post(t, ts.URL+"/api/input", `not json`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body status = %d", resp.StatusCode)
	}
}

func TestPostAction(t *testing.T) {
	engine := newMockEngine()
	ts := newTestServer(t, engine, &mockRenderer{})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"fire", "/api/action/fire", "", http.StatusOK},
		{"destroy", "/api/action/destroy", "", http.StatusOK},
		{"queue full", "/api/action/fire", "", http.StatusTooManyRequests},
		{"build", "/api/action/build", "", http.StatusOK},
		{"cycle", "/api/action/cycle-block", "", http.StatusOK},
		{"invulnerable", "/api/action/invulnerable", "", http.StatusOK},
		{"weapon", "/api/action/weapon", `{"weapon":"rifle"}`, http.StatusOK},
		{"weapon slot", "/api/action/weapon", `{"weapon":"2"}`, http.StatusOK},
		{"bad weapon", "/api/action/weapon", `{"weapon":"bazooka"}`, http.StatusBadRequest},
		{"restart running", "/api/action/restart", "", http.StatusConflict},
		{"unknown", "/api/action/dance", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == "" {
				body = "{}"
			}
			resp := post(t, ts.URL+tt.path, body)
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if len(engine.queued) != 2 || engine.queued[0] != game.ActionFire || engine.queued[1] != game.ActionDestroy {
		t.Errorf("queued = %v", engine.queued)
	}
	if !engine.buildMode || engine.weapon != game.Shotgun {
		t.Errorf("build %v weapon %v", engine.buildMode, engine.weapon)
	}
}

func TestPostActionAfterMatchOver(t *testing.T) {
	engine := newMockEngine()
	engine.queueCap = 100
	engine.setOver()
	ts := newTestServer(t, engine, &mockRenderer{})

	resp := post(t, ts.URL+"/api/action/fire", "{}")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("fire after match end = %d, want 409", resp.StatusCode)
	}

	resp = post(t, ts.URL+"/api/action/restart", "{}")
	resp.Body.Close()
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if resp.StatusCode != http.StatusOK || engine.restarts != 1 {
		t.Errorf("restart = %d, restarts %d", resp.StatusCode, engine.restarts)
	}
}

// ============================================================================
// Middleware
// ============================================================================

func newThrottledServer(t *testing.T, cfg ThrottleConfig) (*httptest.Server, *Throttle) {
	t.Helper()
	throttle := NewThrottle(cfg)
	t.Cleanup(throttle.Stop)

	ts := httptest.NewServer(NewRouter(RouterConfig{
		Engine:         newMockEngine(),
		Renderer:       &mockRenderer{},
		Throttle:       throttle,
		DisableLogging: true,
	}))
	t.Cleanup(ts.Close)
	return ts, throttle
}

func TestThrottleRejects(t *testing.T) {
	ts, throttle := newThrottledServer(t, ThrottleConfig{
		Read:    Budget{PerSecond: 0.001, Burst: 2},
		Control: Budget{PerSecond: 1000, Burst: 1000},
		IdleTTL: time.Hour,
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
	stats := throttle.GetStats()
	if stats["read"]["rejected"] != 1 || stats["read"]["allowed"] != 2 || stats["read"]["clients"] != 1 {
		t.Errorf("read stats = %v", stats["read"])
	}

	// Health checks are never metered
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d", resp.StatusCode)
	}
}

func TestThrottleBudgetsAreIndependent(t *testing.T) {
	ts, throttle := newThrottledServer(t, ThrottleConfig{
		Read:    Budget{PerSecond: 0.001, Burst: 1},
		Control: Budget{PerSecond: 0.001, Burst: 1},
		IdleTTL: time.Hour,
	})

	get := func() int {
		resp, err := http.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := get(); code != http.StatusOK {
		t.Fatalf("first read = %d", code)
	}
	if code := get(); code != http.StatusTooManyRequests {
		t.Fatalf("second read = %d, want 429", code)
	}

	// An exhausted read budget leaves control input untouched
	resp := post(t, ts.URL+"/api/input", `{"intents":["forward"]}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("input after read exhaustion = %d", resp.StatusCode)
	}
	resp = post(t, ts.URL+"/api/input", `{"intents":["forward"]}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second input = %d, want 429", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] == "" || resp.Header.Get("Retry-After") != "1" {
		t.Errorf("429 body %v retry %q", body, resp.Header.Get("Retry-After"))
	}

	stats := throttle.GetStats()
	if stats["read"]["rejected"] != 1 || stats["control"]["rejected"] != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestThrottleSweepsIdleClients(t *testing.T) {
	throttle := NewThrottle(ThrottleConfig{IdleTTL: time.Minute})
	defer throttle.Stop()

	now := time.Now()
	throttle.classes[classRead].take("10.0.0.1", now.Add(-2*time.Minute))
	throttle.classes[classControl].take("10.0.0.1", now)
	throttle.classes[classRead].take("10.0.0.2", now)

	if dropped := throttle.sweep(now); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	stats := throttle.GetStats()
	if stats["read"]["clients"] != 1 || stats["control"]["clients"] != 1 {
		t.Errorf("clients after sweep = %v", stats)
	}
}

func TestNewThrottleDefaults(t *testing.T) {
	throttle := NewThrottle(ThrottleConfig{Read: Budget{PerSecond: 5}})
	defer throttle.Stop()

	if throttle.cfg.Read != DefaultThrottleConfig.Read {
		t.Errorf("read budget with zero burst = %+v, want default", throttle.cfg.Read)
	}
	if throttle.cfg.Control != DefaultThrottleConfig.Control || throttle.cfg.IdleTTL != DefaultThrottleConfig.IdleTTL {
		t.Errorf("cfg = %+v", throttle.cfg)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remote     string
		trustProxy bool
		want       string
	}{
		{"remote addr", nil, "10.0.0.1:5555", false, "10.0.0.1"},
		{"forwarded untrusted", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "10.0.0.1:5555", false, "10.0.0.1"},
		{"forwarded", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.1:5555", true, "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "10.0.0.1:5555", true, "5.6.7.8"},
		{"no port", nil, "10.0.0.9", true, "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeFrameUsesJSONNames(t *testing.T) {
	engine := newMockEngine()
	data, err := encodeFrame("match:snapshot", engine.Snapshot())
	if err != nil {
		t.Fatal(err)
	}

	var frame map[string]interface{}
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&frame); err != nil {
		t.Fatal(err)
	}
	if frame["event"] != "match:snapshot" {
		t.Errorf("event = %v", frame["event"])
	}
	snap, ok := frame["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", frame["data"])
	}
	if snap["matchId"] != "match-1" {
		t.Errorf("matchId = %v", snap["matchId"])
	}
	if _, ok := snap["World"]; ok {
		t.Error("frame should not carry the voxel grid")
	}
}
