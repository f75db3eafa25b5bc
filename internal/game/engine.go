package game

import (
	"errors"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"voxel-royale/internal/config"
	"voxel-royale/internal/game/spatial"
)

// ErrMatchInProgress is returned when a restart is requested before the
// current match has ended.
var ErrMatchInProgress = errors.New("match still in progress")

// TickStats summarizes one simulated tick for monitoring
type TickStats struct {
	Duration     time.Duration
	Opponents    int
	Particles    int
	Items        int
	Wave         int
	Eliminations int
	Over         bool
}

// Engine drives one Arena from a wall-clock ticker, serializes input against
// the tick, and publishes an immutable snapshot after every tick.
type Engine struct {
	mu     sync.Mutex
	arena  *Arena
	match  config.MatchConfig
	sim    config.SimConfig
	limits config.ResourceLimits
	rng    *rand.Rand

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	lastTick time.Time

	snapshots snapshotStore
	eventLog  *EventLog
	observer  func(TickStats)
}

// NewEngine creates an engine with an unseeded match
func NewEngine(match config.MatchConfig, sim config.SimConfig, limits config.ResourceLimits) *Engine {
	return NewEngineWithSeed(match, sim, limits, time.Now().UnixNano())
}

// NewEngineWithSeed creates an engine whose terrain, spawns and AI draw from
// a single seeded source
func NewEngineWithSeed(match config.MatchConfig, sim config.SimConfig, limits config.ResourceLimits, seed int64) *Engine {
	if sim.TickRate <= 0 {
		sim.TickRate = config.DefaultSim().TickRate
	}
	e := &Engine{
		match:    match,
		sim:      sim,
		limits:   limits,
		rng:      rand.New(rand.NewSource(seed)),
		stopChan: make(chan struct{}),
		eventLog: NewEventLog(),
	}
	e.arena = NewArena(match, limits, e.rng)
	e.arena.AttachEvents(e.eventLog)
	e.snapshots.publish(e.arena.Snapshot(nil))
	return e
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.lastTick = time.Now()
	e.ticker = time.NewTicker(time.Second / time.Duration(e.sim.TickRate))
	ticker, stop := e.ticker, e.stopChan
	e.mu.Unlock()

	go func() {
		for {
			select {
			case now := <-ticker.C:
				e.mu.Lock()
				dt := now.Sub(e.lastTick).Seconds()
				e.lastTick = now
				e.mu.Unlock()
				e.Step(dt)
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Game engine started at %d TPS", e.sim.TickRate)
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	e.stopChan = make(chan struct{})
	log.Println("🛑 Game engine stopped")
}

// Running reports whether the ticker loop is active
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Step advances the match by dt seconds, clamped to the configured maximum,
// and publishes a new snapshot. Tests and tools call it directly instead of
// starting the ticker.
func (e *Engine) Step(dt float64) {
	if math.IsNaN(dt) || dt < 0 {
		dt = 0
	}
	if dt > e.sim.MaxDelta && e.sim.MaxDelta > 0 {
		dt = e.sim.MaxDelta
	}

	start := time.Now()

	e.mu.Lock()
	a := e.arena
	kills := a.Avatar.Kills
	a.Tick(dt)
	snap := a.Snapshot(e.snapshots.load())
	e.snapshots.publish(snap)

	stats := TickStats{
		Opponents:    len(a.Opponents),
		Particles:    len(a.Particles),
		Items:        len(a.Items),
		Wave:         a.Wave,
		Eliminations: a.Avatar.Kills - kills,
		Over:         a.Over,
	}
	observer := e.observer
	e.mu.Unlock()

	stats.Duration = time.Since(start)
	if observer != nil {
		observer(stats)
	}
}

// SetTickObserver registers a callback invoked after every tick, outside the
// engine lock
func (e *Engine) SetTickObserver(fn func(TickStats)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = fn
}

// SetInput replaces the held intents and the look direction
func (e *Engine) SetInput(in Intent, yaw, pitch float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arena.SetIntents(in)
	e.arena.Avatar.SetLook(yaw, pitch)
}

// QueueAction defers a fire or destroy request to the next tick.
// Returns false once the match is over or the per-tick queue is full.
func (e *Engine) QueueAction(act Action) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.QueueAction(act)
}

// ToggleBuild switches between weapon and build mode
func (e *Engine) ToggleBuild() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.ToggleBuild()
}

// CycleBlock advances the selected build block
func (e *Engine) CycleBlock() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.CycleBlock().String()
}

// SelectWeapon equips a weapon
func (e *Engine) SelectWeapon(k WeaponKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arena.SelectWeapon(k)
}

// ToggleInvulnerable flips god mode
func (e *Engine) ToggleInvulnerable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.ToggleInvulnerable()
}

// Restart replaces a finished match with a fresh one.
// Returns ErrMatchInProgress while the current match is still running.
func (e *Engine) Restart() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.arena.Over {
		return ErrMatchInProgress
	}

	prev := e.arena.MatchID
	e.arena = NewArena(e.match, e.limits, e.rng)
	e.arena.AttachEvents(e.eventLog)
	e.snapshots.publish(e.arena.Snapshot(nil))

	log.Printf("🔄 Match %s replaced by %s", prev, e.arena.MatchID)
	return nil
}

// Snapshot returns the latest published state. Safe to call from any
// goroutine without blocking the tick.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshots.load()
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log statistics for monitoring
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// GetPickupGridStats reports occupancy of the loot broad phase as of the
// last tick
func (e *Engine) GetPickupGridStats() spatial.GridStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.pickupGrid.Stats()
}

// GetLimits returns the current resource limits
func (e *Engine) GetLimits() config.ResourceLimits {
	return e.limits
}
