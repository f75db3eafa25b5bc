package game

import (
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"voxel-royale/internal/config"
	"voxel-royale/internal/game/physics"
	"voxel-royale/internal/game/spatial"
	"voxel-royale/internal/game/voxel"
)

const (
	zoneStartFraction = 0.6 // Initial safe-zone radius as a fraction of world size
	zoneMinRadius     = 15.0
	zoneShrinkRate    = 0.3 // Units per second

	stormDwellLimit = 1.0 // Seconds outside before the avatar takes a hit
	stormDamage     = 5.0
	stormDrain      = 5.0 // Opponent health lost per second outside

	shakeDecay   = 5.0 // Screen shake units per second
	killScore    = 100
	pickupCell   = 4.0 // Spatial grid cell edge for the pickup broad phase
	openingSpeed = 2.0 // Opponent base speed, before the random and wave bonus

	welcomeTTL = 2.0
	killTTL    = 1.5
	waveTTL    = 2.0
	endTTL     = 5.0
	toggleTTL  = 1.5
)

// SafeZone is the shrinking circle outside of which entities take damage.
// Only x and z of Center are used.
type SafeZone struct {
	Center     mgl64.Vec3
	Radius     float64
	MinRadius  float64
	ShrinkRate float64
}

// Contains reports whether pos is within the zone horizontally.
func (z SafeZone) Contains(pos mgl64.Vec3) bool {
	dx := pos.X() - z.Center.X()
	dz := pos.Z() - z.Center.Z()
	return math.Hypot(dx, dz) <= z.Radius
}

// Arena owns all state of one match. It is not safe for concurrent use;
// Engine serializes access.
type Arena struct {
	cfg    config.MatchConfig
	limits config.ResourceLimits
	rng    *rand.Rand

	MatchID   string
	Grid      *voxel.Grid
	Avatar    Avatar
	Opponents []*Opponent
	Items     []Item
	Particles []Particle

	Zone       SafeZone
	StormDwell float64 // Seconds accumulated outside the zone

	Time         float64 // Match seconds
	Over         bool
	Won          bool
	PlayersAlive int
	TotalPlayers int
	Score        int
	Wave         int
	Message      string
	MessageTTL   float64
	ScreenShake  float64

	intents    Intent
	pending    []Action
	tickNum    uint64
	pickupGrid *spatial.SpatialGrid
	taken      []bool
	dead       []*Opponent
	events     EventSink
}

// NewArena creates a match: terrain, avatar at a spawn point, the opening
// batch of opponents and scattered loot.
func NewArena(cfg config.MatchConfig, limits config.ResourceLimits, rng *rand.Rand) *Arena {
	size := cfg.WorldSize
	grid := voxel.Generate(size, cfg.WorldHeight, rng)

	a := &Arena{
		cfg:     cfg,
		limits:  limits,
		rng:     rng,
		MatchID: uuid.NewString(),
		Grid:    grid,
		Zone: SafeZone{
			Center:     mgl64.Vec3{float64(size) / 2, 0, float64(size) / 2},
			Radius:     float64(size) * zoneStartFraction,
			MinRadius:  zoneMinRadius,
			ShrinkRate: zoneShrinkRate,
		},
		Wave:       1,
		pending:    make([]Action, 0, limits.MaxActions),
		pickupGrid: spatial.NewSpatialGrid(float64(size), float64(size), pickupCell, limits.MaxItems),
	}

	a.Avatar = Avatar{
		Body:          physics.Body{Position: voxel.FindSpawnPoint(grid, rng)},
		Health:        cfg.StartHealth,
		MaxHealth:     cfg.MaxHealth,
		Shield:        cfg.StartShield,
		MaxShield:     cfg.MaxShield,
		Ammo:          cfg.StartAmmo,
		Materials:     cfg.StartMaterials,
		Weapon:        Rifle,
		LastShot:      math.Inf(-1),
		SelectedBlock: voxel.Blue,
	}

	a.Opponents = make([]*Opponent, 0, cfg.OpponentCount)
	for i := 0; i < cfg.OpponentCount; i++ {
		a.spawnOpponent(i, 100, openingSpeed+a.rng.Float64()*2)
	}
	a.PlayersAlive = len(a.Opponents) + 1
	a.TotalPlayers = a.PlayersAlive

	a.scatterItems(cfg.InitialItems, initialAmounts)
	a.showMessage("WELCOME TO VOXEL ROYALE!", welcomeTTL)

	return a
}

func (a *Arena) spawnOpponent(id int, health, speed float64) {
	a.Opponents = append(a.Opponents, &Opponent{
		Body:      physics.Body{Position: voxel.FindSpawnPoint(a.Grid, a.rng)},
		ID:        id,
		Color:     opponentColors[id%len(opponentColors)],
		Yaw:       a.rng.Float64() * math.Pi * 2,
		Health:    health,
		MaxHealth: health,
		Speed:     speed,
		LastShot:  math.Inf(-1),
		State:     StateWander,
	})
}

// AttachEvents routes match events to sink and records the match start.
func (a *Arena) AttachEvents(sink EventSink) {
	a.events = sink
	p := a.Avatar.Position
	a.emit(EventTypeMatchStart, "", MatchStartPayload{
		WorldSize:   a.Grid.Size(),
		WorldHeight: a.Grid.Height(),
		Opponents:   len(a.Opponents),
		SpawnX:      p.X(),
		SpawnY:      p.Y(),
		SpawnZ:      p.Z(),
	})
}

func (a *Arena) emit(t EventType, source string, payload interface{}) {
	if a.events == nil {
		return
	}
	a.events.Emit(NewEvent(t, a.tickNum, a.MatchID, source, payload))
}

func (a *Arena) showMessage(msg string, ttl float64) {
	a.Message = msg
	a.MessageTTL = ttl
}

// SetIntents replaces the held intents used by the next ticks.
func (a *Arena) SetIntents(in Intent) {
	a.intents = in
}

// Intents returns the held intents.
func (a *Arena) Intents() Intent {
	return a.intents
}

// TickNum returns the number of ticks simulated.
func (a *Arena) TickNum() uint64 {
	return a.tickNum
}

// ToggleBuild switches between weapon and build mode.
func (a *Arena) ToggleBuild() bool {
	a.Avatar.BuildMode = !a.Avatar.BuildMode
	return a.Avatar.BuildMode
}

// CycleBlock advances the selected build block.
func (a *Arena) CycleBlock() voxel.Block {
	a.Avatar.SelectedBlock = a.Avatar.SelectedBlock.Next()
	return a.Avatar.SelectedBlock
}

// SelectWeapon equips the given weapon.
func (a *Arena) SelectWeapon(k WeaponKind) {
	a.Avatar.Weapon = k
}

// ToggleInvulnerable flips god mode and announces it.
func (a *Arena) ToggleInvulnerable() bool {
	av := &a.Avatar
	av.Invulnerable = !av.Invulnerable
	if av.Invulnerable {
		a.showMessage("⚡ GOD MODE ENABLED ⚡", toggleTTL)
	} else {
		a.showMessage("God Mode Disabled", toggleTTL)
	}
	return av.Invulnerable
}

// stage is one named step of the tick pipeline.
type stage struct {
	name string
	run  func(*Arena, float64)
}

// pipeline is the fixed order every tick runs in.
var pipeline = []stage{
	{"clock", (*Arena).stepClock},
	{"storm", (*Arena).stepStorm},
	{"avatar", (*Arena).stepAvatar},
	{"combat", (*Arena).stepCombat},
	{"elimination", (*Arena).stepElimination},
	{"ai", (*Arena).stepAI},
	{"opponents", (*Arena).stepOpponents},
	{"effects", (*Arena).stepEffects},
	{"pickup", (*Arena).stepPickup},
	{"waves", (*Arena).stepWaves},
}

// StageNames returns the tick pipeline order.
func StageNames() []string {
	names := make([]string, len(pipeline))
	for i, s := range pipeline {
		names[i] = s.name
	}
	return names
}

// Tick advances the match by dt seconds. A finished match is never mutated;
// the over flag is checked before the pipeline and between stages.
func (a *Arena) Tick(dt float64) {
	if a.Over || dt < 0 || math.IsNaN(dt) {
		return
	}
	a.tickNum++

	for _, s := range pipeline {
		if a.Over {
			return
		}
		s.run(a, dt)
	}
}

func (a *Arena) stepClock(dt float64) {
	a.Time += dt
	a.ScreenShake = math.Max(0, a.ScreenShake-dt*shakeDecay)
	if a.MessageTTL > 0 {
		a.MessageTTL = math.Max(0, a.MessageTTL-dt)
	}
	for i := range a.Items {
		a.Items[i].BobPhase += dt * bobRate
	}
}

// stepStorm shrinks the zone and applies out-of-zone damage. The avatar is
// hit in fixed amounts after each full dwell interval; opponents lose health
// continuously.
func (a *Arena) stepStorm(dt float64) {
	z := &a.Zone
	z.Radius = math.Max(z.MinRadius, z.Radius-z.ShrinkRate*dt)

	if !z.Contains(a.Avatar.Position) {
		a.StormDwell += dt
		if a.StormDwell > stormDwellLimit {
			a.StormDwell = 0
			a.DamageAvatar(stormDamage, "storm")
		}
	}

	for _, o := range a.Opponents {
		if !z.Contains(o.Position) {
			o.Health -= stormDrain * dt
		}
	}
}

// stepElimination removes every opponent whose health reached zero. Dead
// opponents are collected first, credited once each, then compacted out.
func (a *Arena) stepElimination(_ float64) {
	a.dead = a.dead[:0]
	for _, o := range a.Opponents {
		if o.Health <= 0 {
			a.dead = append(a.dead, o)
		}
	}
	if len(a.dead) == 0 {
		return
	}

	for _, o := range a.dead {
		a.eliminate(o)
	}

	n := 0
	for _, o := range a.Opponents {
		if o.Health > 0 {
			a.Opponents[n] = o
			n++
		}
	}
	for i := n; i < len(a.Opponents); i++ {
		a.Opponents[i] = nil
	}
	a.Opponents = a.Opponents[:n]

	for i := range a.dead {
		a.dead[i] = nil
	}
}

func (a *Arena) eliminate(o *Opponent) {
	a.Avatar.Kills++
	a.Score += killScore
	a.PlayersAlive--
	a.showMessage(fmt.Sprintf("ELIMINATED! (%d remaining)", a.PlayersAlive), killTTL)

	a.burst(o.Position, deathPuff, o.Color)
	a.dropLoot(o.Position)

	a.emit(EventTypeElimination, o.sourceID(), EliminationPayload{
		OpponentID: o.ID,
		Kills:      a.Avatar.Kills,
		Remaining:  a.PlayersAlive,
		X:          o.Position.X(),
		Y:          o.Position.Y(),
		Z:          o.Position.Z(),
	})
}

// stepWaves starts the next wave once every opponent is gone, or ends the
// match as a win after the last wave.
func (a *Arena) stepWaves(_ float64) {
	if len(a.Opponents) > 0 {
		return
	}
	if a.Wave >= a.cfg.WaveCap {
		a.endMatch(true)
		return
	}

	a.Wave++
	w := float64(a.Wave)
	count := 10 + 5*a.Wave
	for i := 0; i < count; i++ {
		speed := openingSpeed + a.rng.Float64()*2 + w*0.5
		a.spawnOpponent(i+100*a.Wave, 80+20*w, speed)
	}
	a.PlayersAlive = len(a.Opponents) + 1
	a.TotalPlayers = a.PlayersAlive

	a.scatterItems(supplyCount, supplyAmounts)
	a.showMessage(fmt.Sprintf("WAVE %d!", a.Wave), waveTTL)

	log.Printf("🌊 Wave %d: %d opponents", a.Wave, count)
	a.emit(EventTypeWave, "", WavePayload{Wave: a.Wave, Opponents: count})
}

// endMatch moves the match into its terminal state. It only acts once.
func (a *Arena) endMatch(won bool) {
	if a.Over {
		return
	}
	a.Over = true
	a.Won = won

	if won {
		a.showMessage("VICTORY ROYALE!", endTTL)
		log.Printf("🏆 Match %s won (score %d, kills %d)", a.MatchID, a.Score, a.Avatar.Kills)
	} else {
		a.showMessage("GAME OVER", endTTL)
		log.Printf("💀 Match %s lost in wave %d (score %d)", a.MatchID, a.Wave, a.Score)
	}

	a.emit(EventTypeMatchEnd, "", MatchEndPayload{
		Won:      won,
		Score:    a.Score,
		Kills:    a.Avatar.Kills,
		Wave:     a.Wave,
		Duration: a.Time,
	})
}
