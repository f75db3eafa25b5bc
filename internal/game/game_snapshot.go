package game

import (
	"sync/atomic"
	"time"

	"voxel-royale/internal/game/voxel"
)

// AvatarSnapshot is an immutable copy of the avatar for rendering
type AvatarSnapshot struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Z             float64 `json:"z"`
	Yaw           float64 `json:"yaw"`
	Pitch         float64 `json:"pitch"`
	OnGround      bool    `json:"onGround"`
	Health        float64 `json:"health"`
	MaxHealth     float64 `json:"maxHealth"`
	Shield        float64 `json:"shield"`
	MaxShield     float64 `json:"maxShield"`
	Ammo          int     `json:"ammo"`
	Materials     int     `json:"materials"`
	Kills         int     `json:"kills"`
	Weapon        string  `json:"weapon"`
	BuildMode     bool    `json:"buildMode"`
	SelectedBlock string  `json:"selectedBlock"`
	Invulnerable  bool    `json:"invulnerable"`
}

// OpponentSnapshot is an immutable opponent for rendering
type OpponentSnapshot struct {
	ID        int     `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Yaw       float64 `json:"yaw"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"maxHealth"`
	State     string  `json:"state"`
	Color     string  `json:"color"`
}

// ItemSnapshot is an immutable dropped item
type ItemSnapshot struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Kind     string  `json:"kind"`
	Amount   int     `json:"amount"`
	BobPhase float64 `json:"bobPhase"`
}

// ParticleSnapshot is an immutable particle for rendering
type ParticleSnapshot struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Color string  `json:"color"`
	Size  float64 `json:"size"`
	Alpha float64 `json:"alpha"` // Remaining life fraction
}

// ZoneSnapshot captures the safe zone
type ZoneSnapshot struct {
	CenterX float64 `json:"centerX"`
	CenterZ float64 `json:"centerZ"`
	Radius  float64 `json:"radius"`
}

// WorldSnapshot is a copy of the voxel grid. Cells are shared between
// snapshots of the same revision and must never be written.
type WorldSnapshot struct {
	Size     int           `json:"size" msgpack:"size"`
	Height   int           `json:"height" msgpack:"height"`
	Revision uint64        `json:"revision" msgpack:"revision"`
	Cells    []voxel.Block `json:"-" msgpack:"cells"`
}

// Block returns the cell at integer coordinates, air outside the grid.
func (w *WorldSnapshot) Block(x, y, z int) voxel.Block {
	if x < 0 || x >= w.Size || z < 0 || z >= w.Size || y < 0 || y >= w.Height {
		return voxel.Air
	}
	return w.Cells[x+z*w.Size+y*w.Size*w.Size]
}

// Surface returns the highest solid block in column (x, z) and its height,
// or air and -1 for an empty column.
func (w *WorldSnapshot) Surface(x, z int) (voxel.Block, int) {
	for y := w.Height - 1; y >= 0; y-- {
		if b := w.Block(x, y, z); b.Solid() {
			return b, y
		}
	}
	return voxel.Air, -1
}

// Snapshot is a complete immutable match state for rendering and the API.
// It is produced between ticks and never mutated after publication.
type Snapshot struct {
	Sequence   uint64    `json:"sequence"`  // Monotonic sequence for ordering
	Timestamp  time.Time `json:"timestamp"` // When snapshot was created
	TickNumber uint64    `json:"tick"`
	MatchID    string    `json:"matchId"`

	Time         float64            `json:"time"`
	Avatar       AvatarSnapshot     `json:"avatar"`
	Opponents    []OpponentSnapshot `json:"opponents"`
	Items        []ItemSnapshot     `json:"items"`
	Particles    []ParticleSnapshot `json:"particles"`
	Zone         ZoneSnapshot       `json:"zone"`
	Wave         int                `json:"wave"`
	Score        int                `json:"score"`
	PlayersAlive int                `json:"playersAlive"`
	TotalPlayers int                `json:"totalPlayers"`
	Over         bool               `json:"over"`
	Won          bool               `json:"won"`
	Message      string             `json:"message,omitempty"` // Empty once its countdown expires
	ScreenShake  float64            `json:"screenShake"`

	World WorldSnapshot `json:"-" msgpack:"-"`
}

// Snapshot copies the arena into a new immutable snapshot. World cells are
// reused from prev when the grid has not changed since.
func (a *Arena) Snapshot(prev *Snapshot) *Snapshot {
	av := &a.Avatar
	snap := &Snapshot{
		Timestamp:  time.Now(),
		TickNumber: a.tickNum,
		MatchID:    a.MatchID,
		Time:       a.Time,
		Avatar: AvatarSnapshot{
			X: av.Position.X(), Y: av.Position.Y(), Z: av.Position.Z(),
			Yaw:           av.Yaw,
			Pitch:         av.Pitch,
			OnGround:      av.OnGround,
			Health:        av.Health,
			MaxHealth:     av.MaxHealth,
			Shield:        av.Shield,
			MaxShield:     av.MaxShield,
			Ammo:          av.Ammo,
			Materials:     av.Materials,
			Kills:         av.Kills,
			Weapon:        av.Weapon.String(),
			BuildMode:     av.BuildMode,
			SelectedBlock: av.SelectedBlock.String(),
			Invulnerable:  av.Invulnerable,
		},
		Opponents: make([]OpponentSnapshot, 0, len(a.Opponents)),
		Items:     make([]ItemSnapshot, 0, len(a.Items)),
		Particles: make([]ParticleSnapshot, 0, len(a.Particles)),
		Zone: ZoneSnapshot{
			CenterX: a.Zone.Center.X(),
			CenterZ: a.Zone.Center.Z(),
			Radius:  a.Zone.Radius,
		},
		Wave:         a.Wave,
		Score:        a.Score,
		PlayersAlive: a.PlayersAlive,
		TotalPlayers: a.TotalPlayers,
		Over:         a.Over,
		Won:          a.Won,
		ScreenShake:  a.ScreenShake,
	}
	if a.MessageTTL > 0 {
		snap.Message = a.Message
	}

	for _, o := range a.Opponents {
		snap.Opponents = append(snap.Opponents, OpponentSnapshot{
			ID: o.ID,
			X:  o.Position.X(), Y: o.Position.Y(), Z: o.Position.Z(),
			Yaw:       o.Yaw,
			Health:    o.Health,
			MaxHealth: o.MaxHealth,
			State:     o.State.String(),
			Color:     o.Color,
		})
	}
	for _, it := range a.Items {
		snap.Items = append(snap.Items, ItemSnapshot{
			X: it.Position.X(), Y: it.Position.Y(), Z: it.Position.Z(),
			Kind:     it.Kind.String(),
			Amount:   it.Amount,
			BobPhase: it.BobPhase,
		})
	}
	for _, p := range a.Particles {
		alpha := 0.0
		if p.MaxLife > 0 {
			alpha = p.Life / p.MaxLife
		}
		snap.Particles = append(snap.Particles, ParticleSnapshot{
			X: p.Position.X(), Y: p.Position.Y(), Z: p.Position.Z(),
			Color: p.Color,
			Size:  p.Size,
			Alpha: alpha,
		})
	}

	rev := a.Grid.Revision()
	if prev != nil && prev.MatchID == a.MatchID && prev.World.Revision == rev && prev.World.Cells != nil {
		snap.World = prev.World
	} else {
		snap.World = WorldSnapshot{
			Size:     a.Grid.Size(),
			Height:   a.Grid.Height(),
			Revision: rev,
			Cells:    a.Grid.CopyCells(nil),
		}
	}

	return snap
}

// snapshotStore publishes the latest snapshot for lock-free readers
type snapshotStore struct {
	latest   atomic.Pointer[Snapshot]
	sequence uint64 // producer only
}

// publish stamps snap with the next sequence number and makes it visible
func (s *snapshotStore) publish(snap *Snapshot) {
	s.sequence++
	snap.Sequence = s.sequence
	s.latest.Store(snap)
}

// load returns the latest snapshot, nil before the first publish
func (s *snapshotStore) load() *Snapshot {
	return s.latest.Load()
}
