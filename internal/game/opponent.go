package game

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxel-royale/internal/game/physics"
	"voxel-royale/internal/game/voxel"
)

const (
	attackRadius = 15.0
	chaseRadius  = 30.0

	wanderReroll = 0.02 // Per-tick chance to pick a new wander target
	wanderReach  = 10.0 // Wander targets lie within ±wanderReach on x and z

	shotBaseInterval = 0.8
	shotJitter       = 0.4
	shotRange        = 50.0
	shotBaseDamage   = 8.0
	shotDamageJitter = 7.0
	shotSpread       = 0.05
	shotEyeHeight    = 1.5
	shotChestHeight  = 1.0

	buildChance   = 0.01
	buildCooldown = 3.0
	buildDistance = 2.0
	wallHeight    = 3

	jumpLookahead = 0.5 // Distance ahead and height of the obstruction check
)

var opponentColors = []string{
	"#e74c3c", "#9b59b6", "#e67e22", "#1abc9c",
	"#c0392b", "#8e44ad", "#d35400", "#16a085",
}

// AIState is an opponent's current behavior.
type AIState uint8

const (
	StateWander AIState = iota
	StateChase
	StateAttack
)

func (s AIState) String() string {
	switch s {
	case StateWander:
		return "wander"
	case StateChase:
		return "chase"
	case StateAttack:
		return "attack"
	default:
		return "unknown"
	}
}

// Opponent is an autonomous enemy.
type Opponent struct {
	physics.Body

	ID        int
	Color     string
	Yaw       float64
	Health    float64
	MaxHealth float64
	Speed     float64
	LastShot  float64 // Match time of the last shot
	State     AIState

	Target    mgl64.Vec3 // Wander destination, valid when HasTarget
	HasTarget bool

	BuildCooldown float64
}

func (o *Opponent) sourceID() string {
	return fmt.Sprintf("opponent-%d", o.ID)
}

// behavior returns the horizontal movement intent for one tick. toAvatar is
// the horizontal offset from the opponent to the avatar.
type behavior func(a *Arena, o *Opponent, toAvatar mgl64.Vec3, dist float64) mgl64.Vec3

// behaviors must stay exhaustive over AIState.
var behaviors = map[AIState]behavior{
	StateWander: wanderBehavior,
	StateChase:  chaseBehavior,
	StateAttack: attackBehavior,
}

// classify picks a state from horizontal distance alone. There is no
// hysteresis, so an opponent hovering on a boundary may flip every tick.
func classify(dist float64) AIState {
	switch {
	case dist < attackRadius:
		return StateAttack
	case dist < chaseRadius:
		return StateChase
	default:
		return StateWander
	}
}

func wanderBehavior(a *Arena, o *Opponent, _ mgl64.Vec3, _ float64) mgl64.Vec3 {
	if !o.HasTarget || a.rng.Float64() < wanderReroll {
		o.Target = mgl64.Vec3{
			o.Position.X() + (a.rng.Float64()-0.5)*2*wanderReach,
			o.Position.Y(),
			o.Position.Z() + (a.rng.Float64()-0.5)*2*wanderReach,
		}
		o.HasTarget = true
	}
	return mgl64.Vec3{o.Target.X() - o.Position.X(), 0, o.Target.Z() - o.Position.Z()}
}

func chaseBehavior(_ *Arena, o *Opponent, toAvatar mgl64.Vec3, _ float64) mgl64.Vec3 {
	o.Yaw = math.Atan2(toAvatar.Z(), toAvatar.X())
	return toAvatar
}

func attackBehavior(a *Arena, o *Opponent, toAvatar mgl64.Vec3, dist float64) mgl64.Vec3 {
	o.Yaw = math.Atan2(toAvatar.Z(), toAvatar.X())
	strafe := o.Yaw + math.Pi/2 + math.Sin(a.Time*2+float64(o.ID))*math.Pi

	if a.Time-o.LastShot > shotBaseInterval+a.rng.Float64()*shotJitter {
		o.LastShot = a.Time
		a.opponentShoot(o, dist)
	}

	return mgl64.Vec3{math.Cos(strafe), 0, math.Sin(strafe)}
}

// stepAI runs the decision layer for every live opponent: state selection,
// the wall-building sub-behavior, movement intent and shots.
func (a *Arena) stepAI(dt float64) {
	avatarPos := a.Avatar.Position

	for _, o := range a.Opponents {
		toAvatar := mgl64.Vec3{avatarPos.X() - o.Position.X(), 0, avatarPos.Z() - o.Position.Z()}
		dist := toAvatar.Len()

		o.State = classify(dist)

		if o.State == StateAttack && o.BuildCooldown <= 0 && a.rng.Float64() < buildChance {
			a.buildWall(o)
			o.BuildCooldown = buildCooldown
		}
		o.BuildCooldown = math.Max(0, o.BuildCooldown-dt)

		move := behaviors[o.State](a, o, toAvatar, dist)
		if l := move.Len(); l > 0 {
			move = move.Mul(o.Speed / l)
			o.Yaw = math.Atan2(move.Z(), move.X())
		}
		o.Velocity[0] = move.X()
		o.Velocity[2] = move.Z()

		if a.Over {
			return
		}
	}
}

// opponentShoot fires a noisy hitscan shot from the opponent's eye at the
// avatar's chest. Terrain that blocks the ray before it reaches the avatar
// absorbs the shot.
func (a *Arena) opponentShoot(o *Opponent, dist float64) {
	if dist <= 0 {
		return
	}

	eye := o.Position.Add(mgl64.Vec3{0, shotEyeHeight, 0})
	chest := a.Avatar.Position.Add(mgl64.Vec3{0, shotChestHeight, 0})
	dir := chest.Sub(eye).Normalize().Add(a.jitter(shotSpread)).Normalize()

	hit := voxel.Cast(a.Grid, eye, dir, shotRange)
	if hit.Hit && hit.Distance <= dist-1 {
		return
	}

	a.DamageAvatar(shotBaseDamage+a.rng.Float64()*shotDamageJitter, o.sourceID())
	a.ScreenShake = 0.5

	a.emitParticle(Particle{
		Position: eye.Add(dir.Mul(0.5)),
		Velocity: dir.Mul(5),
		Life:     0.2,
		MaxLife:  0.2,
		Color:    "#FFD700",
		Size:     0.3,
	})
}

// buildWall stacks red blocks two cells ahead of the opponent, filling only
// empty cells.
func (a *Arena) buildWall(o *Opponent) {
	bx := int(math.Floor(o.Position.X() + math.Cos(o.Yaw)*buildDistance))
	bz := int(math.Floor(o.Position.Z() + math.Sin(o.Yaw)*buildDistance))
	by := int(math.Floor(o.Position.Y()))

	placed := 0
	for h := 0; h < wallHeight; h++ {
		if a.Grid.At(bx, by+h, bz) == voxel.Air {
			a.Grid.Put(bx, by+h, bz, voxel.Red)
			placed++
		}
	}
	if placed > 0 {
		a.emit(EventTypeBlockPlaced, o.sourceID(), BlockPayload{
			Source: o.sourceID(),
			X:      bx, Y: by, Z: bz,
			Block: voxel.Red.String(),
			Count: placed,
		})
	}
}

// stepOpponents integrates opponent physics and the reactive jump.
func (a *Arena) stepOpponents(dt float64) {
	size := a.Grid.Size()

	for _, o := range a.Opponents {
		physics.ApplyGravity(&o.Body, dt)
		physics.Integrate(a.Grid, &o.Body, physics.DefaultHull, dt)
		physics.Settle(a.Grid, &o.Body, physics.DefaultHull)

		ahead := o.Position.Add(mgl64.Vec3{math.Cos(o.Yaw) * jumpLookahead, jumpLookahead, math.Sin(o.Yaw) * jumpLookahead})
		if a.Grid.Get(ahead.X(), ahead.Y(), ahead.Z()).Solid() {
			physics.Jump(&o.Body)
		}

		physics.ClampToWorld(&o.Body, size)
		if physics.OutOfWorld(&o.Body) {
			o.Position[1] = respawnHeight
		}
	}
}
