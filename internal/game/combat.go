package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxel-royale/internal/game/physics"
	"voxel-royale/internal/game/voxel"
)

const (
	buildCost      = 10
	editReach      = 6.0
	destroyReward  = 5
	hitScore       = 10
	bodyCenter     = 0.9 // Height of the opponent hit sphere above its feet
	hitRadiusSq    = 0.6
	fireShake      = 0.3
	avatarSource   = "avatar"
	placeParticles = 0.3 // Lifetime of the placement puff
)

// Action is a discrete, edge-triggered request resolved in the combat stage.
type Action uint8

const (
	ActionFire Action = iota
	ActionDestroy
)

func (act Action) String() string {
	switch act {
	case ActionFire:
		return "fire"
	case ActionDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// jitter returns a vector with each component uniform in [-spread/2, spread/2).
func (a *Arena) jitter(spread float64) mgl64.Vec3 {
	return mgl64.Vec3{
		(a.rng.Float64() - 0.5) * spread,
		(a.rng.Float64() - 0.5) * spread,
		(a.rng.Float64() - 0.5) * spread,
	}
}

// Fire resolves the avatar's primary action. In build mode it places a block,
// otherwise it fires the equipped weapon when the shot interval has elapsed
// and enough ammo remains.
func (a *Arena) Fire() {
	if a.Over {
		return
	}
	av := &a.Avatar
	if av.BuildMode {
		a.placeBlock()
		return
	}

	w := av.Weapon.Def()
	if a.Time-av.LastShot < w.Interval || av.Ammo < w.AmmoPerShot {
		return
	}
	av.LastShot = a.Time
	av.Ammo -= w.AmmoPerShot
	a.ScreenShake = fireShake

	origin := av.Eye()
	for p := 0; p < w.Pellets; p++ {
		dir := av.LookDir().Add(a.jitter(w.Spread)).Normalize()
		terrain := voxel.Cast(a.Grid, origin, dir, w.Range)

		if o, point := a.firstOpponentOnRay(origin, dir, w.Range, terrain); o != nil {
			o.Health -= w.Damage
			a.Score += hitScore
			a.burst(point, hitSparks, "")
			a.emit(EventTypeDamage, avatarSource, DamagePayload{
				Source:    avatarSource,
				Target:    o.sourceID(),
				Amount:    w.Damage,
				Remaining: math.Max(o.Health, 0),
				Weapon:    w.ID,
			})
			continue
		}

		if terrain.Hit {
			a.impactSparks(terrain.Position, terrain.Normal)
		}
	}
}

// firstOpponentOnRay returns the nearest live opponent whose hit sphere the
// ray passes through before range and before the terrain hit, with the point
// of closest approach.
func (a *Arena) firstOpponentOnRay(origin, dir mgl64.Vec3, rng float64, terrain voxel.Hit) (*Opponent, mgl64.Vec3) {
	var (
		best      *Opponent
		bestT     = math.Inf(1)
		bestPoint mgl64.Vec3
	)

	for _, o := range a.Opponents {
		if o.Health <= 0 {
			continue
		}
		center := o.Position.Add(mgl64.Vec3{0, bodyCenter, 0})
		t := center.Sub(origin).Dot(dir)
		if t < 0 || t > rng {
			continue
		}
		if terrain.Hit && t >= terrain.Distance {
			continue
		}
		closest := origin.Add(dir.Mul(t))
		if d := closest.Sub(center); d.Dot(d) >= hitRadiusSq {
			continue
		}
		if t < bestT {
			best, bestT, bestPoint = o, t, closest
		}
	}
	return best, bestPoint
}

// placeBlock fills the empty cell on the near face of the targeted block with
// the selected block. It costs materials and refuses cells the avatar occupies.
func (a *Arena) placeBlock() {
	av := &a.Avatar
	if av.Materials < buildCost {
		return
	}

	hit := voxel.Cast(a.Grid, av.Eye(), av.LookDir(), editReach)
	if !hit.Hit {
		return
	}
	c := hit.AdjacentCell()
	if !a.Grid.InBounds(c[0], c[1], c[2]) || a.Grid.At(c[0], c[1], c[2]) != voxel.Air {
		return
	}
	if a.entombs(c) {
		return
	}

	a.Grid.Put(c[0], c[1], c[2], av.SelectedBlock)
	av.Materials -= buildCost

	center := mgl64.Vec3{float64(c[0]) + 0.5, float64(c[1]) + 0.5, float64(c[2]) + 0.5}
	a.emitParticle(Particle{
		Position: center,
		Velocity: mgl64.Vec3{0, 2, 0},
		Life:     placeParticles,
		MaxLife:  placeParticles,
		Color:    "#fff",
		Size:     0.5,
	})
	a.emit(EventTypeBlockPlaced, avatarSource, BlockPayload{
		Source: avatarSource,
		X:      c[0], Y: c[1], Z: c[2],
		Block: av.SelectedBlock.String(),
		Count: 1,
	})
}

// entombs reports whether a block at cell c would intersect the avatar or
// any opponent.
func (a *Arena) entombs(c [3]int) bool {
	if physics.Occupies(a.Avatar.Position, physics.DefaultHull, c[0], c[1], c[2]) {
		return true
	}
	for _, o := range a.Opponents {
		if physics.Occupies(o.Position, physics.DefaultHull, c[0], c[1], c[2]) {
			return true
		}
	}
	return false
}

// DestroyBlock clears the targeted block within reach and credits materials.
func (a *Arena) DestroyBlock() {
	if a.Over {
		return
	}
	av := &a.Avatar

	hit := voxel.Cast(a.Grid, av.Eye(), av.LookDir(), editReach)
	if !hit.Hit {
		return
	}
	c := hit.Cell
	block := a.Grid.At(c[0], c[1], c[2])
	if !block.Solid() {
		return
	}

	a.Grid.Put(c[0], c[1], c[2], voxel.Air)
	av.Materials += destroyReward

	center := mgl64.Vec3{float64(c[0]) + 0.5, float64(c[1]) + 0.5, float64(c[2]) + 0.5}
	a.burst(center, debris, "")
	a.emit(EventTypeBlockDestroyed, avatarSource, BlockPayload{
		Source: avatarSource,
		X:      c[0], Y: c[1], Z: c[2],
		Block: block.String(),
		Count: 1,
	})
}

// QueueAction defers a discrete action to the next combat stage. Requests
// beyond the per-tick limit are dropped.
func (a *Arena) QueueAction(act Action) bool {
	if a.Over || len(a.pending) >= a.limits.MaxActions {
		return false
	}
	a.pending = append(a.pending, act)
	return true
}

// stepCombat resolves queued actions, then auto-fire while the fire intent
// is held in weapon mode.
func (a *Arena) stepCombat(_ float64) {
	for _, act := range a.pending {
		switch act {
		case ActionFire:
			a.Fire()
		case ActionDestroy:
			a.DestroyBlock()
		}
	}
	a.pending = a.pending[:0]

	if a.intents.Has(IntentFire) && !a.Avatar.BuildMode {
		a.Fire()
	}
}
