package game

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"voxel-royale/internal/game/physics"
	"voxel-royale/internal/game/voxel"
)

const (
	eyeHeight     = 1.6
	maxPitch      = 1.2 // Radians above or below the horizon
	respawnHeight = 20.0
	fallDamage    = 30.0
)

// Intent is the set of inputs held during a tick.
type Intent uint8

const (
	IntentForward Intent = 1 << iota
	IntentBack
	IntentLeft
	IntentRight
	IntentJump
	IntentFire // Auto-fire while held, weapon mode only
)

var intentNames = map[string]Intent{
	"forward": IntentForward,
	"back":    IntentBack,
	"left":    IntentLeft,
	"right":   IntentRight,
	"jump":    IntentJump,
	"fire":    IntentFire,
}

// Has reports whether every bit of o is held.
func (i Intent) Has(o Intent) bool {
	return i&o == o
}

// ParseIntents folds intent names into a set. Unknown names are returned
// separately so callers can reject them.
func ParseIntents(names []string) (Intent, []string) {
	var set Intent
	var unknown []string
	for _, n := range names {
		if in, ok := intentNames[strings.ToLower(n)]; ok {
			set |= in
			continue
		}
		unknown = append(unknown, n)
	}
	return set, unknown
}

// Avatar is the controlled player.
type Avatar struct {
	physics.Body

	Yaw   float64
	Pitch float64

	Health    float64
	MaxHealth float64
	Shield    float64
	MaxShield float64
	Ammo      int
	Materials int
	Kills     int

	Weapon        WeaponKind
	LastShot      float64 // Match time of the last shot
	BuildMode     bool
	SelectedBlock voxel.Block
	Invulnerable  bool
}

// Eye returns the point shots and block edits are cast from.
func (av *Avatar) Eye() mgl64.Vec3 {
	return av.Position.Add(mgl64.Vec3{0, eyeHeight, 0})
}

// LookDir returns the unit facing vector.
func (av *Avatar) LookDir() mgl64.Vec3 {
	return lookDir(av.Yaw, av.Pitch)
}

// SetLook updates the facing, clamping pitch to ±1.2 rad.
func (av *Avatar) SetLook(yaw, pitch float64) {
	if math.IsNaN(yaw) || math.IsInf(yaw, 0) {
		yaw = av.Yaw
	}
	if math.IsNaN(pitch) {
		pitch = av.Pitch
	}
	av.Yaw = yaw
	av.Pitch = mgl64.Clamp(pitch, -maxPitch, maxPitch)
}

func lookDir(yaw, pitch float64) mgl64.Vec3 {
	return mgl64.Vec3{
		math.Cos(yaw) * math.Cos(pitch),
		math.Sin(pitch),
		math.Sin(yaw) * math.Cos(pitch),
	}
}

// moveVector turns held movement intents into a unit horizontal direction
// relative to yaw. Opposing intents cancel out.
func moveVector(yaw float64, in Intent) mgl64.Vec3 {
	fwd := mgl64.Vec3{math.Cos(yaw), 0, math.Sin(yaw)}
	side := mgl64.Vec3{math.Cos(yaw - math.Pi/2), 0, math.Sin(yaw - math.Pi/2)}

	var v mgl64.Vec3
	if in.Has(IntentForward) {
		v = v.Add(fwd)
	}
	if in.Has(IntentBack) {
		v = v.Sub(fwd)
	}
	if in.Has(IntentLeft) {
		v = v.Add(side)
	}
	if in.Has(IntentRight) {
		v = v.Sub(side)
	}

	if l := v.Len(); l > 1e-9 {
		return v.Mul(1 / l)
	}
	return mgl64.Vec3{}
}

// DamageAvatar drains shield before health. Invulnerability skips it
// entirely. Health reaching zero ends the match as a loss.
func (a *Arena) DamageAvatar(amount float64, cause string) {
	av := &a.Avatar
	if av.Invulnerable || amount <= 0 || a.Over {
		return
	}

	absorbed := math.Min(av.Shield, amount)
	av.Shield -= absorbed
	rest := amount - absorbed
	av.Health -= rest
	a.ScreenShake = math.Max(a.ScreenShake, rest/20)

	a.emit(EventTypeDamage, cause, DamagePayload{
		Source:    cause,
		Target:    avatarSource,
		Amount:    amount,
		Remaining: math.Max(av.Health, 0),
		Shield:    av.Shield,
	})

	if av.Health <= 0 {
		av.Health = 0
		a.endMatch(false)
	}
}

// stepAvatar moves the avatar under the held intents.
func (a *Arena) stepAvatar(dt float64) {
	av := &a.Avatar

	move := moveVector(av.Yaw, a.intents)
	av.Velocity[0] = move.X() * physics.MoveSpeed
	av.Velocity[2] = move.Z() * physics.MoveSpeed

	physics.ApplyGravity(&av.Body, dt)
	if a.intents.Has(IntentJump) {
		physics.Jump(&av.Body)
	}

	physics.Integrate(a.Grid, &av.Body, physics.DefaultHull, dt)
	physics.Settle(a.Grid, &av.Body, physics.DefaultHull)
	physics.ClampToWorld(&av.Body, a.Grid.Size())

	if physics.OutOfWorld(&av.Body) {
		av.Position[1] = respawnHeight
		a.DamageAvatar(fallDamage, "fall")
	}
}
