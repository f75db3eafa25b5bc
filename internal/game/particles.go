package game

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxel-royale/internal/game/physics"
)

// particleGravity is the fraction of world gravity particles fall under.
const particleGravity = 0.5

// Particle is a short-lived cosmetic effect. Simulation logic never reads it.
type Particle struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Life     float64
	MaxLife  float64
	Color    string
	Size     float64
}

// burstSpec describes a randomized particle burst.
type burstSpec struct {
	Count   int
	Spread  float64 // Horizontal velocity range, centered on zero
	Lift    float64 // Upward velocity range [0, Lift)
	Life    float64
	Color   string
	Size    float64
	SizeVar float64 // Extra random size [0, SizeVar)
}

var (
	hitSparks = burstSpec{Count: 5, Spread: 5, Lift: 3, Life: 0.5, Color: "#e74c3c", Size: 0.2}
	debris    = burstSpec{Count: 8, Spread: 6, Lift: 4, Life: 0.6, Color: "#8B6914", Size: 0.2}
	deathPuff = burstSpec{Count: 15, Spread: 8, Lift: 6, Life: 1, Size: 0.3, SizeVar: 0.3}
)

func (a *Arena) emitParticle(p Particle) {
	if len(a.Particles) >= a.limits.MaxParticles {
		return // Silently drop
	}
	a.Particles = append(a.Particles, p)
}

// burst emits bs.Count particles at pos. A non-empty color replaces bs.Color.
func (a *Arena) burst(pos mgl64.Vec3, bs burstSpec, color string) {
	if color == "" {
		color = bs.Color
	}
	for i := 0; i < bs.Count; i++ {
		a.emitParticle(Particle{
			Position: pos,
			Velocity: mgl64.Vec3{
				(a.rng.Float64() - 0.5) * bs.Spread,
				a.rng.Float64() * bs.Lift,
				(a.rng.Float64() - 0.5) * bs.Spread,
			},
			Life:    bs.Life,
			MaxLife: bs.Life,
			Color:   color,
			Size:    bs.Size + a.rng.Float64()*bs.SizeVar,
		})
	}
}

// impactSparks bounce off a terrain hit along its normal.
func (a *Arena) impactSparks(pos, normal mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		a.emitParticle(Particle{
			Position: pos,
			Velocity: mgl64.Vec3{
				normal.X()*3 + (a.rng.Float64()-0.5)*3,
				normal.Y()*3 + a.rng.Float64()*2,
				normal.Z()*3 + (a.rng.Float64()-0.5)*3,
			},
			Life:    0.4,
			MaxLife: 0.4,
			Color:   "#aaa",
			Size:    0.15,
		})
	}
}

// stepEffects advances particles ballistically and drops expired ones
// (zero-allocation in-place filtering).
func (a *Arena) stepEffects(dt float64) {
	n := 0
	for _, p := range a.Particles {
		p.Position = p.Position.Add(p.Velocity.Mul(dt))
		p.Velocity[1] += physics.Gravity * particleGravity * dt
		p.Life -= dt

		if p.Life > 0 {
			a.Particles[n] = p
			n++
		}
	}
	a.Particles = a.Particles[:n]
}
