// Package physics moves bodies through the voxel world.
//
// Motion is resolved one axis at a time (x, then z, then y) against an
// axis-aligned hull. A blocked axis is reverted and its velocity zeroed, which
// lets bodies slide along walls. Corner snagging that results from the fixed
// axis order is accepted behavior.
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxel-royale/internal/game/voxel"
)

const (
	Gravity     = -15.0 // Units/s², applied by callers before Integrate
	JumpImpulse = 7.0
	MoveSpeed   = 6.0 // Avatar horizontal speed

	groundSample = 0.1 // How far below the feet Settle samples for ground
	worldMargin  = 1.0 // Bodies stay this far from the horizontal edges
)

// Hull is the collision box of a body: a square footprint of half-width
// Radius extending Height upward from the feet.
type Hull struct {
	Radius float64
	Height float64
}

// DefaultHull is shared by the avatar and every opponent.
var DefaultHull = Hull{Radius: 0.3, Height: 1.8}

// Body is a mobile entity's physical state. Position is the center of the feet.
type Body struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	OnGround bool
}

// ApplyGravity accelerates the body downward for one step.
func ApplyGravity(b *Body, dt float64) {
	b.Velocity[1] += Gravity * dt
}

// Integrate advances b by its velocity for dt seconds, resolving each axis
// separately against the grid.
func Integrate(g *voxel.Grid, b *Body, hull Hull, dt float64) {
	if dt <= 0 {
		return
	}

	for _, axis := range [2]int{0, 2} {
		candidate := b.Position
		candidate[axis] += b.Velocity[axis] * dt
		if Colliding(g, candidate, hull) {
			b.Velocity[axis] = 0
			continue
		}
		b.Position = candidate
	}

	candidate := b.Position
	candidate[1] += b.Velocity[1] * dt
	if !Colliding(g, candidate, hull) {
		b.Position = candidate
		return
	}

	if b.Velocity[1] < 0 {
		land(g, b, hull, candidate[1])
	}
	b.Velocity[1] = 0
}

// land places a descending body on the lowest free integer height between the
// blocked candidate and where it started. If every such height is blocked the
// body keeps its position.
func land(g *voxel.Grid, b *Body, hull Hull, blockedY float64) {
	limit := math.Ceil(b.Position.Y())
	for y := math.Floor(blockedY) + 1; y <= limit; y++ {
		p := b.Position
		p[1] = y
		if !Colliding(g, p, hull) {
			b.Position = p
			return
		}
	}
}

// Colliding reports whether a hull with its feet at pos overlaps any solid cell.
// Every cell the box touches is checked, so tall hulls detect ceilings.
func Colliding(g *voxel.Grid, pos mgl64.Vec3, hull Hull) bool {
	minX, maxX := cellSpan(pos.X()-hull.Radius, pos.X()+hull.Radius)
	minZ, maxZ := cellSpan(pos.Z()-hull.Radius, pos.Z()+hull.Radius)
	minY, maxY := cellSpan(pos.Y(), pos.Y()+hull.Height)

	for y := minY; y <= maxY; y++ {
		for z := minZ; z <= maxZ; z++ {
			for x := minX; x <= maxX; x++ {
				if g.At(x, y, z).Solid() {
					return true
				}
			}
		}
	}
	return false
}

// Occupies reports whether a hull with its feet at pos touches cell (x, y, z),
// using the same cell coverage as Colliding.
func Occupies(pos mgl64.Vec3, hull Hull, x, y, z int) bool {
	minX, maxX := cellSpan(pos.X()-hull.Radius, pos.X()+hull.Radius)
	minZ, maxZ := cellSpan(pos.Z()-hull.Radius, pos.Z()+hull.Radius)
	minY, maxY := cellSpan(pos.Y(), pos.Y()+hull.Height)
	return x >= minX && x <= maxX && y >= minY && y <= maxY && z >= minZ && z <= maxZ
}

// cellSpan returns the integer cells that the open interval (lo, hi) overlaps.
func cellSpan(lo, hi float64) (int, int) {
	first := int(math.Floor(lo))
	last := int(math.Ceil(hi)) - 1
	if last < first {
		last = first
	}
	return first, last
}

// Settle derives the ground flag from the block just below the feet. A body
// still falling onto that block stops and is snapped to its top face.
func Settle(g *voxel.Grid, b *Body, hull Hull) {
	feetY := b.Position.Y() - groundSample
	b.OnGround = g.Get(b.Position.X(), feetY, b.Position.Z()).Solid()
	if !b.OnGround || b.Velocity.Y() >= 0 {
		return
	}

	b.Velocity[1] = 0
	top := b.Position
	top[1] = math.Floor(feetY) + 1
	if !Colliding(g, top, hull) {
		b.Position = top
	}
}

// Jump gives a grounded body the jump impulse. It reports whether it jumped.
func Jump(b *Body) bool {
	if !b.OnGround {
		return false
	}
	b.Velocity[1] = JumpImpulse
	b.OnGround = false
	return true
}

// ClampToWorld keeps the body's footprint inside [1, size-2] on x and z.
func ClampToWorld(b *Body, size int) {
	hi := float64(size) - 1 - worldMargin
	b.Position[0] = mgl64.Clamp(b.Position.X(), worldMargin, hi)
	b.Position[2] = mgl64.Clamp(b.Position.Z(), worldMargin, hi)
}

// OutOfWorld reports whether the body has fallen below the bottom of the grid.
func OutOfWorld(b *Body) bool {
	return b.Position.Y() < 0
}
