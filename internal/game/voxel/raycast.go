package voxel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// farBoundary stands in for an infinite ray parameter on axes the ray never
// advances along.
const farBoundary = 1e10

// Hit is the result of a single-hit ray march.
type Hit struct {
	Hit      bool
	Position mgl64.Vec3 // Point where the ray entered the hit cell
	Normal   mgl64.Vec3 // Axis-aligned face normal pointing back toward the origin
	Cell     [3]int     // Integer coordinates of the hit cell
	Distance float64
}

// AdjacentCell returns the empty-side neighbor of the hit cell, the cell a
// block placement fills.
func (h Hit) AdjacentCell() [3]int {
	return [3]int{
		h.Cell[0] + int(h.Normal[0]),
		h.Cell[1] + int(h.Normal[1]),
		h.Cell[2] + int(h.Normal[2]),
	}
}

// Cast marches a ray through the grid with incremental DDA traversal and
// stops at the first solid cell. dir must be a unit vector.
//
// A ray that starts inside a solid cell hits immediately at distance 0 with a
// zero normal.
func Cast(g *Grid, origin, dir mgl64.Vec3, maxDist float64) Hit {
	var (
		cell   [3]int
		step   [3]int
		tDelta [3]float64
		tMax   [3]float64
	)

	for axis := 0; axis < 3; axis++ {
		cell[axis] = int(math.Floor(origin[axis]))
		step[axis] = 1
		if dir[axis] < 0 {
			step[axis] = -1
		}

		if dir[axis] == 0 {
			tDelta[axis] = farBoundary
			tMax[axis] = farBoundary
			continue
		}
		tDelta[axis] = math.Abs(1 / dir[axis])
		if dir[axis] > 0 {
			tMax[axis] = (float64(cell[axis]) + 1 - origin[axis]) * tDelta[axis]
		} else {
			tMax[axis] = (origin[axis] - float64(cell[axis])) * tDelta[axis]
		}
	}

	var normal mgl64.Vec3
	dist := 0.0

	// A unit ray crosses at most |dx|+|dy|+|dz| <= sqrt(3) boundaries per unit
	// of length; the cap only guards against non-unit input.
	maxSteps := int(math.Max(maxDist, 0)*3) + 4

	for i := 0; i < maxSteps; i++ {
		if g.At(cell[0], cell[1], cell[2]).Solid() {
			return Hit{
				Hit:      true,
				Position: origin.Add(dir.Mul(dist)),
				Normal:   normal,
				Cell:     cell,
				Distance: dist,
			}
		}

		axis := nextAxis(tMax)
		dist = tMax[axis]
		cell[axis] += step[axis]
		tMax[axis] += tDelta[axis]
		normal = mgl64.Vec3{}
		normal[axis] = float64(-step[axis])

		if dist > maxDist {
			break
		}
	}

	return Hit{
		Position: origin.Add(dir.Mul(maxDist)),
		Distance: maxDist,
	}
}

// nextAxis picks the axis whose next boundary crossing is closest. Ties go to
// z, then y, matching a strict less-than comparison chain.
func nextAxis(tMax [3]float64) int {
	if tMax[0] < tMax[1] {
		if tMax[0] < tMax[2] {
			return 0
		}
		return 2
	}
	if tMax[1] < tMax[2] {
		return 1
	}
	return 2
}
