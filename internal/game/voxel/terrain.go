package voxel

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	minTerrainHeight = 2
	maxTerrainHeight = 20

	flatRadius    = 15.0 // Center disc kept at least flatFloor high
	flatFloor     = 5.0
	dirtLayers    = 3
	treeTrunk     = 5
	fortCount     = 8
	fortWidth     = 5
	fortHeight    = 4
	spawnAttempts = 100
	spawnMargin   = 10
)

// HeightAt returns the surface height of column (x, z) in a world of the given
// size. It is a pure function: physics, spawn search and rendering recompute
// it outside the grid and must agree with the generated terrain.
func HeightAt(x, z, size int) int {
	fx, fz := float64(x), float64(z)

	h := 3.0
	h += math.Sin(fx*0.05) * 3
	h += math.Cos(fz*0.07) * 2
	h += math.Sin(fx*0.02+fz*0.03) * 4
	h += math.Cos(fx*0.1) * math.Sin(fz*0.08) * 2

	c := float64(size) / 2
	if math.Hypot(fx-c, fz-c) < flatRadius {
		h = math.Max(h, flatFloor)
	}

	height := int(math.Floor(h + 6))
	if height < minTerrainHeight {
		return minTerrainHeight
	}
	if height > maxTerrainHeight {
		return maxTerrainHeight
	}
	return height
}

// Generate builds the terrain of a new match: layered columns, then trees,
// then forts stamped on top.
func Generate(size, height int, rng *rand.Rand) *Grid {
	g := NewGrid(size, height)

	for x := 0; x < size; x++ {
		for z := 0; z < size; z++ {
			h := HeightAt(x, z, size)
			for y := 0; y < h && y < height; y++ {
				switch {
				case y == h-1:
					g.Put(x, y, z, Grass)
				case y >= h-1-dirtLayers:
					g.Put(x, y, z, Dirt)
				default:
					g.Put(x, y, z, Stone)
				}
			}
		}
	}

	if size > 10 {
		for i := 0; i < size*2; i++ {
			tx := rng.Intn(size-10) + 5
			tz := rng.Intn(size-10) + 5
			plantTree(g, tx, tz)
		}
	}

	if size > 20 {
		for i := 0; i < fortCount; i++ {
			fx := rng.Intn(size-20) + 10
			fz := rng.Intn(size-20) + 10
			buildFort(g, fx, fz, HeightAt(fx, fz, size))
		}
	}

	return g
}

// plantTree stamps a wood trunk with a diamond leaf cluster. Columns that are
// too low or too close to the ceiling are skipped.
func plantTree(g *Grid, tx, tz int) {
	th := HeightAt(tx, tz, g.size)
	if th <= 2 || th >= g.height-8 {
		return
	}

	for y := th; y < th+treeTrunk; y++ {
		g.Put(tx, y, tz, Wood)
	}

	for dx := -2; dx <= 2; dx++ {
		for dz := -2; dz <= 2; dz++ {
			for dy := 3; dy <= 6; dy++ {
				if abs(dx)+abs(dz)+abs(dy-4) >= 5 {
					continue
				}
				lx, ly, lz := tx+dx, th+dy, tz+dz
				if g.At(lx, ly, lz) == Air {
					g.Put(lx, ly, lz, Leaves)
				}
			}
		}
	}
}

// buildFort stamps a hollow 5x5x4 box: stone floor and walls, orange roof,
// a two-high door on the -z wall and a window in the middle of every wall.
func buildFort(g *Grid, x, z, groundY int) {
	for dx := 0; dx < fortWidth; dx++ {
		for dz := 0; dz < fortWidth; dz++ {
			for dy := 0; dy < fortHeight; dy++ {
				edge := dx == 0 || dx == fortWidth-1 || dz == 0 || dz == fortWidth-1
				if !edge && dy != 0 && dy != fortHeight-1 {
					continue
				}
				if dx == 2 && dz == 0 && dy < 2 {
					continue // door
				}
				if dy == 2 && edge && (dx == 2 || dz == 2) {
					continue // window
				}
				b := Stone
				if dy == fortHeight-1 {
					b = Orange
				}
				g.Put(x+dx, groundY+dy, z+dz, b)
			}
		}
	}
}

// FindSpawnPoint samples surface cells away from the map edge and returns the
// first one with two free cells of headroom. After spawnAttempts misses it
// falls back to a fixed point above the map center.
func FindSpawnPoint(g *Grid, rng *rand.Rand) mgl64.Vec3 {
	span := g.size - 2*spawnMargin
	if span > 0 {
		for i := 0; i < spawnAttempts; i++ {
			x := rng.Intn(span) + spawnMargin
			z := rng.Intn(span) + spawnMargin
			h := HeightAt(x, z, g.size)
			if g.At(x, h, z) == Air && g.At(x, h+1, z) == Air {
				return mgl64.Vec3{float64(x) + 0.5, float64(h) + 0.1, float64(z) + 0.5}
			}
		}
	}
	return FallbackSpawn(g)
}

// FallbackSpawn is the spawn location used when the search gives up.
func FallbackSpawn(g *Grid) mgl64.Vec3 {
	return mgl64.Vec3{float64(g.size) / 2, 15, float64(g.size) / 2}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
