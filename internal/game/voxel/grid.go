// Package voxel holds the block world of a match: a dense 3-D grid, the
// deterministic terrain that fills it, and the DDA raycaster every shot and
// block edit resolves through.
//
// Cells are stored flat with index x + z*size + y*size*size so a horizontal
// layer is contiguous in memory.
package voxel

import (
	"math"
)

// Grid is a fixed-size voxel volume of size × height × size cells.
// Reads outside the volume return Air and writes outside it are dropped.
type Grid struct {
	size     int
	height   int
	cells    []Block
	revision uint64 // bumped on every effective write
}

// NewGrid allocates an all-air grid.
func NewGrid(size, height int) *Grid {
	if size < 1 {
		size = 1
	}
	if height < 1 {
		height = 1
	}
	return &Grid{
		size:   size,
		height: height,
		cells:  make([]Block, size*size*height),
	}
}

// Size returns the horizontal extent of the grid.
func (g *Grid) Size() int { return g.size }

// Height returns the vertical extent of the grid.
func (g *Grid) Height() int { return g.height }

// Revision returns a counter that changes whenever a cell changes.
func (g *Grid) Revision() uint64 { return g.revision }

// InBounds reports whether the integer cell lies inside the grid.
func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && x < g.size && z >= 0 && z < g.size && y >= 0 && y < g.height
}

func (g *Grid) index(x, y, z int) int {
	return x + z*g.size + y*g.size*g.size
}

// Get returns the block containing the point (x, y, z).
func (g *Grid) Get(x, y, z float64) Block {
	return g.At(int(math.Floor(x)), int(math.Floor(y)), int(math.Floor(z)))
}

// Set writes b into the cell containing the point (x, y, z).
func (g *Grid) Set(x, y, z float64, b Block) {
	g.Put(int(math.Floor(x)), int(math.Floor(y)), int(math.Floor(z)), b)
}

// At returns the block at an integer cell.
func (g *Grid) At(x, y, z int) Block {
	if !g.InBounds(x, y, z) {
		return Air
	}
	return g.cells[g.index(x, y, z)]
}

// Put writes b into an integer cell.
func (g *Grid) Put(x, y, z int, b Block) {
	if !g.InBounds(x, y, z) {
		return
	}
	idx := g.index(x, y, z)
	if g.cells[idx] == b {
		return
	}
	g.cells[idx] = b
	g.revision++
}

// CopyCells copies every cell into dst, growing it when needed, and returns it.
// The result never aliases the grid's storage.
func (g *Grid) CopyCells(dst []Block) []Block {
	if cap(dst) < len(g.cells) {
		dst = make([]Block, len(g.cells))
	}
	dst = dst[:len(g.cells)]
	copy(dst, g.cells)
	return dst
}

// SurfaceAt returns the y of the highest solid cell in column (x, z), or -1
// when the column is empty or outside the grid.
func (g *Grid) SurfaceAt(x, z int) int {
	for y := g.height - 1; y >= 0; y-- {
		if g.At(x, y, z).Solid() {
			return y
		}
	}
	return -1
}
