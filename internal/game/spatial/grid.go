// Package spatial provides a bucket grid over the horizontal (x, z) plane of
// the arena, used as the broad phase for proximity queries such as loot pickup.
//
// Entities are stored as integer indices into the caller's slice, not pointers,
// so a rebuild every tick costs no allocations once the buckets have grown.
package spatial

import (
	"math"
)

// SpatialGrid buckets entity indices by the cell their (x, z) position falls in.
// Positions outside the covered area are clamped into the border cells.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col]),
// where col follows x and row follows z.
type SpatialGrid struct {
	cellSize    float64
	invCellSize float64 // 1/cellSize for faster division
	cols, rows  int
	cells       [][]uint32
	scratch     []uint32 // reusable buffer for query results
}

// NewSpatialGrid creates a grid covering [0, width) × [0, depth).
// cellSize should be at least the largest query radius.
// expected sizes the initial bucket capacity.
func NewSpatialGrid(width, depth, cellSize float64, expected int) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(depth / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	perCell := expected / len(cells)
	if perCell < 2 {
		perCell = 2
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &SpatialGrid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 32),
	}
}

// Clear empties every bucket while keeping its capacity.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds entity id at horizontal position (x, z).
func (g *SpatialGrid) Insert(id uint32, x, z float64) {
	idx := g.cellIndex(x, z)
	g.cells[idx] = append(g.cells[idx], id)
}

func (g *SpatialGrid) clampCol(col int) int {
	if col < 0 {
		return 0
	}
	if col >= g.cols {
		return g.cols - 1
	}
	return col
}

func (g *SpatialGrid) clampRow(row int) int {
	if row < 0 {
		return 0
	}
	if row >= g.rows {
		return g.rows - 1
	}
	return row
}

func (g *SpatialGrid) cellIndex(x, z float64) int {
	col := g.clampCol(int(math.Floor(x * g.invCellSize)))
	row := g.clampRow(int(math.Floor(z * g.invCellSize)))
	return row*g.cols + col
}

// QueryRadius returns every entity id whose bucket intersects the square of
// half-width radius around (cx, cz).
//
// IMPORTANT: The returned slice is reused on subsequent calls.
//
// Candidates may lie outside the radius; callers do the exact distance check.
func (g *SpatialGrid) QueryRadius(cx, cz, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol := g.clampCol(int(math.Floor((cx - radius) * g.invCellSize)))
	maxCol := g.clampCol(int(math.Floor((cx + radius) * g.invCellSize)))
	minRow := g.clampRow(int(math.Floor((cz - radius) * g.invCellSize)))
	maxRow := g.clampRow(int(math.Floor((cz + radius) * g.invCellSize)))

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	return g.scratch
}

// GridStats contains grid occupancy, reported by GET /api/stats.
type GridStats struct {
	Cols           int     `json:"cols"`
	Rows           int     `json:"rows"`
	CellSize       float64 `json:"cellSize"`
	TotalCells     int     `json:"totalCells"`
	NonEmptyCells  int     `json:"nonEmptyCells"`
	TotalEntities  int     `json:"totalEntities"`
	MaxInCell      int     `json:"maxInCell"`
	AvgPerNonEmpty float64 `json:"avgPerNonEmpty"`
}

// Stats returns occupancy statistics.
func (g *SpatialGrid) Stats() GridStats {
	stats := GridStats{
		Cols:       g.cols,
		Rows:       g.rows,
		CellSize:   g.cellSize,
		TotalCells: len(g.cells),
	}
	for _, cell := range g.cells {
		n := len(cell)
		stats.TotalEntities += n
		if n > stats.MaxInCell {
			stats.MaxInCell = n
		}
		if n > 0 {
			stats.NonEmptyCells++
		}
	}
	if stats.NonEmptyCells > 0 {
		stats.AvgPerNonEmpty = float64(stats.TotalEntities) / float64(stats.NonEmptyCells)
	}
	return stats
}
