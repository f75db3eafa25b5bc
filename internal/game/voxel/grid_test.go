package voxel

import (
	"testing"
)

// TestGridOutOfBounds verifies reads outside the volume are air and writes are dropped
func TestGridOutOfBounds(t *testing.T) {
	g := NewGrid(8, 4)
	for x := 0; x < 8; x++ {
		for z := 0; z < 8; z++ {
			g.Put(x, 0, z, Stone)
		}
	}
	before := g.CopyCells(nil)
	rev := g.Revision()

	coords := []struct {
		name    string
		x, y, z float64
	}{
		{"negative x", -1, 0, 0},
		{"negative fractional x", -0.5, 0, 0},
		{"x at size", 8, 0, 0},
		{"negative y", 0, -0.01, 0},
		{"y at height", 0, 4, 0},
		{"z at size", 0, 0, 8},
		{"far away", 1e6, -1e6, 1e6},
	}

	for _, c := range coords {
		t.Run(c.name, func(t *testing.T) {
			if b := g.Get(c.x, c.y, c.z); b != Air {
				t.Errorf("Get(%v,%v,%v) = %v, want air", c.x, c.y, c.z, b)
			}
			g.Set(c.x, c.y, c.z, Red)
		})
	}

	after := g.CopyCells(nil)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("Out-of-bounds write changed cell %d", i)
		}
	}
	if g.Revision() != rev {
		t.Errorf("Out-of-bounds writes should not bump revision")
	}
}

// TestGridFloorsFractionalCoordinates verifies fractional points address their containing cell
func TestGridFloorsFractionalCoordinates(t *testing.T) {
	g := NewGrid(8, 8)

	g.Set(1.7, 2.2, 3.9, Wood)
	if g.At(1, 2, 3) != Wood {
		t.Fatalf("Set should floor to cell (1,2,3)")
	}
	if g.Get(1.01, 2.99, 3.0) != Wood {
		t.Errorf("Get inside the same cell should return wood")
	}
	if g.Get(2.0, 2.5, 3.5) != Air {
		t.Errorf("Neighboring cell should still be air")
	}
}

// TestGridIndexBijective verifies every valid cell maps to a distinct slot
func TestGridIndexBijective(t *testing.T) {
	g := NewGrid(5, 3)
	seen := make(map[int]bool)

	for y := 0; y < 3; y++ {
		for z := 0; z < 5; z++ {
			for x := 0; x < 5; x++ {
				idx := g.index(x, y, z)
				if idx < 0 || idx >= len(g.cells) {
					t.Fatalf("index(%d,%d,%d) = %d out of range", x, y, z, idx)
				}
				if seen[idx] {
					t.Fatalf("index(%d,%d,%d) = %d collides", x, y, z, idx)
				}
				seen[idx] = true
			}
		}
	}
	if len(seen) != len(g.cells) {
		t.Errorf("Expected %d distinct indices, got %d", len(g.cells), len(seen))
	}
}

// TestGridRevision verifies only effective writes bump the revision
func TestGridRevision(t *testing.T) {
	g := NewGrid(4, 4)

	g.Put(1, 1, 1, Stone)
	r1 := g.Revision()
	g.Put(1, 1, 1, Stone)
	if g.Revision() != r1 {
		t.Error("Rewriting the same block should not bump revision")
	}
	g.Put(1, 1, 1, Air)
	if g.Revision() == r1 {
		t.Error("Clearing a block should bump revision")
	}
}

// TestCopyCellsDoesNotAlias verifies snapshots are independent of the live grid
func TestCopyCellsDoesNotAlias(t *testing.T) {
	g := NewGrid(4, 4)
	g.Put(0, 0, 0, Stone)

	cells := g.CopyCells(nil)
	g.Put(0, 0, 0, Air)

	if cells[0] != Stone {
		t.Error("Copied cells should not observe later writes")
	}
}

// TestSurfaceAt verifies the highest solid cell is reported
func TestSurfaceAt(t *testing.T) {
	g := NewGrid(4, 10)
	g.Put(2, 0, 2, Stone)
	g.Put(2, 6, 2, Leaves)

	if s := g.SurfaceAt(2, 2); s != 6 {
		t.Errorf("Expected surface 6, got %d", s)
	}
	if s := g.SurfaceAt(0, 0); s != -1 {
		t.Errorf("Expected empty column to report -1, got %d", s)
	}
	if s := g.SurfaceAt(-3, 0); s != -1 {
		t.Errorf("Expected out-of-bounds column to report -1, got %d", s)
	}
}

// TestBlockTable verifies the block table is exhaustive and cycling stays in range
func TestBlockTable(t *testing.T) {
	if Air.Solid() {
		t.Error("Air must not be solid")
	}
	for id := Grass; int(id) < BlockCount; id++ {
		if !id.Solid() {
			t.Errorf("Block %d should be solid", id)
		}
		if id.Info().Name == "" || id.Info().Color == "" {
			t.Errorf("Block %d is missing presentation info", id)
		}
	}

	b := Blue
	for i := 0; i < 25; i++ {
		b = b.Next()
		if b < Grass || b > Snow {
			t.Fatalf("Next() left the placeable range: %d", b)
		}
	}
	if Snow.Next() != Grass {
		t.Errorf("Snow.Next() = %v, want grass", Snow.Next())
	}
	if Block(200).Info() != blockTable[Stone] {
		t.Error("Unknown block ids should fall back to stone")
	}
}
