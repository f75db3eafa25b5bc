// Package render draws read-only views of published match snapshots.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/fogleman/gg"

	"voxel-royale/internal/config"
	"voxel-royale/internal/game"
)

var (
	backgroundColor = color.RGBA{12, 12, 28, 255}
	zoneColor       = color.RGBA{255, 255, 255, 200}
	stormTint       = color.RGBA{120, 40, 160, 60}
	avatarColor     = color.RGBA{255, 255, 255, 255}
	healthColor     = color.RGBA{83, 255, 69, 255}
	shieldColor     = color.RGBA{52, 152, 219, 255}
	barBackground   = color.RGBA{51, 51, 51, 255}
)

// itemColors is keyed by game.ResourceKind name
var itemColors = map[string]color.RGBA{
	"health":    {46, 204, 113, 255},
	"shield":    {52, 152, 219, 255},
	"ammo":      {241, 196, 15, 255},
	"materials": {139, 105, 20, 255},
}

// Minimap renders a top-down view of a snapshot: terrain shaded by height,
// the safe zone, loot, opponents and the avatar with its facing.
type Minimap struct {
	cfg config.RenderConfig

	mu        sync.Mutex
	terrain   *image.RGBA // cached terrain layer
	cacheKey  string
	cacheRev  uint64
	cachePx   int
	renders   atomic.Uint64
	cacheHits atomic.Uint64
}

// NewMinimap creates a renderer
func NewMinimap(cfg config.RenderConfig) *Minimap {
	return &Minimap{cfg: cfg}
}

// ClampSize maps a requested edge length to a supported one. Zero or negative
// requests get the default size.
func (m *Minimap) ClampSize(requested int) int {
	if requested <= 0 {
		return m.cfg.MinimapSize
	}
	if m.cfg.MaxMinimapSize > 0 && requested > m.cfg.MaxMinimapSize {
		return m.cfg.MaxMinimapSize
	}
	return requested
}

// Render draws snap into a new size×size image. It only reads the snapshot.
func (m *Minimap) Render(snap *game.Snapshot, size int) image.Image {
	size = m.ClampSize(size)
	m.renders.Add(1)

	base := m.terrainLayer(snap, size)
	dc := gg.NewContextForRGBA(base)

	world := float64(snap.World.Size)
	if world <= 0 {
		return dc.Image()
	}
	scale := float64(size) / world

	drawZone(dc, snap.Zone, scale, float64(size))
	drawItems(dc, snap.Items, scale)
	drawOpponents(dc, snap.Opponents, scale)
	drawAvatar(dc, snap.Avatar, scale)
	drawBars(dc, snap.Avatar, float64(size))

	return dc.Image()
}

// EncodePNG renders snap and writes it as PNG
func (m *Minimap) EncodePNG(w io.Writer, snap *game.Snapshot, size int) error {
	img := m.Render(snap, size)
	dc := gg.NewContextForImage(img)
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode minimap: %w", err)
	}
	return nil
}

// SavePNG renders snap into a PNG file
func (m *Minimap) SavePNG(path string, snap *game.Snapshot, size int) error {
	img := m.Render(snap, size)
	dc := gg.NewContextForImage(img)
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save minimap %s: %w", path, err)
	}
	return nil
}

// GetStats returns renderer metrics for monitoring
func (m *Minimap) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"renders":   m.renders.Load(),
		"cacheHits": m.cacheHits.Load(),
	}
}

// terrainLayer returns a private copy of the terrain image for snap. The
// terrain is only redrawn when the world revision or output size changes.
func (m *Minimap) terrainLayer(snap *game.Snapshot, px int) *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := &snap.World
	if m.terrain == nil || m.cacheKey != snap.MatchID || m.cacheRev != w.Revision || m.cachePx != px {
		m.terrain = drawTerrain(w, px)
		m.cacheKey, m.cacheRev, m.cachePx = snap.MatchID, w.Revision, px
	} else {
		m.cacheHits.Add(1)
	}

	out := image.NewRGBA(m.terrain.Bounds())
	copy(out.Pix, m.terrain.Pix)
	return out
}

func drawTerrain(w *game.WorldSnapshot, px int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, px, px))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	if w.Size <= 0 || len(w.Cells) == 0 {
		return img
	}

	scale := float64(px) / float64(w.Size)
	for z := 0; z < w.Size; z++ {
		y0 := int(math.Floor(float64(z) * scale))
		y1 := int(math.Floor(float64(z+1) * scale))
		for x := 0; x < w.Size; x++ {
			block, top := w.Surface(x, z)
			if top < 0 {
				continue
			}
			x0 := int(math.Floor(float64(x) * scale))
			x1 := int(math.Floor(float64(x+1) * scale))
			c := shade(parseHexColor(block.Info().Color), top, w.Height)
			draw.Draw(img, image.Rect(x0, y0, x1, y1), &image.Uniform{c}, image.Point{}, draw.Src)
		}
	}
	return img
}

// shade darkens low columns so relief reads from above
func shade(c color.RGBA, top, height int) color.RGBA {
	if height <= 0 {
		return c
	}
	f := 0.55 + 0.45*float64(top+1)/float64(height)
	if f > 1 {
		f = 1
	}
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: 255,
	}
}

func drawZone(dc *gg.Context, z game.ZoneSnapshot, scale, size float64) {
	if z.Radius <= 0 {
		return
	}
	cx, cy, r := z.CenterX*scale, z.CenterZ*scale, z.Radius*scale

	// Storm outside the circle
	dc.SetFillRuleEvenOdd()
	dc.SetColor(stormTint)
	dc.DrawRectangle(0, 0, size, size)
	dc.DrawCircle(cx, cy, r)
	dc.Fill()
	dc.SetFillRuleWinding()

	dc.SetColor(zoneColor)
	dc.SetLineWidth(2)
	dc.DrawCircle(cx, cy, r)
	dc.Stroke()
}

func drawItems(dc *gg.Context, items []game.ItemSnapshot, scale float64) {
	half := math.Max(1.5, scale*0.3)
	for _, it := range items {
		c, ok := itemColors[it.Kind]
		if !ok {
			c = color.RGBA{255, 255, 255, 255}
		}
		dc.SetColor(c)
		dc.DrawRectangle(it.X*scale-half, it.Z*scale-half, 2*half, 2*half)
		dc.Fill()
	}
}

func drawOpponents(dc *gg.Context, opponents []game.OpponentSnapshot, scale float64) {
	radius := math.Max(2, scale*0.5)
	for _, o := range opponents {
		dc.SetColor(parseHexColor(o.Color))
		dc.DrawCircle(o.X*scale, o.Z*scale, radius)
		dc.Fill()
	}
}

func drawAvatar(dc *gg.Context, av game.AvatarSnapshot, scale float64) {
	x, y := av.X*scale, av.Z*scale
	radius := math.Max(3, scale*0.6)

	dc.SetColor(avatarColor)
	dc.DrawCircle(x, y, radius)
	dc.Fill()

	dc.SetLineWidth(2)
	dc.DrawLine(x, y, x+math.Cos(av.Yaw)*radius*2.5, y+math.Sin(av.Yaw)*radius*2.5)
	dc.Stroke()
}

// drawBars draws health and shield along the bottom edge
func drawBars(dc *gg.Context, av game.AvatarSnapshot, size float64) {
	margin := 6.0
	width := size/3 - margin
	height := math.Max(3, size/80)

	bar := func(row int, value, limit float64, c color.RGBA) {
		y := size - margin - float64(row+1)*(height+2)
		dc.SetColor(barBackground)
		dc.DrawRectangle(margin, y, width, height)
		dc.Fill()
		if limit <= 0 {
			return
		}
		frac := math.Max(0, math.Min(1, value/limit))
		dc.SetColor(c)
		dc.DrawRectangle(margin, y, width*frac, height)
		dc.Fill()
	}

	bar(0, av.Health, av.MaxHealth, healthColor)
	bar(1, av.Shield, av.MaxShield, shieldColor)
}

func parseHexColor(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}

	var r, g, b uint8
	fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{r, g, b, 255}
}
