// Command worldgen generates an arena and writes its minimap as PNG.
// Useful for eyeballing terrain and fort placement for a given seed.
package main

import (
	"flag"
	"log"
	"time"

	"voxel-royale/internal/config"
	"voxel-royale/internal/game"
	"voxel-royale/internal/render"
)

func main() {
	seed := flag.Int64("seed", time.Now().UnixNano(), "terrain and spawn seed")
	out := flag.String("out", "arena.png", "output PNG path")
	size := flag.Int("size", 800, "image edge length in pixels")
	world := flag.Int("world", 0, "world size override (>= 32)")
	opponents := flag.Int("opponents", -1, "opponent count override")
	simulate := flag.Duration("simulate", 0, "simulated match time before rendering")
	flag.Parse()

	match := config.MatchFromEnv()
	if *world >= 32 {
		match.WorldSize = *world
	}
	if *opponents >= 0 {
		match.OpponentCount = *opponents
	}
	sim := config.DefaultSim()

	engine := game.NewEngineWithSeed(match, sim, config.DefaultLimits(), *seed)
	engine.ToggleInvulnerable()

	dt := 1.0 / float64(sim.TickRate)
	for t := 0.0; t < simulate.Seconds(); t += dt {
		engine.Step(dt)
	}

	snap := engine.Snapshot()
	renderCfg := config.DefaultRender()
	renderCfg.MaxMinimapSize = *size
	if err := render.NewMinimap(renderCfg).SavePNG(*out, snap, *size); err != nil {
		log.Fatalf("❌ %v", err)
	}

	log.Printf("🗺️ Seed %d: %dx%d world, %d opponents, wave %d -> %s",
		*seed, snap.World.Size, snap.World.Height, len(snap.Opponents), snap.Wave, *out)
}
