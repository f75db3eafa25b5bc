package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"voxel-royale/internal/api"
	"voxel-royale/internal/config"
	"voxel-royale/internal/game"
	"voxel-royale/internal/render"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  VOXEL ROYALE - GO ENGINE")
	log.Println("🎮  Shrinking arena, three waves")
	log.Println("🎮 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	matchCfg := appConfig.Match
	serverCfg := appConfig.Server

	port := strconv.Itoa(serverCfg.Port)

	log.Printf("🗺️ World: %dx%dx%d, %d opponents, %d waves",
		matchCfg.WorldSize, matchCfg.WorldHeight, matchCfg.WorldSize, matchCfg.OpponentCount, matchCfg.WaveCap)
	log.Printf("🎮 Config: %d TPS, max dt %.3fs, %d Hz snapshot push",
		appConfig.Sim.TickRate, appConfig.Sim.MaxDelta, serverCfg.BroadcastHz)

	engine := game.NewEngine(matchCfg, appConfig.Sim, appConfig.Limits)
	limits := engine.GetLimits()
	log.Printf("🛡️ Resource limits: %d particles, %d items, %d actions/tick",
		limits.MaxParticles, limits.MaxItems, limits.MaxActions)

	// Start event log
	if err := engine.StartEventLog(serverCfg.EventLogPath); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else if serverCfg.EventLogPath != "" {
		log.Printf("📝 Event log: %s", serverCfg.EventLogPath)
	}

	// Start debug server
	if !serverCfg.DisableDebug {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}
	engine.SetTickObserver(api.ObserveTick)

	minimap := render.NewMinimap(appConfig.Render)
	server := api.NewServer(engine, minimap, serverCfg)

	// Mirror event log counters into prometheus
	statsDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				api.UpdateEventLogStats(engine.GetEventLogStats())
			case <-statsDone:
				return
			}
		}
	}()

	engine.Start()
	log.Println("✅ Game Engine started")

	go func() {
		addr := ":" + port
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("🗺️ Minimap: http://localhost%s/api/minimap.png", addr)

		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	close(statsDone)
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}
