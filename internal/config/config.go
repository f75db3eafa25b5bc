// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for match, simulation and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// MATCH CONFIGURATION
// =============================================================================

// MatchConfig holds the fixed constants a new match is created from.
type MatchConfig struct {
	WorldSize      int // Horizontal extent of the voxel grid (x and z)
	WorldHeight    int // Vertical extent of the voxel grid (y)
	OpponentCount  int // Opponents in the opening batch
	WaveCap        int // Clearing this wave wins the match
	InitialItems   int // Loot scattered at match start
	StartHealth    float64
	MaxHealth      float64
	StartShield    float64
	MaxShield      float64
	StartAmmo      int
	StartMaterials int
}

// DefaultMatch returns the default match configuration.
func DefaultMatch() MatchConfig {
	return MatchConfig{
		WorldSize:      100,
		WorldHeight:    32,
		OpponentCount:  15,
		WaveCap:        3,
		InitialItems:   30,
		StartHealth:    100,
		MaxHealth:      100,
		StartShield:    50,
		MaxShield:      100,
		StartAmmo:      120,
		StartMaterials: 100,
	}
}

// MatchFromEnv returns match configuration with environment variable overrides.
func MatchFromEnv() MatchConfig {
	cfg := DefaultMatch()

	if s := getEnvInt("WORLD_SIZE", 0); s >= 32 {
		cfg.WorldSize = s
	}
	if h := getEnvInt("WORLD_HEIGHT", 0); h >= 24 {
		cfg.WorldHeight = h
	}
	if n := getEnvInt("OPPONENT_COUNT", -1); n >= 0 {
		cfg.OpponentCount = n
	}
	if w := getEnvInt("WAVE_CAP", 0); w > 0 {
		cfg.WaveCap = w
	}

	return cfg
}

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the stepping parameters of the simulation loop.
type SimConfig struct {
	TickRate int     // Ticks per second driven by the engine clock
	MaxDelta float64 // Upper bound on a single tick's dt (seconds)
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate: 60,
		MaxDelta: 0.05, // Long frames are clamped so physics never tunnels
	}
}

// SimFromEnv returns simulation configuration with environment variable overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if tps := getEnvInt("TICK_RATE", 0); tps > 0 {
		cfg.TickRate = tps
	}
	if md := getEnvFloat("MAX_TICK_DELTA", 0); md > 0 {
		cfg.MaxDelta = md
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits bounds the cosmetic and loot collections of a match.
type ResourceLimits struct {
	MaxParticles int // Particles beyond this are silently dropped
	MaxItems     int // Dropped items beyond this are silently dropped
	MaxActions   int // Queued discrete actions per tick
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxParticles: 2000,
		MaxItems:     256,
		MaxActions:   32,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	EventLogPath   string
	BroadcastHz    int
	DisableDebug   bool
	AllowedOrigins []string
	TrustProxy     bool // Meter clients by X-Forwarded-For
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:         3000,
		EventLogPath: "events.jsonl",
		BroadcastHz:  10,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if path, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = path
	}
	if hz := getEnvInt("BROADCAST_HZ", 0); hz > 0 {
		cfg.BroadcastHz = hz
	}
	cfg.DisableDebug = os.Getenv("DISABLE_DEBUG_SERVER") == "true"
	cfg.TrustProxy = os.Getenv("TRUST_PROXY") == "true"
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg
}

// =============================================================================
// RENDER CONFIGURATION
// =============================================================================

// RenderConfig holds minimap renderer settings.
type RenderConfig struct {
	MinimapSize    int // Default edge length in pixels
	MaxMinimapSize int // Requests above this are clamped
}

// DefaultRender returns the default render configuration.
func DefaultRender() RenderConfig {
	return RenderConfig{
		MinimapSize:    400,
		MaxMinimapSize: 1600,
	}
}

// RenderFromEnv returns render configuration with environment variable overrides.
func RenderFromEnv() RenderConfig {
	cfg := DefaultRender()

	if s := getEnvInt("MINIMAP_SIZE", 0); s > 0 {
		cfg.MinimapSize = s
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Match  MatchConfig
	Sim    SimConfig
	Limits ResourceLimits
	Server ServerConfig
	Render RenderConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Match:  MatchFromEnv(),
		Sim:    SimFromEnv(),
		Limits: DefaultLimits(),
		Server: ServerFromEnv(),
		Render: RenderFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
