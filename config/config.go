// Package config models the terrain core's tunable knobs as a plain
// struct passed explicitly into clipmap.View.Update, rather than as
// process-wide mutable globals.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the terrain core's runtime-tunable settings.
type Config struct {
	Terrain Terrain `toml:"terrain"`
}

type Terrain struct {
	// MinLod clamps the minimum visible lod.
	MinLod int `toml:"min_lod"`
	// MaxLod clamps the maximum visible lod.
	MaxLod int `toml:"max_lod"`
	// ShowMemoryUsage logs instance/indirect buffer byte sizes per frame.
	ShowMemoryUsage bool `toml:"show_memory_usage"`
	// DebugDraw is the debug-draw setting loaded from debug_draw.
	// clipmap.View.DebugLines does not read it: it returns its lines
	// whether or not DebugDraw is set.
	DebugDraw bool `toml:"debug_draw"`
}

// Default returns the baseline configuration without touching the
// filesystem.
func Default() Config {
	return Config{Terrain: Terrain{MinLod: 0, MaxLod: 5}}
}

// Load reads a TOML document at path. Missing fields fall back to
// Default's values.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
