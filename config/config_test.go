package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Terrain.MinLod != 0 || c.Terrain.MaxLod != 5 {
		t.Fatalf("Default() = %+v, want MinLod=0 MaxLod=5", c.Terrain)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terrain.toml")
	doc := `
[terrain]
min_lod = 1
max_lod = 3
show_memory_usage = true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Terrain.MinLod != 1 || c.Terrain.MaxLod != 3 || !c.Terrain.ShowMemoryUsage {
		t.Fatalf("Load() = %+v, want {1 3 true false}", c.Terrain)
	}
	if c.Terrain.DebugDraw {
		t.Fatal("DebugDraw should default to false when absent from the document")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
