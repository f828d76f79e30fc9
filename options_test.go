package csg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConversionOptions(t *testing.T) {
	o := DefaultConversionOptions()
	if !o.EnableCaching {
		t.Error("DefaultConversionOptions().EnableCaching = false, want true")
	}
	if !o.PreserveMaterials {
		t.Error("DefaultConversionOptions().PreserveMaterials = false, want true")
	}
	if o.Timeout != DefaultTimeout {
		t.Errorf("DefaultConversionOptions().Timeout = %v, want %v", o.Timeout, DefaultTimeout)
	}
}

func TestParseConfigKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("conversion:\n  enable_caching: false\ncache:\n  ttl: 1m\n"))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Conversion.EnableCaching {
		t.Error("enable_caching should be overridden to false")
	}
	if !cfg.Conversion.PreserveMaterials {
		t.Error("preserve_materials should keep its default")
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("cache.ttl = %v, want 1m", cfg.Cache.TTL)
	}
	if cfg.Cache.MaxEntries != DefaultCacheEntries {
		t.Errorf("cache.max_entries = %d, want %d", cfg.Cache.MaxEntries, DefaultCacheEntries)
	}
	if cfg.Materials.Reservation != DefaultMaterialReservation {
		t.Errorf("materials.reservation = %d, want %d", cfg.Materials.Reservation, DefaultMaterialReservation)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"negative entries", "cache:\n  max_entries: -1\n"},
		{"negative pressure", "resources:\n  pressure_limit: -5\n"},
		{"zero reservation", "materials:\n  reservation: 0\n"},
		{"huge reservation", "materials:\n  reservation: 2000000\n"},
		{"malformed", "cache: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.data)); err == nil {
				t.Errorf("ParseConfig(%q) error = nil, want error", tt.data)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csg.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  name: bsp\nmaterials:\n  auto_expand: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Engine.Name != "bsp" {
		t.Errorf("engine.name = %q, want %q", cfg.Engine.Name, "bsp")
	}
	if !cfg.Materials.AutoExpand {
		t.Error("materials.auto_expand = false, want true")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig(missing) error = nil, want error")
	}
}
