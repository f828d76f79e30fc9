package csg

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration constants.
const (
	// DefaultCacheTTL is how long a converted subtree stays in the operation cache.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheEntries is the maximum number of cached subtree results.
	DefaultCacheEntries = 100

	// DefaultMaterialReservation is the number of material IDs reserved on
	// initialization, matching the granularity the native engine expects.
	DefaultMaterialReservation = 65536

	// DefaultMaterialLRU is the size of the hot-path material lookup cache.
	DefaultMaterialLRU = 1024

	// DefaultTimeout is the advisory upper bound for a single conversion.
	DefaultTimeout = 30 * time.Second
)

// ConversionOptions controls a scene conversion.
//
// Timeout is advisory: native calls are never interrupted once issued, the
// pipeline only checks the deadline between node conversions.
type ConversionOptions struct {
	// PreserveMaterials retains per-triangle material groups through boolean ops.
	PreserveMaterials bool `yaml:"preserve_materials"`
	// OptimizeResult merges coincident vertices after conversion back to a mesh.
	OptimizeResult bool `yaml:"optimize_result"`
	// EnableCaching opts subtrees into the fingerprint cache.
	EnableCaching bool `yaml:"enable_caching"`
	// Timeout is the advisory upper bound for a conversion.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConversionOptions returns the options used when none are given.
func DefaultConversionOptions() ConversionOptions {
	return ConversionOptions{
		PreserveMaterials: true,
		OptimizeResult:    false,
		EnableCaching:     true,
		Timeout:           DefaultTimeout,
	}
}

// CacheConfig configures the subtree operation cache.
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// ResourceConfig configures resource tracking.
type ResourceConfig struct {
	// PressureLimit triggers the pressure callback when active resources
	// reach it. Zero disables pressure monitoring.
	PressureLimit int `yaml:"pressure_limit"`
	// LeakAge reports resources alive longer than this. Zero disables leak detection.
	LeakAge time.Duration `yaml:"leak_age"`
}

// MaterialConfig configures material ID reservation.
type MaterialConfig struct {
	Reservation uint32 `yaml:"reservation"`
	LRUSize     int    `yaml:"lru_size"`
	AutoExpand  bool   `yaml:"auto_expand"`
}

// EngineConfig selects the native engine.
type EngineConfig struct {
	// Name of a registered engine. Empty selects the highest-priority engine.
	Name string `yaml:"name"`
}

// Config is the file-level configuration of a conversion session.
type Config struct {
	Conversion ConversionOptions `yaml:"conversion"`
	Cache      CacheConfig       `yaml:"cache"`
	Resources  ResourceConfig    `yaml:"resources"`
	Materials  MaterialConfig    `yaml:"materials"`
	Engine     EngineConfig      `yaml:"engine"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Conversion: DefaultConversionOptions(),
		Cache: CacheConfig{
			MaxEntries: DefaultCacheEntries,
			TTL:        DefaultCacheTTL,
		},
		Materials: MaterialConfig{
			Reservation: DefaultMaterialReservation,
			LRUSize:     DefaultMaterialLRU,
		},
	}
}

// ParseConfig decodes YAML configuration on top of DefaultConfig.
// Keys absent from data keep their default values.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("csg: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("csg: read config: %w", err)
	}
	return ParseConfig(data)
}

// Validate reports configuration values that cannot be honored.
func (c Config) Validate() error {
	switch {
	case c.Cache.MaxEntries < 0:
		return fmt.Errorf("csg: cache.max_entries must be >= 0, got %d", c.Cache.MaxEntries)
	case c.Cache.TTL < 0:
		return fmt.Errorf("csg: cache.ttl must be >= 0, got %v", c.Cache.TTL)
	case c.Resources.PressureLimit < 0:
		return fmt.Errorf("csg: resources.pressure_limit must be >= 0, got %d", c.Resources.PressureLimit)
	case c.Materials.Reservation == 0 || c.Materials.Reservation > MaxMaterialReservation:
		return fmt.Errorf("csg: materials.reservation must be in [1, %d], got %d",
			MaxMaterialReservation, c.Materials.Reservation)
	case c.Conversion.Timeout < 0:
		return fmt.Errorf("csg: conversion.timeout must be >= 0, got %v", c.Conversion.Timeout)
	}
	return nil
}

// MaxMaterialReservation is the largest number of IDs a single reservation may request.
const MaxMaterialReservation = 1_000_000
