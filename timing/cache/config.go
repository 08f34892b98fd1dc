// Package cache models the GF32 memory hierarchy: a stack of direct-mapped,
// write-through, no-allocate cache levels over a flat main memory, built on
// Akita cache directories.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
)

// LevelConfig describes one cache level.
type LevelConfig struct {
	// CapacityBytes is the total data capacity of the level.
	CapacityBytes int `json:"capacity_bytes"`
	// LineSizeBytes is the cache line size. Must be a power of two.
	LineSizeBytes int `json:"line_size_bytes"`
	// LatencyCycles is charged whenever this level is probed, hit or miss.
	LatencyCycles int `json:"latency_cycles"`
}

// MainMemoryConfig describes the backing main memory.
type MainMemoryConfig struct {
	SizeBytes     int `json:"size_bytes"`
	LatencyCycles int `json:"latency_cycles"`
}

// Config describes a whole memory hierarchy. Levels[0] is closest to the
// core.
type Config struct {
	Levels     []LevelConfig    `json:"levels"`
	MainMemory MainMemoryConfig `json:"main_memory"`
}

// DefaultConfig returns a small two-level hierarchy suitable for tests and
// quick runs.
func DefaultConfig() Config {
	return Config{
		Levels: []LevelConfig{
			{CapacityBytes: 1024, LineSizeBytes: 16, LatencyCycles: 1},
			{CapacityBytes: 8192, LineSizeBytes: 16, LatencyCycles: 4},
		},
		MainMemory: MainMemoryConfig{SizeBytes: 65536, LatencyCycles: 20},
	}
}

// Validate checks the configuration. All violations are construction-time
// errors; a validated hierarchy never faults on its own configuration.
func (c Config) Validate() error {
	if len(c.Levels) == 0 {
		return fmt.Errorf("hierarchy must have at least one cache level")
	}
	for i, l := range c.Levels {
		if l.LineSizeBytes <= 0 || l.LineSizeBytes&(l.LineSizeBytes-1) != 0 {
			return fmt.Errorf("level %d: line size %d is not a power of two", i, l.LineSizeBytes)
		}
		if l.CapacityBytes <= 0 {
			return fmt.Errorf("level %d: capacity must be positive, got %d", i, l.CapacityBytes)
		}
		if l.CapacityBytes%l.LineSizeBytes != 0 {
			return fmt.Errorf("level %d: capacity %d not divisible by line size %d",
				i, l.CapacityBytes, l.LineSizeBytes)
		}
		if l.LatencyCycles < 1 {
			return fmt.Errorf("level %d: latency must be at least 1 cycle, got %d",
				i, l.LatencyCycles)
		}
	}
	if c.MainMemory.SizeBytes <= 0 {
		return fmt.Errorf("main memory size must be positive, got %d", c.MainMemory.SizeBytes)
	}
	if c.MainMemory.LatencyCycles < 1 {
		return fmt.Errorf("main memory latency must be at least 1 cycle, got %d",
			c.MainMemory.LatencyCycles)
	}
	return nil
}

// LoadConfig reads a hierarchy configuration from a JSON file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading cache config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing cache config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveConfig writes a hierarchy configuration to a JSON file.
func SaveConfig(cfg Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing cache config: %w", err)
	}
	return nil
}
