package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds execute-stage latency values per operation class.
type TimingConfig struct {
	// ALULatency covers add, subtract, shift, and logic operations,
	// including ADDIM. Default: 1 cycle.
	ALULatency int `json:"alu_latency"`

	// MultiplyLatency covers MULI and MULU. Default: 3 cycles.
	MultiplyLatency int `json:"multiply_latency"`

	// DivideLatency covers DIVI, DIVU, MODI, and MODU. Default: 10 cycles.
	DivideLatency int `json:"divide_latency"`

	// CompareLatency covers CMP8/16/32 and CMPF. Default: 1 cycle.
	CompareLatency int `json:"compare_latency"`

	// BranchLatency is the execute latency of jumps, CALL, and RET. The
	// squash cost of a taken branch comes on top of this. Default: 1 cycle.
	BranchLatency int `json:"branch_latency"`

	// FloatAddLatency covers ADDF and SUBF. Default: 2 cycles.
	FloatAddLatency int `json:"float_add_latency"`

	// FloatMultiplyLatency covers MULF. Default: 3 cycles.
	FloatMultiplyLatency int `json:"float_multiply_latency"`

	// FloatDivideLatency covers DIVF. Default: 8 cycles.
	FloatDivideLatency int `json:"float_divide_latency"`
}

// DefaultTimingConfig returns a TimingConfig with default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:           1,
		MultiplyLatency:      3,
		DivideLatency:        10,
		CompareLatency:       1,
		BranchLatency:        1,
		FloatAddLatency:      2,
		FloatMultiplyLatency: 3,
		FloatDivideLatency:   8,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Missing fields keep
// their defaults.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are positive.
func (c *TimingConfig) Validate() error {
	fields := map[string]int{
		"alu_latency":            c.ALULatency,
		"multiply_latency":       c.MultiplyLatency,
		"divide_latency":         c.DivideLatency,
		"compare_latency":        c.CompareLatency,
		"branch_latency":         c.BranchLatency,
		"float_add_latency":      c.FloatAddLatency,
		"float_multiply_latency": c.FloatMultiplyLatency,
		"float_divide_latency":   c.FloatDivideLatency,
	}
	for name, v := range fields {
		if v < 1 {
			return fmt.Errorf("%s must be > 0, got %d", name, v)
		}
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
