package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/gfslab/gfsim/loader"
	"github.com/gfslab/gfsim/timing/cache"
	"github.com/gfslab/gfsim/timing/core"
	"github.com/gfslab/gfsim/timing/latency"
	"github.com/gfslab/gfsim/timing/pipeline"
)

// buildCore assembles a machine from the CLI configuration and loads the
// given program into it.
func buildCore(prog *loader.Program) (*core.Core, error) {
	cacheCfg := cache.DefaultConfig()
	if path := viper.GetString("cache-config"); path != "" {
		var err error
		cacheCfg, err = cache.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}
	if v := viper.GetInt("mem-size"); v > 0 {
		cacheCfg.MainMemory.SizeBytes = v
	}
	if v := viper.GetInt("mem-latency"); v > 0 {
		cacheCfg.MainMemory.LatencyCycles = v
	}

	table := latency.NewTable()
	if path := viper.GetString("timing-config"); path != "" {
		cfg, err := latency.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		table = latency.NewTableWithConfig(cfg)
	}

	hier, err := cache.NewHierarchy(cacheCfg)
	if err != nil {
		return nil, err
	}

	memSize := uint32(cacheCfg.MainMemory.SizeBytes)
	stackSize := viper.GetUint32("stack-size")
	if stackSize == 0 || stackSize%4 != 0 || stackSize >= memSize {
		return nil, fmt.Errorf(
			"stack size %d must be a positive multiple of 4 smaller than memory (%d)",
			stackSize, memSize)
	}
	stackBase := memSize - stackSize

	pipe := pipeline.NewPipeline(hier, stackBase, stackSize,
		pipeline.WithLatencyTable(table))
	c := core.NewCore(pipe)

	if prog != nil {
		if err := c.LoadProgram(prog.Words, prog.Entry); err != nil {
			return nil, err
		}
	}
	return c, nil
}
