package cmd

import (
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	logFile string
	verbose bool
)

// RootCmd is the base command of the gfsim CLI.
var RootCmd = &cobra.Command{
	Use:   "gfsim",
	Short: "A cycle-accurate GF32 CPU simulator",
	Long: `gfsim simulates the GF32 instruction set on a 5-stage in-order
pipeline behind a configurable hierarchy of direct-mapped, write-through
caches. It bundles an assembler, a batch runner, and an interactive
debugger.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

// Execute runs the CLI. Called once from main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default $HOME/.gfsim.yaml)")
	RootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"also write logs to this file")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")

	RootCmd.PersistentFlags().String("cache-config", "",
		"cache hierarchy config JSON (defaults to a small two-level setup)")
	RootCmd.PersistentFlags().String("timing-config", "",
		"execute-stage latency config JSON")
	RootCmd.PersistentFlags().Int("mem-size", 0,
		"override main memory size in bytes")
	RootCmd.PersistentFlags().Int("mem-latency", 0,
		"override main memory latency in cycles")
	RootCmd.PersistentFlags().Uint32("stack-size", 256,
		"call stack region size in bytes, placed at the top of memory")

	for _, name := range []string{
		"cache-config", "timing-config", "mem-size", "mem-latency", "stack-size",
	} {
		_ = viper.BindPFlag(name, RootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig reads in the config file and environment variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".gfsim")
	}

	viper.SetEnvPrefix("GFSIM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// setupLogging installs the default slog logger, teeing to a file when
// --log-file is given.
func setupLogging() error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		handlers = append(handlers,
			slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))
	return nil
}
