// Package cmd implements the hostpulse CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HerbHall/hostpulse/internal/config"
	"github.com/HerbHall/hostpulse/internal/version"
)

var (
	cfgFile  string
	logLevel string
	devMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "hostpulse",
	Short: "hostpulse samples local host health",
	Long: "hostpulse periodically samples CPU, memory, disk, battery, network, GPU and\n" +
		"system identity on the local machine. Failed queries degrade to safe defaults,\n" +
		"so every snapshot is complete.",
	SilenceUsage: true,
	// No Run function; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: ./hostpulse.yaml or ~/.config/hostpulse/hostpulse.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "human-readable development logging")

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate(version.Info() + "\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadSettings reads configuration for cmd, letting explicitly set flags
// override file and environment values.
func loadSettings(cmd *cobra.Command, bindings map[string]string) (config.Settings, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Settings{}, err
	}

	v := cfg.Viper()
	if err := v.BindPFlag(config.KeyLogLevel, cmd.Flags().Lookup("log-level")); err != nil {
		return config.Settings{}, fmt.Errorf("bind log-level: %w", err)
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return config.Settings{}, fmt.Errorf("bind %s: %w", flag, err)
		}
	}
	return cfg.Settings()
}

// newLogger builds the process logger. Logs go to stderr so stdout carries
// only rendered snapshots.
func newLogger(level string, dev bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
