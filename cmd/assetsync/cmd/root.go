package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/assetsync/internal/config"
)

var (
	v         = config.NewViper()
	configErr error

	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:          "assetsync",
	Short:        "Manifest-driven asset cache",
	Long:         "Synchronize versioned assets from a remote manifest into a local cache and render them in order.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/assetsync/config.yaml)")
	flags.String("cache-dir", "", "cache directory (default: ~/.local/share/assetsync)")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "text", "log format: text, json")

	_ = v.BindPFlag("cache_dir", flags.Lookup("cache-dir"))
}

func initConfig() {
	configErr = config.ReadFile(v, rootCmd.PersistentFlags().Lookup("config").Value.String())
}

func loadConfig() (config.Config, error) {
	if configErr != nil {
		return config.Config{}, configErr
	}
	return config.Load(v)
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if logFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
