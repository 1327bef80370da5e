package main

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tailored-agentic-units/spicy/kernel"
	"github.com/tailored-agentic-units/spicy/observability"
)

var (
	configFile   string
	workDir      string
	observerName string
	logMode      string
	verbose      bool

	zapLogger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "spicy",
	Short: "Chat with an assistant about LTspice schematics",
	Long: `spicy keeps per-schematic conversations with an assistant that can explain
and edit the .asc files of a working directory.

Every schematic has its own list of saved chats. Edits proposed by the
assistant are written back to the schematic.

  spicy files                                  # list schematics
  spicy chat -f amp.asc "why does it clip?"    # one question
  spicy chat -f amp.asc                        # interactive session
  spicy sessions list -f amp.asc               # saved chats
  spicy serve                                  # HTTP + WebSocket backend`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is not an error.
		_ = godotenv.Load()
		return setupObservers(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLogger != nil {
			_ = zapLogger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config JSON file")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "d", "", "Working directory holding the schematics (default: config or current directory)")
	rootCmd.PersistentFlags().StringVar(&observerName, "observer", "", "Observer for runtime events: slog, zap or noop (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "dev", "zap logger mode: dev or prod")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to stderr")

	rootCmd.AddCommand(filesCmd, chatCmd, sessionsCmd, serveCmd)
}

func setupObservers(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	if zapLogger == nil {
		l, err := observability.NewZapLogger(logMode)
		if err != nil {
			return fmt.Errorf("failed to build zap logger: %w", err)
		}
		zapLogger = l
	}
	observability.RegisterObserver("zap", observability.NewZapObserver(zapLogger))
	return nil
}

func loadConfig() (*kernel.Config, error) {
	var cfg *kernel.Config
	if configFile != "" {
		loaded, err := kernel.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		defaults := kernel.DefaultConfig()
		cfg = &defaults
	}

	if workDir != "" {
		cfg.WorkingDirectory = workDir
	}
	if cfg.WorkingDirectory == "" {
		cfg.WorkingDirectory = "."
	}
	if observerName != "" {
		cfg.Observer = observerName
	}
	return cfg, nil
}

func newKernel() (*kernel.Kernel, *kernel.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	k, err := kernel.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kernel: %w", err)
	}
	return k, cfg, nil
}
