package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"bookshelf/internal/indexer"
	"bookshelf/internal/logging"
	"bookshelf/internal/memory"
	"bookshelf/internal/metrics"
	"bookshelf/internal/startup"

	"github.com/spf13/cobra"
)

type commandContext struct {
	configFlag   string
	logLevelFlag string
	workersFlag  int

	configOnce sync.Once
	config     *startup.Config
	configErr  error
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{workersFlag: -1}

	rootCmd := &cobra.Command{
		Use:           "bookshelf",
		Short:         "Keep a sorted catalog of an e-book library",
		Version:       startup.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	flags.IntVar(&ctx.workersFlag, "workers", -1, "Extraction workers (0 = auto)")

	rootCmd.AddCommand(newBuildCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newEncodeCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}

// ensureConfig loads the configuration once and applies flag overrides,
// the log level and the runtime memory limit.
func (c *commandContext) ensureConfig() (*startup.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := startup.LoadConfig(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}

		if c.logLevelFlag != "" {
			cfg.LogLevel = strings.ToLower(strings.TrimSpace(c.logLevelFlag))
		}
		if c.workersFlag >= 0 {
			cfg.Workers = c.workersFlag
		} else if c.workersFlag != -1 {
			c.configErr = fmt.Errorf("--workers must be >= 0, got %d", c.workersFlag)
			return
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}

		level, _ := logging.ParseLevel(cfg.LogLevel)
		logging.SetLevel(level)
		memory.ConfigureFromEnv()
		metrics.InitializeMetrics()

		c.config = cfg
	})
	return c.config, c.configErr
}

// libraryDir returns the directory argument when given, otherwise the
// configured library.
func (c *commandContext) libraryDir(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return filepath.Abs(args[0])
	}
	return c.config.LibraryDir, nil
}

func indexerOptions(cfg *startup.Config) indexer.Options {
	opts := indexer.DefaultOptions()
	opts.Extensions = cfg.ExtensionSet()
	opts.Workers = cfg.Workers
	opts.Covers = cfg.CoverOptions()
	return opts
}

// writeMetricsFile exports the registry when a metrics file is configured.
func writeMetricsFile(cfg *startup.Config) {
	if cfg.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		logging.Warn("%v", err)
		return
	}
	logging.Debug("Wrote metrics to %s", cfg.MetricsFile)
}
