package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/config"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/di"
)

var (
	jsonOutput bool
	storeFlag  string
	sqlitePath string
	configFile string
	logLevel   string

	container *di.Container
)

var rootCmd = &cobra.Command{
	Use:           "graphctl <command>",
	Short:         "Inspect and maintain the content relationship graph",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := closeContainer(cmd.Context()); err != nil {
			return err
		}
		if configFile != "" {
			os.Setenv("CONFIG_FILE", configFile)
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if storeFlag != "" {
			cfg.StoreBackend = storeFlag
		}
		if sqlitePath != "" {
			cfg.SQLitePath = sqlitePath
		}
		cfg.LogLevel = logLevel
		// one-shot commands have nothing to hot reload
		cfg.ConfigFile = ""
		if err := cfg.Validate(); err != nil {
			return err
		}

		c, err := di.InitializeContainer(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("initializing: %w", err)
		}
		container = c
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeContainer(cmd.Context())
	},
}

// closeContainer releases the container of the previous command, if any.
// Cobra skips post-run hooks when a command fails.
func closeContainer(ctx context.Context) error {
	if container == nil {
		return nil
	}
	err := container.Shutdown(ctx)
	container = nil
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "store backend (memory, sqlite or dynamodb); defaults to STORE_BACKEND")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "SQLite database file; defaults to SQLITE_PATH")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(cyclesCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if closeErr := closeContainer(context.Background()); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
