package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storefront/internal/config"
	"storefront/internal/logger"
)

var (
	configPath string

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Grocery storefront backend-for-frontend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log, err = logger.New(cfg.Log.Mode)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", env("STOREFRONT_CONFIG", "storefront.yaml"), "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
