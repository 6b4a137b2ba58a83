package main

import (
	"errors"

	"github.com/spf13/cobra"

	"storefront/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the postgres schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.Store.Kind != config.StorePostgres {
		return errors.New("migrate requires the postgres store (set DATABASE_URL or store.kind)")
	}
	_, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	log.Info("schema is up to date")
	return closeStore()
}
