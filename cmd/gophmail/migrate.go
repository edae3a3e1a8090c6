package main

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/server"
	"github.com/dmitrijs2005/gophmail/internal/server/config"
	"github.com/spf13/cobra"
)

const migrateTimeout = 2 * time.Minute

var migrateCmd = &cobra.Command{
	Use:                "migrate [flags]",
	Short:              "Apply database migrations for the configured backend.",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd, config.LoadConfig(args))
	},
}

func runMigrate(cmd *cobra.Command, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	store, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RunMigrations(ctx); err != nil {
		return err
	}

	cmd.Printf("migrations applied (%s)\n", cfg.StorageBackend)
	return nil
}
