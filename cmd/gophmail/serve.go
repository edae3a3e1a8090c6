package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophmail/internal/server"
	"github.com/dmitrijs2005/gophmail/internal/server/config"
	"github.com/spf13/cobra"
)

// serve and migrate hand their raw arguments to the config loader, which
// owns the server flags (-a, -d, -s, -c ...).
var serveCmd = &cobra.Command{
	Use:                "serve [flags]",
	Short:              "Run the HTTP, gRPC and metrics servers.",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(config.LoadConfig(args))
	},
}

func runServe(cfg *config.Config) error {
	logger, err := server.NewLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return app.Run(ctx)
}
