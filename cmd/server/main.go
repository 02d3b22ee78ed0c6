package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/server"
	"CatalogWatcher/internal/snapshot"
	"CatalogWatcher/pkg/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := command().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func command() *cobra.Command {
	var cfgFile, addr string

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the product snapshot as a read-only JSON API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile == "" {
				cfgFile = config.Path(config.DefaultPath)
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			store, err := snapshot.Open(cfg.Snapshot.Driver, cfg.Snapshot.Path, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return server.Start(ctx, addr, store, log)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_PATH or ./config.yml)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
