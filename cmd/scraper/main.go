package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"CatalogWatcher/internal/app"
	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/scraper/catalog"
	"CatalogWatcher/pkg/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scraper",
		Short:         "Watch storefront catalogs for new and restocked products",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_PATH or ./config.yml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(runCmd(), watchCmd(), categoriesCmd())
	return root
}

// setup loads the configuration and builds the logger.
func setup() (*config.Config, logger.Logger, error) {
	path := cfgFile
	if path == "" {
		path = config.Path(config.DefaultPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, log, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scrape once, notify about changes and save the snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			application, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			_, err = application.Run(ctx)
			return err
		},
	}
}

func watchCmd() *cobra.Command {
	var (
		schedule string
		now      bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if schedule == "" {
				schedule = cfg.Schedule.Cron
			}
			if _, err := app.ParseSchedule(schedule); err != nil {
				return err
			}

			application, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return application.Watch(ctx, schedule, now)
		},
	}
	cmd.Flags().StringVar(&schedule, "cron", "", "cron expression (default from config)")
	cmd.Flags().BoolVar(&now, "now", false, "run once immediately before the first tick")
	return cmd
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the category pages each catalog source would scrape",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			for _, src := range cfg.Catalogs {
				cats, err := catalog.New(src, cfg.Scraper, log).Categories(ctx)
				if err != nil {
					log.Error("Could not list categories", logger.String("source", src.Name), logger.Error(err))
					continue
				}
				for _, c := range cats {
					fmt.Fprintf(out, "%s\t%s\t%s\n", c.Source, c.Name, c.URL)
				}
			}
			return nil
		},
	}
}
