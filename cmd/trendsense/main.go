package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"trendsense/internal/app"
	"trendsense/internal/config"
	"trendsense/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "trendsense",
		Short:         "Tech trend sentiment collector and query API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newETLCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query API (and the recurring ETL, if configured)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level)

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return application.Run(ctx)
		},
	}
}

func newETLCommand() *cobra.Command {
	var keywordsFlag string

	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Run one fetch-score-persist pass and print run stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level)

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			var keywords []string
			if keywordsFlag != "" {
				for _, kw := range strings.Split(keywordsFlag, ",") {
					if kw = strings.TrimSpace(kw); kw != "" {
						keywords = append(keywords, kw)
					}
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stats, err := application.RunETL(ctx, keywords)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"loaded=%d duplicates=%d errors=%d\n",
				stats.Loaded, stats.Duplicates, stats.Errors)
			return nil
		},
	}

	cmd.Flags().StringVar(&keywordsFlag, "keywords", "", "comma-separated keywords (defaults to configuration)")
	return cmd
}
