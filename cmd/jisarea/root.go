package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/jisarea/internal/config"
	"github.com/JonMunkholm/jisarea/internal/logging"
	"github.com/JonMunkholm/jisarea/internal/store"
)

type cfgKey struct{}

func newRootCmd() *cobra.Command {
	var (
		envFile   string
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:           "jisarea",
		Short:         "Import and query Japanese administrative area codes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Logging.Format = logFormat
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			slog.Debug("configuration loaded", "config", cfg.String())

			cmd.SetContext(context.WithValue(cmd.Context(), cfgKey{}, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the configuration")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(
		newImportCmd(),
		newLookupCmd(),
		newExportCmd(),
		newServeCmd(),
	)
	return cmd
}

// configFrom returns the configuration loaded by the root command.
func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(cfgKey{}).(*config.Config); ok {
		return cfg
	}
	cfg, _ := config.LoadFrom(func(string) string { return "" })
	return cfg
}

// openDB opens dsn with the pool and lock settings from cfg.
func openDB(ctx context.Context, cfg *config.Config, dsn string) (store.DB, error) {
	return store.Open(ctx, dsn, store.Options{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		BusyTimeout:     cfg.Database.BusyTimeout,
	})
}
