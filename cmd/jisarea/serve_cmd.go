package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/jisarea/internal/config"
	"github.com/JonMunkholm/jisarea/internal/metrics"
	"github.com/JonMunkholm/jisarea/internal/store"
	"github.com/JonMunkholm/jisarea/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		dsn  string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lookup and import API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			if cmd.Flags().Changed("db") {
				cfg.Database.URL = dsn
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := openDB(ctx, cfg, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Ping(ctx); err != nil {
				return err
			}
			slog.Info("connected to database",
				"url", config.MaskURL(cfg.Database.URL),
				"backends", store.Backends(),
			)

			return serve(ctx, web.NewServer(db, *cfg, metrics.New()), cfg.Server)
		},
	}

	cmd.Flags().StringVar(&dsn, "db", "", "Database URL or SQLite path (overrides DATABASE_URL)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides SERVER_PORT)")
	return cmd
}

// serve runs s until ctx is cancelled, then shuts it down within
// cfg.ShutdownTimeout.
func serve(ctx context.Context, s *web.Server, cfg config.ServerConfig) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
