// Package web provides the HTTP API over an area-code database: memoized
// lookups, paged listings, the JIS mapping export and serialized imports.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/jisarea/internal/config"
	"github.com/JonMunkholm/jisarea/internal/importer"
	"github.com/JonMunkholm/jisarea/internal/logging"
	"github.com/JonMunkholm/jisarea/internal/lookup"
	"github.com/JonMunkholm/jisarea/internal/metrics"
	"github.com/JonMunkholm/jisarea/internal/store"
	weblog "github.com/JonMunkholm/jisarea/internal/web/middleware"
)

// healthTimeout bounds the database ping behind /healthz.
const healthTimeout = 5 * time.Second

// Server is the HTTP server for one database.
type Server struct {
	db      store.DB
	cfg     config.Config
	metrics *metrics.Metrics
	imports *ImportLimiter

	cities   *lookup.CityIDSelector
	subAreas *lookup.SubAreaIDSelector

	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server. db is borrowed and never closed by the server.
func NewServer(db store.DB, cfg config.Config, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		db:       db,
		cfg:      cfg,
		metrics:  m,
		imports:  NewImportLimiter(cfg.Import.MaxWaitTime),
		cities:   lookup.NewCityIDSelector(db),
		subAreas: lookup.NewSubAreaIDSelector(db),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(weblog.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(weblog.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.metrics.Middleware)
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes. Imports are excluded from the
// request timeout; they are bounded by IMPORT_TIMEOUT instead.
func (s *Server) setupRoutes() {
	s.router.With(middleware.Timeout(healthTimeout)).Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.cfg.Server.RequestTimeout > 0 {
				r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
			}
			r.Get("/cities/{pref}/{city}", s.handleCity)
			r.Get("/sub-areas/{pref}/{city}/{leaf}", s.handleSubArea)
			r.Get("/sub-areas", s.handleListSubAreas)
			r.Get("/codes", s.handleListCodes)
		})

		r.Get("/codes/export", s.handleExportCodes)
		r.With(weblog.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys)).
			Post("/import", s.handleImport)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for a running import to
// finish before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.imports.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// newImporter returns an importer reporting to the server's metrics.
func (s *Server) newImporter(ctx context.Context, encoding string) *importer.Importer {
	return importer.New(
		importer.WithEncoding(encoding),
		importer.WithLogger(logging.FromContext(ctx)),
		importer.WithRecorder(s.metrics),
	)
}

// resetLookups drops memoized lookups after the tables changed.
func (s *Server) resetLookups() {
	s.cities.Reset()
	s.subAreas.Reset()
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
