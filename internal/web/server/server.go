package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/contracte/internal/archive"
	"github.com/foxzi/contracte/internal/contract"
	"github.com/foxzi/contracte/internal/metrics"
	"github.com/foxzi/contracte/internal/ratelimit"
	"github.com/foxzi/contracte/internal/render"
	"github.com/foxzi/contracte/internal/web/config"
	"github.com/foxzi/contracte/internal/web/db"
	"github.com/foxzi/contracte/internal/web/handlers"
	"github.com/foxzi/contracte/internal/web/middleware"
	"github.com/foxzi/contracte/internal/worker"
)

// request bodies carry template HTML at most
const maxBodySize = 4 << 20

type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *db.DB
	archive *archive.Storage
	pool    *worker.Pool
	http    *http.Server

	metrics   *metrics.Server
	collector *metrics.Collector
	limiter   *ratelimit.Limiter
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// Initialize database
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      database,
		archive: store,
		pool:    worker.New(worker.Config{Workers: cfg.Render.Workers}, logger),
	}

	if err := s.setup(); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *Server) setup() error {
	fonts, err := render.LoadFontSet(s.cfg.PDF.FontRegular, s.cfg.PDF.FontBold)
	if err != nil {
		return fmt.Errorf("failed to load fonts: %w", err)
	}
	if missing, err := fonts.MissingRunes(render.RequiredRunes); err == nil && len(missing) > 0 {
		s.logger.Warn("PDF font lacks glyphs, configure pdf.font_regular and pdf.font_bold",
			"missing", string(missing))
	}

	renderOpts := []render.Option{render.WithLogger(s.logger)}
	svcCfg := contract.Config{
		RenderTimeout: s.cfg.Render.Timeout,
		DateFormat:    s.cfg.Render.DateFormat,
	}

	if s.cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)

		s.collector, err = metrics.NewCollector(s.archive.DB(), m, s.pool, s.archive, 0)
		if err != nil {
			return fmt.Errorf("failed to initialize metrics collector: %w", err)
		}
		s.metrics = metrics.NewServer(m, s.cfg.Metrics.ListenAddr, s.cfg.Metrics.Path, s.cfg.Metrics.AllowedIPs, s.logger)

		renderOpts = append(renderOpts, render.WithObserver(s.collector))
		svcCfg.Observer = s.collector
	}

	svc := contract.NewService(s.db.DB, render.NewRenderer(fonts, renderOpts...), s.pool, s.archive, svcCfg, s.logger)
	hcfg := handlers.Config{DateFormat: s.cfg.Render.DateFormat}
	if s.cfg.RateLimit.Enabled() {
		s.limiter, err = ratelimit.NewLimiter(s.archive.DB(), &s.cfg.RateLimit)
		if err != nil {
			return fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
		hcfg.RenderLimit = s.limiter.Middleware(s.logger.With("component", "ratelimit"))
	}
	h := handlers.New(hcfg, s.db.DB, svc, s.archive, s.logger)

	// Setup HTTP server
	s.http = &http.Server{
		Addr:         s.cfg.Server.ListenAddr,
		Handler:      s.setupRoutes(h),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.cfg.Render.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

func (s *Server) setupRoutes(h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(metrics.HTTPMiddleware)
	r.Use(middleware.MaxBodySize(maxBodySize))

	r.Get("/health", h.Health)
	r.Route("/api/v1", h.Routes)

	return r
}

// Handler returns the API handler
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Run(ctx context.Context) error {
	// Start background workers
	s.pool.Start()
	if s.collector != nil {
		s.collector.Start(ctx)
	}

	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("starting web server", "addr", s.cfg.Server.ListenAddr, "tls", s.cfg.Server.TLS.Enabled)
		if s.cfg.Server.TLS.Enabled {
			errCh <- s.http.ListenAndServeTLS(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
		} else {
			errCh <- s.http.ListenAndServe()
		}
	}()

	if s.metrics != nil {
		go func() {
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	s.shutdown()
	if errors.Is(runErr, http.ErrServerClosed) {
		return nil
	}
	return runErr
}

func (s *Server) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", "error", err)
	}
	if s.metrics != nil {
		if err := s.metrics.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("metrics shutdown error", "error", err)
		}
	}

	// in-flight renders finish before the pool stops
	s.pool.Stop()
	s.close()
}

func (s *Server) close() {
	if s.limiter != nil {
		if err := s.limiter.Stop(); err != nil {
			s.logger.Error("failed to persist rate limits", "error", err)
		}
	}
	if s.collector != nil {
		if err := s.collector.Stop(); err != nil {
			s.logger.Error("failed to persist metrics", "error", err)
		}
	}
	if err := s.archive.Close(); err != nil {
		s.logger.Error("failed to close archive", "error", err)
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close database", "error", err)
	}
}
