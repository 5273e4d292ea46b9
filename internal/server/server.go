// Package server provides HTTP server setup and handlers
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"psnrwanda/internal/booking"
	"psnrwanda/internal/config"
	"psnrwanda/internal/domain/notifications"
	"psnrwanda/internal/i18n"
	"psnrwanda/internal/logger"
	"psnrwanda/internal/session"
	"psnrwanda/internal/templates"
	"psnrwanda/internal/tracking"
)

// Deps are the collaborators the handlers use
type Deps struct {
	Templates *templates.Manager
	Catalog   *i18n.Catalog
	Language  *i18n.Preference
	Booking   *booking.Flow
	Tracking  *tracking.Service
	Sessions  *session.Store
	Signer    *session.Signer
	// Contact defaults to a LogSender using the configured delay
	Contact notifications.Sender
	// StaticDir defaults to ./static
	StaticDir string
}

// Server represents the HTTP server
type Server struct {
	config    *config.Config
	logger    *zap.Logger
	templates *templates.Manager
	catalog   *i18n.Catalog
	language  *i18n.Preference
	booking   *booking.Flow
	tracking  *tracking.Service
	sessions  *session.Store
	signer    *session.Signer
	contact   notifications.Sender
	limiter   *ipLimiter
	staticDir string
	router    *chi.Mux
	http      *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps, log *zap.Logger) *Server {
	staticDir := deps.StaticDir
	if staticDir == "" {
		staticDir = "./static"
	}
	contact := deps.Contact
	if contact == nil {
		contact = notifications.NewLogSender(cfg.ContactDelay(), log)
	}

	s := &Server{
		config:    cfg,
		logger:    logger.OrNop(log),
		templates: deps.Templates,
		catalog:   deps.Catalog,
		language:  deps.Language,
		booking:   deps.Booking,
		tracking:  deps.Tracking,
		sessions:  deps.Sessions,
		signer:    deps.Signer,
		contact:   contact,
		limiter:   newIPLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
		staticDir: staticDir,
		router:    chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.http = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Run starts the server and handles graceful shutdown
func (s *Server) Run() error {
	background, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go s.sweep(background, time.Minute)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			zap.String("address", s.config.Address()),
			zap.Bool("debug", s.config.Debug),
			zap.String("api", s.config.API.BaseURL),
		)
		serverErrors <- s.http.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("shutting down", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("graceful shutdown failed", zap.Error(err))
			if err := s.http.Close(); err != nil {
				return fmt.Errorf("failed to close server: %w", err)
			}
		}

		s.logger.Info("server shutdown complete")
	}

	return nil
}

// sweep drops idle sessions and rate-limit entries until ctx is done
func (s *Server) sweep(ctx context.Context, interval time.Duration) {
	go s.sessions.Run(ctx, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.prune(10 * time.Minute)
		}
	}
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.accessLog)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.securityHeaders)
	// Compression and time limits are set per route group, see setupRoutes
}

// securityHeaders adds security-related headers to all responses
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Document links point at the backend host
		csp := "default-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"script-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data: https:; " +
			"font-src 'self'"
		w.Header().Set("Content-Security-Policy", csp)
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		next.ServeHTTP(w, r)
	})
}

// GetRouter returns the chi router (useful for testing)
func (s *Server) GetRouter() *chi.Mux {
	return s.router
}
