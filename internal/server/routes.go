package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// setupRoutes configures all application routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Use(middleware.Timeout(s.config.PageTimeout()))

		// Static files with cache headers
		r.Handle("/static/*", s.staticHandler())

		// Health check endpoint
		r.Get("/health", s.handleHealth)

		// Pages, each tied to a visitor session
		r.Group(func(r chi.Router) {
			r.Use(s.sessionMiddleware)

			r.Get("/", s.handleHome)
			r.Get("/services", s.handleServicesPage)
			r.Get("/about", s.handleAboutPage)
			r.Get("/contact", s.handleContactPage)
			r.Get("/language/{code}", s.handleLanguage)

			// Booking
			r.Get("/book", s.handleBookPage)
			r.Get("/book/new", s.handleNewBooking)
			r.Get("/book/submitted", s.handleBookSubmitted)

			// Public tracking
			r.Get("/track", s.handleTrackPage)

			// Form posts are throttled per client
			r.With(s.rateLimit).Post("/contact", s.handleContact)
		})

		// API routes (for field checks and the service details panel)
		r.Route("/api", func(r chi.Router) {
			r.With(s.rateLimit).Post("/validate", s.apiValidateField)
			r.Get("/services/{id}", s.apiGetService)
		})
	})

	// Booking posts carry files and may run both upload attempts, so they
	// get their own connection deadlines and time limit
	r.Group(func(r chi.Router) {
		r.Use(s.bookingDeadlines)
		r.Use(middleware.Compress(5))
		r.Use(middleware.Timeout(s.config.BookingTimeout()))
		r.Use(s.sessionMiddleware)
		r.Use(s.rateLimit)

		r.Post("/book", s.handleBookAction)
	})

	r.NotFound(s.handleNotFound)
}

// staticHandler serves static files with caching
func (s *Server) staticHandler() http.Handler {
	staticDir := filepath.Clean(s.staticDir)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urlPath := strings.TrimPrefix(r.URL.Path, "/static/")

		// Clean and validate the path to prevent directory traversal
		cleanPath := filepath.Clean(urlPath)
		if strings.Contains(cleanPath, "..") {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		fullPath := filepath.Join(staticDir, cleanPath)

		absStaticDir, _ := filepath.Abs(staticDir)
		absFullPath, _ := filepath.Abs(fullPath)
		if !strings.HasPrefix(absFullPath, absStaticDir) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		info, err := os.Stat(fullPath)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		// 1 week in production
		if !s.config.Debug {
			w.Header().Set("Cache-Control", "public, max-age=604800")
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}

		http.ServeFile(w, r, fullPath)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
