package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"psnrwanda/internal/i18n"
	"psnrwanda/internal/session"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	sessionContextKey contextKey = "session"
)

// languageCookie holds the visitor's language choice
const languageCookie = "psn_lang"

// languageCookieAge keeps the choice across sessions
const languageCookieAge = 365 * 24 * time.Hour

// sessionMiddleware attaches the visitor session, starting a new one when
// the cookie is missing, tampered, expired or points at a swept session
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *session.Session

		if cookie, err := r.Cookie(session.CookieName); err == nil {
			if id, err := s.signer.Verify(cookie.Value); err == nil {
				sess, _ = s.sessions.Get(id)
			}
		}

		if sess == nil {
			sess = s.sessions.Create()
			token, err := s.signer.Sign(sess.ID)
			if err != nil {
				s.logger.Error("failed to sign session", zap.Error(err))
				http.Error(w, "Error starting session", http.StatusInternalServerError)
				return
			}
			s.setSessionCookie(w, token)
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getSession extracts the visitor session from request context
func getSession(r *http.Request) *session.Session {
	sess, ok := r.Context().Value(sessionContextKey).(*session.Session)
	if !ok {
		return nil
	}
	return sess
}

// setSessionCookie sets the session cookie
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.signer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   !s.config.Debug,
		SameSite: http.SameSiteLaxMode,
	})
}

// requestLanguage returns the visitor's chosen language, or the site default
// when the cookie is missing or names an unsupported language
func (s *Server) requestLanguage(r *http.Request) i18n.Language {
	if cookie, err := r.Cookie(languageCookie); err == nil {
		if lang, ok := i18n.ParseLanguage(cookie.Value); ok {
			return lang
		}
	}
	return s.language.Get()
}

func (s *Server) setLanguageCookie(w http.ResponseWriter, lang i18n.Language) {
	http.SetCookie(w, &http.Cookie{
		Name:     languageCookie,
		Value:    string(lang),
		Path:     "/",
		MaxAge:   int(languageCookieAge.Seconds()),
		HttpOnly: true,
		Secure:   !s.config.Debug,
		SameSite: http.SameSiteLaxMode,
	})
}

// ipLimiter keeps one token bucket per client ip
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute, burst int) *ipLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		now:      time.Now,
	}
}

// allow reports whether ip may make another request now
func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = l.now()
	return entry.limiter.AllowN(entry.lastSeen, 1)
}

// prune forgets clients not seen for idle
func (l *ipLimiter) prune(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > idle {
			delete(l.limiters, ip)
		}
	}
}

// rateLimit throttles form posts per client ip
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			s.logger.Warn("rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", r.URL.Path),
			)
			http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port RemoteAddr carries when no proxy header was set
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// bookingDeadlines moves the connection deadlines set by the http.Server
// timeouts out far enough for a booking post. It must run before any
// middleware that wraps the writer without an Unwrap method.
func (s *Server) bookingDeadlines(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		rc := http.NewResponseController(w)
		if err := rc.SetReadDeadline(now.Add(s.config.BookingReadTimeout())); err != nil && !errors.Is(err, http.ErrNotSupported) {
			s.logger.Warn("failed to extend read deadline", zap.Error(err))
		}
		if err := rc.SetWriteDeadline(now.Add(s.config.BookingTimeout() + 5*time.Second)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			s.logger.Warn("failed to extend write deadline", zap.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog logs request details
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("remote_ip", clientIP(r)),
		}
		switch {
		case ww.statusCode >= 500:
			s.logger.Error("request", fields...)
		case r.URL.Path == "/health":
			s.logger.Debug("request", fields...)
		default:
			s.logger.Info("request", fields...)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wrote {
		rw.statusCode = code
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wrote = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// getURLParam is a helper to get URL parameters
func getURLParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
