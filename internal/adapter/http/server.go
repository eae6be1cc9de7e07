// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"net/http"
	"time"

	"opspanel/internal/app"
	"opspanel/internal/domain"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth    *app.AuthService
	metrics *app.MetricsService
	opts    Options
}

// Options configures the adapter.
type Options struct {
	WebDir      string
	UpstreamURL string
	SessionTTL  time.Duration

	// TrustProxy honours X-Forwarded-For. Enable only behind a reverse proxy
	// that overwrites the header.
	TrustProxy bool
}

// New creates a Server wired to the given application services.
func New(auth *app.AuthService, metrics *app.MetricsService, opts Options) *Server {
	return &Server{auth: auth, metrics: metrics, opts: opts}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.HandleFunc("GET /config", s.handleConfig)
	api.HandleFunc("POST /login", s.handleLogin)
	api.HandleFunc("POST /logout", s.handleLogout)

	api.Handle("GET /me", s.authMiddleware(http.HandlerFunc(s.handleMe)))
	api.Handle("GET /menu", s.authMiddleware(http.HandlerFunc(s.handleMenu)))

	projectx := func(h http.HandlerFunc) http.Handler {
		return s.authMiddleware(requireSection(domain.SectionProjectX, h))
	}
	api.Handle("POST /projectx/psp-metrics", projectx(s.handlePspMetrics))
	api.Handle("GET /projectx/psp-metrics/latest", projectx(s.handlePspMetricsLatest))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("/", spaFromDisk(s.opts.WebDir))

	return loggingMiddleware(withNoCache(root))
}
