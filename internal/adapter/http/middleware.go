package adapthttp

import (
	"errors"
	"net/http"
	"time"

	"opspanel/internal/app"
	"opspanel/internal/domain"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	sessionCookie   = "auth-storage"
	requestIDHeader = "X-Request-ID"
	loginPath       = "/login"
)

// authMiddleware restores the session named by the cookie and binds it to the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			writeUnauthorized(w, r, app.ErrUnauthenticated)
			return
		}

		model, err := s.auth.Session(r.Context(), cookie.Value)
		if errors.Is(err, app.ErrSessionNotFound) || errors.Is(err, app.ErrSessionExpired) {
			writeUnauthorized(w, r, err)
			return
		}
		if err != nil {
			log.WithError(err).Error("restore session")
			writeError(w, http.StatusInternalServerError, errors.New("internal error"))
			return
		}

		next.ServeHTTP(w, r.WithContext(app.WithSession(r.Context(), model)))
	})
}

// requireSection rejects requests whose session cannot see the section.
func requireSection(key string, next http.Handler) http.Handler {
	section, ok := domain.LookupSection(key)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		model := app.SessionFromContext(r.Context())
		if !ok || model == nil || !section.Visible(model) {
			writeError(w, http.StatusForbidden, errors.New("forbidden"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
			"request_id": reqID,
		}).Info("request")
	})
}
