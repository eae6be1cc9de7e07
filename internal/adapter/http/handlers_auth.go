package adapthttp

import (
	"errors"
	"net/http"

	"opspanel/internal/app"
	"opspanel/internal/domain"

	log "github.com/sirupsen/logrus"
)

type loginResponse struct {
	app.AuthState
	Menu []domain.Section `json:"menu"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"upstream":       s.opts.UpstreamURL,
		"vendors":        domain.KnownVendors,
		"periods":        []domain.AggregationPeriod{domain.PeriodDay, domain.PeriodWeek, domain.PeriodMonth},
		"minTokenLength": app.MinTokenLength,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// A new login replaces whatever session this browser held.
	if old, err := r.Cookie(sessionCookie); err == nil && old.Value != "" {
		if err := s.auth.Logout(r.Context(), old.Value); err != nil {
			log.WithError(err).Warn("login: drop previous session")
		}
	}

	id, model, err := s.auth.Login(r.Context(), req.Token, r.UserAgent(), clientIP(r, s.opts.TrustProxy))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, app.ErrTokenTooShort):
			status = http.StatusBadRequest
		case errors.Is(err, app.ErrInvalidToken), errors.Is(err, app.ErrTokenInactive):
			status = http.StatusUnauthorized
		default:
			log.WithError(err).Error("login")
		}
		writeJSON(w, status, errorBody{
			Error:        app.LoginFailureMessage(err),
			Notification: app.Notify(err),
		})
		return
	}

	setSessionCookie(w, r, id, int(s.opts.SessionTTL.Seconds()))
	writeJSON(w, http.StatusOK, loginResponse{AuthState: model.State(), Menu: domain.Menu(model)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
			log.WithError(err).Warn("logout")
		}
	}
	clearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.SessionFromContext(r.Context()).State())
}
