package adapthttp

import (
	"net/http"
	"path"

	"opspanel/internal/app"
	"opspanel/internal/domain"
)

type menuResponse struct {
	Sections    []domain.Section `json:"sections"`
	SelectedKey string           `json:"selectedKey"`
	OpenKey     string           `json:"openKey"`
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	current := "/"
	if p := r.URL.Query().Get("path"); p != "" {
		current = path.Clean("/" + p)
	}
	writeJSON(w, http.StatusOK, menuResponse{
		Sections:    domain.Menu(app.SessionFromContext(r.Context())),
		SelectedKey: current,
		OpenKey:     domain.OpenSection(current),
	})
}
