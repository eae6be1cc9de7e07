package adapthttp

import (
	"errors"
	"net/http"

	"opspanel/internal/app"
	"opspanel/internal/domain"

	log "github.com/sirupsen/logrus"
)

type pspMetricsRequest struct {
	PspVendors        []domain.PspVendor `json:"pspVendors"`
	StartDate         string             `json:"startDate"`
	EndDate           string             `json:"endDate"`
	AggregationPeriod string             `json:"aggregationPeriod"`
}

func (s *Server) handlePspMetrics(w http.ResponseWriter, r *http.Request) {
	var req pspMetricsRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	period, err := domain.ParseAggregationPeriod(req.AggregationPeriod)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	model := app.SessionFromContext(r.Context())
	res, err := s.metrics.Fetch(r.Context(), model, domain.MetricsQuery{
		PspVendors:        req.PspVendors,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		AggregationPeriod: period,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, app.ErrNoVendorsSelected):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, app.ErrUnauthenticated), errors.Is(err, domain.ErrUnauthorized):
		writeUnauthorized(w, r, err)
	default:
		log.WithError(err).Warn("psp metrics fetch")
		writeError(w, http.StatusBadGateway, err)
	}
}

func (s *Server) handlePspMetricsLatest(w http.ResponseWriter, r *http.Request) {
	model := app.SessionFromContext(r.Context())
	res, ok := s.metrics.Latest(model.ID())
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no metrics fetched yet"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
