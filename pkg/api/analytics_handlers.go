package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shoshosho1210/coinrader/pkg/analytics"
	"github.com/shoshosho1210/coinrader/pkg/httputil"
)

// StatsHandlers serves the operator-facing analytics endpoints.
type StatsHandlers struct {
	service *analytics.Service
}

// NewStatsHandlers creates a new stats handlers instance.
func NewStatsHandlers(service *analytics.Service) *StatsHandlers {
	return &StatsHandlers{service: service}
}

// RegisterRoutes registers the analytics routes on the given (already
// authenticated) subrouter.
func (h *StatsHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/overview", h.getOverview).Methods("GET")
	r.HandleFunc("/partners/top", h.getTopPartners).Methods("GET")
	r.HandleFunc("/partners/{partner}", h.getPartnerStats).Methods("GET")
	r.HandleFunc("/clicks/daily", h.getClicksDaily).Methods("GET")
}

// getOverview handles GET /api/v1/analytics/overview
// Returns high-level KPIs for the click dashboard.
func (h *StatsHandlers) getOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.GetOverview(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, overview)
}

// getTopPartners handles GET /api/v1/analytics/partners/top
// Query params:
//   - period: Time period (7d, 30d, 90d) - default: 30d
//   - limit: Number of results (1-50) - default: 50
func (h *StatsHandlers) getTopPartners(w http.ResponseWriter, r *http.Request) {
	period := queryPeriod(r)

	limit, err := httputil.ParseQueryInt(r, "limit", 50)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	partners, err := h.service.GetTopPartners(r.Context(), period, limit)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, partners)
}

// getPartnerStats handles GET /api/v1/analytics/partners/{partner}
func (h *StatsHandlers) getPartnerStats(w http.ResponseWriter, r *http.Request) {
	partner, ok := httputil.ParsePathStringOrError(w, r, "partner")
	if !ok {
		return
	}

	stats, err := h.service.GetPartnerStats(r.Context(), partner, queryPeriod(r))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, stats)
}

// getClicksDaily handles GET /api/v1/analytics/clicks/daily
// Returns the per-day click series split by category.
func (h *StatsHandlers) getClicksDaily(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.GetClicksDaily(r.Context(), queryPeriod(r))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, series)
}

func queryPeriod(r *http.Request) string {
	return httputil.ParseQueryString(r, "period", "30d")
}
