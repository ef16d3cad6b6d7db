package api

import (
	"net/http"
)

// getDashboardStats godoc
//
//	@Summary		Get dashboard stats
//	@Description	Aggregate alert, investigation and leaderboard numbers for the dashboard. Served from cache for up to 30s when Redis is enabled.
//	@Tags			stats
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	service.DashboardStats
//	@Router			/api/stats [get]
func (a *API) getDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.stats.Dashboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to assemble dashboard stats", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, stats, a.logger)
}
