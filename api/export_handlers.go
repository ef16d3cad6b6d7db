package api

import (
	"errors"
	"net/http"

	"morakib/storage"

	"github.com/gorilla/mux"
)

// exportAlert godoc
//
//	@Summary		Export alert to IRIS
//	@Description	Create a DFIR case from an alert. Falls back to a simulated export when IRIS is not configured.
//	@Tags			exports
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Alert ID"
//	@Success		200	{object}	service.ExportResult
//	@Failure		404	{object}	errorResponse
//	@Failure		502	{object}	errorResponse
//	@Router			/api/alerts/{id}/export-iris [post]
func (a *API) exportAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session, _ := GetSession(r.Context())

	result, err := a.exports.ExportAlert(r.Context(), id, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrAlertNotFound) {
			writeError(w, http.StatusNotFound, "alert not found", err, a.logger)
			return
		}
		writeError(w, http.StatusBadGateway, "export to IRIS failed", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, result, a.logger)
}

// listExports godoc
//
//	@Summary	List exports for an alert
//	@Tags		exports
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Alert ID"
//	@Success	200	{array}		storage.ExportRecord
//	@Failure	404	{object}	errorResponse
//	@Router		/api/alerts/{id}/exports [get]
func (a *API) listExports(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := a.alertStorage.GetAlert(id); err != nil {
		writeError(w, statusForStorageError(err), "alert not found", err, a.logger)
		return
	}

	records, err := a.exports.ListExports(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list exports", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, records, a.logger)
}
