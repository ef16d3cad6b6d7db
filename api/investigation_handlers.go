package api

import (
	"errors"
	"net/http"

	"morakib/service"
	"morakib/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// submitInvestigation godoc
//
//	@Summary		Submit investigation
//	@Description	Record the caller's investigation of an alert. The conclusion drives the alert's next status and the analyst's daily metrics, atomically.
//	@Tags			investigations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id				path		string					true	"Alert ID"
//	@Param			investigation	body		service.SubmitRequest	true	"Investigation payload"
//	@Success		201	{object}	service.SubmitResult
//	@Failure		400	{object}	errorResponse
//	@Failure		404	{object}	errorResponse
//	@Router			/api/alerts/{id}/investigate [post]
func (a *API) submitInvestigation(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil, a.logger)
		return
	}

	var req service.SubmitRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}
	req.AlertID = mux.Vars(r)["id"]
	req.AnalystID = session.UserID

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid investigation payload", err, a.logger)
		return
	}
	if !req.Conclusion.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid conclusion", nil, a.logger)
		return
	}

	result, err := a.investigations.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, storage.ErrAlertNotFound) {
			writeError(w, http.StatusNotFound, "alert not found", err, a.logger)
			return
		}
		if errors.Is(err, storage.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "analyst not found", err, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to submit investigation", err, a.logger)
		return
	}
	respondJSON(w, http.StatusCreated, result, a.logger)
}

// listInvestigations godoc
//
//	@Summary	List investigations for an alert
//	@Tags		investigations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Alert ID"
//	@Success	200	{array}		core.Investigation
//	@Failure	404	{object}	errorResponse
//	@Router		/api/alerts/{id}/investigations [get]
func (a *API) listInvestigations(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// 404 for unknown alerts rather than an empty list
	if _, err := a.alertStorage.GetAlert(id); err != nil {
		writeError(w, statusForStorageError(err), "alert not found", err, a.logger)
		return
	}

	investigations, err := a.investigations.ListByAlert(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list investigations", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, investigations, a.logger)
}
