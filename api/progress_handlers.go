package api

import (
	"errors"
	"net/http"
	"time"

	"morakib/core"
	"morakib/metrics"
	"morakib/progress"

	"github.com/gorilla/mux"
)

// saveProgressRequest is the client's view of its checklist state
type saveProgressRequest struct {
	ChecklistState core.ChecklistState `json:"checklist_state"`
	ActiveStep     int                 `json:"active_step"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	Completed      bool                `json:"completed"`
	ElapsedSeconds int                 `json:"elapsed_seconds"`
}

// getSOPProgress godoc
//
//	@Summary		Get SOP progress
//	@Description	Fetch the caller's saved state for a procedure. Returns the empty default state when none is saved.
//	@Tags			sop-progress
//	@Produce		json
//	@Security		BearerAuth
//	@Param			slug	path		string	true	"SOP slug"
//	@Success		200	{object}	core.SOPProgress
//	@Router			/api/sop-progress/{slug} [get]
func (a *API) getSOPProgress(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSession(r.Context())
	key := progress.Key{UserID: session.UserID, SOPSlug: mux.Vars(r)["slug"]}

	state, err := progress.LoadOrNew(r.Context(), a.progressStore, key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load progress", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, state, a.logger)
}

// saveSOPProgress godoc
//
//	@Summary		Save SOP progress
//	@Description	Upsert the caller's state for a procedure. Completion percentage and completion timestamp are recomputed server-side.
//	@Tags			sop-progress
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			slug		path		string				true	"SOP slug"
//	@Param			progress	body		saveProgressRequest	true	"Progress state"
//	@Success		200	{object}	core.SOPProgress
//	@Failure		400	{object}	errorResponse
//	@Router			/api/sop-progress/{slug} [post]
func (a *API) saveSOPProgress(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSession(r.Context())
	slug := mux.Vars(r)["slug"]

	var req saveProgressRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}
	if req.ElapsedSeconds < 0 {
		writeError(w, http.StatusBadRequest, "elapsed_seconds cannot be negative", nil, a.logger)
		return
	}

	state := core.NewSOPProgress(session.UserID, slug)
	state.ChecklistState = req.ChecklistState
	state.ActiveStep = req.ActiveStep
	state.StartedAt = req.StartedAt
	state.Completed = req.Completed
	state.ElapsedSeconds = req.ElapsedSeconds
	state.Normalize(time.Now().UTC())

	key := progress.Key{UserID: session.UserID, SOPSlug: slug}
	if err := a.progressStore.Save(r.Context(), key, state); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save progress", err, a.logger)
		return
	}

	metrics.SOPProgressSaves.Inc()
	respondJSON(w, http.StatusOK, state, a.logger)
}

// clearSOPProgress godoc
//
//	@Summary		Reset SOP progress
//	@Description	Delete the caller's saved state for a procedure. Clearing absent state is not an error.
//	@Tags			sop-progress
//	@Security		BearerAuth
//	@Param			slug	path	string	true	"SOP slug"
//	@Success		204
//	@Router			/api/sop-progress/{slug} [delete]
func (a *API) clearSOPProgress(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSession(r.Context())
	key := progress.Key{UserID: session.UserID, SOPSlug: mux.Vars(r)["slug"]}

	if err := a.progressStore.Clear(r.Context(), key); err != nil && !errors.Is(err, progress.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to reset progress", err, a.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
