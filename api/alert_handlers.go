package api

import (
	"net/http"
	"time"

	"morakib/core"
	"morakib/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// createAlertRequest is the ingestion payload for a new alert
type createAlertRequest struct {
	Title       string             `json:"title" validate:"required,min=1,max=300"`
	Description string             `json:"description,omitempty" validate:"max=5000"`
	Severity    core.AlertSeverity `json:"severity,omitempty"`
	Source      core.AlertSource   `json:"source,omitempty"`
	SourceIP    string             `json:"source_ip,omitempty"`
	DestIP      string             `json:"dest_ip,omitempty"`
	SourcePort  *int               `json:"source_port,omitempty"`
	DestPort    *int               `json:"dest_port,omitempty"`
	Protocol    string             `json:"protocol,omitempty"`
	RuleName    string             `json:"rule_name,omitempty"`
	RuleID      string             `json:"rule_id,omitempty"`
	RawLog      core.JSONMap       `json:"raw_log,omitempty"`
	DetectedAt  *time.Time         `json:"detected_at,omitempty"`
}

// updateAlertRequest holds the mutable alert fields; nil means unchanged
type updateAlertRequest struct {
	Title          *string             `json:"title,omitempty"`
	Description    *string             `json:"description,omitempty"`
	Severity       *core.AlertSeverity `json:"severity,omitempty"`
	Status         *core.AlertStatus   `json:"status,omitempty"`
	AssignedToID   *string             `json:"assigned_to_id,omitempty"`
	EnrichmentData core.JSONMap        `json:"enrichment_data,omitempty"`
}

// listAlerts godoc
//
//	@Summary		List alerts
//	@Description	List alerts with pagination and optional status/severity/source/search filters
//	@Tags			alerts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query	int		false	"Page number"
//	@Param			limit		query	int		false	"Page size"
//	@Param			status		query	string	false	"Filter by status"
//	@Param			severity	query	string	false	"Filter by severity"
//	@Param			source		query	string	false	"Filter by source"
//	@Param			assigned_to	query	string	false	"Filter by assignee"
//	@Param			search		query	string	false	"Search in title, description, IPs and rule name"
//	@Success		200	{object}	PaginationResponse
//	@Router			/api/alerts [get]
func (a *API) listAlerts(w http.ResponseWriter, r *http.Request) {
	params := ParsePaginationParams(r, 20, 100)
	q := r.URL.Query()

	filters := core.AlertFilters{
		Page:       params.Page,
		Limit:      params.Limit,
		Status:     core.AlertStatus(q.Get("status")),
		Severity:   core.AlertSeverity(q.Get("severity")),
		Source:     core.AlertSource(q.Get("source")),
		AssignedTo: q.Get("assigned_to"),
		Search:     q.Get("search"),
	}
	if filters.Status != "" && !filters.Status.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid status filter", nil, a.logger)
		return
	}
	if filters.Severity != "" && !filters.Severity.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid severity filter", nil, a.logger)
		return
	}
	if filters.Source != "" && !filters.Source.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid source filter", nil, a.logger)
		return
	}

	alerts, total, err := a.alertStorage.ListAlerts(filters)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list alerts", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, NewPaginationResponse(alerts, total, params), a.logger)
}

// createAlert godoc
//
//	@Summary		Create alert
//	@Description	Ingest a new alert. Severity defaults to MEDIUM, source to CUSTOM.
//	@Tags			alerts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			alert	body		createAlertRequest	true	"Alert payload"
//	@Success		201	{object}	core.Alert
//	@Failure		400	{object}	errorResponse
//	@Router			/api/alerts [post]
func (a *API) createAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert payload", err, a.logger)
		return
	}
	if req.Severity != "" && !req.Severity.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid severity", nil, a.logger)
		return
	}
	if req.Source != "" && !req.Source.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid source", nil, a.logger)
		return
	}

	alert := core.NewAlert(req.Title)
	alert.Description = req.Description
	if req.Severity != "" {
		alert.Severity = req.Severity
	}
	if req.Source != "" {
		alert.Source = req.Source
	}
	alert.SourceIP = req.SourceIP
	alert.DestIP = req.DestIP
	alert.SourcePort = req.SourcePort
	alert.DestPort = req.DestPort
	alert.Protocol = req.Protocol
	alert.RuleName = req.RuleName
	alert.RuleID = req.RuleID
	alert.RawLog = req.RawLog
	if req.DetectedAt != nil {
		alert.DetectedAt = req.DetectedAt.UTC()
	}

	if err := a.alertStorage.CreateAlert(alert); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create alert", err, a.logger)
		return
	}

	metrics.AlertsCreated.WithLabelValues(alert.Severity.String(), alert.Source.String()).Inc()
	a.logger.Infow("Alert created", "alert_id", alert.ID, "severity", alert.Severity, "source", alert.Source)
	respondJSON(w, http.StatusCreated, alert, a.logger)
}

// alertDetailResponse is an alert together with its investigation history
type alertDetailResponse struct {
	*core.Alert
	Investigations []core.Investigation `json:"investigations"`
}

// getAlert godoc
//
//	@Summary	Get alert
//	@Description	Fetch an alert together with its investigation history, newest first
//	@Tags		alerts
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Alert ID"
//	@Success	200	{object}	alertDetailResponse
//	@Failure	404	{object}	errorResponse
//	@Router		/api/alerts/{id} [get]
func (a *API) getAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	alert, err := a.alertStorage.GetAlert(id)
	if err != nil {
		writeError(w, statusForStorageError(err), "alert not found", err, a.logger)
		return
	}
	investigations, err := a.investigations.ListByAlert(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load investigations", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, alertDetailResponse{Alert: alert, Investigations: investigations}, a.logger)
}

// updateAlert godoc
//
//	@Summary		Update alert
//	@Description	Partially update an alert. Manual status changes apply the resolution timestamp policy.
//	@Tags			alerts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"Alert ID"
//	@Param			alert	body		updateAlertRequest	true	"Fields to change"
//	@Success		200	{object}	core.Alert
//	@Failure		400	{object}	errorResponse
//	@Failure		404	{object}	errorResponse
//	@Router			/api/alerts/{id} [patch]
func (a *API) updateAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateAlertRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	alert, err := a.alertStorage.GetAlert(id)
	if err != nil {
		writeError(w, statusForStorageError(err), "alert not found", err, a.logger)
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			writeError(w, http.StatusBadRequest, "title cannot be empty", nil, a.logger)
			return
		}
		alert.Title = *req.Title
	}
	if req.Description != nil {
		alert.Description = *req.Description
	}
	if req.Severity != nil {
		if !req.Severity.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid severity", nil, a.logger)
			return
		}
		alert.Severity = *req.Severity
	}
	if req.AssignedToID != nil {
		alert.AssignedToID = *req.AssignedToID
	}
	if req.EnrichmentData != nil {
		alert.EnrichmentData = req.EnrichmentData
	}

	now := time.Now().UTC()
	if req.Status != nil {
		if !req.Status.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid status", nil, a.logger)
			return
		}
		a.resolutionPolicy().Apply(alert, *req.Status, now)
	} else {
		alert.UpdatedAt = now
	}

	if err := a.alertStorage.UpdateAlert(alert); err != nil {
		writeError(w, statusForStorageError(err), "failed to update alert", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, alert, a.logger)
}

// deleteAlert godoc
//
//	@Summary	Delete alert
//	@Tags		alerts
//	@Security	BearerAuth
//	@Param		id	path	string	true	"Alert ID"
//	@Success	204
//	@Failure	404	{object}	errorResponse
//	@Router		/api/alerts/{id} [delete]
func (a *API) deleteAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.alertStorage.DeleteAlert(id); err != nil {
		writeError(w, statusForStorageError(err), "failed to delete alert", err, a.logger)
		return
	}
	a.logger.Infow("Alert deleted", "alert_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// assignAlertRequest names the analyst to assign; empty means self-assign
type assignAlertRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// assignAlert godoc
//
//	@Summary		Assign alert
//	@Description	Assign an alert to an analyst. Omitting user_id assigns to the caller. NEW alerts move to ASSIGNED.
//	@Tags			alerts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string				true	"Alert ID"
//	@Param			assignment	body		assignAlertRequest	false	"Assignment target"
//	@Success		200	{object}	core.Alert
//	@Failure		404	{object}	errorResponse
//	@Router			/api/alerts/{id}/assign [post]
func (a *API) assignAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session, _ := GetSession(r.Context())

	var req assignAlertRequest
	if r.ContentLength > 0 {
		if err := decodeJSONBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
			return
		}
	}
	userID := req.UserID
	if userID == "" {
		userID = session.UserID
	}

	if _, err := a.userStorage.GetUser(userID); err != nil {
		writeError(w, statusForStorageError(err), "assignee not found", err, a.logger)
		return
	}

	if err := a.alertStorage.AssignAlert(id, userID, time.Now().UTC()); err != nil {
		writeError(w, statusForStorageError(err), "failed to assign alert", err, a.logger)
		return
	}

	alert, err := a.alertStorage.GetAlert(id)
	if err != nil {
		writeError(w, statusForStorageError(err), "alert not found", err, a.logger)
		return
	}
	a.logger.Infow("Alert assigned", "alert_id", id, "user_id", userID)
	respondJSON(w, http.StatusOK, alert, a.logger)
}

// resolutionPolicy derives the timestamp policy from config
func (a *API) resolutionPolicy() core.ResolutionPolicy {
	return core.ResolutionPolicy{ClearOnReopen: a.config.Alerts.ClearResolvedOnReopen}
}
