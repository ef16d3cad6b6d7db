package api

import (
	"net/http"
	"time"

	"morakib/core"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// createSOPRequest is the payload for a new procedure
type createSOPRequest struct {
	Title           string               `json:"title" validate:"required,min=1,max=300"`
	Category        string               `json:"category,omitempty"`
	Status          core.SOPStatus       `json:"status,omitempty"`
	AlertTypes      []string             `json:"alert_types,omitempty"`
	ContentMarkdown string               `json:"content_markdown,omitempty"`
	Checklist       []core.ChecklistItem `json:"checklist,omitempty"`
	Examples        []core.SOPExample    `json:"examples,omitempty"`
}

// updateSOPRequest holds the mutable SOP fields; nil means unchanged
type updateSOPRequest struct {
	Title           *string              `json:"title,omitempty"`
	Category        *string              `json:"category,omitempty"`
	Status          *core.SOPStatus      `json:"status,omitempty"`
	AlertTypes      []string             `json:"alert_types,omitempty"`
	ContentMarkdown *string              `json:"content_markdown,omitempty"`
	Checklist       []core.ChecklistItem `json:"checklist,omitempty"`
	Examples        []core.SOPExample    `json:"examples,omitempty"`
}

// listSOPs godoc
//
//	@Summary		List SOPs
//	@Description	List stored procedures with optional category/status/search filters
//	@Tags			sops
//	@Produce		json
//	@Security		BearerAuth
//	@Param			category	query	string	false	"Filter by category"
//	@Param			status		query	string	false	"Filter by status"
//	@Param			search		query	string	false	"Search in title"
//	@Success		200	{array}	core.SOP
//	@Router			/api/sops [get]
func (a *API) listSOPs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := core.SOPFilters{
		Category: q.Get("category"),
		Status:   core.SOPStatus(q.Get("status")),
		Search:   q.Get("search"),
	}
	if filters.Status != "" && !filters.Status.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid status filter", nil, a.logger)
		return
	}

	sops, err := a.sopStorage.ListSOPs(filters)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list SOPs", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, sops, a.logger)
}

// createSOP godoc
//
//	@Summary		Create SOP
//	@Description	Create a procedure. The slug is derived from the title and must be unique.
//	@Tags			sops
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			sop	body		createSOPRequest	true	"SOP payload"
//	@Success		201	{object}	core.SOP
//	@Failure		400	{object}	errorResponse
//	@Failure		409	{object}	errorResponse
//	@Router			/api/sops [post]
func (a *API) createSOP(w http.ResponseWriter, r *http.Request) {
	session, _ := GetSession(r.Context())

	var req createSOPRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid SOP payload", err, a.logger)
		return
	}
	if req.Status != "" && !req.Status.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid status", nil, a.logger)
		return
	}

	sop := core.NewSOP(req.Title)
	sop.Category = req.Category
	if req.Status != "" {
		sop.Status = req.Status
	}
	sop.AlertTypes = req.AlertTypes
	sop.ContentMarkdown = req.ContentMarkdown
	sop.Checklist = req.Checklist
	sop.Examples = req.Examples
	sop.CreatedByID = session.UserID

	if err := a.sopStorage.CreateSOP(sop); err != nil {
		writeError(w, statusForStorageError(err), "failed to create SOP", err, a.logger)
		return
	}
	a.logger.Infow("SOP created", "sop_id", sop.ID, "slug", sop.Slug)
	respondJSON(w, http.StatusCreated, sop, a.logger)
}

// getSOP godoc
//
//	@Summary		Get SOP
//	@Description	Fetch a procedure by ID or slug
//	@Tags			sops
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"SOP ID or slug"
//	@Success		200	{object}	core.SOP
//	@Failure		404	{object}	errorResponse
//	@Router			/api/sops/{id} [get]
func (a *API) getSOP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sop, err := a.sopStorage.GetSOP(id)
	if err != nil {
		sop, err = a.sopStorage.GetSOPBySlug(id)
	}
	if err != nil {
		writeError(w, statusForStorageError(err), "SOP not found", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, sop, a.logger)
}

// updateSOP godoc
//
//	@Summary		Update SOP
//	@Description	Update a procedure. Every update bumps the version. Renaming re-derives the slug.
//	@Tags			sops
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string				true	"SOP ID"
//	@Param			sop	body		updateSOPRequest	true	"Fields to change"
//	@Success		200	{object}	core.SOP
//	@Failure		400	{object}	errorResponse
//	@Failure		404	{object}	errorResponse
//	@Failure		409	{object}	errorResponse
//	@Router			/api/sops/{id} [put]
func (a *API) updateSOP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateSOPRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	sop, err := a.sopStorage.GetSOP(id)
	if err != nil {
		writeError(w, statusForStorageError(err), "SOP not found", err, a.logger)
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			writeError(w, http.StatusBadRequest, "title cannot be empty", nil, a.logger)
			return
		}
		sop.Title = *req.Title
		sop.Slug = core.Slugify(*req.Title)
	}
	if req.Category != nil {
		sop.Category = *req.Category
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid status", nil, a.logger)
			return
		}
		sop.Status = *req.Status
	}
	if req.AlertTypes != nil {
		sop.AlertTypes = req.AlertTypes
	}
	if req.ContentMarkdown != nil {
		sop.ContentMarkdown = *req.ContentMarkdown
	}
	if req.Checklist != nil {
		sop.Checklist = req.Checklist
	}
	if req.Examples != nil {
		sop.Examples = req.Examples
	}
	sop.UpdatedAt = time.Now().UTC()

	if err := a.sopStorage.UpdateSOP(sop); err != nil {
		writeError(w, statusForStorageError(err), "failed to update SOP", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, sop, a.logger)
}

// deleteSOP godoc
//
//	@Summary	Delete SOP
//	@Tags		sops
//	@Security	BearerAuth
//	@Param		id	path	string	true	"SOP ID"
//	@Success	204
//	@Failure	404	{object}	errorResponse
//	@Router		/api/sops/{id} [delete]
func (a *API) deleteSOP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.sopStorage.DeleteSOP(id); err != nil {
		writeError(w, statusForStorageError(err), "failed to delete SOP", err, a.logger)
		return
	}
	a.logger.Infow("SOP deleted", "sop_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// listSOPTemplates godoc
//
//	@Summary		List SOP templates
//	@Description	List the compiled-in step-by-step procedure guides
//	@Tags			sops
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}	core.SOPTemplate
//	@Router			/api/sop-templates [get]
func (a *API) listSOPTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := core.SOPTemplates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load templates", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, templates, a.logger)
}

// getSOPTemplate godoc
//
//	@Summary	Get SOP template
//	@Tags		sops
//	@Produce	json
//	@Security	BearerAuth
//	@Param		slug	path		string	true	"Template slug"
//	@Success	200	{object}	core.SOPTemplate
//	@Failure	404	{object}	errorResponse
//	@Router		/api/sop-templates/{slug} [get]
func (a *API) getSOPTemplate(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	template, err := core.SOPTemplateBySlug(slug)
	if err != nil {
		writeError(w, http.StatusNotFound, "template not found", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, template, a.logger)
}
