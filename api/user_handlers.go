package api

import (
	"net/http"
	"time"

	"morakib/core"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// createUserRequest is the payload for a new analyst account
type createUserRequest struct {
	Email     string        `json:"email" validate:"required,email"`
	Name      string        `json:"name" validate:"required,min=1,max=200"`
	Password  string        `json:"password" validate:"required,min=8,max=128"`
	Role      core.UserRole `json:"role,omitempty"`
	TeamID    string        `json:"team_id,omitempty"`
	AvatarURL string        `json:"avatar_url,omitempty"`
}

// updateUserRequest holds the mutable user fields; nil means unchanged
type updateUserRequest struct {
	Name      *string        `json:"name,omitempty"`
	Role      *core.UserRole `json:"role,omitempty"`
	TeamID    *string        `json:"team_id,omitempty"`
	AvatarURL *string        `json:"avatar_url,omitempty"`
	Password  *string        `json:"password,omitempty"`
}

// userMetricsResponse pairs a user's profile with their recent daily metrics
type userMetricsResponse struct {
	User    *core.UserSummary    `json:"user"`
	Metrics []core.AnalystMetric `json:"metrics"`
}

// listUsers godoc
//
//	@Summary		List users
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			role	query	string	false	"Filter by role"
//	@Param			team_id	query	string	false	"Filter by team"
//	@Param			search	query	string	false	"Search in name and email"
//	@Success		200	{array}	core.User
//	@Router			/api/users [get]
func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := core.UserFilters{
		Role:   core.UserRole(q.Get("role")),
		TeamID: q.Get("team_id"),
		Search: q.Get("search"),
	}
	if filters.Role != "" && !filters.Role.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid role filter", nil, a.logger)
		return
	}

	users, err := a.userStorage.ListUsers(filters)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, users, a.logger)
}

// createUser godoc
//
//	@Summary		Create user
//	@Description	Create an analyst account. Requires LEAD or ADMIN role.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			user	body		createUserRequest	true	"User payload"
//	@Success		201	{object}	core.User
//	@Failure		400	{object}	errorResponse
//	@Failure		409	{object}	errorResponse
//	@Router			/api/users [post]
func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid user payload", err, a.logger)
		return
	}
	if req.Role != "" && !req.Role.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid role", nil, a.logger)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password", err, a.logger)
		return
	}

	user := core.NewUser(req.Email, req.Name)
	user.PasswordHash = string(hash)
	if req.Role != "" {
		user.Role = req.Role
	}
	user.TeamID = req.TeamID
	user.AvatarURL = req.AvatarURL

	if err := a.userStorage.CreateUser(user); err != nil {
		writeError(w, statusForStorageError(err), "failed to create user", err, a.logger)
		return
	}
	a.logger.Infow("User created", "user_id", user.ID, "email", user.Email, "role", user.Role)
	respondJSON(w, http.StatusCreated, user, a.logger)
}

// getUser godoc
//
//	@Summary	Get user
//	@Tags		users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	core.User
//	@Failure	404	{object}	errorResponse
//	@Router		/api/users/{id} [get]
func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	user, err := a.userStorage.GetUser(id)
	if err != nil {
		writeError(w, statusForStorageError(err), "user not found", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, user, a.logger)
}

// updateUser godoc
//
//	@Summary		Update user
//	@Description	Update an analyst account. Requires LEAD or ADMIN role.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"User ID"
//	@Param			user	body		updateUserRequest	true	"Fields to change"
//	@Success		200	{object}	core.User
//	@Failure		400	{object}	errorResponse
//	@Failure		404	{object}	errorResponse
//	@Router			/api/users/{id} [put]
func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateUserRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	user, err := a.userStorage.GetUser(id)
	if err != nil {
		writeError(w, statusForStorageError(err), "user not found", err, a.logger)
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty", nil, a.logger)
			return
		}
		user.Name = *req.Name
	}
	if req.Role != nil {
		if !req.Role.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid role", nil, a.logger)
			return
		}
		user.Role = *req.Role
	}
	if req.TeamID != nil {
		user.TeamID = *req.TeamID
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters", nil, a.logger)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to hash password", err, a.logger)
			return
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := a.userStorage.UpdateUser(user); err != nil {
		writeError(w, statusForStorageError(err), "failed to update user", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, user, a.logger)
}

// updateOwnProfileRequest holds the self-service profile fields
type updateOwnProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// updateOwnProfile godoc
//
//	@Summary		Update own profile
//	@Description	Update the authenticated user's display name and avatar
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			profile	body		updateOwnProfileRequest	true	"Fields to change"
//	@Success		200	{object}	core.User
//	@Failure		400	{object}	errorResponse
//	@Router			/api/users/me [put]
func (a *API) updateOwnProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil, a.logger)
		return
	}

	var req updateOwnProfileRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	user, err := a.userStorage.GetUser(session.UserID)
	if err != nil {
		writeError(w, statusForStorageError(err), "user not found", err, a.logger)
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty", nil, a.logger)
			return
		}
		user.Name = *req.Name
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	user.UpdatedAt = time.Now().UTC()

	if err := a.userStorage.UpdateUser(user); err != nil {
		writeError(w, statusForStorageError(err), "failed to update profile", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, user, a.logger)
}

// deleteUser godoc
//
//	@Summary		Delete user
//	@Description	Delete an analyst account. Requires LEAD or ADMIN role.
//	@Tags			users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User ID"
//	@Success		204
//	@Failure		404	{object}	errorResponse
//	@Router			/api/users/{id} [delete]
func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.userStorage.DeleteUser(id); err != nil {
		writeError(w, statusForStorageError(err), "failed to delete user", err, a.logger)
		return
	}
	a.logger.Infow("User deleted", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// getUserMetrics godoc
//
//	@Summary		Get user metrics
//	@Description	Fetch a user's recent daily performance metrics, newest first
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path	string	true	"User ID"
//	@Param			days	query	int		false	"Number of days (default 30)"
//	@Success		200	{object}	userMetricsResponse
//	@Failure		404	{object}	errorResponse
//	@Router			/api/users/{id}/metrics [get]
func (a *API) getUserMetrics(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	user, err := a.userStorage.GetUser(id)
	if err != nil {
		writeError(w, statusForStorageError(err), "user not found", err, a.logger)
		return
	}

	days := 30
	if d := r.URL.Query().Get("days"); d != "" {
		if parsed, err := parsePositiveInt(d, 365); err == nil {
			days = parsed
		}
	}

	userMetrics, err := a.metricStorage.ListMetricsForAnalyst(id, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load metrics", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, userMetricsResponse{
		User:    user.Summary(),
		Metrics: userMetrics,
	}, a.logger)
}
