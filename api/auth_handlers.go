package api

import (
	"errors"
	"net/http"
	"time"

	"morakib/storage"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// loginRequest holds login credentials
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// loginResponse carries the session token and the authenticated user
type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      interface{} `json:"user"`
}

// login godoc
//
//	@Summary		Log in
//	@Description	Authenticate with email and password, returns a bearer token
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body		loginRequest	true	"Login credentials"
//	@Success		200	{object}	loginResponse
//	@Failure		400	{object}	errorResponse
//	@Failure		401	{object}	errorResponse
//	@Router			/api/auth/login [post]
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var creds loginRequest
	if err := decodeJSONBody(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil, a.logger)
		return
	}

	validate := validator.New()
	if err := validate.Struct(creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login credentials format", err, a.logger)
		return
	}

	user, err := a.userStorage.GetUserByEmail(creds.Email)
	if err != nil {
		// Don't reveal whether the account exists
		a.logger.Infow("Login attempt failed",
			"email", creds.Email,
			"reason", "user_not_found",
			"request_id", GetRequestID(r.Context()))
		writeError(w, http.StatusUnauthorized, "invalid credentials", nil, a.logger)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		a.logger.Infow("Login attempt failed",
			"email", creds.Email,
			"reason", "bad_password",
			"request_id", GetRequestID(r.Context()))
		writeError(w, http.StatusUnauthorized, "invalid credentials", nil, a.logger)
		return
	}

	ttl := time.Duration(a.config.Auth.TokenTTLMinutes) * time.Minute
	token, err := generateJWT(user, a.jwtSecret, ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token", err, a.logger)
		return
	}

	a.logger.Infow("User logged in", "user_id", user.ID, "email", user.Email)
	respondJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(ttl),
		User:      user.Summary(),
	}, a.logger)
}

// currentUser godoc
//
//	@Summary	Get the authenticated user
//	@Tags		auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	core.User
//	@Failure	401	{object}	errorResponse
//	@Router		/api/auth/me [get]
func (a *API) currentUser(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated", nil, a.logger)
		return
	}

	user, err := a.userStorage.GetUser(session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "user no longer exists", nil, a.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user", err, a.logger)
		return
	}
	respondJSON(w, http.StatusOK, user, a.logger)
}
