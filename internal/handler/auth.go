package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/auth"
	"github.com/sakif/meal-planner/internal/model"
	"github.com/sakif/meal-planner/internal/service"
	"github.com/sakif/meal-planner/internal/validate"
)

// AuthHandler serves the credential endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account and sign it in
//   - HandleLogin    → exchange email + password for a bearer token
//   - HandleMe       → return the profile behind the attached token
//
// Token parsing happens earlier, in auth.OptionalAuth; by the time a handler
// runs, the identity (if any) is already on the request context.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, logger: logger}
}

type authResponse struct {
	Success bool             `json:"success"`
	Token   string           `json:"token"`
	User    model.PublicUser `json:"user"`
}

type userResponse struct {
	Success bool             `json:"success"`
	User    model.PublicUser `json:"user"`
}

// HandleRegister creates a user.
//
// HTTP: POST /auth/register
// Body: {"name": "...", "email": "...", "password": "..."}
// Response: 201 {"success": true, "token": "...", "user": {...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in validate.Registration
	if err := validate.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), &in); err != nil {
		writeError(w, h.logger, err, "Registration failed")
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err, "Registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Success: true, Token: res.Token, User: res.User})
}

// HandleLogin signs a user in.
//
// HTTP: POST /auth/login
// Body: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in validate.Login
	if err := validate.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), &in); err != nil {
		writeError(w, h.logger, err, "Login failed")
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, Token: res.Token, User: res.User})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /auth/me
//
// Anonymous callers and tokens whose user has since disappeared both get 401.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.auth.WhoAmI(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			writeFailure(w, http.StatusUnauthorized, "User not found")
			return
		}
		writeError(w, h.logger, err, "Failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}
