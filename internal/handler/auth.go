package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/homestead/homestead/internal/auth"
	"github.com/homestead/homestead/internal/handler/dto"
	"github.com/homestead/homestead/internal/middleware"
	"github.com/homestead/homestead/internal/service"
)

// AuthHandler signs users in and out.
type AuthHandler struct {
	svc          *service.UserService
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the session
// cookie Secure and should be set behind HTTPS.
func NewAuthHandler(svc *service.UserService, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:          svc,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, token string, expires time.Time) {
	c := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
	} else {
		c.Expires = expires
	}
	http.SetCookie(w, c)
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "username and password are required")
		return
	}

	res, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.setCookie(w, res.Token, res.ExpiresAt)
	h.logger.Info("login_succeeded", "user", res.User.Username)
	writeJSON(w, http.StatusOK, res)
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if err := middleware.ValidateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_USERNAME", err.Error())
		return
	}
	if err := middleware.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PASSWORD", err.Error())
		return
	}

	res, err := h.svc.Register(r.Context(), req.Username, req.Password, req.Access)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.setCookie(w, res.Token, res.ExpiresAt)
	writeJSON(w, http.StatusCreated, res)
}

// ChangePassword handles POST /api/user/change-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if err := middleware.ValidatePassword(req.New); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PASSWORD", err.Error())
		return
	}

	if err := h.svc.ChangePassword(r.Context(), auth.UsernameFromContext(r.Context()), req.Old, req.New); err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Password changed"})
}

// Logout handles POST /api/logout. The cookie is cleared even when the
// token could not be revoked.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), session); err != nil {
		h.logger.Warn("logout_revoke_failed", "error", err)
	}

	h.setCookie(w, "", time.Time{})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not signed in")
		return
	}
	access := session.Access
	if access == nil {
		access = []string{}
	}
	writeJSON(w, http.StatusOK, dto.SessionResponse{
		Username:  session.Username,
		Access:    access,
		ExpiresAt: session.ExpiresAt,
	})
}

// Users handles GET /api/users.
func (h *AuthHandler) Users(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.Usernames(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UsersResponse{Users: names})
}

// handleServiceError maps service errors to HTTP responses.
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
	case errors.Is(err, service.ErrRegistrationClosed):
		writeError(w, http.StatusUnauthorized, "REGISTRATION_CLOSED", err.Error())
	case errors.Is(err, service.ErrUsernameExists):
		writeError(w, http.StatusBadRequest, "USERNAME_EXISTS", err.Error())
	case errors.Is(err, service.ErrInvalidAccessGroup):
		writeError(w, http.StatusBadRequest, "INVALID_ACCESS_GROUP", err.Error())
	case errors.Is(err, service.ErrSamePassword):
		writeError(w, http.StatusBadRequest, "SAME_PASSWORD", err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", err.Error())
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
