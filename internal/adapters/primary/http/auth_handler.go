package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/portal-backend/internal/adapters/primary/validation"
	"github.com/lorrc/portal-backend/internal/auth"
	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

// AuthHandler exchanges portal credentials for access tokens.
type AuthHandler struct {
	userStore    ports.UserStore
	tokenManager *auth.TokenManager
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	userStore ports.UserStore,
	tokenManager *auth.TokenManager,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userStore:    userStore,
		tokenManager: tokenManager,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "auth"),
	}
}

// RegisterRoutes sets up the routing for auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.HandleLogin)
}

// LoginRequest defines the expected JSON body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the login request
func (r *LoginRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("email", r.Email).
		Email("email", r.Email)

	v.Required("password", r.Password)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// LoginResponse defines the JSON response for a successful login
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId"`
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[LoginRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		// Unknown accounts get the same answer as wrong passwords.
		if errors.Is(err, apperrors.ErrUserNotFound) {
			h.errorHandler.Handle(w, r, apperrors.ErrInvalidCredentials)
			return
		}
		h.errorHandler.Handle(w, r, err)
		return
	}

	if user.Disabled || !user.CheckPassword(req.Password) {
		h.errorHandler.Handle(w, r, apperrors.ErrInvalidCredentials)
		return
	}

	token, err := h.tokenManager.GenerateToken(user.ID)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewInternalError(err))
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID)

	WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		UserID:      user.ID.String(),
	})
}
