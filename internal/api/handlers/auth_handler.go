package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/taskflow-be/internal/auth"
	"github.com/isdelr/taskflow-be/internal/models"
	"github.com/isdelr/taskflow-be/internal/services"
)

// AuthHandler handles HTTP requests for registration and sessions.
type AuthHandler struct {
	service *services.AuthService
	secure  bool
}

// NewAuthHandler creates a new AuthHandler. secure marks the session cookie Secure.
func NewAuthHandler(service *services.AuthService, secure bool) *AuthHandler {
	return &AuthHandler{service: service, secure: secure}
}

// CredentialsPayload defines the structure for register and login requests.
type CredentialsPayload struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

func (h *AuthHandler) readCredentials(w http.ResponseWriter, r *http.Request) (CredentialsPayload, bool) {
	var payload CredentialsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return payload, false
	}
	if payload.Username == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return payload, false
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "username or password too long")
		return payload, false
	}
	return payload, true
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	user, token, err := h.service.Register(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			writeError(w, http.StatusConflict, "User already exists")
			return
		}
		log.Error().Err(err).Str("username", payload.Username).Msg("Failed to register user")
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	h.service.Tokens().SetCookie(w, token, h.secure)
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":        user.ID,
		"username":  user.Username,
		"createdAt": models.FormatTime(user.CreatedAt),
	})
}

// Login handles user authentication and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	user, token, err := h.service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error().Err(err).Str("username", payload.Username).Msg("Login failed")
		writeError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	h.service.Tokens().SetCookie(w, token, h.secure)
	writeJSON(w, http.StatusOK, map[string]string{"id": user.ID, "username": user.Username})
}

// Logout clears the session cookie. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), auth.TokenFromRequest(r))
	auth.ClearCookie(w, h.secure)
	w.WriteHeader(http.StatusNoContent)
}

// GetMe returns the currently authenticated user.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": user.ID, "username": user.Username})
}
