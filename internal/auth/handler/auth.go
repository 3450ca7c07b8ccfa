package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paycore/payroll-backend/internal/auth/service"
	"github.com/paycore/payroll-backend/pkg/httputil"
	"github.com/paycore/payroll-backend/pkg/logger"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	service *service.AuthService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: log}
}

// LoginRequest is the login request body
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates a user and returns a token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// CreateUserRequest is the add-user request body
type CreateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin operator"`
}

// CreateUser adds a new user account (admin only)
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.AddUser(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, user)
}

// ListUsers lists all user accounts (admin only)
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, users)
}

// DeleteUser deletes a user account (admin only)
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if err := h.service.DeleteUser(r.Context(), username); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
