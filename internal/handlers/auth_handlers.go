package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"stockflow/internal/common"
	"stockflow/internal/models"
	"stockflow/internal/services"
	"stockflow/internal/session"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authService services.AuthService
	sessions    *session.Manager
	logger      *slog.Logger
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(authService services.AuthService, sessions *session.Manager, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		sessions:    sessions,
		logger:      logger,
	}
}

// Login issues a bearer token.
//
//	@Summary	Log in and obtain a bearer token
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		models.LoginRequest	true	"Credentials and tenant"
//	@Success	200		{object}	models.TokenResponse
//	@Failure	400		{object}	common.ErrorResponse
//	@Failure	401		{object}	common.ErrorResponse
//	@Failure	429		{object}	common.ErrorResponse
//	@Router		/api/auth/login [post]
func (h *AuthHandlers) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeBadRequest, "Invalid request format")
	}

	resp, err := h.authService.Login(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a valid token for one with a fresh expiry.
//
//	@Summary	Refresh a bearer token
//	@Tags		auth
//	@Produce	json
//	@Param		Authorization	header		string	true	"Bearer token"
//	@Success	200				{object}	models.TokenResponse
//	@Failure	401				{object}	common.ErrorResponse
//	@Router		/api/auth/refresh [post]
func (h *AuthHandlers) Refresh(c echo.Context) error {
	token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return common.SendUnauthorizedError(c, "Missing or malformed Authorization header")
	}

	resp, err := h.authService.Refresh(c.Request().Context(), strings.TrimSpace(token))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// FormLogin handles the browser login form and starts a session.
func (h *AuthHandlers) FormLogin(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.Redirect(http.StatusFound, "/login?error=invalid")
	}

	ctx := c.Request().Context()
	principal, err := h.authService.Authenticate(ctx, &req)
	switch {
	case errors.Is(err, services.ErrTooManyAttempts):
		return c.Redirect(http.StatusFound, "/login?error=locked")
	case err != nil && !errors.Is(err, services.ErrValidation) && !errors.Is(err, services.ErrInvalidCredentials):
		h.logger.ErrorContext(ctx, "form login failed", "error", err)
		return c.Redirect(http.StatusFound, "/error")
	case err != nil:
		return c.Redirect(http.StatusFound, "/login?error=invalid")
	}

	if _, err := h.sessions.Start(c, principal.Username, principal.TenantID, principal.Roles); err != nil {
		h.logger.ErrorContext(ctx, "failed to start session", "error", err)
		return c.Redirect(http.StatusFound, "/error")
	}
	return c.Redirect(http.StatusFound, "/")
}

// Logout ends the browser session.
func (h *AuthHandlers) Logout(c echo.Context) error {
	if err := h.sessions.End(c); err != nil {
		h.logger.WarnContext(c.Request().Context(), "failed to end session", "error", err)
	}
	return c.Redirect(http.StatusFound, "/login?logout")
}
