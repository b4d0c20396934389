package handlers

import (
	"errors"
	"net/http"

	"stockflow/internal/common"
	"stockflow/internal/repositories"
	"stockflow/internal/services"
	"stockflow/internal/tenancy"

	"github.com/labstack/echo/v4"
)

// respondError maps service errors to JSON error responses.
func respondError(c echo.Context, err error) error {
	var validation *services.ValidationError
	var limit *services.LimitExceededError

	switch {
	case errors.As(err, &validation):
		return common.SendValidationError(c, validation.Field, validation.Message)
	case errors.As(err, &limit):
		return c.JSON(http.StatusForbidden, common.CreateErrorResponse(common.CodeLimitExceeded, limit.Message, nil))
	case errors.Is(err, services.ErrTrialExpired):
		return common.SendError(c, http.StatusForbidden, common.CodeTrialExpired, "Your trial period has expired")
	case errors.Is(err, tenancy.ErrMissingTenant):
		return common.SendError(c, http.StatusBadRequest, common.CodeMissingTenant, "Tenant identifier is required")
	case errors.Is(err, repositories.ErrTenantNotFound):
		return common.SendError(c, http.StatusBadRequest, common.CodeMissingTenant, "Unknown tenant")
	case errors.Is(err, services.ErrInvalidCredentials):
		return common.SendError(c, http.StatusUnauthorized, common.CodeInvalidLogin, "Invalid username, password or tenant")
	case errors.Is(err, services.ErrInvalidToken):
		return common.SendError(c, http.StatusUnauthorized, common.CodeInvalidToken, "Invalid or expired token")
	case errors.Is(err, services.ErrTooManyAttempts):
		return common.SendError(c, http.StatusTooManyRequests, common.CodeTooMany, "Too many login attempts, try again later")
	case errors.Is(err, repositories.ErrDuplicate):
		return common.SendError(c, http.StatusConflict, common.CodeConflict, "A record with the same identity already exists")
	default:
		c.Logger().Error(err)
		return common.SendServerError(c, "Internal server error")
	}
}
