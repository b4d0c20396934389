package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error codes returned in the "error" field of failure responses.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeBadRequest    = "BAD_REQUEST"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeInvalidToken  = "INVALID_TOKEN"
	CodeInvalidLogin  = "INVALID_CREDENTIALS"
	CodeForbidden     = "ACCESS_DENIED"
	CodeTrialExpired  = "TRIAL_EXPIRED"
	CodeLimitExceeded = "LIMIT_EXCEEDED"
	CodeMissingTenant = "TENANT_REQUIRED"
	CodeTooMany       = "TOO_MANY_ATTEMPTS"
	CodeConflict      = "CONFLICT"
	CodeServer        = "SERVER_ERROR"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	return &ErrorResponse{Error: code, Message: message, Details: details}
}

// SendError writes an error response with the given status.
func SendError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, CreateErrorResponse(code, message, nil))
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse(CodeValidation, "Validation failed", details))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return SendError(c, http.StatusInternalServerError, CodeServer, message)
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context, message string) error {
	return SendError(c, http.StatusUnauthorized, CodeUnauthorized, message)
}
