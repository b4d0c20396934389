package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"stockflow/internal/common"
	"stockflow/internal/tenancy"

	"github.com/labstack/echo/v4"
)

// Audit writes one audit record for every state-changing request that
// reached a handler. Reads are only recorded when they fail.
func Audit(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			method := c.Request().Method
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			if !shouldAudit(method, status, err) {
				return err
			}

			ctx := c.Request().Context()
			attrs := []any{
				"action", method + " " + c.Path(),
				"status", status,
				"duration", time.Since(start),
				"ip", c.RealIP(),
			}
			if principal, ok := common.PrincipalFromContext(ctx); ok {
				attrs = append(attrs, "user", principal.Username)
			}
			if tenantID, ok := tenancy.Current(ctx); ok {
				attrs = append(attrs, "tenant", tenantID)
			}
			if err != nil {
				attrs = append(attrs, "error", err)
			}

			logger.InfoContext(ctx, "audit", attrs...)
			return err
		}
	}
}

func shouldAudit(method string, status int, err error) bool {
	if err != nil || status >= http.StatusBadRequest {
		return true
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
