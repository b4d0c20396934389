package middleware

import (
	"net/http"
	"slices"

	"stockflow/internal/common"

	"github.com/labstack/echo/v4"
)

// RequireRole lets the request through when the principal holds any of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := common.PrincipalFromContext(c.Request().Context())
			if !ok {
				return common.SendUnauthorizedError(c, "User not authenticated")
			}

			if !slices.ContainsFunc(roles, principal.HasRole) {
				if IsAPIPath(c.Request().URL.Path) {
					return common.SendError(c, http.StatusForbidden, common.CodeForbidden, "Insufficient permissions")
				}
				return c.Redirect(http.StatusFound, AccessDeniedPath)
			}

			return next(c)
		}
	}
}
