package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"stockflow/internal/common"
	"stockflow/internal/metrics"
	"stockflow/internal/services"
	"stockflow/internal/session"
	"stockflow/internal/tenancy"

	"github.com/labstack/echo/v4"
)

// TokenVerifier parses and validates bearer tokens.
type TokenVerifier interface {
	Claims(token string) (*services.TokenClaims, error)
}

// TrialChecker answers whether a tenant's trial has ended.
type TrialChecker interface {
	IsTrialExpired(ctx context.Context, tenantID string) (bool, error)
}

// FilterChain authenticates every request, resolves its tenant and
// enforces trial expiry. The steps always run in this order:
//
//  1. attach a fresh tenant slot, cleared when the request ends
//  2. let public paths through untouched
//  3. API paths need a valid bearer token, browser paths a session
//  4. resolve the tenant into the slot
//  5. reject or redirect tenants whose trial has ended
type FilterChain struct {
	tokens   TokenVerifier
	resolver *tenancy.Resolver
	trial    TrialChecker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewFilterChain(tokens TokenVerifier, resolver *tenancy.Resolver, trial TrialChecker, m *metrics.Metrics, logger *slog.Logger) *FilterChain {
	return &FilterChain{
		tokens:   tokens,
		resolver: resolver,
		trial:    trial,
		metrics:  m,
		logger:   logger,
	}
}

// Middleware returns the chain as echo middleware.
func (f *FilterChain) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, slot := tenancy.NewContext(c.Request().Context())
			defer slot.Clear()
			c.SetRequest(c.Request().WithContext(ctx))

			path := c.Request().URL.Path
			if IsPublicPath(path) {
				return next(c)
			}

			api := IsAPIPath(path)
			if api {
				claims, code, msg := f.bearerClaims(c.Request())
				if claims == nil {
					return common.SendError(c, http.StatusUnauthorized, code, msg)
				}
				ctx = common.WithPrincipal(ctx, &common.Principal{
					Username: claims.Subject,
					TenantID: claims.TenantID,
					Roles:    claims.Roles,
				})
				slot.Set(tenancy.Normalize(claims.TenantID))
			} else {
				s, ok := session.FromContext(ctx)
				if !ok || !s.IsAuthenticated() {
					return c.Redirect(http.StatusFound, LoginPath)
				}
				ctx = common.WithPrincipal(ctx, &common.Principal{
					Username: s.Username,
					TenantID: s.TenantID,
					Roles:    s.Roles,
				})
			}
			c.SetRequest(c.Request().WithContext(ctx))

			tenantID, err := f.resolver.Setup(c.Request(), false)
			if err != nil {
				f.logger.ErrorContext(ctx, "tenant resolution failed", "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "tenant resolution failed")
			}

			if tenantID != tenancy.PublicTenant && f.trialExpired(c.Request().Context(), tenantID) {
				if api {
					return common.SendError(c, http.StatusForbidden, common.CodeTrialExpired,
						"Your trial period has expired. Please choose a subscription plan to continue.")
				}
				if path != TrialExpiredPath {
					return c.Redirect(http.StatusFound, TrialExpiredPath)
				}
			}

			return next(c)
		}
	}
}

// bearerClaims returns the validated claims or the error code and message
// to send.
func (f *FilterChain) bearerClaims(req *http.Request) (*services.TokenClaims, string, string) {
	header := req.Header.Get(echo.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return nil, common.CodeUnauthorized, "Missing or malformed Authorization header"
	}

	claims, err := f.tokens.Claims(strings.TrimSpace(token))
	if err != nil {
		return nil, common.CodeInvalidToken, "Invalid or expired token"
	}
	if tenancy.Normalize(claims.TenantID) == "" {
		return nil, common.CodeInvalidToken, "Token carries no tenant"
	}
	return claims, "", ""
}

// trialExpired never blocks a request because of its own failure: errors
// and panics are logged and answered with false.
func (f *FilterChain) trialExpired(ctx context.Context, tenantID string) (expired bool) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.ErrorContext(ctx, "trial check panicked", "panic", r)
			f.metrics.ObserveTrialFailure()
			expired = false
		}
	}()

	ok, err := f.trial.IsTrialExpired(ctx, tenantID)
	if err != nil {
		f.logger.WarnContext(ctx, "trial check failed, letting request through", "error", err)
		f.metrics.ObserveTrialFailure()
		return false
	}
	return ok
}
