package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stockflow/internal/common"
	"stockflow/internal/models"
	"stockflow/internal/repositories"
	"stockflow/internal/tenancy"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxLoginAttempts   = 10
	loginAttemptWindow = 15 * time.Minute
)

// AttemptLimiter throttles repeated login attempts. Satisfied by
// caching.RateLimiter.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, key string) error
}

// AuthService verifies credentials within a tenant and issues tokens.
type AuthService interface {
	// Authenticate checks the credentials and returns the principal.
	Authenticate(ctx context.Context, req *models.LoginRequest) (*common.Principal, error)
	// Login authenticates and issues a bearer token.
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)
	// Refresh exchanges a valid token for one with a fresh expiry.
	Refresh(ctx context.Context, token string) (*models.TokenResponse, error)
}

type authService struct {
	users   repositories.UserRepository
	tokens  *TokenProvider
	limiter AttemptLimiter
	logger  *slog.Logger
}

// NewAuthService creates a new authentication service. limiter may be nil.
func NewAuthService(users repositories.UserRepository, tokens *TokenProvider, limiter AttemptLimiter, logger *slog.Logger) AuthService {
	return &authService{
		users:   users,
		tokens:  tokens,
		limiter: limiter,
		logger:  logger,
	}
}

func (s *authService) Authenticate(ctx context.Context, req *models.LoginRequest) (*common.Principal, error) {
	if err := common.ValidateRequiredString(req.Username, "username"); err != nil {
		return nil, invalid("username", err)
	}
	if err := common.ValidateRequiredString(req.Password, "password"); err != nil {
		return nil, invalid("password", err)
	}
	if err := common.ValidateRequiredString(req.TenantID, "tenantId"); err != nil {
		return nil, invalid("tenantId", err)
	}

	tenantID := tenancy.Normalize(req.TenantID)
	attemptKey := "login:" + tenantID + ":" + req.Username
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, attemptKey, maxLoginAttempts, loginAttemptWindow)
		if err != nil {
			s.logger.WarnContext(ctx, "login rate limiter unavailable", "error", err)
		} else if !allowed {
			return nil, ErrTooManyAttempts
		}
	}

	user, err := s.users.GetByUsername(ctx, tenantID, req.Username)
	if errors.Is(err, repositories.ErrUserNotFound) {
		s.logger.InfoContext(ctx, "login rejected", "tenant_id", tenantID, "reason", "unknown user")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if user.Status != models.UserStatusActive {
		s.logger.InfoContext(ctx, "login rejected", "tenant_id", tenantID, "reason", "inactive user")
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.InfoContext(ctx, "login rejected", "tenant_id", tenantID, "reason", "bad password")
		return nil, ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, attemptKey); err != nil {
			s.logger.WarnContext(ctx, "failed to reset login attempts", "error", err)
		}
	}

	return &common.Principal{Username: user.Username, TenantID: tenantID, Roles: user.Roles}, nil
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	principal, err := s.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(Identity{Username: principal.Username, Roles: principal.Roles}, principal.TenantID)
	if err != nil {
		return nil, err
	}
	return s.response(token, principal.Username, principal.TenantID, principal.Roles), nil
}

func (s *authService) Refresh(ctx context.Context, token string) (*models.TokenResponse, error) {
	refreshed, err := s.tokens.Refresh(token)
	if err != nil {
		return nil, err
	}
	claims, err := s.tokens.Claims(refreshed)
	if err != nil {
		return nil, err
	}
	return s.response(refreshed, claims.Subject, claims.TenantID, claims.Roles), nil
}

func (s *authService) response(token, username, tenantID string, roles []string) *models.TokenResponse {
	if roles == nil {
		roles = []string{}
	}
	return &models.TokenResponse{
		Token:     token,
		Type:      "Bearer",
		Username:  username,
		TenantID:  tenantID,
		Roles:     roles,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
	}
}
