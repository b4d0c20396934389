package services

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stockflow/internal/metrics"
	"stockflow/internal/tenancy"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// minSecretBytes is the HS512 key size.
const minSecretBytes = 64

var (
	// ErrInvalidToken is returned for any token that fails validation. The
	// concrete reason is only logged.
	ErrInvalidToken = errors.New("invalid token")

	// ErrWeakSecret is returned when the signing secret is shorter than 64 bytes.
	ErrWeakSecret = errors.New("jwt secret must be at least 64 bytes")
)

// Identity is the authenticated principal a token is issued for.
type Identity struct {
	Username string
	Roles    []string
}

// TokenClaims represents JWT claims
type TokenClaims struct {
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenProviderConfig holds the signing settings.
type TokenProviderConfig struct {
	Secret           string
	Issuer           string
	Audience         string
	TTL              time.Duration
	AllowShortSecret bool
}

// TokenOption customizes a TokenProvider.
type TokenOption func(*TokenProvider)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) TokenOption {
	return func(p *TokenProvider) { p.now = now }
}

// WithTokenMetrics records validation results.
func WithTokenMetrics(m *metrics.Metrics) TokenOption {
	return func(p *TokenProvider) { p.metrics = m }
}

// TokenProvider issues and validates HS512 signed tokens that bind a user,
// a tenant and the user's roles. The key is derived once and never changes.
type TokenProvider struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	parser   *jwt.Parser
}

// NewTokenProvider derives the signing key from cfg.Secret. The secret is
// base64-decoded when it is valid base64 and used as raw bytes otherwise.
func NewTokenProvider(cfg TokenProviderConfig, logger *slog.Logger, opts ...TokenOption) (*TokenProvider, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: secret is empty", ErrWeakSecret)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", cfg.TTL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	key := decodeSecret(cfg.Secret)
	if len(key) < minSecretBytes {
		if !cfg.AllowShortSecret {
			return nil, fmt.Errorf("%w: got %d bytes", ErrWeakSecret, len(key))
		}
		logger.Warn("jwt secret is shorter than 64 bytes, padding with zeros",
			"length", len(key))
		padded := make([]byte, minSecretBytes)
		copy(padded, key)
		key = padded
	}

	p := &TokenProvider{
		key:      key,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	}
	if p.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(p.audience))
	}
	p.parser = jwt.NewParser(parserOpts...)

	return p, nil
}

func decodeSecret(secret string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil && len(decoded) > 0 {
		return decoded
	}
	return []byte(secret)
}

// TTL returns the lifetime of issued tokens.
func (p *TokenProvider) TTL() time.Duration {
	return p.ttl
}

// Issue creates a signed token for identity within tenantID.
func (p *TokenProvider) Issue(identity Identity, tenantID string) (string, error) {
	if identity.Username == "" {
		return "", errors.New("token subject is required")
	}
	tenantID = tenancy.Normalize(tenantID)
	if tenantID == "" {
		return "", errors.New("token tenant is required")
	}

	now := p.now()
	claims := TokenClaims{
		TenantID: tenantID,
		Roles:    append([]string(nil), identity.Roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   identity.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	if p.audience != "" {
		claims.Audience = jwt.ClaimStrings{p.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Claims parses and fully validates token. Any failure is reported as
// ErrInvalidToken.
func (p *TokenProvider) Claims(token string) (claims *TokenClaims, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("token parser panicked", "panic", r)
			p.metrics.ObserveToken("malformed")
			claims, err = nil, ErrInvalidToken
		}
	}()

	parsed := &TokenClaims{}
	_, parseErr := p.parser.ParseWithClaims(token, parsed, func(*jwt.Token) (any, error) {
		return p.key, nil
	})
	if parseErr != nil {
		reason := failureReason(parseErr)
		p.logger.Debug("token rejected", "reason", reason, "error", parseErr)
		p.metrics.ObserveToken(reason)
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, reason)
	}
	if parsed.Subject == "" {
		p.logger.Debug("token rejected", "reason", "claims", "error", "missing subject")
		p.metrics.ObserveToken("claims")
		return nil, fmt.Errorf("%w: claims", ErrInvalidToken)
	}

	p.metrics.ObserveToken("valid")
	return parsed, nil
}

// Validate reports whether token has a valid signature, has not expired and
// carries the expected issuer, audience and a subject.
func (p *TokenProvider) Validate(token string) bool {
	_, err := p.Claims(token)
	return err == nil
}

// ExtractUsername returns the subject, or "" when the token is invalid.
func (p *TokenProvider) ExtractUsername(token string) string {
	claims, err := p.Claims(token)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// ExtractTenantID returns the tenant claim, or "" when the token is invalid.
func (p *TokenProvider) ExtractTenantID(token string) string {
	claims, err := p.Claims(token)
	if err != nil {
		return ""
	}
	return claims.TenantID
}

// ExtractRoles returns the roles claim, or nil when the token is invalid.
func (p *TokenProvider) ExtractRoles(token string) []string {
	claims, err := p.Claims(token)
	if err != nil {
		return nil
	}
	return claims.Roles
}

// ExtractExpiry returns the expiry, or the zero time when the token is invalid.
func (p *TokenProvider) ExtractExpiry(token string) time.Time {
	claims, err := p.Claims(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Refresh issues a new token with the same subject, tenant and roles and a
// fresh expiry. The old token stays valid until it expires.
func (p *TokenProvider) Refresh(token string) (string, error) {
	claims, err := p.Claims(token)
	if err != nil {
		return "", err
	}
	return p.Issue(Identity{Username: claims.Subject, Roles: claims.Roles}, claims.TenantID)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unsupported"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return "claims"
	default:
		return "invalid"
	}
}
