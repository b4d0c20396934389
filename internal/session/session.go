// Package session keeps browser sign-ins in Redis and exposes the signed-in
// principal and tenant on the request context.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Session represents a browser sign-in.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	TenantID  string    `json:"tenant_id"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New creates a session with a random identifier.
func New(username, tenantID string, roles []string, now time.Time, ttl time.Duration) (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        id,
		Username:  username,
		TenantID:  tenantID,
		Roles:     append([]string(nil), roles...),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsAuthenticated returns true if the session belongs to a user
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Username != ""
}

// IsExpired returns true if the session has expired at now
func (s *Session) IsExpired(now time.Time) bool {
	return s != nil && !now.Before(s.ExpiresAt)
}

func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
