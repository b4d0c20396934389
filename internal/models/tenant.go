package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

// Tenant is a subscribing organisation. Slug is the tenant identifier that
// appears in tokens, sessions and the X-Tenant-ID header.
type Tenant struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Slug        string     `json:"slug" db:"slug"`
	Name        string     `json:"name" db:"name"`
	Plan        string     `json:"plan" db:"plan"`
	Status      string     `json:"status" db:"status"`
	TrialEndsAt *time.Time `json:"trial_ends_at" db:"trial_ends_at"`
	MaxUsers    *int64     `json:"max_users" db:"max_users"`       // overrides the plan cap when set
	MaxProducts *int64     `json:"max_products" db:"max_products"` // overrides the plan cap when set
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TrialExpired reports whether the tenant has a trial end date at or before now.
func (t *Tenant) TrialExpired(now time.Time) bool {
	return t.TrialEndsAt != nil && !now.Before(*t.TrialEndsAt)
}
