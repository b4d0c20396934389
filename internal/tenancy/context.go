package tenancy

import (
	"context"
	"sync"
)

// PublicTenant is returned by the resolver when no tenant evidence exists
// and the caller did not demand a definite answer.
const PublicTenant = "public"

type slotKey struct{}

// Slot holds the tenant for a single unit of work. Every request gets its
// own slot, so a Set on one request is never visible to another.
type Slot struct {
	mu     sync.RWMutex
	tenant string
	set    bool
}

// Set stores the tenant identifier. No validation is performed here.
func (s *Slot) Set(tenantID string) {
	s.mu.Lock()
	s.tenant = tenantID
	s.set = true
	s.mu.Unlock()
}

// Get returns the stored tenant and whether one is present.
func (s *Slot) Get() (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenant, s.set
}

// Clear removes the stored tenant.
func (s *Slot) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.tenant = ""
	s.set = false
	s.mu.Unlock()
}

// NewContext attaches a fresh, empty slot to ctx.
// The caller owns the slot and must Clear it when the unit of work ends.
func NewContext(ctx context.Context) (context.Context, *Slot) {
	slot := &Slot{}
	return context.WithValue(ctx, slotKey{}, slot), slot
}

// FromContext returns the slot attached to ctx, or nil.
func FromContext(ctx context.Context) *Slot {
	slot, _ := ctx.Value(slotKey{}).(*Slot)
	return slot
}

// Current returns the tenant stored in the slot attached to ctx.
func Current(ctx context.Context) (string, bool) {
	return FromContext(ctx).Get()
}

// Require returns the current tenant or ErrMissingTenant.
func Require(ctx context.Context) (string, error) {
	tenantID, ok := Current(ctx)
	if !ok || tenantID == "" {
		return "", ErrMissingTenant
	}
	return tenantID, nil
}
