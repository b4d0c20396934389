package tenancy

import "errors"

var (
	// ErrMissingTenant is returned when a tenant was demanded but none could be resolved.
	ErrMissingTenant = errors.New("tenant could not be resolved")

	// ErrEmptyTenant is returned by RunAs when asked to switch to an empty identifier.
	ErrEmptyTenant = errors.New("tenant identifier is empty")

	// ErrNoSlot is returned when a tenant is written to a context that has no slot.
	ErrNoSlot = errors.New("no tenant slot in context")
)
