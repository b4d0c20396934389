package tenancy

import "context"

// RunAs executes op with tenantID as the current tenant. op receives a child
// context carrying its own slot, so the slot on ctx (if any) is never written
// and concurrent RunAs calls on the same ctx cannot observe each other. The
// child slot is cleared on every exit path, including a panic inside op.
// Errors and panics from op are passed through unchanged.
func RunAs(ctx context.Context, tenantID string, op func(ctx context.Context) error) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}

	scoped, slot := NewContext(ctx)
	slot.Set(tenantID)
	defer slot.Clear()

	return op(scoped)
}

// RunAsValue is RunAs for operations that produce a result.
func RunAsValue[T any](ctx context.Context, tenantID string, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := RunAs(ctx, tenantID, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
