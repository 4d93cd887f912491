package shared

import "context"

// Tenant identifies the organization and acting user for a core call.
// It is always passed explicitly through context; the core never reads
// tenant state from process-wide variables.
type Tenant struct {
	OrgID   int64
	ActorID int64
}

type tenantContextKey struct{}

// ContextWithTenant stores the tenant in context.
func ContextWithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, t)
}

// TenantFromContext extracts the tenant from context.
func TenantFromContext(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(tenantContextKey{}).(Tenant)
	return t, ok && t.OrgID != 0
}
