package core

import "context"

type tenantKey struct{}

func WithTenant(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, tenantKey{}, host)
}

// TenantFromContext returns the host a request session was opened for, or "".
func TenantFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	host, _ := ctx.Value(tenantKey{}).(string)
	return host
}
