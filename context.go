package gradebook

import (
	"context"

	"github.com/xraph/forge"
)

type contextKey int

const (
	ctxKeyAppID contextKey = iota
	ctxKeyTenantID
	ctxKeyActor
)

// WithTenant returns a context with the given app and tenant IDs. They are
// recorded on audit entries. Use this for standalone mode (without Forge).
func WithTenant(ctx context.Context, appID, tenantID string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyAppID, appID)
	ctx = context.WithValue(ctx, ctxKeyTenantID, tenantID)
	return ctx
}

// WithActor returns a context naming who performs the operation. The actor
// is recorded on audit entries.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

// ActorFromContext returns the actor set by WithActor. Under Forge it falls
// back to the authenticated user id, and returns "" when neither is present.
func ActorFromContext(ctx context.Context) string {
	if actor := stringFromContext(ctx, ctxKeyActor); actor != "" {
		return actor
	}
	return forge.UserIDFromContext(ctx)
}

func appIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyAppID)
}

func tenantIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyTenantID)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	v, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return v
}
