package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/authz"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID     contextKey = "user_id"
	ctxRole       contextKey = "actor_role"
	ctxSupplierID contextKey = "supplier_id"
	ctxTokenID    contextKey = "token_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func SupplierIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSupplierID).(string); ok {
		return v
	}
	return ""
}

// TokenIDFromContext returns the jti of the presented access token.
func TokenIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxTokenID).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext rebuilds the authenticated caller; ok is false when no valid user is attached.
func ActorFromContext(ctx context.Context) (authz.Actor, bool) {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return authz.Actor{}, false
	}
	role := enums.Role(RoleFromContext(ctx))
	if !role.IsValid() {
		return authz.Actor{}, false
	}
	actor := authz.Actor{UserID: userID, Role: role}
	if raw := SupplierIDFromContext(ctx); raw != "" {
		if supplierID, err := uuid.Parse(raw); err == nil {
			actor.SupplierID = &supplierID
		}
	}
	return actor, true
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the caller role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// WithSupplierID injects the supplier identifier into the context for downstream handlers.
func WithSupplierID(ctx context.Context, supplierID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSupplierID, supplierID)
}

// WithActor seeds every identity key at once; used by tests and internal callers.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	ctx = WithUserID(ctx, actor.UserID.String())
	ctx = WithRole(ctx, string(actor.Role))
	if actor.SupplierID != nil {
		ctx = WithSupplierID(ctx, actor.SupplierID.String())
	}
	return ctx
}
