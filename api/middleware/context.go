package middleware

import (
	"context"

	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

type contextKey string

const ctxUserID contextKey = "user_id"

// UserIDFromContext returns the authenticated actor, or the zero id for
// anonymous requests.
func UserIDFromContext(ctx context.Context) types.ObjectID {
	if ctx == nil {
		return types.NilObjectID
	}
	if v, ok := ctx.Value(ctxUserID).(types.ObjectID); ok {
		return v
	}
	return types.NilObjectID
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID types.ObjectID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}
