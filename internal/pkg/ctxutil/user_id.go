package ctxutil

import "context"

// userIDKeyType is private to avoid collisions with other context keys
type userIDKeyType struct{}

var userIDKey = userIDKeyType{}

// WithUserID injects the authenticated account id into the context.
// The auth middleware calls this after JWT validation:
//
//	ctx := ctxutil.WithUserID(c.Request.Context(), claims.UserID)
//	c.Request = c.Request.WithContext(ctx)
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID extracts the account id from the context.
func GetUserID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v := ctx.Value(userIDKey)
	id, ok := v.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
