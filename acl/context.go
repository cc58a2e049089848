package acl

import "context"

type userKey struct{}

// WithUser returns a context carrying the caller's user id.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom reads the user id from the context. Anonymous callers get "".
func UserFrom(ctx context.Context) string {
	user, _ := ctx.Value(userKey{}).(string)
	return user
}
