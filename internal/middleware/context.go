package middleware

import "context"

type ctxKey int

const (
	userIDKey ctxKey = iota
	roleKey
)

func InjectUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

func InjectRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

func Role(ctx context.Context) string {
	v, _ := ctx.Value(roleKey).(string)
	return v
}
