package ctxutil

import "context"

type operatorKey struct{}

// WithOperator records the authenticated operator (token subject) on ctx.
func WithOperator(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, operatorKey{}, subject)
}

func GetOperator(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(operatorKey{}).(string)
	return s
}
