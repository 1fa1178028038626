// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware and CLI entrypoints set the values;
// services read them without importing net/http.
package requestcontext

import "context"

type operatorKey struct{}
type requestIDKey struct{}

// WithOperator records who is performing the current action.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operator)
}

// Operator returns the acting operator, or "" when unauthenticated.
func Operator(ctx context.Context) string {
	v, _ := ctx.Value(operatorKey{}).(string)
	return v
}

// WithRequestID records the correlation ID for the current request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the correlation ID, or "" outside a request.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}
