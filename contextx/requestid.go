package contextx

import "context"

// WithRequestID tags ctx with the id of the request being served. Every
// cache span started under ctx records it as request.id, so a slow ledger
// page can be traced back from the capacity or simple tier. An empty id
// leaves ctx untouched.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id on ctx, or "" when none is set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
