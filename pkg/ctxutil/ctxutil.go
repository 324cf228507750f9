package ctxutil

import (
	"context"
	"strings"
)

type ctxKey string

const (
	identifierKey ctxKey = "identifier"
	requestIDKey  ctxKey = "request_id"
)

// WithIdentifier stores a caller-supplied correlation tag in the context.
// It is recorded with every key usage entry produced under ctx.
func WithIdentifier(ctx context.Context, identifier string) context.Context {
	return context.WithValue(ctx, identifierKey, identifier)
}

// IdentifierFromCtx extracts the correlation tag from the context.
// Returns "" and false if the value is missing, blank, or of the wrong type.
func IdentifierFromCtx(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identifierKey).(string)
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
