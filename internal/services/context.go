package services

import "context"

type contextKey string

const (
	fileIDKey    contextKey = "file_id"
	batchIDKey   contextKey = "batch_id"
	requestIDKey contextKey = "request_id"
)

// WithFileID annotates context with the conversion source file identity.
func WithFileID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, fileIDKey, id)
}

// FileIDFromContext extracts the file identity if present.
func FileIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(fileIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithBatchID annotates context with the batch run tag.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch run tag if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
