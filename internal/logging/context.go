package logging

import (
	"context"
	"log/slog"

	"resound/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldFileID is the standardized structured logging key for source file identities.
	FieldFileID = "file_id"
	// FieldBatchID is the standardized structured logging key for batch run tags.
	FieldBatchID = "batch_id"
	// FieldEventType is the standardized structured logging key for machine-readable event markers.
	FieldEventType = "event_type"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.FileIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFileID, id))
	}
	if id, ok := services.BatchIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
