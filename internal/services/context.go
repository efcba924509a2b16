package services

import "context"

type contextKey string

const (
	referenceKey  contextKey = "reference"
	capabilityKey contextKey = "capability"
	requestIDKey  contextKey = "request_id"
)

// WithReference annotates context with the transcript reference being processed.
func WithReference(ctx context.Context, ref string) context.Context {
	if ref == "" {
		return ctx
	}
	return context.WithValue(ctx, referenceKey, ref)
}

// ReferenceFromContext extracts the transcript reference if present.
func ReferenceFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(referenceKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCapability annotates context with the capability agent handling the call.
func WithCapability(ctx context.Context, capability string) context.Context {
	if capability == "" {
		return ctx
	}
	return context.WithValue(ctx, capabilityKey, capability)
}

// CapabilityFromContext returns the capability name if present.
func CapabilityFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(capabilityKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
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
