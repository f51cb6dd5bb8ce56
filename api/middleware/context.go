package middleware

import "context"

type contextKey string

const (
	ctxOperatorID contextKey = "operator_id"
	ctxLocationID contextKey = "location_id"
)

func OperatorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxOperatorID).(string); ok {
		return v
	}
	return ""
}

func LocationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxLocationID).(string); ok {
		return v
	}
	return ""
}

// WithOperatorID injects the operator identifier into the context.
func WithOperatorID(ctx context.Context, operatorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxOperatorID, operatorID)
}

// WithLocationID injects the location identifier into the context.
func WithLocationID(ctx context.Context, locationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxLocationID, locationID)
}
