package ledger

import "context"

type correlationKey struct{}

// WithCorrelationID attaches a request correlation ID to the context so
// posted events carry it through the outbox and Kafka pipeline.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFrom returns the correlation ID attached to the context, or
// an empty string.
func CorrelationIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}
