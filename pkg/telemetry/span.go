package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOptions configures a telemetry span.
type SpanOptions struct {
	// Name is the operation name for the span.
	Name string

	// Attributes are key-value pairs attached to the span at start.
	Attributes []attribute.KeyValue
}

// RecordSpan starts a span, runs fn, and ends the span when fn returns.
// Errors are recorded on the span and set its status to error.
func RecordSpan[T any](
	ctx context.Context,
	tracer trace.Tracer,
	opts SpanOptions,
	fn func(context.Context, trace.Span) (T, error),
) (T, error) {
	ctx, span := tracer.Start(ctx, opts.Name, trace.WithAttributes(opts.Attributes...))
	defer span.End()

	result, err := fn(ctx, span)
	if err != nil {
		RecordErrorOnSpan(span, err)
		var zero T
		return zero, err
	}

	return result, nil
}

// RecordErrorOnSpan records an error on a span and sets its status to error.
func RecordErrorOnSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RequestAttributes returns the base attributes attached to every inbound
// HTTP request span.
func RequestAttributes(method, path, requestID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("gateway.request_id", requestID),
	}
}

// DispatchAttributes returns the base attributes attached to every Ollama
// dispatch span.
func DispatchAttributes(model string, stream bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("ollama.model", model),
		attribute.Bool("ollama.stream", stream),
	}
}
