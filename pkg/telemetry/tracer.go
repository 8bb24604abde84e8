package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName identifies this gateway's spans in any configured backend.
const TracerName = "ollama-gateway"

// GetTracer returns a tracer based on the settings. Telemetry disabled (the
// default) or nil settings yield a no-op tracer, so call sites never need to
// branch on whether tracing is active.
func GetTracer(settings *Settings) trace.Tracer {
	if settings == nil || !settings.IsEnabled {
		return noop.NewTracerProvider().Tracer(TracerName)
	}

	if settings.Tracer != nil {
		return settings.Tracer
	}

	return otel.Tracer(TracerName)
}
