// Package telemetry provides OpenTelemetry integration for the gateway.
// Tracing is off by default; it activates once a tracer is installed by
// cmd/gateway at startup (when OTEL_EXPORTER_OTLP_ENDPOINT is set).
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Settings configures telemetry for the gateway's HTTP and dispatch spans.
type Settings struct {
	// IsEnabled controls whether telemetry is active. Defaults to false.
	IsEnabled bool

	// RecordPrompts is carried in Settings and defaults to false; no code in
	// the gateway reads it, so request bodies are never attached to spans.
	RecordPrompts bool

	// Metadata holds additional key-value pairs. It is carried in Settings
	// only; no code in the gateway attaches it to spans.
	Metadata map[string]attribute.Value

	// Tracer is a custom OpenTelemetry tracer. If nil, the global tracer is used.
	Tracer trace.Tracer
}

// DefaultSettings returns Settings with telemetry disabled.
func DefaultSettings() *Settings {
	return &Settings{
		IsEnabled:     false,
		RecordPrompts: false,
		Metadata:      make(map[string]attribute.Value),
	}
}

// WithEnabled returns a copy of Settings with IsEnabled set to the given value.
func (s *Settings) WithEnabled(enabled bool) *Settings {
	cp := *s
	cp.IsEnabled = enabled
	return &cp
}

// WithTracer returns a copy of Settings with Tracer set to the given value.
func (s *Settings) WithTracer(tracer trace.Tracer) *Settings {
	cp := *s
	cp.Tracer = tracer
	return &cp
}
