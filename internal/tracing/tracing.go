// Package tracing provides named tracers backed by the global
// OpenTelemetry provider.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a tracer for the named component.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
