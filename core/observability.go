package core

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/labshare/go-jwt-gate/core"

// Metric names recorded by the gate.
const (
	MetricAuthentications        = "jwtgate_authentications_total"
	MetricAuthenticationDuration = "jwtgate_authentication_duration_seconds"
	MetricJWKSFetches            = "jwtgate_jwks_fetches_total"
	MetricJWKSCachedKeys         = "jwtgate_jwks_cached_keys"
)

// Metrics is a generic metrics interface for the gate.
// Implementations must be safe for concurrent use.
type Metrics interface {
	IncCounter(name string, tags map[string]string)
	ObserveHistogram(name string, value float64, tags map[string]string)
	SetGauge(name string, value float64, tags map[string]string)
}

// NoopMetrics is a default metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) IncCounter(string, map[string]string)                {}
func (NoopMetrics) ObserveHistogram(string, float64, map[string]string) {}
func (NoopMetrics) SetGauge(string, float64, map[string]string)         {}

func (c *Core) startSpan(ctx context.Context, operationID string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "jwtgate.Authenticate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("jwtgate.operation", operationID)),
	)
}

func finishSpan(span trace.Span, err error) {
	defer span.End()

	if err != nil {
		code := ErrorCode(err)
		span.SetAttributes(attribute.String("jwtgate.outcome", code))
		span.SetStatus(codes.Error, code)
		return
	}
	span.SetAttributes(attribute.String("jwtgate.outcome", "success"))
}
