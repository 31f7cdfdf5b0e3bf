package core

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/labshare/go-jwt-gate/operation"
)

// Option is a function that configures the Core.
// Options return errors to enable validation during construction.
type Option func(*Core) error

// New creates a new Core instance with the provided options.
//
// The Core must be configured with a TokenValidator (WithValidator) and an
// operation lookup (WithLookup). Missing either is a configuration error
// reported here, not on the first request.
//
// Example:
//
//	core, err := core.New(
//	    core.WithValidator(validator),
//	    core.WithLookup(registry.Lookup),
//	    core.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(opts ...Option) (*Core, error) {
	c := &Core{
		metrics: NoopMetrics{},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, NewValidationError(ErrorCodeConfigInvalid, "invalid core option", err)
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	if c.tracer == nil {
		c.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}

	return c, nil
}

// validate ensures all required fields are set.
func (c *Core) validate() error {
	if c.validator == nil {
		return NewValidationError(
			ErrorCodeConfigInvalid,
			"validator is required but not set (use WithValidator option)",
			nil,
		)
	}
	if c.lookup == nil {
		return NewValidationError(
			ErrorCodeConfigInvalid,
			"operation lookup is required but not set (use WithLookup option)",
			nil,
		)
	}
	return nil
}

// WithValidator sets the token validator. Required.
func WithValidator(validator TokenValidator) Option {
	return func(c *Core) error {
		if validator == nil {
			return errors.New("validator cannot be nil")
		}
		c.validator = validator
		return nil
	}
}

// WithLookup sets the function resolving operation requirements. Required.
// Typically the Lookup method of an operation.Registry.
func WithLookup(lookup operation.Lookup) Option {
	return func(c *Core) error {
		if lookup == nil {
			return errors.New("lookup cannot be nil")
		}
		c.lookup = lookup
		return nil
	}
}

// WithLogger sets an optional logger for the Core.
//
// When configured, the Core logs anonymous pass-through, validation
// success/failure and timing information.
func WithLogger(logger Logger) Option {
	return func(c *Core) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink. Default: NoopMetrics.
func WithMetrics(metrics Metrics) Option {
	return func(c *Core) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider used for the
// authentication span. Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Core) error {
		if tp == nil {
			return errors.New("tracer provider cannot be nil")
		}
		c.tracer = tp.Tracer(tracerName)
		return nil
	}
}
