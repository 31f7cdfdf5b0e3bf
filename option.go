package jwtgate

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/labshare/go-jwt-gate/core"
	"github.com/labshare/go-jwt-gate/operation"
)

// Option configures the Gate.
// Returns error for validation failures.
type Option func(*Gate) error

// WithValidator sets the validator used for protected operations (REQUIRED).
// Typically a *validator.Validator built by config.Config.NewValidator.
//
// Example:
//
//	v, err := cfg.NewValidator()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	gate, err := jwtgate.New(
//	    jwtgate.WithValidator(v),
//	    jwtgate.WithLookup(registry.Lookup),
//	)
func WithValidator(v core.TokenValidator) Option {
	return func(g *Gate) error {
		if v == nil {
			return ErrValidatorNil
		}
		g.validator = v
		return nil
	}
}

// WithLookup sets the operation lookup (REQUIRED). Operations it does not
// know are anonymous.
func WithLookup(lookup operation.Lookup) Option {
	return func(g *Gate) error {
		if lookup == nil {
			return ErrLookupNil
		}
		g.lookup = lookup
		return nil
	}
}

// WithOperationResolver sets how a request maps to an operation id.
//
// Default: DefaultOperationResolver
func WithOperationResolver(resolver OperationResolver) Option {
	return func(g *Gate) error {
		if resolver == nil {
			return ErrOperationResolverNil
		}
		g.resolveOperation = resolver
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests go through the gate.
//
// Default: true (OPTIONS requests are checked)
func WithValidateOnOptions(value bool) Option {
	return func(g *Gate) error {
		g.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called when a request is rejected.
// See the ErrorHandler type for more information.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(g *Gate) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		g.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the token from the request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(g *Gate) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		g.tokenExtractor = e
		return nil
	}
}

// WithExclusionUrls configures URLs that bypass the gate. Entries can be
// full URLs or just paths.
func WithExclusionUrls(exclusions []string) Option {
	return func(g *Gate) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		g.exclusionURLHandler = func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithLogger sets an optional logger for the gate.
// The logger will be used throughout the flow in both gate and core.
//
// Example:
//
//	gate, err := jwtgate.New(
//	    jwtgate.WithValidator(v),
//	    jwtgate.WithLookup(registry.Lookup),
//	    jwtgate.WithLogger(slog.Default()),
//	)
func WithLogger(logger Logger) Option {
	return func(g *Gate) error {
		if logger == nil {
			return ErrLoggerNil
		}
		g.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink, e.g. NewPrometheusMetrics.
func WithMetrics(metrics core.Metrics) Option {
	return func(g *Gate) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		g.metrics = metrics
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
//
// Default: the global provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Gate) error {
		if tp == nil {
			return ErrTracerProviderNil
		}
		g.tracerProvider = tp
		return nil
	}
}

// Sentinel errors for configuration validation.
var (
	ErrValidatorNil         = errors.New("validator cannot be nil (use WithValidator)")
	ErrLookupNil            = errors.New("lookup cannot be nil (use WithLookup)")
	ErrOperationResolverNil = errors.New("operation resolver cannot be nil")
	ErrErrorHandlerNil      = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil    = errors.New("tokenExtractor cannot be nil")
	ErrExclusionUrlsEmpty   = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil            = errors.New("logger cannot be nil")
	ErrMetricsNil           = errors.New("metrics cannot be nil")
	ErrTracerProviderNil    = errors.New("tracer provider cannot be nil")
)
