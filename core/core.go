package core

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/labshare/go-jwt-gate/operation"
)

// TokenValidator validates a raw bearer token and returns its claims.
// Implementations must be safe for concurrent use.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

// Logger defines an optional logging interface compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// TokenSource supplies the bearer token of the request being authenticated.
// It returns "" when the request carries no token and an error when a token
// was presented in a malformed way.
type TokenSource func() (string, error)

// Core is the framework-agnostic authentication engine. It is immutable
// after construction and safe for concurrent use.
type Core struct {
	validator TokenValidator
	lookup    operation.Lookup
	logger    Logger
	metrics   Metrics
	tracer    trace.Tracer
}

// Requirement returns the requirement registered for operationID, if any.
func (c *Core) Requirement(operationID string) (operation.Requirement, bool) {
	return c.lookup(operationID)
}

// Authenticate runs the gate for one request.
//
//   - If the operation has no requirement it returns (nil, nil) without
//     touching the token source or the validator.
//   - Otherwise the token is obtained from source and checked with CheckToken.
func (c *Core) Authenticate(ctx context.Context, operationID string, source TokenSource) (*Principal, error) {
	req, ok := c.lookup(operationID)
	if !ok {
		if c.logger != nil {
			c.logger.Debug("operation does not require authentication", "operation", operationID)
		}
		return nil, nil
	}

	ctx, span := c.startSpan(ctx, operationID)
	start := time.Now()

	var principal *Principal
	token, err := source()
	if err != nil {
		err = NewValidationError(ErrorCodeTokenMissing, "authorization header malformed", err)
		if c.logger != nil {
			c.logger.Warn("could not extract bearer token", "operation", operationID, "error", err)
		}
	} else {
		principal, err = c.CheckToken(ctx, token, req)
	}

	c.observe(operationID, time.Since(start), err)
	finishSpan(span, err)

	return principal, err
}

// CheckToken validates token against the requirement of an operation that
// is known to be protected:
//   - An empty token yields ErrMissingToken.
//   - The validator decides signature, algorithm, time, issuer and audience.
//   - The scope claim is checked against the requirement's scopes.
//
// CheckToken records no metrics and starts no span: those are labelled by
// operation and belong to Authenticate. Callers driving CheckToken directly
// observe the outcome themselves.
func (c *Core) CheckToken(ctx context.Context, token string, req operation.Requirement) (*Principal, error) {
	if token == "" {
		if c.logger != nil {
			c.logger.Warn("no token provided and credentials are required")
		}
		return nil, NewValidationError(ErrorCodeTokenMissing, "bearer token required", nil)
	}

	start := time.Now()
	claims, err := c.validator.ValidateToken(ctx, token)
	duration := time.Since(start)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("token validation failed", "error", err, "code", ErrorCode(err), "duration", duration)
		}
		return nil, err
	}

	if err := CheckScopes(claims.Scope, req.Scopes()); err != nil {
		if c.logger != nil {
			c.logger.Warn("token lacks required scope", "subject", claims.Subject, "required", req.Scopes())
		}
		return nil, err
	}

	if c.logger != nil {
		c.logger.Debug("token validated successfully", "subject", claims.Subject, "duration", duration)
	}

	return newPrincipal(claims), nil
}

func (c *Core) observe(operationID string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = ErrorCode(err)
	}
	tags := map[string]string{"operation": operationID, "outcome": outcome}
	c.metrics.IncCounter(MetricAuthentications, tags)
	c.metrics.ObserveHistogram(MetricAuthenticationDuration, duration.Seconds(), map[string]string{"operation": operationID})
}
