package jwtecho

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// Option is a function that configures the middleware
type Option func(*echoMiddlewareConfig) error

var (
	ErrErrorHandlerNil      = errors.New("error handler cannot be nil")
	ErrContextKeyEmpty      = errors.New("context key cannot be empty")
	ErrOperationResolverNil = errors.New("operation resolver cannot be nil")
)

// WithErrorHandler sets a custom error handler. Its result is returned by
// the middleware, so returning an *echo.HTTPError hands the response to
// echo's HTTP error handler.
func WithErrorHandler(handler func(echo.Context, error) error) Option {
	return func(config *echoMiddlewareConfig) error {
		if handler == nil {
			return ErrErrorHandlerNil
		}
		config.errorHandler = handler
		return nil
	}
}

// WithContextKey sets a custom context key to store the principal
func WithContextKey(key string) Option {
	return func(config *echoMiddlewareConfig) error {
		if key == "" {
			return ErrContextKeyEmpty
		}
		config.contextKey = key
		return nil
	}
}

// WithOperationResolver sets how a request maps to an operation id.
// Default: RouteOperation
func WithOperationResolver(resolver func(echo.Context) string) Option {
	return func(config *echoMiddlewareConfig) error {
		if resolver == nil {
			return ErrOperationResolverNil
		}
		config.resolveOperation = resolver
		return nil
	}
}
