package jwtgin

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// Option configures the middleware. A failing option makes New return its
// error.
type Option func(*ginMiddlewareConfig) error

var (
	ErrErrorHandlerNil      = errors.New("error handler cannot be nil")
	ErrContextKeyEmpty      = errors.New("context key cannot be empty")
	ErrOperationResolverNil = errors.New("operation resolver cannot be nil")
)

// WithErrorHandler sets a custom error handler for the middleware. The
// middleware aborts the request after the handler returns.
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(config *ginMiddlewareConfig) error {
		if handler == nil {
			return ErrErrorHandlerNil
		}
		config.errorHandler = handler
		return nil
	}
}

// WithContextKey sets the gin context key the principal is stored under.
func WithContextKey(key string) Option {
	return func(config *ginMiddlewareConfig) error {
		if key == "" {
			return ErrContextKeyEmpty
		}
		config.contextKey = key
		return nil
	}
}

// WithOperationResolver sets how a request maps to an operation id.
// Default: RouteOperation
func WithOperationResolver(resolver func(*gin.Context) string) Option {
	return func(config *ginMiddlewareConfig) error {
		if resolver == nil {
			return ErrOperationResolverNil
		}
		config.resolveOperation = resolver
		return nil
	}
}
