// Package jwtecho adapts the authentication gate to echo.
//
//	middleware, err := jwtecho.New(gate)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	e := echo.New()
//	e.Use(middleware)
//	e.GET("/users/:id", func(c echo.Context) error {
//	    principal, ok := jwtecho.GetPrincipal(c)
//	    ...
//	})
//
// Operations are identified by method and route pattern, e.g.
// "GET /users/:id".
package jwtecho

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	jwtgate "github.com/labshare/go-jwt-gate"
	"github.com/labshare/go-jwt-gate/core"
	"github.com/labshare/go-jwt-gate/operation"
)

// DefaultPrincipalKey is the echo context key holding the principal.
const DefaultPrincipalKey = "jwtgate.principal"

// ErrGateNil is returned by New without a gate.
var ErrGateNil = errors.New("gate cannot be nil")

// echoMiddlewareConfig holds all configuration for the middleware
type echoMiddlewareConfig struct {
	errorHandler     func(echo.Context, error) error
	contextKey       string
	resolveOperation func(echo.Context) string
}

// New creates an echo middleware running gate on every request. When a
// request is rejected the error handler's result is returned and next is
// not called.
func New(gate *jwtgate.Gate, opts ...Option) (echo.MiddlewareFunc, error) {
	if gate == nil {
		return nil, ErrGateNil
	}

	config := &echoMiddlewareConfig{
		errorHandler:     defaultEchoErrorHandler,
		contextKey:       DefaultPrincipalKey,
		resolveOperation: RouteOperation,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("invalid echo middleware option: %w", err)
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r, err := gate.Authenticate(c.Request(), config.resolveOperation(c))
			if err != nil {
				return config.errorHandler(c, err)
			}

			c.SetRequest(r)
			if principal, err := core.GetPrincipal(r.Context()); err == nil {
				c.Set(config.contextKey, principal)
			}

			return next(c)
		}
	}, nil
}

// RouteOperation identifies a request by method and matched route pattern.
// Requests that matched no route fall back to the URL path.
func RouteOperation(c echo.Context) string {
	path := c.Path()
	if path == "" {
		path = c.Request().URL.Path
	}
	return operation.ID(c.Request().Method, path)
}

func defaultEchoErrorHandler(c echo.Context, err error) error {
	jwtgate.DefaultErrorHandler(c.Response(), c.Request(), err)
	return nil
}

// GetPrincipal extracts the principal from the echo context.
func GetPrincipal(c echo.Context) (*core.Principal, bool) {
	return GetPrincipalWithKey(c, DefaultPrincipalKey)
}

// GetPrincipalWithKey extracts the principal stored under contextKey.
func GetPrincipalWithKey(c echo.Context, contextKey string) (*core.Principal, bool) {
	principal, ok := c.Get(contextKey).(*core.Principal)
	return principal, ok
}
