// Package jwtgin adapts the authentication gate to gin.
//
//	gate, err := jwtgate.New(
//	    jwtgate.WithValidator(v),
//	    jwtgate.WithLookup(registry.Lookup),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	middleware, err := jwtgin.New(gate)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	router := gin.New()
//	router.Use(middleware)
//	router.GET("/users/:id", func(c *gin.Context) {
//	    principal, err := jwtgin.GetPrincipal(c)
//	    ...
//	})
//
// Operations are identified by method and route pattern, e.g.
// "GET /users/:id", so the registry is keyed by gin's route syntax.
package jwtgin

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	jwtgate "github.com/labshare/go-jwt-gate"
	"github.com/labshare/go-jwt-gate/core"
	"github.com/labshare/go-jwt-gate/operation"
)

// DefaultPrincipalKey is the gin context key holding the principal.
const DefaultPrincipalKey = "jwtgate.principal"

var (
	ErrGateNil          = errors.New("gate cannot be nil")
	ErrMissingPrincipal = errors.New("no principal found in context")
	ErrInvalidPrincipal = errors.New("invalid principal type")
)

type ginMiddlewareConfig struct {
	errorHandler     func(*gin.Context, error)
	contextKey       string
	resolveOperation func(*gin.Context) string
}

// New creates a gin middleware running gate on every request. Rejected
// requests are aborted after the error handler has responded.
func New(gate *jwtgate.Gate, opts ...Option) (gin.HandlerFunc, error) {
	if gate == nil {
		return nil, ErrGateNil
	}

	config := &ginMiddlewareConfig{
		errorHandler:     defaultGinErrorHandler,
		contextKey:       DefaultPrincipalKey,
		resolveOperation: RouteOperation,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("invalid gin middleware option: %w", err)
		}
	}

	return func(c *gin.Context) {
		r, err := gate.Authenticate(c.Request, config.resolveOperation(c))
		if err != nil {
			config.errorHandler(c, err)
			c.Abort()
			return
		}

		c.Request = r
		if principal, err := core.GetPrincipal(r.Context()); err == nil {
			c.Set(config.contextKey, principal)
		}

		c.Next()
	}, nil
}

// RouteOperation identifies a request by method and matched route pattern.
// Requests that matched no route fall back to the URL path.
func RouteOperation(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return operation.ID(c.Request.Method, path)
}

func defaultGinErrorHandler(c *gin.Context, err error) {
	jwtgate.DefaultErrorHandler(c.Writer, c.Request, err)
}

// GetPrincipal returns the principal stored by the middleware under
// DefaultPrincipalKey.
func GetPrincipal(c *gin.Context) (*core.Principal, error) {
	return GetPrincipalWithKey(c, DefaultPrincipalKey)
}

// GetPrincipalWithKey returns the principal stored under contextKey.
func GetPrincipalWithKey(c *gin.Context, contextKey string) (*core.Principal, error) {
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingPrincipal
	}

	principal, ok := value.(*core.Principal)
	if !ok {
		return nil, ErrInvalidPrincipal
	}

	return principal, nil
}
