/*
Package core provides the framework-agnostic authentication gate that the
transport adapters (net/http, gin, echo, gRPC) are built on.

The Core combines an operation lookup with a token validator. For every
request a transport resolves the operation id and calls Authenticate:
anonymous operations pass straight through, protected ones need a valid
bearer token and, if the operation demands scopes, at least one of them.

# Architecture

	┌─────────────────────────────────────────────┐
	│         Transport Adapters                  │
	│  (net/http, Gin, Echo, gRPC)                │
	└────────────────┬────────────────────────────┘
	                 │ operation id + token source
	                 ▼
	┌─────────────────────────────────────────────┐
	│          Core Engine (THIS PACKAGE)         │
	│  • Operation lookup (anonymous or required) │
	│  • Scope enforcement                        │
	│  • Logging, metrics, tracing                │
	└────────────────┬────────────────────────────┘
	                 │
	                 ▼
	┌─────────────────────────────────────────────┐
	│          Validator                          │
	│  (RS256 signature & claims verification)    │
	└─────────────────────────────────────────────┘

# Basic Usage

	registry, _ := operation.NewRegistry(
	    operation.WithRequirement("GET /users", "read:users"),
	)

	c, err := core.New(
	    core.WithValidator(val),
	    core.WithLookup(registry.Lookup),
	)
	if err != nil {
	    log.Fatal(err)
	}

	principal, err := c.Authenticate(ctx, "GET /users", func() (string, error) {
	    return token, nil
	})

# Error Handling

Every failure matches one sentinel through errors.Is and carries a code:

	switch {
	case errors.Is(err, core.ErrMissingToken), errors.Is(err, core.ErrInvalidToken):
	    // 401
	case errors.Is(err, core.ErrInsufficientScope):
	    // 403
	case errors.Is(err, core.ErrKeySourceUnavailable):
	    // 503
	default:
	    // 500, including core.ErrConfigurationInvalid
	}

	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) && validationErr.Code == core.ErrorCodeTokenExpired {
	    // ...
	}

# Context

Adapters store the Principal with SetPrincipal; handlers read it with
GetPrincipal, MustGetPrincipal or HasPrincipal. The context key type is
unexported so it cannot collide with other packages.
*/
package core
