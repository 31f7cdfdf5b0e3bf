/*
Package jwtgate provides an HTTP authentication gate for JWT bearer tokens.

Every request is mapped to an operation. Operations registered in an
operation.Registry require a valid RS256 bearer token, and optionally one of
a set of scopes; every other operation is anonymous and passes through
without its credentials being looked at. The verified principal is stored in
the request context for the rest of the request.

The package is the net/http adapter of a Core-Adapter design: core holds the
framework-agnostic engine, validator checks tokens, jwks resolves signing
keys from a remote key set, and framework/* adapt the gate to gin, echo, chi
and gRPC.

# Quick Start

	import (
	    "github.com/labshare/go-jwt-gate"
	    "github.com/labshare/go-jwt-gate/config"
	    "github.com/labshare/go-jwt-gate/operation"
	)

	func main() {
	    cfg, err := config.FromEnv() // AUTH_URL, AUTH_TENANT, AUTH_AUDIENCE, ...
	    if err != nil {
	        log.Fatal(err)
	    }

	    v, err := cfg.NewValidator()
	    if err != nil {
	        log.Fatal(err)
	    }

	    registry, err := operation.NewRegistry(
	        operation.WithRequirement("GET /whoAmI"),
	        operation.WithRequirement("GET /users", "read:users"),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    gate, err := jwtgate.New(
	        jwtgate.WithValidator(v),
	        jwtgate.WithLookup(registry.Lookup),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    http.ListenAndServe(":8080", gate.CheckJWT(mux))
	}

# Accessing the Principal

	func handler(w http.ResponseWriter, r *http.Request) {
	    principal, err := jwtgate.GetPrincipal(r.Context())
	    if err != nil {
	        // anonymous operation
	        return
	    }
	    fmt.Fprintf(w, "hello %s", principal.Subject)
	}

# Rejections

DefaultErrorHandler answers in plain text and never echoes error details:

  - missing, malformed or invalid token: 401 "Unauthorized" with a
    WWW-Authenticate Bearer challenge
  - token without any required scope: 403 "Insufficient scope"
  - key set unreachable or rate limited: 503
  - misconfiguration: 500

Use WithErrorHandler to respond differently; StatusCode and Challenge expose
the default mapping.

# Token Extraction

AuthHeaderTokenExtractor (the default) expects exactly "Bearer <token>".
CookieTokenExtractor, ParameterTokenExtractor and MultiTokenExtractor are
available through WithTokenExtractor.

# Observability

WithLogger accepts *slog.Logger or one of the adapters NewLogrusLogger,
NewZapLogger and NewZerologLogger. WithMetrics accepts NewPrometheusMetrics.
Each protected request is traced as a "jwtgate.Authenticate" span through
the global OpenTelemetry provider unless WithTracerProvider is given.
*/
package jwtgate
