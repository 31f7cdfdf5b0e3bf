package jwtgate

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/labshare/go-jwt-gate/core"
	"github.com/labshare/go-jwt-gate/operation"
)

// Gate is the net/http authentication gate. Per request it resolves the
// operation, lets anonymous operations through untouched and, for protected
// ones, validates the bearer token and stores the principal in the request
// context before calling the next handler.
type Gate struct {
	core                *core.Core
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	resolveOperation    OperationResolver
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	logger              Logger

	// Temporary fields used during construction
	validator      core.TokenValidator
	lookup         operation.Lookup
	metrics        core.Metrics
	tracerProvider trace.TracerProvider
}

// Logger defines an optional logging interface compatible with log/slog.
// This is the same interface used by core for consistent logging across the stack.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// OperationResolver maps a request to the operation id it is registered
// under. The default is operation.ID(r.Method, r.URL.Path).
type OperationResolver func(r *http.Request) string

// ExclusionURLHandler is a function that takes in a http.Request and returns
// true if the request should bypass the gate entirely.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a new Gate with the supplied options. WithValidator and
// WithLookup are required; a missing one is reported here as
// core.ErrConfigurationInvalid.
//
// Example:
//
//	registry, err := operation.NewRegistry(
//	    operation.WithRequirement("GET /whoAmI"),
//	    operation.WithRequirement("GET /users", "read:users"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	gate, err := jwtgate.New(
//	    jwtgate.WithValidator(v),
//	    jwtgate.WithLookup(registry.Lookup),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create gate: %v", err)
//	}
//	http.ListenAndServe(":8080", gate.CheckJWT(mux))
func New(opts ...Option) (*Gate, error) {
	g := &Gate{
		validateOnOptions: true,
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid gate option", err)
		}
	}

	g.applyDefaults()

	if err := g.createCore(); err != nil {
		return nil, err
	}

	return g, nil
}

// createCore creates the core.Core instance with the configured options.
func (g *Gate) createCore() error {
	var coreOpts []core.Option
	if g.validator != nil {
		coreOpts = append(coreOpts, core.WithValidator(g.validator))
	}
	if g.lookup != nil {
		coreOpts = append(coreOpts, core.WithLookup(g.lookup))
	}
	if g.logger != nil {
		coreOpts = append(coreOpts, core.WithLogger(g.logger))
	}
	if g.metrics != nil {
		coreOpts = append(coreOpts, core.WithMetrics(g.metrics))
	}
	if g.tracerProvider != nil {
		coreOpts = append(coreOpts, core.WithTracerProvider(g.tracerProvider))
	}

	c, err := core.New(coreOpts...)
	if err != nil {
		return err
	}
	g.core = c
	return nil
}

// applyDefaults sets default values for optional fields.
func (g *Gate) applyDefaults() {
	if g.errorHandler == nil {
		g.errorHandler = DefaultErrorHandler
	}
	if g.tokenExtractor == nil {
		g.tokenExtractor = AuthHeaderTokenExtractor
	}
	if g.resolveOperation == nil {
		g.resolveOperation = DefaultOperationResolver
	}
}

// DefaultOperationResolver identifies a request by method and URL path.
func DefaultOperationResolver(r *http.Request) string {
	return operation.ID(r.Method, r.URL.Path)
}

// Core returns the engine behind the gate, for transports other than net/http.
func (g *Gate) Core() *core.Core {
	return g.core
}

// GetPrincipal retrieves the principal established for the request.
//
// Example:
//
//	principal, err := jwtgate.GetPrincipal(r.Context())
//	if err != nil {
//	    http.Error(w, "no principal", http.StatusInternalServerError)
//	    return
//	}
//	fmt.Fprintln(w, principal.Subject)
var GetPrincipal = core.GetPrincipal

// MustGetPrincipal retrieves the principal or panics. Use only in handlers
// of protected operations.
var MustGetPrincipal = core.MustGetPrincipal

// HasPrincipal reports whether the request was authenticated.
var HasPrincipal = core.HasPrincipal

// CheckJWT is the main Gate function. It is passed a http.Handler which
// will be called if the request is anonymous or passes authentication.
func (g *Gate) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, g.resolveOperation(r), next)
	})
}

// Operation guards next as operationID regardless of the request path. It
// is meant for routers that know the operation of a handler up front.
//
// Example:
//
//	mux.Handle("GET /users/{id}", gate.Operation("getUser", getUserHandler))
func (g *Gate) Operation(operationID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, operationID, next)
	})
}

func (g *Gate) serve(w http.ResponseWriter, r *http.Request, operationID string, next http.Handler) {
	if g.exclusionURLHandler != nil && g.exclusionURLHandler(r) {
		if g.logger != nil {
			g.logger.Debug("skipping authentication for excluded URL",
				"method", r.Method,
				"path", r.URL.Path)
		}
		next.ServeHTTP(w, r)
		return
	}

	if !g.validateOnOptions && r.Method == http.MethodOptions {
		if g.logger != nil {
			g.logger.Debug("skipping authentication for OPTIONS request")
		}
		next.ServeHTTP(w, r)
		return
	}

	r, err := g.Authenticate(r, operationID)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("request rejected",
				"operation", operationID,
				"code", core.ErrorCode(err),
				"method", r.Method,
				"path", r.URL.Path)
		}
		g.errorHandler(w, r, err)
		return
	}

	next.ServeHTTP(w, r)
}

// Authenticate runs the gate for r as operationID. It returns r unchanged
// for anonymous operations and a copy carrying the principal otherwise.
// Framework adapters use it to share the gate's extraction and checks.
func (g *Gate) Authenticate(r *http.Request, operationID string) (*http.Request, error) {
	principal, err := g.core.Authenticate(r.Context(), operationID, func() (string, error) {
		return g.tokenExtractor(r)
	})
	if err != nil {
		return r, err
	}
	if principal == nil {
		return r, nil
	}
	return r.WithContext(core.SetPrincipal(r.Context(), principal)), nil
}

// HandleError writes the rejection for err with the gate's error handler.
func (g *Gate) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	g.errorHandler(w, r, err)
}
