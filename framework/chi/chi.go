// Package jwtchi lets the authentication gate identify chi requests by
// their route pattern.
//
// Middlewares registered with Use run before chi has routed the request, so
// the pattern is not yet in the route context. RouteResolver matches the
// request against the router itself instead:
//
//	router := chi.NewRouter()
//	gate, err := jwtgate.New(
//	    jwtgate.WithValidator(v),
//	    jwtgate.WithLookup(registry.Lookup),
//	    jwtgate.WithOperationResolver(jwtchi.RouteResolver(router)),
//	)
//	...
//	router.Use(gate.CheckJWT)
//	router.Get("/users/{id}", getUser) // operation "GET /users/{id}"
package jwtchi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	jwtgate "github.com/labshare/go-jwt-gate"
	"github.com/labshare/go-jwt-gate/operation"
)

// RouteResolver returns an OperationResolver naming requests by method and
// the pattern of the route they match in routes. Unmatched requests are
// named by their URL path.
func RouteResolver(routes chi.Routes) jwtgate.OperationResolver {
	return func(r *http.Request) string {
		rctx := chi.NewRouteContext()
		if routes.Match(rctx, r.Method, r.URL.Path) {
			return operation.ID(r.Method, rctx.RoutePattern())
		}
		return operation.ID(r.Method, r.URL.Path)
	}
}
