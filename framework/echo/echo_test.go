package jwtecho

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtgate "github.com/labshare/go-jwt-gate"
	"github.com/labshare/go-jwt-gate/config"
	"github.com/labshare/go-jwt-gate/core"
	"github.com/labshare/go-jwt-gate/jwttest"
	"github.com/labshare/go-jwt-gate/operation"
)

func newTestServer(t *testing.T, idp *jwttest.IdentityProvider, opts ...Option) *echo.Echo {
	t.Helper()

	v, err := config.Config{AuthURL: idp.URL(), Tenant: idp.Tenant}.NewValidator()
	require.NoError(t, err)

	registry, err := operation.NewRegistry(
		operation.WithRequirement("GET /users/:id", "read:users"),
	)
	require.NoError(t, err)

	gate, err := jwtgate.New(jwtgate.WithValidator(v), jwtgate.WithLookup(registry.Lookup))
	require.NoError(t, err)

	middleware, err := New(gate, opts...)
	require.NoError(t, err)

	e := echo.New()
	e.Use(middleware)

	handler := func(c echo.Context) error {
		if principal, ok := GetPrincipal(c); ok {
			return c.String(http.StatusOK, principal.Subject)
		}
		if principal, ok := GetPrincipalWithKey(c, "user"); ok {
			return c.String(http.StatusOK, "user:"+principal.Subject)
		}
		return c.String(http.StatusOK, "anonymous")
	}
	e.GET("/users/:id", handler)
	e.GET("/status", handler)

	return e
}

func serve(e *echo.Echo, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func Test_New(t *testing.T) {
	idp := jwttest.NewIdentityProvider(t)
	e := newTestServer(t, idp)

	testCases := []struct {
		name          string
		path          string
		authorization string
		wantStatus    int
		wantBody      string
	}{
		{
			name:       "anonymous route",
			path:       "/status",
			wantStatus: http.StatusOK,
			wantBody:   "anonymous",
		},
		{
			name:          "route pattern is the operation",
			path:          "/users/42",
			authorization: "Bearer " + idp.CreateToken(t, "abc", "read:users"),
			wantStatus:    http.StatusOK,
			wantBody:      "abc",
		},
		{
			name:          "malformed header",
			path:          "/users/42",
			authorization: "Token abc",
			wantStatus:    http.StatusUnauthorized,
			wantBody:      "Unauthorized",
		},
		{
			name:          "insufficient scope",
			path:          "/users/42",
			authorization: "Bearer " + idp.CreateToken(t, "abc", "write:users"),
			wantStatus:    http.StatusForbidden,
			wantBody:      "Insufficient scope",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(e, tc.path, tc.authorization)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantBody, rec.Body.String())
		})
	}
}

func Test_WithErrorHandler(t *testing.T) {
	idp := jwttest.NewIdentityProvider(t)
	e := newTestServer(t, idp, WithErrorHandler(func(_ echo.Context, err error) error {
		return echo.NewHTTPError(jwtgate.StatusCode(err), core.ErrorCode(err))
	}))

	rec := serve(e, "/users/42", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"token_missing"}`, rec.Body.String())
}

func Test_WithContextKey(t *testing.T) {
	idp := jwttest.NewIdentityProvider(t)
	e := newTestServer(t, idp, WithContextKey("user"))

	rec := serve(e, "/users/42", "Bearer "+idp.CreateToken(t, "abc", "read:users"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user:abc", rec.Body.String())
}

func Test_RouteOperation(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/unrouted", nil), httptest.NewRecorder())
	assert.Equal(t, "DELETE /unrouted", RouteOperation(c))

	c.SetPath("/users/:id")
	assert.Equal(t, "DELETE /users/:id", RouteOperation(c))
}

func Test_NewRejectsInvalidOptions(t *testing.T) {
	gate, err := jwtgate.New(
		jwtgate.WithValidator(stubValidator{}),
		jwtgate.WithLookup(func(string) (operation.Requirement, bool) { return operation.Requirement{}, false }),
	)
	require.NoError(t, err)

	testCases := []struct {
		name    string
		gate    *jwtgate.Gate
		opt     Option
		wantErr error
	}{
		{name: "nil gate", wantErr: ErrGateNil},
		{name: "nil error handler", gate: gate, opt: WithErrorHandler(nil), wantErr: ErrErrorHandlerNil},
		{name: "empty context key", gate: gate, opt: WithContextKey(""), wantErr: ErrContextKeyEmpty},
		{name: "nil operation resolver", gate: gate, opt: WithOperationResolver(nil), wantErr: ErrOperationResolverNil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var opts []Option
			if tc.opt != nil {
				opts = append(opts, tc.opt)
			}
			middleware, err := New(tc.gate, opts...)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, middleware)
		})
	}
}

type stubValidator struct{}

func (stubValidator) ValidateToken(context.Context, string) (*core.Claims, error) {
	return &core.Claims{Subject: "abc"}, nil
}

func Test_GetPrincipal(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, ok := GetPrincipal(c)
	assert.False(t, ok)

	c.Set(DefaultPrincipalKey, "not a principal")
	_, ok = GetPrincipal(c)
	assert.False(t, ok)

	want := &core.Principal{Subject: "abc"}
	c.Set(DefaultPrincipalKey, want)
	got, ok := GetPrincipal(c)
	require.True(t, ok)
	assert.Same(t, want, got)
}
