package jwtgrpc

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/labshare/go-jwt-gate/config"
	"github.com/labshare/go-jwt-gate/core"
	"github.com/labshare/go-jwt-gate/jwttest"
	"github.com/labshare/go-jwt-gate/operation"
)

const (
	protectedMethod = "/users.v1.UserService/ListUsers"
	publicMethod    = "/grpc.health.v1.Health/Check"
)

func newTestInterceptor(t *testing.T, idp *jwttest.IdentityProvider, opts ...Option) *Interceptor {
	t.Helper()

	v, err := config.Config{AuthURL: idp.URL(), Tenant: idp.Tenant}.NewValidator()
	require.NoError(t, err)

	registry, err := operation.NewRegistry(operation.WithRequirement(protectedMethod, "read:users"))
	require.NoError(t, err)

	c, err := core.New(core.WithValidator(v), core.WithLookup(registry.Lookup))
	require.NoError(t, err)

	interceptor, err := New(c, opts...)
	require.NoError(t, err)
	return interceptor
}

func withAuthorization(values ...string) context.Context {
	md := metadata.MD{}
	for _, v := range values {
		md.Append("authorization", v)
	}
	return metadata.NewIncomingContext(context.Background(), md)
}

func subjectHandler(ctx context.Context, _ any) (any, error) {
	principal, err := core.GetPrincipal(ctx)
	if err != nil {
		return "anonymous", nil
	}
	return principal.Subject, nil
}

func TestUnaryServerInterceptor(t *testing.T) {
	idp := jwttest.NewIdentityProvider(t)
	interceptor := newTestInterceptor(t, idp).UnaryServerInterceptor()

	testCases := []struct {
		name     string
		ctx      context.Context
		method   string
		wantResp any
		wantCode codes.Code
	}{
		{
			name:     "public method without metadata",
			ctx:      context.Background(),
			method:   publicMethod,
			wantResp: "anonymous",
		},
		{
			name:     "valid token",
			ctx:      withAuthorization("Bearer " + idp.CreateToken(t, "abc", "read:users")),
			method:   protectedMethod,
			wantResp: "abc",
		},
		{
			name:     "missing token",
			ctx:      context.Background(),
			method:   protectedMethod,
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "malformed metadata",
			ctx:      withAuthorization("abc"),
			method:   protectedMethod,
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "multiple authorization entries",
			ctx:      withAuthorization("Bearer a", "Bearer b"),
			method:   protectedMethod,
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "invalid token",
			ctx:      withAuthorization("Bearer " + idp.CreateToken(t, "abc", "read:users", jwttest.WithKeyID("unknown"))),
			method:   protectedMethod,
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "insufficient scope",
			ctx:      withAuthorization("Bearer " + idp.CreateToken(t, "abc", "write:users")),
			method:   protectedMethod,
			wantCode: codes.PermissionDenied,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := interceptor(tc.ctx, nil, &grpc.UnaryServerInfo{FullMethod: tc.method}, subjectHandler)

			if tc.wantCode != codes.OK {
				assert.Nil(t, resp)
				assert.Equal(t, tc.wantCode, status.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantResp, resp)
		})
	}
}

func TestUnaryServerInterceptor_KeySetUnavailable(t *testing.T) {
	idp := jwttest.NewIdentityProvider(t)
	idp.SetStatus(http.StatusInternalServerError)
	interceptor := newTestInterceptor(t, idp).UnaryServerInterceptor()

	ctx := withAuthorization("Bearer " + idp.CreateToken(t, "abc", "read:users"))
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: protectedMethod}, subjectHandler)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unavailable, st.Code())
	assert.Equal(t, "unable to verify token", st.Message())
}

type testServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *testServerStream) Context() context.Context {
	return s.ctx
}

func TestStreamServerInterceptor(t *testing.T) {
	idp := jwttest.NewIdentityProvider(t)
	interceptor := newTestInterceptor(t, idp).StreamServerInterceptor()
	info := &grpc.StreamServerInfo{FullMethod: protectedMethod}

	t.Run("the stream context carries the principal", func(t *testing.T) {
		ss := &testServerStream{ctx: withAuthorization("Bearer " + idp.CreateToken(t, "abc", "read:users"))}

		var subject string
		err := interceptor(nil, ss, info, func(_ any, stream grpc.ServerStream) error {
			subject = core.MustGetPrincipal(stream.Context()).Subject
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "abc", subject)
	})

	t.Run("rejected streams never reach the handler", func(t *testing.T) {
		ss := &testServerStream{ctx: context.Background()}

		err := interceptor(nil, ss, info, func(any, grpc.ServerStream) error {
			t.Fatal("handler should not be called")
			return nil
		})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}

func TestMetadataTokenExtractor(t *testing.T) {
	testCases := []struct {
		name      string
		ctx       context.Context
		wantToken string
		wantErr   error
	}{
		{name: "no metadata", ctx: context.Background()},
		{name: "no authorization", ctx: metadata.NewIncomingContext(context.Background(), metadata.MD{})},
		{name: "bearer token", ctx: withAuthorization("Bearer abc"), wantToken: "abc"},
		{name: "lowercase scheme", ctx: withAuthorization("bearer abc"), wantErr: ErrInvalidAuthFormat},
		{name: "empty token", ctx: withAuthorization("Bearer "), wantErr: ErrInvalidAuthFormat},
		{name: "two tokens", ctx: withAuthorization("Bearer a b"), wantErr: ErrInvalidAuthFormat},
		{name: "multiple entries", ctx: withAuthorization("Bearer a", "Bearer b"), wantErr: ErrMultipleAuthHeaders},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := MetadataTokenExtractor(tc.ctx)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.wantToken, token)
		})
	}
}

func TestDefaultErrorHandler(t *testing.T) {
	testCases := []struct {
		err  error
		want codes.Code
	}{
		{err: core.NewValidationError(core.ErrorCodeTokenMissing, "no header", nil), want: codes.Unauthenticated},
		{err: core.NewValidationError(core.ErrorCodeTokenExpired, "exp in the past", nil), want: codes.Unauthenticated},
		{err: core.NewValidationError(core.ErrorCodeInsufficientScope, "lacks read:users", nil), want: codes.PermissionDenied},
		{err: core.NewValidationError(core.ErrorCodeJWKSRateLimited, "limiter exhausted", nil), want: codes.Unavailable},
		{err: core.NewValidationError(core.ErrorCodeConfigInvalid, "nil validator", nil), want: codes.Internal},
		{err: errors.New("boom"), want: codes.Internal},
	}

	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			st, ok := status.FromError(DefaultErrorHandler(tc.err))
			require.True(t, ok)
			assert.Equal(t, tc.want, st.Code())
			assert.NotContains(t, st.Message(), tc.err.Error())
		})
	}

	assert.NoError(t, DefaultErrorHandler(nil))
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, core.ErrConfigurationInvalid)

	idp := jwttest.NewIdentityProvider(t)
	v, err := config.Config{AuthURL: idp.URL(), Tenant: idp.Tenant}.NewValidator()
	require.NoError(t, err)
	c, err := core.New(core.WithValidator(v), core.WithLookup(func(string) (operation.Requirement, bool) {
		return operation.Requirement{}, false
	}))
	require.NoError(t, err)

	for _, opt := range []Option{WithLogger(nil), WithTokenExtractor(nil), WithErrorHandler(nil)} {
		_, err := New(c, opt)
		assert.ErrorIs(t, err, core.ErrConfigurationInvalid)
	}
}
