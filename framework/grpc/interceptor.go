// Package jwtgrpc adapts the authentication gate to gRPC servers.
//
// The operation id of a call is its full method name, e.g.
// "/users.v1.UserService/GetUser"; register protected methods under that
// name. Unregistered methods are anonymous.
//
//	gate, err := jwtgate.New(
//	    jwtgate.WithValidator(v),
//	    jwtgate.WithLookup(registry.Lookup),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	interceptor, err := jwtgrpc.New(gate.Core())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
//
// Rejections map to Unauthenticated (missing or invalid token),
// PermissionDenied (insufficient scope), Unavailable (key set unreachable)
// and Internal (anything else). Status messages never carry error details.
package jwtgrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"

	"github.com/labshare/go-jwt-gate/core"
)

// Interceptor runs the gate on gRPC calls.
type Interceptor struct {
	core           *core.Core
	tokenExtractor TokenExtractor
	errorHandler   ErrorHandler
	logger         Logger
}

// New creates an Interceptor for c, typically the Core of a jwtgate.Gate.
func New(c *core.Core, opts ...Option) (*Interceptor, error) {
	if c == nil {
		return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "core is required", errors.New("core cannot be nil"))
	}

	interceptor := &Interceptor{
		core:           c,
		tokenExtractor: MetadataTokenExtractor,
		errorHandler:   DefaultErrorHandler,
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid interceptor option", err)
		}
	}

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor running the
// gate. The principal of protected calls is available to the handler
// through core.GetPrincipal.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		authCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(authCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor running
// the gate when the stream is opened.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		authCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{
			ServerStream: ss,
			ctx:          authCtx,
		})
	}
}

func (i *Interceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	principal, err := i.core.Authenticate(ctx, method, func() (string, error) {
		return i.tokenExtractor(ctx)
	})
	if err != nil {
		if i.logger != nil {
			i.logger.Warn("call rejected",
				"method", method,
				"code", core.ErrorCode(err))
		}
		return ctx, i.errorHandler(err)
	}

	if principal == nil {
		return ctx, nil
	}
	return core.SetPrincipal(ctx, principal), nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context carrying the principal.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
