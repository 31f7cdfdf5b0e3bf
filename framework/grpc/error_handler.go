package jwtgrpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/labshare/go-jwt-gate/core"
)

// ErrorHandler converts gate errors to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler maps gate errors to gRPC status codes with fixed
// messages.
func DefaultErrorHandler(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrMissingToken):
		return status.Error(codes.Unauthenticated, "missing credentials")
	case errors.Is(err, core.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, core.ErrInsufficientScope):
		return status.Error(codes.PermissionDenied, "insufficient scope")
	case errors.Is(err, core.ErrKeySourceUnavailable):
		return status.Error(codes.Unavailable, "unable to verify token")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
