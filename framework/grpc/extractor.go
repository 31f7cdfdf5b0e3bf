package jwtgrpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/metadata"
)

// TokenExtractor extracts the bearer token from an incoming call context.
// It returns "" when the call carries no token.
type TokenExtractor func(ctx context.Context) (string, error)

// Extractor errors
var (
	// ErrMultipleAuthHeaders indicates multiple authorization metadata entries were provided.
	ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")

	// ErrInvalidAuthFormat indicates the authorization metadata is not "Bearer <token>".
	ErrInvalidAuthFormat = errors.New("invalid authorization metadata format, expected: Bearer <token>")
)

// MetadataTokenExtractor extracts the token from the "authorization"
// metadata key, which must be exactly "Bearer <token>".
//
// gRPC normalizes incoming metadata keys to lowercase, so this extractor only
// checks the lowercase "authorization" key.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return "", nil
	}

	if len(authHeaders) > 1 {
		return "", ErrMultipleAuthHeaders
	}

	token, ok := strings.CutPrefix(authHeaders[0], "Bearer ")
	if !ok || token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrInvalidAuthFormat
	}

	return token, nil
}
