package jwtgate

import (
	"errors"
	"net/http"

	"github.com/labshare/go-jwt-gate/core"
)

// ErrorHandler is called when the Gate rejects a request. The err can be
// checked with errors.Is against the core sentinels (core.ErrMissingToken,
// core.ErrInvalidToken, core.ErrInsufficientScope, ...) and with
// core.ErrorCode for the specific reason. If you implement your own
// ErrorHandler you MUST respond to every error: the next handler is never
// called for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Response bodies of the default error handler.
const (
	BodyUnauthorized      = "Unauthorized"
	BodyInsufficientScope = "Insufficient scope"
	BodyUnavailable       = "Service Unavailable"
	BodyInternal          = "Internal Server Error"
)

// StatusCode maps a gate error to its HTTP status:
//
//	ErrMissingToken, ErrInvalidToken -> 401
//	ErrInsufficientScope             -> 403
//	ErrKeySourceUnavailable          -> 503
//	anything else                    -> 500
func StatusCode(err error) int {
	switch {
	case errors.Is(err, core.ErrMissingToken), errors.Is(err, core.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrInsufficientScope):
		return http.StatusForbidden
	case errors.Is(err, core.ErrKeySourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DefaultErrorHandler is the default error handler implementation for the
// Gate. It answers in plain text and never includes err's text in the body.
// Token rejections carry an RFC 6750 WWW-Authenticate challenge.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := StatusCode(err)

	if challenge := Challenge(err); challenge != "" {
		w.Header().Set("WWW-Authenticate", challenge)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body(status)))
}

// Challenge returns the WWW-Authenticate value for err, or "" when the
// rejection is not about the credentials.
func Challenge(err error) string {
	switch {
	case errors.Is(err, core.ErrMissingToken):
		return "Bearer"
	case errors.Is(err, core.ErrInvalidToken):
		return `Bearer error="invalid_token"`
	case errors.Is(err, core.ErrInsufficientScope):
		return `Bearer error="insufficient_scope"`
	default:
		return ""
	}
}

func body(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return BodyUnauthorized
	case http.StatusForbidden:
		return BodyInsufficientScope
	case http.StatusServiceUnavailable:
		return BodyUnavailable
	default:
		return BodyInternal
	}
}
