package core

import "errors"

// Sentinel errors for the authentication gate. Every error produced while
// checking a request matches exactly one of them through errors.Is.
var (
	// ErrMissingToken is returned when a protected operation receives no
	// bearer token, or an Authorization header that is not "Bearer <token>".
	ErrMissingToken = errors.New("bearer token missing")

	// ErrInvalidToken is returned when the token fails signature, algorithm,
	// time, issuer or audience checks. The ValidationError code carries the reason.
	ErrInvalidToken = errors.New("bearer token invalid")

	// ErrInsufficientScope is returned when a valid token grants none of the
	// scopes required by the operation.
	ErrInsufficientScope = errors.New("insufficient scope")

	// ErrConfigurationInvalid is returned when the gate cannot verify tokens
	// because of operator misconfiguration.
	ErrConfigurationInvalid = errors.New("authentication configuration invalid")

	// ErrKeySourceUnavailable is returned when signing keys cannot be obtained
	// from the remote key set (network failure, bad response, rate limit).
	ErrKeySourceUnavailable = errors.New("signing key source unavailable")

	// ErrPrincipalNotFound is returned when no principal is stored in a context.
	ErrPrincipalNotFound = errors.New("principal not found in context")
)

// ValidationError wraps authentication failures with a machine-readable code.
// It can be used for logging, metrics and choosing the rejection status.
type ValidationError struct {
	// Code is a machine-readable error code (e.g. "token_expired").
	Code string

	// Message is a human-readable error message.
	Message string

	// Details contains the underlying error.
	Details error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Details
}

// Is reports whether the error belongs to the class of target, so that
// errors.Is(err, ErrInvalidToken) holds for every invalid token code.
func (e *ValidationError) Is(target error) bool {
	return target == e.Kind()
}

// Kind returns the sentinel error the code belongs to.
func (e *ValidationError) Kind() error {
	switch e.Code {
	case ErrorCodeTokenMissing:
		return ErrMissingToken
	case ErrorCodeInsufficientScope:
		return ErrInsufficientScope
	case ErrorCodeConfigInvalid:
		return ErrConfigurationInvalid
	case ErrorCodeJWKSFetchFailed, ErrorCodeJWKSRateLimited:
		return ErrKeySourceUnavailable
	case ErrorCodePrincipalNotFound:
		return ErrPrincipalNotFound
	default:
		return ErrInvalidToken
	}
}

// Error codes.
const (
	ErrorCodeTokenMissing        = "token_missing"
	ErrorCodeTokenMalformed      = "token_malformed"
	ErrorCodeTokenExpired        = "token_expired"
	ErrorCodeTokenNotYetValid    = "token_not_yet_valid"
	ErrorCodeTokenIssuedInFuture = "token_issued_in_future"
	ErrorCodeInvalidSignature    = "invalid_signature"
	ErrorCodeInvalidAlgorithm    = "invalid_algorithm"
	ErrorCodeInvalidIssuer       = "invalid_issuer"
	ErrorCodeInvalidAudience     = "invalid_audience"
	ErrorCodeJWKSKeyNotFound     = "jwks_key_not_found"
	ErrorCodeInsufficientScope   = "insufficient_scope"
	ErrorCodeConfigInvalid       = "config_invalid"
	ErrorCodeJWKSFetchFailed     = "jwks_fetch_failed"
	ErrorCodeJWKSRateLimited     = "jwks_rate_limited"
	ErrorCodePrincipalNotFound   = "principal_not_found"
)

// NewValidationError creates a new ValidationError with the given code and message.
func NewValidationError(code, message string, details error) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ErrorCode returns the code of the first ValidationError in err's chain.
// Errors outside the taxonomy report "internal".
func ErrorCode(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Code
	}
	return "internal"
}
