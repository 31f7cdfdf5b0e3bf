package validator

import (
	"errors"
	"strings"
)

var (
	// ErrExcessiveTokenDots is returned when a token has more segments than
	// a compact JWS.
	ErrExcessiveTokenDots = errors.New("token contains excessive dots")

	// ErrTokenTooLarge is returned for tokens over maxTokenSize.
	ErrTokenTooLarge = errors.New("token exceeds maximum size (1MB)")
)

const (
	// maxTokenDots matches the compact JWS form header.payload.signature.
	maxTokenDots = 2

	maxTokenSize = 1024 * 1024
)

// validateTokenFormat rejects obviously malformed input before it reaches
// the JOSE parser.
func validateTokenFormat(tokenString string) error {
	if len(tokenString) == 0 {
		return errors.New("token is empty")
	}

	if len(tokenString) > maxTokenSize {
		return ErrTokenTooLarge
	}

	if strings.Count(tokenString, ".") > maxTokenDots {
		return ErrExcessiveTokenDots
	}

	return nil
}
