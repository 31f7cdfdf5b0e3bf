package validator

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Option configures a Validator. A failing option aborts New.
type Option func(*Validator) error

// WithKeyFunc sets the signing key resolver. It is required.
//
// For a tenant key set, use jwks.CachingProvider.KeyFunc. For a
// statically configured key, use StaticKey or PublicKeyFromPEM.
func WithKeyFunc(keyFunc KeyFunc) Option {
	return func(v *Validator) error {
		if keyFunc == nil {
			return errors.New("keyFunc cannot be nil")
		}
		v.keyFunc = keyFunc
		return nil
	}
}

// WithIssuer sets the expected issuer claim (iss). The comparison is exact.
// When not set, the issuer is not checked.
func WithIssuer(issuer string) Option {
	return func(v *Validator) error {
		if issuer == "" {
			return errors.New("issuer cannot be empty")
		}
		if _, err := url.Parse(issuer); err != nil {
			return fmt.Errorf("issuer is not a valid URL: %w", err)
		}
		v.issuer = issuer
		return nil
	}
}

// WithAudience sets a single expected audience claim (aud).
// When no audience is set, the audience is not checked.
func WithAudience(audience string) Option {
	return func(v *Validator) error {
		if audience == "" {
			return errors.New("audience cannot be empty")
		}
		v.audience = []string{audience}
		return nil
	}
}

// WithAudiences sets the accepted audiences. The token must contain at least
// one of them.
func WithAudiences(audiences []string) Option {
	return func(v *Validator) error {
		if len(audiences) == 0 {
			return errors.New("audiences cannot be empty")
		}
		for i, aud := range audiences {
			if aud == "" {
				return fmt.Errorf("audience %d is empty", i)
			}
		}
		v.audience = append([]string(nil), audiences...)
		return nil
	}
}

// WithAllowedClockSkew tolerates clock drift when checking exp, nbf and iat.
// The default is no tolerance.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.allowedClockSkew = skew
		return nil
	}
}
