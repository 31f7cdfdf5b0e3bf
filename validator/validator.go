package validator

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/labshare/go-jwt-gate/core"
)

// SignatureAlgorithm is the only algorithm accepted in a token header.
const SignatureAlgorithm = jwa.RS256

// KeyFunc resolves the verification key for the kid in a token header.
// kid is empty when the token carries none. The returned key may be a
// jwk.Key or a raw *rsa.PublicKey.
type KeyFunc func(ctx context.Context, kid string) (any, error)

// Validator verifies RS256 bearer tokens with lestrrat-go/jwx.
// It is immutable after construction and safe for concurrent use.
type Validator struct {
	keyFunc          KeyFunc       // Required.
	issuer           string        // Optional.
	audience         []string      // Optional.
	allowedClockSkew time.Duration // Optional.
}

// New sets up a Validator. WithKeyFunc is required.
//
// Example:
//
//	v, err := validator.New(
//	    validator.WithKeyFunc(provider.KeyFunc),
//	    validator.WithIssuer("https://a.labshare.org/"),
//	    validator.WithAudience("https://my.api.id/v2"),
//	)
func New(opts ...Option) (*Validator, error) {
	v := &Validator{}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid validator option", err)
		}
	}

	if v.keyFunc == nil {
		return nil, core.NewValidationError(
			core.ErrorCodeConfigInvalid,
			"keyFunc is required but not set (use WithKeyFunc option)",
			nil,
		)
	}

	return v, nil
}

// ValidateToken verifies the token signature and registered claims and
// returns the token's claims. Every failure is a *core.ValidationError.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*core.Claims, error) {
	if err := validateTokenFormat(tokenString); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "could not parse the token", err)
	}

	msg, err := jws.Parse([]byte(tokenString))
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "could not parse the token", err)
	}
	signatures := msg.Signatures()
	if len(signatures) != 1 {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "token must carry exactly one signature", nil)
	}
	headers := signatures[0].ProtectedHeaders()

	if alg := headers.Algorithm(); alg != SignatureAlgorithm {
		return nil, core.NewValidationError(
			core.ErrorCodeInvalidAlgorithm,
			"signing method is invalid",
			errors.New("expected RS256 but token specified "+alg.String()),
		)
	}

	key, err := v.keyFunc(ctx, headers.KeyID())
	if err != nil {
		var validationErr *core.ValidationError
		if errors.As(err, &validationErr) {
			return nil, err
		}
		return nil, core.NewValidationError(core.ErrorCodeJWKSFetchFailed, "error getting the keys from the key func", err)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(SignatureAlgorithm, key),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidSignature, "could not verify the token signature", err)
	}

	claims := claimsFromToken(token)
	if err := v.validateClaims(claims, time.Now()); err != nil {
		return nil, err
	}

	return claims, nil
}

// validateClaims checks time-based claims with the allowed skew, then
// issuer and audience.
func (v *Validator) validateClaims(claims *core.Claims, now time.Time) error {
	skew := v.allowedClockSkew

	if !claims.Expiry.IsZero() && now.Add(-skew).After(claims.Expiry) {
		return core.NewValidationError(core.ErrorCodeTokenExpired, "token has expired", nil)
	}

	if !claims.NotBefore.IsZero() && now.Add(skew).Before(claims.NotBefore) {
		return core.NewValidationError(core.ErrorCodeTokenNotYetValid, "token is not valid yet", nil)
	}

	if !claims.IssuedAt.IsZero() && now.Add(skew).Before(claims.IssuedAt) {
		return core.NewValidationError(core.ErrorCodeTokenIssuedInFuture, "token was issued in the future", nil)
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return core.NewValidationError(core.ErrorCodeInvalidIssuer, "token issuer is not accepted", nil)
	}

	if len(v.audience) > 0 && !containsAny(claims.Audience, v.audience) {
		return core.NewValidationError(core.ErrorCodeInvalidAudience, "token audience is not accepted", nil)
	}

	return nil
}

func claimsFromToken(token jwt.Token) *core.Claims {
	claims := &core.Claims{
		Issuer:    token.Issuer(),
		Subject:   token.Subject(),
		Audience:  token.Audience(),
		ID:        token.JwtID(),
		Expiry:    token.Expiration(),
		NotBefore: token.NotBefore(),
		IssuedAt:  token.IssuedAt(),
		Private:   token.PrivateClaims(),
	}
	if scope, ok := claims.Private["scope"]; ok {
		claims.Scope = scope
	}
	return claims
}

func containsAny(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
