/*
Package validator verifies bearer tokens using the lestrrat-go/jwx v2 library.

A Validator implements core.TokenValidator. It accepts RS256 compact JWS
tokens only and checks, in order:

  - the token shape (at most 1MB, exactly three segments)
  - the header alg, which must be RS256
  - the signature, against the key returned by the KeyFunc for the header kid
  - exp, nbf and iat, with the allowed clock skew; exp is only checked when present
  - iss, when an issuer is configured (exact match)
  - aud, when audiences are configured (any one match)

Every failure is a *core.ValidationError matching core.ErrInvalidToken,
except for key source failures, which match core.ErrKeySourceUnavailable.

# Key Functions

The KeyFunc receives the kid of the token header. Use
jwks.CachingProvider.KeyFunc for a remote key set, or one of the static
resolvers when the key is supplied by the operator:

	keyFunc, err := validator.PublicKeyFromPEM(pemBytes)
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeyFunc(keyFunc),
	    validator.WithIssuer("https://a.labshare.org/"),
	    validator.WithAudiences([]string{"https://my.api.id/v2"}),
	    validator.WithAllowedClockSkew(30*time.Second),
	)

# Claims

ValidateToken returns *core.Claims. The scope claim is kept as decoded
(string, list or absent) so that scope enforcement can reject anything that
is not a space-delimited string.
*/
package validator
