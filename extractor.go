package jwtgate

import (
	"errors"
	"net/http"
	"strings"
)

// TokenExtractor pulls the raw bearer token out of a request. A request that
// carries no token yields "" and a nil error; an error means a credential was
// supplied in an unusable shape. The gate reports both as a missing token.
type TokenExtractor func(r *http.Request) (string, error)

const bearerPrefix = "Bearer "

// ErrMalformedAuthHeader is returned by AuthHeaderTokenExtractor when the
// Authorization header is present but is not "Bearer <token>".
var ErrMalformedAuthHeader = errors.New("authorization header format must be Bearer {token}")

// AuthHeaderTokenExtractor is a TokenExtractor that takes a request and
// extracts the token from the Authorization header. The scheme must be the
// literal "Bearer " followed by exactly one non-empty token.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}

	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedAuthHeader
	}

	return token, nil
}

// CookieTokenExtractor reads the token from the named cookie. An absent cookie
// is not an error.
func CookieTokenExtractor(cookieName string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return cookie.Value, nil
	}
}

// ParameterTokenExtractor reads the token from a query string parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return r.URL.Query().Get(param), nil
	}
}

// MultiTokenExtractor tries each extractor in order and returns the first
// non-empty token. The first error stops the search.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, extract := range extractors {
			token, err := extract(r)
			if err != nil {
				return "", err
			}

			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
