package core

import (
	"strings"
	"time"
)

// Claims is the validated content of a bearer token as produced by a
// TokenValidator.
type Claims struct {
	Issuer    string
	Subject   string
	Audience  []string
	ID        string
	Expiry    time.Time
	NotBefore time.Time
	IssuedAt  time.Time

	// Scope is the raw "scope" claim, nil when the token carries none.
	// Per bearer-token convention it is a space-delimited string.
	Scope any

	// Private holds every non-registered claim of the token.
	Private map[string]any
}

// Principal is the identity established for one request. It lives in the
// request context until the request completes.
type Principal struct {
	Subject string
	// Scope is the space-delimited scope claim, empty when absent or not a string.
	Scope  string
	Claims *Claims
}

// Scopes splits the scope claim into its individual scopes.
func (p *Principal) Scopes() []string {
	return strings.Fields(p.Scope)
}

// HasScope reports whether the principal was granted scope.
func (p *Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes() {
		if s == scope {
			return true
		}
	}
	return false
}

func newPrincipal(claims *Claims) *Principal {
	scope, _ := claims.Scope.(string)
	return &Principal{
		Subject: claims.Subject,
		Scope:   scope,
		Claims:  claims,
	}
}
