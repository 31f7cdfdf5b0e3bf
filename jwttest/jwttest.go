// Package jwttest provides a throwaway identity provider for tests: an
// httptest server publishing a JWKS document at the tenant path the gate
// fetches from, and helpers minting RS256 tokens signed by its key.
//
//	idp := jwttest.NewIdentityProvider(t)
//	token := idp.CreateToken(t, "abc", "read:users")
//	// configure the gate with idp.URL() and idp.Tenant
package jwttest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"
)

// Defaults used when minting tokens.
const (
	DefaultTenant   = "ls"
	DefaultKeyID    = "1"
	DefaultIssuer   = "issuer"
	DefaultAudience = "https://my.api.id/v2"
	DefaultExpiry   = 10 * time.Minute
)

// IdentityProvider is a test authorization server. Tokens are signed with
// its primary RSA key; additional keys are only published.
type IdentityProvider struct {
	Server *httptest.Server
	Tenant string

	key            *rsa.PrivateKey
	keyID          string
	additionalKIDs []string
	delay          time.Duration

	requests atomic.Int64

	mu     sync.RWMutex
	status int
}

// ProviderOption configures an IdentityProvider.
type ProviderOption func(*IdentityProvider)

// WithTenant sets the tenant segment of the JWKS path.
func WithTenant(tenant string) ProviderOption {
	return func(p *IdentityProvider) {
		p.Tenant = tenant
	}
}

// WithResponseDelay delays every JWKS response, which widens the window in
// which concurrent fetches overlap.
func WithResponseDelay(delay time.Duration) ProviderOption {
	return func(p *IdentityProvider) {
		p.delay = delay
	}
}

// WithAdditionalKeys publishes one more RSA signing key per kid next to the
// primary key, as during a key rotation.
func WithAdditionalKeys(kids ...string) ProviderOption {
	return func(p *IdentityProvider) {
		p.additionalKIDs = append(p.additionalKIDs, kids...)
	}
}

// NewIdentityProvider starts an identity provider that is closed when the
// test ends.
func NewIdentityProvider(t testing.TB, opts ...ProviderOption) *IdentityProvider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &IdentityProvider{
		Tenant: DefaultTenant,
		key:    key,
		keyID:  DefaultKeyID,
		status: http.StatusOK,
	}
	for _, opt := range opts {
		opt(p)
	}

	body := p.jwksDocument(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/"+p.Tenant+"/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		p.requests.Add(1)
		if p.delay > 0 {
			time.Sleep(p.delay)
		}

		p.mu.RLock()
		status := p.status
		p.mu.RUnlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)

	return p
}

func (p *IdentityProvider) jwksDocument(t testing.TB) []byte {
	t.Helper()

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(publicJWK(t, &p.key.PublicKey, p.keyID)))

	for _, kid := range p.additionalKIDs {
		extra, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		require.NoError(t, set.AddKey(publicJWK(t, &extra.PublicKey, kid)))
	}

	body, err := json.Marshal(set)
	require.NoError(t, err)
	return body
}

func publicJWK(t testing.TB, raw *rsa.PublicKey, kid string) jwk.Key {
	t.Helper()

	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.KeyUsageKey, jwk.ForSignature))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))
	return key
}

// URL returns the base URL of the provider (the gate's authUrl).
func (p *IdentityProvider) URL() string {
	return p.Server.URL
}

// JWKSURL returns the full URL of the published key set.
func (p *IdentityProvider) JWKSURL() string {
	return p.Server.URL + "/auth/" + p.Tenant + "/.well-known/jwks.json"
}

// Requests returns how many times the key set was requested.
func (p *IdentityProvider) Requests() int {
	return int(p.requests.Load())
}

// SetStatus makes subsequent JWKS requests answer with status and no body.
// http.StatusOK restores normal responses.
func (p *IdentityProvider) SetStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

// KeyID returns the kid of the signing key.
func (p *IdentityProvider) KeyID() string {
	return p.keyID
}

// PublicKey returns the public half of the signing key.
func (p *IdentityProvider) PublicKey() *rsa.PublicKey {
	return &p.key.PublicKey
}

// tokenOptions holds the claims and signing parameters of a minted token.
type tokenOptions struct {
	issuer   string
	audience []string
	expiry   time.Duration
	keyID    string
	method   jwt.SigningMethod
	key      any
	scope    any
	claims   jwt.MapClaims
}

// TokenOption customizes a token minted by CreateToken.
type TokenOption func(*tokenOptions)

// WithAudience replaces the audience claim.
func WithAudience(audience ...string) TokenOption {
	return func(o *tokenOptions) {
		o.audience = audience
	}
}

// WithIssuer replaces the issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(o *tokenOptions) {
		o.issuer = issuer
	}
}

// WithExpiry sets exp relative to now. A negative value mints an expired token.
func WithExpiry(expiry time.Duration) TokenOption {
	return func(o *tokenOptions) {
		o.expiry = expiry
	}
}

// WithKeyID sets the kid header. An empty kid omits the header.
func WithKeyID(kid string) TokenOption {
	return func(o *tokenOptions) {
		o.keyID = kid
	}
}

// WithScopeClaim sets the raw scope claim, e.g. a list instead of a string.
func WithScopeClaim(scope any) TokenOption {
	return func(o *tokenOptions) {
		o.scope = scope
	}
}

// WithClaim sets an arbitrary claim.
func WithClaim(name string, value any) TokenOption {
	return func(o *tokenOptions) {
		o.claims[name] = value
	}
}

// WithSigningMethod signs with method and key instead of the provider's
// RS256 key.
func WithSigningMethod(method jwt.SigningMethod, key any) TokenOption {
	return func(o *tokenOptions) {
		o.method = method
		o.key = key
	}
}

// CreateToken mints a token for subject. A non-empty scope is set as the
// space-delimited scope claim.
func (p *IdentityProvider) CreateToken(t testing.TB, subject, scope string, opts ...TokenOption) string {
	t.Helper()

	o := &tokenOptions{
		issuer:   DefaultIssuer,
		audience: []string{DefaultAudience},
		expiry:   DefaultExpiry,
		keyID:    p.keyID,
		method:   jwt.SigningMethodRS256,
		key:      p.key,
		claims:   jwt.MapClaims{},
	}
	if scope != "" {
		o.scope = scope
	}
	for _, opt := range opts {
		opt(o)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(o.expiry).Unix(),
	}
	if o.issuer != "" {
		claims["iss"] = o.issuer
	}
	if len(o.audience) > 0 {
		claims["aud"] = o.audience
	}
	if o.scope != nil {
		claims["scope"] = o.scope
	}
	for name, value := range o.claims {
		claims[name] = value
	}

	token := jwt.NewWithClaims(o.method, claims)
	if o.keyID != "" {
		token.Header["kid"] = o.keyID
	}

	signed, err := token.SignedString(o.key)
	require.NoError(t, err)
	return signed
}
