package jwks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/labshare/go-jwt-gate/core"
)

// maxDocumentSize bounds a JWKS response body. Real key sets are a few KB.
const maxDocumentSize = 1024 * 1024

// TenantJWKSURL returns {authURL}/auth/{tenant}/.well-known/jwks.json.
func TenantJWKSURL(authURL, tenant string) (*url.URL, error) {
	base, err := url.Parse(authURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse auth URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("auth URL must use http or https, got %q", authURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("auth URL must have a host, got %q", authURL)
	}
	if tenant == "" {
		return nil, errors.New("tenant cannot be empty")
	}
	if strings.Contains(tenant, "/") {
		return nil, fmt.Errorf("tenant cannot contain '/', got %q", tenant)
	}

	return base.JoinPath("auth", tenant, ".well-known", "jwks.json"), nil
}

// Provider fetches the JWKS on every call and exposes KeyFunc, which
// adheres to the validator.KeyFunc signature. Most likely you will want to
// use the CachingProvider, which caches keys and limits the request rate
// towards the authorization server.
type Provider struct {
	JWKSURI *url.URL // Required.
	Client  *http.Client
}

// NewProvider builds and returns a new *Provider.
//
// Example:
//
//	jwksURL, _ := jwks.TenantJWKSURL("https://a.labshare.org", "ls")
//	provider, err := jwks.NewProvider(jwks.WithJWKSURI(jwksURL))
func NewProvider(opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		Client: &http.Client{Timeout: defaultFetchTimeout},
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid JWKS provider option", err)
		}
	}

	if p.JWKSURI == nil {
		return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "JWKS URI is required (use WithJWKSURI)", nil)
	}

	return p, nil
}

// KeyFunc fetches the key set and returns the signing key for kid as a jwk.Key.
func (p *Provider) KeyFunc(ctx context.Context, kid string) (any, error) {
	doc, err := fetchDocument(ctx, p.Client, p.JWKSURI.String())
	if err != nil {
		return nil, err
	}

	set, err := parseDocument(doc.body)
	if err != nil {
		return nil, err
	}

	return selectKey(set, kid)
}

// document is a fetched JWKS response.
type document struct {
	body   []byte
	maxAge time.Duration // From Cache-Control, 0 if absent.
}

// fetchDocument requests the key set. Every failure is reported as an
// unavailable key source.
func fetchDocument(ctx context.Context, client *http.Client, jwksURI string) (*document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeJWKSFetchFailed, "could not fetch JWKS", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeJWKSFetchFailed, "could not fetch JWKS", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.NewValidationError(
			core.ErrorCodeJWKSFetchFailed,
			"could not fetch JWKS",
			fmt.Errorf("request returned status %d, expected 200", resp.StatusCode),
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeJWKSFetchFailed, "could not read JWKS", err)
	}
	if len(body) > maxDocumentSize {
		return nil, core.NewValidationError(core.ErrorCodeJWKSFetchFailed, "JWKS response exceeds 1MB", nil)
	}

	return &document{
		body:   body,
		maxAge: parseCacheControl(resp.Header.Get("Cache-Control")),
	}, nil
}

func parseDocument(body []byte) (jwk.Set, error) {
	set, err := jwk.Parse(body)
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeJWKSFetchFailed, "failed to parse JWKS", err)
	}
	return set, nil
}

// signingKeys returns the RSA keys of set usable for signature verification:
// those whose "use" is "sig" or unset.
func signingKeys(set jwk.Set) []jwk.Key {
	var keys []jwk.Key
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if key.KeyType() != jwa.RSA {
			continue
		}
		if use := key.KeyUsage(); use != "" && use != string(jwk.ForSignature) {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// selectKey picks the signing key matching kid. A token without a kid is
// only accepted when the set holds exactly one signing key.
func selectKey(set jwk.Set, kid string) (jwk.Key, error) {
	keys := signingKeys(set)

	if kid == "" {
		if len(keys) == 1 {
			return keys[0], nil
		}
		return nil, core.NewValidationError(
			core.ErrorCodeJWKSKeyNotFound,
			fmt.Sprintf("token has no kid and the key set holds %d signing keys", len(keys)),
			nil,
		)
	}

	for _, key := range keys {
		if key.KeyID() == kid {
			return key, nil
		}
	}

	return nil, core.NewValidationError(
		core.ErrorCodeJWKSKeyNotFound,
		fmt.Sprintf("unable to find a signing key that matches %q", kid),
		nil,
	)
}

// parseCacheControl extracts max-age from a Cache-Control header.
// Returns 0 if max-age is not present, invalid, or outside [1s, 7d].
func parseCacheControl(cacheControl string) time.Duration {
	const (
		maxAgePrefix = "max-age="
		minTTL       = time.Second
		maxTTL       = 7 * 24 * time.Hour
	)

	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, maxAgePrefix) {
			continue
		}

		seconds, err := strconv.ParseInt(strings.TrimPrefix(directive, maxAgePrefix), 10, 64)
		if err != nil || seconds <= 0 {
			continue
		}

		ttl := time.Duration(seconds) * time.Second
		if ttl < minTTL || ttl > maxTTL {
			return 0
		}
		return ttl
	}

	return 0
}
