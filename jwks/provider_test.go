package jwks

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labshare/go-jwt-gate/core"
	"github.com/labshare/go-jwt-gate/jwttest"
)

func TestTenantJWKSURL(t *testing.T) {
	testCases := []struct {
		name    string
		authURL string
		tenant  string
		want    string
		wantErr string
	}{
		{
			name:    "it appends the tenant path",
			authURL: "https://a.labshare.org",
			tenant:  "ls",
			want:    "https://a.labshare.org/auth/ls/.well-known/jwks.json",
		},
		{
			name:    "it tolerates a trailing slash",
			authURL: "https://a.labshare.org/",
			tenant:  "ls",
			want:    "https://a.labshare.org/auth/ls/.well-known/jwks.json",
		},
		{
			name:    "it keeps a base path",
			authURL: "http://localhost:8000/idp",
			tenant:  "acme",
			want:    "http://localhost:8000/idp/auth/acme/.well-known/jwks.json",
		},
		{
			name:    "it rejects other schemes",
			authURL: "ftp://a.labshare.org",
			tenant:  "ls",
			wantErr: "auth URL must use http or https",
		},
		{
			name:    "it rejects a relative URL",
			authURL: "a.labshare.org",
			tenant:  "ls",
			wantErr: "auth URL must use http or https",
		},
		{
			name:    "it rejects an empty tenant",
			authURL: "https://a.labshare.org",
			wantErr: "tenant cannot be empty",
		},
		{
			name:    "it rejects a tenant with a slash",
			authURL: "https://a.labshare.org",
			tenant:  "ls/../x",
			wantErr: "tenant cannot contain '/'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TenantJWKSURL(tc.authURL, tc.tenant)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func Test_JWKSProvider(t *testing.T) {
	idp := jwttest.NewIdentityProvider(t)
	jwksURL, err := url.Parse(idp.JWKSURL())
	require.NoError(t, err)

	t.Run("It fetches the signing key for a kid", func(t *testing.T) {
		provider, err := NewProvider(WithJWKSURI(jwksURL))
		require.NoError(t, err)

		key, err := provider.KeyFunc(context.Background(), jwttest.DefaultKeyID)
		require.NoError(t, err)

		jwkKey, ok := key.(jwk.Key)
		require.True(t, ok, "expected jwk.Key type")
		assert.Equal(t, jwttest.DefaultKeyID, jwkKey.KeyID())
	})

	t.Run("It fetches on every call", func(t *testing.T) {
		before := idp.Requests()
		provider, err := NewProvider(WithJWKSURI(jwksURL))
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := provider.KeyFunc(context.Background(), jwttest.DefaultKeyID)
			require.NoError(t, err)
		}
		assert.Equal(t, before+3, idp.Requests())
	})

	t.Run("It reports an unknown kid as an invalid token", func(t *testing.T) {
		provider, err := NewProvider(WithJWKSURI(jwksURL))
		require.NoError(t, err)

		_, err = provider.KeyFunc(context.Background(), "unknown")
		assert.ErrorIs(t, err, core.ErrInvalidToken)
		assert.Equal(t, core.ErrorCodeJWKSKeyNotFound, core.ErrorCode(err))
	})

	t.Run("It uses the specified custom client", func(t *testing.T) {
		client := &http.Client{Timeout: time.Hour}
		provider, err := NewProvider(WithJWKSURI(jwksURL), WithCustomClient(client))
		require.NoError(t, err)
		assert.Same(t, client, provider.Client)
	})

	t.Run("It tells the provider to cancel fetching the JWKS if request is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()

		provider, err := NewProvider(WithJWKSURI(jwksURL))
		require.NoError(t, err)

		_, err = provider.KeyFunc(ctx, jwttest.DefaultKeyID)
		assert.ErrorIs(t, err, core.ErrKeySourceUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("It reports a failing endpoint as an unavailable key source", func(t *testing.T) {
		failing := jwttest.NewIdentityProvider(t)
		failing.SetStatus(http.StatusInternalServerError)
		failingURL, err := url.Parse(failing.JWKSURL())
		require.NoError(t, err)

		provider, err := NewProvider(WithJWKSURI(failingURL))
		require.NoError(t, err)

		_, err = provider.KeyFunc(context.Background(), jwttest.DefaultKeyID)
		assert.ErrorIs(t, err, core.ErrKeySourceUnavailable)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("Provider returns error when JWKS URI is missing", func(t *testing.T) {
		_, err := NewProvider()
		assert.ErrorIs(t, err, core.ErrConfigurationInvalid)
		assert.Contains(t, err.Error(), "JWKS URI is required")
	})

	t.Run("Provider rejects a relative JWKS URI", func(t *testing.T) {
		_, err := NewProvider(WithJWKSURI(&url.URL{Path: "/jwks.json"}))
		assert.ErrorIs(t, err, core.ErrConfigurationInvalid)
	})
}

func newRSAKey(t *testing.T, kid, use string) jwk.Key {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key, err := jwk.FromRaw(&raw.PublicKey)
	require.NoError(t, err)
	if kid != "" {
		require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	}
	if use != "" {
		require.NoError(t, key.Set(jwk.KeyUsageKey, use))
	}
	return key
}

func newSet(t *testing.T, keys ...jwk.Key) jwk.Set {
	t.Helper()

	set := jwk.NewSet()
	for _, key := range keys {
		require.NoError(t, set.AddKey(key))
	}
	return set
}

func TestSelectKey(t *testing.T) {
	sig := newRSAKey(t, "sig", "sig")
	unset := newRSAKey(t, "unset", "")
	enc := newRSAKey(t, "enc", "enc")

	symmetric, err := jwk.FromRaw([]byte("secret"))
	require.NoError(t, err)
	require.NoError(t, symmetric.Set(jwk.KeyIDKey, "oct"))

	set := newSet(t, sig, unset, enc, symmetric)

	t.Run("it finds signing keys by kid", func(t *testing.T) {
		for _, kid := range []string{"sig", "unset"} {
			key, err := selectKey(set, kid)
			require.NoError(t, err)
			assert.Equal(t, kid, key.KeyID())
		}
	})

	t.Run("it ignores encryption and non RSA keys", func(t *testing.T) {
		for _, kid := range []string{"enc", "oct"} {
			_, err := selectKey(set, kid)
			assert.Equal(t, core.ErrorCodeJWKSKeyNotFound, core.ErrorCode(err))
		}
	})

	t.Run("it rejects a token without kid when several keys qualify", func(t *testing.T) {
		_, err := selectKey(set, "")
		assert.ErrorIs(t, err, core.ErrInvalidToken)
		assert.Contains(t, err.Error(), "holds 2 signing keys")
	})

	t.Run("it accepts a token without kid when a single key qualifies", func(t *testing.T) {
		key, err := selectKey(newSet(t, sig, enc), "")
		require.NoError(t, err)
		assert.Equal(t, "sig", key.KeyID())
	})
}

func TestParseCacheControl(t *testing.T) {
	testCases := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"max-age=3600", time.Hour},
		{"public, max-age=600, must-revalidate", 10 * time.Minute},
		{"max-age=abc", 0},
		{"max-age=-5", 0},
		{"max-age=0", 0},
		{"max-age=999999999", 0},
		{"no-cache", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.header, func(t *testing.T) {
			assert.Equal(t, tc.want, parseCacheControl(tc.header))
		})
	}
}
