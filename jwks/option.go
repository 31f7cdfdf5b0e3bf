package jwks

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labshare/go-jwt-gate/core"
)

// ============================================================================
// Provider Options
// ============================================================================

// ProviderOption is how options for the Provider are set up.
type ProviderOption func(*Provider) error

// WithJWKSURI sets the JWKS endpoint. This is a required option.
// Use TenantJWKSURL to build it from an auth URL and tenant.
func WithJWKSURI(jwksURI *url.URL) ProviderOption {
	return func(p *Provider) error {
		if jwksURI == nil {
			return errors.New("JWKS URI cannot be nil")
		}
		if !jwksURI.IsAbs() {
			return fmt.Errorf("JWKS URI must be absolute, got %q", jwksURI.String())
		}
		p.JWKSURI = jwksURI
		return nil
	}
}

// WithCustomClient sets a custom HTTP client for the Provider.
func WithCustomClient(c *http.Client) ProviderOption {
	return func(p *Provider) error {
		if c == nil {
			return errors.New("HTTP client cannot be nil")
		}
		p.Client = c
		return nil
	}
}

// ============================================================================
// CachingProvider Options
// ============================================================================

// CachingProviderOption is how options for the CachingProvider are set up.
type CachingProviderOption func(*cachingProviderConfig) error

// cachingProviderConfig holds internal configuration for creating a CachingProvider.
type cachingProviderConfig struct {
	jwksURI           *url.URL
	httpClient        *http.Client
	cacheTTL          time.Duration
	cacheMaxEntries   int
	cacheDisabled     bool
	requestsPerMinute int
	rateLimitDisabled bool
	fetchTimeout      time.Duration
	store             Store
	logger            core.Logger
	metrics           core.Metrics
}

// WithCacheTTL sets how long a key stays cached. Default: 10 minutes.
// A Cache-Control max-age longer than the TTL extends it.
func WithCacheTTL(ttl time.Duration) CachingProviderOption {
	return func(c *cachingProviderConfig) error {
		if ttl < 0 {
			return errors.New("cache TTL cannot be negative")
		}
		if ttl == 0 {
			ttl = DefaultCacheTTL
		}
		c.cacheTTL = ttl
		return nil
	}
}

// WithCacheMaxEntries bounds the number of cached keys. Default: 5.
func WithCacheMaxEntries(n int) CachingProviderOption {
	return func(c *cachingProviderConfig) error {
		if n <= 0 {
			return errors.New("cache max entries must be positive")
		}
		c.cacheMaxEntries = n
		return nil
	}
}

// WithoutCache disables the key cache. Fetches are still coalesced and
// rate limited.
func WithoutCache() CachingProviderOption {
	return func(c *cachingProviderConfig) error {
		c.cacheDisabled = true
		return nil
	}
}

// WithRateLimit sets how many requests per minute may be sent to the JWKS
// endpoint. Default: 10.
func WithRateLimit(requestsPerMinute int) CachingProviderOption {
	return func(c *cachingProviderConfig) error {
		if requestsPerMinute <= 0 {
			return errors.New("requests per minute must be positive")
		}
		c.requestsPerMinute = requestsPerMinute
		return nil
	}
}

// WithoutRateLimit disables the request rate limiter.
func WithoutRateLimit() CachingProviderOption {
	return func(c *cachingProviderConfig) error {
		c.rateLimitDisabled = true
		return nil
	}
}

// WithFetchTimeout bounds a single JWKS fetch. Default: 30 seconds.
func WithFetchTimeout(timeout time.Duration) CachingProviderOption {
	return func(c *cachingProviderConfig) error {
		if timeout <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		c.fetchTimeout = timeout
		return nil
	}
}

// WithStore shares fetched JWKS documents through store, e.g. a Redis
// backed jwksredis.Store, so that replicas do not each hit the endpoint.
//
// Example:
//
//	provider, err := jwks.NewCachingProvider(
//	    jwks.WithJWKSURI(jwksURL),
//	    jwks.WithStore(jwksredis.New(redisClient)),
//	)
func WithStore(store Store) CachingProviderOption {
	return func(c *cachingProviderConfig) error {
		if store == nil {
			return errors.New("store cannot be nil")
		}
		c.store = store
		return nil
	}
}

// WithLogger sets an optional logger for fetch and cache events.
func WithLogger(logger core.Logger) CachingProviderOption {
	return func(c *cachingProviderConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink for fetch outcomes and cache size.
func WithMetrics(metrics core.Metrics) CachingProviderOption {
	return func(c *cachingProviderConfig) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}
