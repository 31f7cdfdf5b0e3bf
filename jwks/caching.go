package jwks

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"

	"github.com/labshare/go-jwt-gate/core"
)

// Defaults follow the usual JWKS client settings: caching on, five keys
// kept for ten minutes, ten requests per minute towards the endpoint.
const (
	DefaultCacheTTL          = 10 * time.Minute
	DefaultCacheMaxEntries   = 5
	DefaultRequestsPerMinute = 10
	defaultFetchTimeout      = 30 * time.Second
)

// CachingProvider resolves signing keys from a remote JWKS and caches them
// per kid. It exposes KeyFunc which adheres to the validator.KeyFunc
// signature.
//
// Cache hits only take a read lock. A kid missing from the cache is first
// looked up in the last fetched set while that set is within its TTL, so a
// set holding more keys than the cache never forces a refetch for a
// published key. Otherwise concurrent callers share a single fetch of the
// key set. Every remote fetch must pass the rate limiter. The fetch runs on a context detached from the caller
// that triggered it, so a caller giving up does not fail the fetch for the
// others and its result still lands in the cache.
type CachingProvider struct {
	jwksURI      string
	client       *http.Client
	fetchTimeout time.Duration
	limiter      *fetchLimiter // nil when rate limiting is disabled.
	store        Store
	logger       core.Logger
	metrics      core.Metrics

	cacheDisabled bool
	ttl           time.Duration
	maxEntries    int

	group singleflight.Group

	mu           sync.RWMutex
	keys         map[string]*cachedKey
	set          jwk.Set // Last fetched set.
	setExpiresAt time.Time

	now func() time.Time
}

type cachedKey struct {
	key       jwk.Key
	addedAt   time.Time
	expiresAt time.Time
}

// NewCachingProvider builds and returns a new CachingProvider.
//
// Accepts both ProviderOption and CachingProviderOption types, so the
// common options WithJWKSURI and WithCustomClient work without a wrapper.
//
// Required options:
//   - WithJWKSURI: JWKS endpoint, see TenantJWKSURL
//
// Optional options:
//   - WithCacheTTL, WithCacheMaxEntries, WithoutCache
//   - WithRateLimit, WithoutRateLimit
//   - WithFetchTimeout, WithStore, WithLogger, WithMetrics
//
// Example:
//
//	provider, err := jwks.NewCachingProvider(
//	    jwks.WithJWKSURI(jwksURL),
//	    jwks.WithRateLimit(10),
//	    jwks.WithCacheTTL(10*time.Minute),
//	)
func NewCachingProvider(opts ...any) (*CachingProvider, error) {
	config := &cachingProviderConfig{
		httpClient:        &http.Client{},
		cacheTTL:          DefaultCacheTTL,
		cacheMaxEntries:   DefaultCacheMaxEntries,
		requestsPerMinute: DefaultRequestsPerMinute,
		fetchTimeout:      defaultFetchTimeout,
		metrics:           core.NoopMetrics{},
	}

	for _, opt := range opts {
		switch v := opt.(type) {
		case CachingProviderOption:
			if err := v(config); err != nil {
				return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid JWKS provider option", err)
			}
		case ProviderOption:
			tempProvider := &Provider{}
			if err := v(tempProvider); err != nil {
				return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid JWKS provider option", err)
			}
			if tempProvider.JWKSURI != nil {
				config.jwksURI = tempProvider.JWKSURI
			}
			if tempProvider.Client != nil {
				config.httpClient = tempProvider.Client
			}
		default:
			return nil, core.NewValidationError(
				core.ErrorCodeConfigInvalid,
				"invalid JWKS provider option",
				errors.New("option must be a ProviderOption or CachingProviderOption"),
			)
		}
	}

	if config.jwksURI == nil {
		return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "JWKS URI is required (use WithJWKSURI)", nil)
	}

	c := &CachingProvider{
		jwksURI:       config.jwksURI.String(),
		client:        config.httpClient,
		fetchTimeout:  config.fetchTimeout,
		store:         config.store,
		logger:        config.logger,
		metrics:       config.metrics,
		cacheDisabled: config.cacheDisabled,
		ttl:           config.cacheTTL,
		maxEntries:    config.cacheMaxEntries,
		keys:          make(map[string]*cachedKey),
		now:           time.Now,
	}

	if !config.rateLimitDisabled {
		c.limiter = newFetchLimiter(config.requestsPerMinute)
	}

	return c, nil
}

// JWKSURI returns the endpoint the provider fetches from.
func (c *CachingProvider) JWKSURI() string {
	return c.jwksURI
}

// KeyFunc returns the signing key for kid as a jwk.Key.
//
// Errors:
//   - jwks_key_not_found when a freshly fetched set has no matching key
//   - jwks_rate_limited when a fetch is needed but the limiter is exhausted
//   - jwks_fetch_failed when the endpoint cannot be reached or parsed
func (c *CachingProvider) KeyFunc(ctx context.Context, kid string) (any, error) {
	if key, ok := c.cachedKey(kid); ok {
		return key, nil
	}
	if key, ok := c.keyFromSet(kid); ok {
		c.remember(kid, key)
		return key, nil
	}

	set, err := c.sharedFetch(ctx, kid)
	if err != nil {
		return nil, err
	}

	key, err := selectKey(set, kid)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("no signing key for token", "kid", kid, "jwks_uri", c.jwksURI)
		}
		return nil, err
	}
	c.remember(kid, key)
	return key, nil
}

// cachedKey returns the unexpired cached key for kid.
func (c *CachingProvider) cachedKey(kid string) (jwk.Key, bool) {
	if c.cacheDisabled {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.keys[kid]
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.key, true
}

// freshSet returns the last fetched set while it is within its TTL.
func (c *CachingProvider) freshSet() (jwk.Set, bool) {
	if c.cacheDisabled {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.set == nil || !c.now().Before(c.setExpiresAt) {
		return nil, false
	}
	return c.set, true
}

// keyFromSet resolves kid against the fresh set, if any.
func (c *CachingProvider) keyFromSet(kid string) (jwk.Key, bool) {
	set, ok := c.freshSet()
	if !ok {
		return nil, false
	}
	key, err := selectKey(set, kid)
	if err != nil {
		return nil, false
	}
	return key, true
}

// sharedFetch coalesces concurrent fetches of the key set. A caller whose
// context ends stops waiting, the fetch itself carries on.
func (c *CachingProvider) sharedFetch(ctx context.Context, kid string) (jwk.Set, error) {
	fetchCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(c.jwksURI, func() (any, error) {
		// Another flight may have fetched a set holding the key since our miss.
		if set, ok := c.freshSet(); ok {
			if _, err := selectKey(set, kid); err == nil {
				return set, nil
			}
		}
		return c.refresh(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, core.NewValidationError(core.ErrorCodeJWKSFetchFailed, "gave up waiting for JWKS", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(jwk.Set), nil
	}
}

// refresh loads the key set from the store or the remote endpoint and
// populates the cache.
func (c *CachingProvider) refresh(ctx context.Context) (jwk.Set, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	if set, ok := c.loadFromStore(ctx); ok {
		c.metrics.IncCounter(core.MetricJWKSFetches, map[string]string{"result": "store"})
		c.populate(set, c.ttl)
		return set, nil
	}

	if c.limiter != nil && !c.limiter.allow(c.now()) {
		c.metrics.IncCounter(core.MetricJWKSFetches, map[string]string{"result": "rate_limited"})
		if c.logger != nil {
			c.logger.Warn("JWKS request rate limit exceeded", "jwks_uri", c.jwksURI)
		}
		return nil, core.NewValidationError(core.ErrorCodeJWKSRateLimited, "too many requests to the JWKS endpoint", nil)
	}

	start := c.now()
	doc, err := fetchDocument(ctx, c.client, c.jwksURI)
	if err == nil {
		var set jwk.Set
		if set, err = parseDocument(doc.body); err == nil {
			c.metrics.IncCounter(core.MetricJWKSFetches, map[string]string{"result": "success"})
			if c.logger != nil {
				c.logger.Debug("fetched JWKS", "jwks_uri", c.jwksURI, "keys", set.Len(), "duration", c.now().Sub(start))
			}

			ttl := c.ttl
			if doc.maxAge > ttl {
				ttl = doc.maxAge
			}
			c.saveToStore(ctx, doc.body, ttl)
			c.populate(set, ttl)
			return set, nil
		}
	}

	c.metrics.IncCounter(core.MetricJWKSFetches, map[string]string{"result": "error"})
	if c.logger != nil {
		c.logger.Error("could not fetch JWKS", "jwks_uri", c.jwksURI, "error", err)
	}
	return nil, err
}

func (c *CachingProvider) loadFromStore(ctx context.Context) (jwk.Set, bool) {
	if c.store == nil {
		return nil, false
	}

	body, err := c.store.Get(ctx, c.jwksURI)
	if err != nil {
		if !errors.Is(err, ErrStoreMiss) && c.logger != nil {
			c.logger.Warn("JWKS store lookup failed", "jwks_uri", c.jwksURI, "error", err)
		}
		return nil, false
	}

	set, err := parseDocument(body)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("discarding unparsable JWKS from store", "jwks_uri", c.jwksURI, "error", err)
		}
		return nil, false
	}
	return set, true
}

func (c *CachingProvider) saveToStore(ctx context.Context, body []byte, ttl time.Duration) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, c.jwksURI, body, ttl); err != nil && c.logger != nil {
		c.logger.Warn("could not save JWKS to store", "jwks_uri", c.jwksURI, "error", err)
	}
}

// populate retains set for ttl. Keys are cached one kid at a time as
// tokens ask for them.
func (c *CachingProvider) populate(set jwk.Set, ttl time.Duration) {
	if c.cacheDisabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.set = set
	c.setExpiresAt = c.now().Add(ttl)
}

// remember caches key under kid until the set it came from expires.
func (c *CachingProvider) remember(kid string, key jwk.Key) {
	if c.cacheDisabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	ttl := c.setExpiresAt.Sub(now)
	if ttl <= 0 {
		return
	}
	c.putLocked(kid, key, now, ttl)

	c.metrics.SetGauge(core.MetricJWKSCachedKeys, float64(len(c.keys)), nil)
}

// putLocked stores a key, evicting expired entries and then the oldest one
// when the cache is full. c.mu must be held.
func (c *CachingProvider) putLocked(kid string, key jwk.Key, now time.Time, ttl time.Duration) {
	if _, exists := c.keys[kid]; !exists && c.maxEntries > 0 && len(c.keys) >= c.maxEntries {
		for k, entry := range c.keys {
			if !now.Before(entry.expiresAt) {
				delete(c.keys, k)
			}
		}

		if len(c.keys) >= c.maxEntries {
			var oldest string
			var oldestAt time.Time
			for k, entry := range c.keys {
				if oldestAt.IsZero() || entry.addedAt.Before(oldestAt) {
					oldest, oldestAt = k, entry.addedAt
				}
			}
			delete(c.keys, oldest)
		}
	}

	c.keys[kid] = &cachedKey{
		key:       key,
		addedAt:   now,
		expiresAt: now.Add(ttl),
	}
}
