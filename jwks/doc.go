/*
Package jwks resolves token signing keys from a remote JSON Web Key Set.

The key set of a tenant lives at

	{authURL}/auth/{tenant}/.well-known/jwks.json

and TenantJWKSURL builds that URL. Two providers expose a KeyFunc that plugs
into validator.WithKeyFunc:

  - Provider fetches the set on every call. Useful for tests and tools.
  - CachingProvider caches keys per kid and protects the endpoint.

# CachingProvider

	jwksURL, err := jwks.TenantJWKSURL("https://a.labshare.org", "ls")
	if err != nil {
	    log.Fatal(err)
	}

	provider, err := jwks.NewCachingProvider(
	    jwks.WithJWKSURI(jwksURL),
	    jwks.WithCacheTTL(10*time.Minute),
	    jwks.WithCacheMaxEntries(5),
	    jwks.WithRateLimit(10),
	)
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(validator.WithKeyFunc(provider.KeyFunc))

Behavior:

  - Cache hits take a read lock only.
  - Misses for any kid share one in-flight fetch of the set (singleflight).
  - Each remote fetch takes a token from a token bucket limiter
    (golang.org/x/time/rate, burst equal to the per-minute rate). An exhausted
    limiter fails the lookup with core.ErrKeySourceUnavailable and code
    jwks_rate_limited; it never queues.
  - The fetch runs detached from the context of the caller that started it,
    bounded by WithFetchTimeout. Waiting callers stop waiting when their own
    context ends.
  - Only RSA keys whose "use" is "sig" or unset are eligible. A kid missing
    from a freshly fetched set is an invalid token (jwks_key_not_found).
  - A token without kid is accepted only when the set holds a single
    signing key.

# Shared Store

WithStore adds a second level shared across replicas. The jwksredis package
provides a Redis implementation:

	provider, err := jwks.NewCachingProvider(
	    jwks.WithJWKSURI(jwksURL),
	    jwks.WithStore(jwksredis.New(redisClient)),
	)

Documents found in the store do not count against the rate limit.
*/
package jwks
