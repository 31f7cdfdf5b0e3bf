// Package config holds the settings of the authentication gate, loads them
// from the environment and turns them into a token validator.
//
// A secret provider, when set, is used for every token and the remote key
// set is never contacted. Otherwise AuthURL and Tenant locate the JWKS.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"

	"github.com/labshare/go-jwt-gate/core"
	"github.com/labshare/go-jwt-gate/jwks"
	tokenvalidator "github.com/labshare/go-jwt-gate/validator"
)

// Config is the gate configuration. Zero values of the JWKS settings fall
// back to the jwks package defaults.
type Config struct {
	// AuthURL is the base URL of the authorization server. ENV: AUTH_URL
	AuthURL string `env:"AUTH_URL" validate:"omitempty,http_url"`
	// Tenant selects the key set under AuthURL. ENV: AUTH_TENANT
	Tenant string `env:"AUTH_TENANT" validate:"omitempty,excludesall=/"`

	// SecretProvider resolves verification keys without a remote key set.
	// It takes precedence over AuthURL and Tenant.
	SecretProvider tokenvalidator.KeyFunc `validate:"-"`

	// Audience lists accepted audiences, ';' separated. ENV: AUTH_AUDIENCE
	Audience []string `env:"AUTH_AUDIENCE" validate:"dive,required"`
	// Issuer is the exact expected issuer. ENV: AUTH_ISSUER
	Issuer string `env:"AUTH_ISSUER"`

	JWKSRequestsPerMinute int           `env:"AUTH_JWKS_REQUESTS_PER_MINUTE,default=10" validate:"gte=0"`
	JWKSCacheTTL          time.Duration `env:"AUTH_JWKS_CACHE_TTL,default=10m" validate:"gte=0"`
	JWKSCacheMaxEntries   int           `env:"AUTH_JWKS_CACHE_MAX_ENTRIES,default=5" validate:"gte=0"`
	JWKSRequestTimeout    time.Duration `env:"AUTH_JWKS_REQUEST_TIMEOUT,default=30s" validate:"gte=0"`
	ClockSkew             time.Duration `env:"AUTH_CLOCK_SKEW,default=0s" validate:"gte=0"`
	DisableJWKSCache      bool          `env:"AUTH_JWKS_CACHE_DISABLED"`
	DisableJWKSRateLimit  bool          `env:"AUTH_JWKS_RATE_LIMIT_DISABLED"`
}

var validate = validator.New()

// FromEnv loads a Config from AUTH_* environment variables. The result is
// not validated; call Validate or NewValidator.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, core.NewValidationError(core.ErrorCodeConfigInvalid, "could not read configuration from environment", err)
	}
	return cfg, nil
}

// Validate reports a configuration that cannot verify tokens. It is meant
// to run at startup so that misconfiguration never surfaces per request.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid configuration", fieldErrors(fieldErrs))
		}
		return core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid configuration", err)
	}

	if c.SecretProvider != nil {
		return nil
	}

	if c.AuthURL == "" || c.Tenant == "" {
		return core.NewValidationError(
			core.ErrorCodeConfigInvalid,
			"AuthURL and Tenant are required when no SecretProvider is set",
			nil,
		)
	}

	if _, err := jwks.TenantJWKSURL(c.AuthURL, c.Tenant); err != nil {
		return core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid JWKS location", err)
	}

	return nil
}

// fieldErrors flattens validator field errors into one error naming each field.
func fieldErrors(errs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", err.Namespace()))
		case "http_url":
			msgs = append(msgs, fmt.Sprintf("%s must be an http(s) URL", err.Field()))
		case "excludesall":
			msgs = append(msgs, fmt.Sprintf("%s cannot contain %q", err.Field(), err.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s cannot be negative", err.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s validation failed on '%s' tag", err.Field(), err.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func (c Config) withDefaults() Config {
	if c.JWKSRequestsPerMinute == 0 {
		c.JWKSRequestsPerMinute = jwks.DefaultRequestsPerMinute
	}
	if c.JWKSCacheTTL == 0 {
		c.JWKSCacheTTL = jwks.DefaultCacheTTL
	}
	if c.JWKSCacheMaxEntries == 0 {
		c.JWKSCacheMaxEntries = jwks.DefaultCacheMaxEntries
	}
	if c.JWKSRequestTimeout == 0 {
		c.JWKSRequestTimeout = 30 * time.Second
	}
	return c
}

// KeyFunc returns the key resolver the configuration describes: the
// SecretProvider if set, else a jwks.CachingProvider for the tenant key set.
// opts are appended to the caching provider options, e.g. jwks.WithLogger.
func (c Config) KeyFunc(opts ...jwks.CachingProviderOption) (tokenvalidator.KeyFunc, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.SecretProvider != nil {
		return c.SecretProvider, nil
	}

	c = c.withDefaults()

	jwksURL, err := jwks.TenantJWKSURL(c.AuthURL, c.Tenant)
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid JWKS location", err)
	}

	providerOpts := []any{
		jwks.WithJWKSURI(jwksURL),
		jwks.WithCustomClient(&http.Client{Timeout: c.JWKSRequestTimeout}),
		jwks.WithFetchTimeout(c.JWKSRequestTimeout),
		jwks.WithCacheTTL(c.JWKSCacheTTL),
		jwks.WithCacheMaxEntries(c.JWKSCacheMaxEntries),
	}
	if c.DisableJWKSCache {
		providerOpts = append(providerOpts, jwks.WithoutCache())
	}
	if c.DisableJWKSRateLimit {
		providerOpts = append(providerOpts, jwks.WithoutRateLimit())
	} else {
		providerOpts = append(providerOpts, jwks.WithRateLimit(c.JWKSRequestsPerMinute))
	}
	for _, opt := range opts {
		providerOpts = append(providerOpts, opt)
	}

	provider, err := jwks.NewCachingProvider(providerOpts...)
	if err != nil {
		return nil, err
	}
	return provider.KeyFunc, nil
}

// NewValidator builds the token validator for the configuration.
//
// Example:
//
//	cfg, err := config.FromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := cfg.NewValidator(jwks.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err) // ErrConfigurationInvalid
//	}
func (c Config) NewValidator(opts ...jwks.CachingProviderOption) (*tokenvalidator.Validator, error) {
	keyFunc, err := c.KeyFunc(opts...)
	if err != nil {
		return nil, err
	}

	validatorOpts := []tokenvalidator.Option{
		tokenvalidator.WithKeyFunc(keyFunc),
		tokenvalidator.WithAllowedClockSkew(c.ClockSkew),
	}
	if c.Issuer != "" {
		validatorOpts = append(validatorOpts, tokenvalidator.WithIssuer(c.Issuer))
	}
	if len(c.Audience) > 0 {
		validatorOpts = append(validatorOpts, tokenvalidator.WithAudiences(c.Audience))
	}

	return tokenvalidator.New(validatorOpts...)
}
