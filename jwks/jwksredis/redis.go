// Package jwksredis provides a Redis backed jwks.Store so that replicas of a
// service share fetched JWKS documents instead of each calling the
// authorization server.
package jwksredis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/labshare/go-jwt-gate/jwks"
)

// DefaultPrefix is prepended to the JWKS URI to form the Redis key.
const DefaultPrefix = "jwtgate:jwks:"

// Store implements jwks.Store on a Redis client.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ jwks.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix replaces DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New returns a Store using client. The client's lifecycle stays with the
// caller.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(jwksURI string) string {
	return s.prefix + jwksURI
}

// Get returns the document saved for jwksURI, or jwks.ErrStoreMiss.
func (s *Store) Get(ctx context.Context, jwksURI string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(jwksURI)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, jwks.ErrStoreMiss
	}
	if err != nil {
		return nil, fmt.Errorf("jwksredis: get %s: %w", jwksURI, err)
	}
	return data, nil
}

// Set saves the document for jwksURI, expiring after ttl.
func (s *Store) Set(ctx context.Context, jwksURI string, document []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("jwksredis: ttl must be positive, got %s", ttl)
	}
	if err := s.client.Set(ctx, s.key(jwksURI), document, ttl).Err(); err != nil {
		return fmt.Errorf("jwksredis: set %s: %w", jwksURI, err)
	}
	return nil
}
