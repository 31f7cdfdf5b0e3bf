package jwks

import (
	"context"
	"errors"
	"time"
)

// ErrStoreMiss is returned by a Store that holds no document for a URI.
var ErrStoreMiss = errors.New("jwks: document not in store")

// Store shares raw JWKS documents between CachingProviders, typically
// across replicas of a service. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the document saved for jwksURI or ErrStoreMiss.
	Get(ctx context.Context, jwksURI string) ([]byte, error)

	// Set saves the document for jwksURI for ttl.
	Set(ctx context.Context, jwksURI string, document []byte, ttl time.Duration) error
}
