package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// StaticKey returns a KeyFunc that resolves every kid to key. It is the
// secret provider path: the verification key is supplied by the operator
// instead of being fetched from a key set.
func StaticKey(key any) KeyFunc {
	return func(context.Context, string) (any, error) {
		if key == nil {
			return nil, errors.New("static key is nil")
		}
		return key, nil
	}
}

// PublicKeyFromPEM parses a PEM encoded RSA key and returns a KeyFunc
// resolving to its public half. A private key is accepted and reduced to
// its public key.
func PublicKeyFromPEM(data []byte) (KeyFunc, error) {
	key, err := jwk.ParseKey(data, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("could not parse PEM key: %w", err)
	}

	if key.KeyType() != jwa.RSA {
		return nil, fmt.Errorf("expected an RSA key but got %s", key.KeyType())
	}

	public, err := jwk.PublicKeyOf(key)
	if err != nil {
		return nil, fmt.Errorf("could not derive public key: %w", err)
	}

	return StaticKey(public), nil
}
