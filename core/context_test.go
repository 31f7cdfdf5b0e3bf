package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalContext(t *testing.T) {
	t.Run("set and get principal", func(t *testing.T) {
		want := &Principal{Subject: "abc", Scope: "read:users"}
		ctx := SetPrincipal(context.Background(), want)

		got, err := GetPrincipal(ctx)
		require.NoError(t, err)
		assert.Same(t, want, got)
		assert.True(t, HasPrincipal(ctx))
	})

	t.Run("missing principal", func(t *testing.T) {
		got, err := GetPrincipal(context.Background())
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrPrincipalNotFound)
		assert.False(t, HasPrincipal(context.Background()))
	})

	t.Run("nil principal counts as missing", func(t *testing.T) {
		ctx := SetPrincipal(context.Background(), nil)
		assert.False(t, HasPrincipal(ctx))
		_, err := GetPrincipal(ctx)
		assert.ErrorIs(t, err, ErrPrincipalNotFound)
	})

	t.Run("must get panics without a principal", func(t *testing.T) {
		assert.Panics(t, func() { MustGetPrincipal(context.Background()) })
	})

	t.Run("unexported key does not collide with string keys", func(t *testing.T) {
		//nolint:staticcheck // deliberately using a string key
		ctx := context.WithValue(context.Background(), "principal", &Principal{Subject: "x"})
		assert.False(t, HasPrincipal(ctx))
	})
}
