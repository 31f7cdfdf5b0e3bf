package operation

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("it returns the registered requirement", func(t *testing.T) {
		registry, err := NewRegistry(
			WithRequirement(ID(http.MethodGet, "/whoAmI")),
			WithRequirement(ID(http.MethodGet, "/users"), "read:users", "admin"),
		)
		require.NoError(t, err)

		req, ok := registry.Lookup("GET /users")
		require.True(t, ok)
		assert.Equal(t, []string{"read:users", "admin"}, req.Scopes())

		req, ok = registry.Lookup("GET /whoAmI")
		require.True(t, ok)
		assert.Empty(t, req.Scopes())
	})

	t.Run("it reports unregistered operations as anonymous", func(t *testing.T) {
		registry, err := NewRegistry(WithRequirement("GET /whoAmI"))
		require.NoError(t, err)

		_, ok := registry.Lookup("GET /status")
		assert.False(t, ok)
	})

	t.Run("it rejects an empty operation id", func(t *testing.T) {
		_, err := NewRegistry(WithRequirement("  "))
		assert.ErrorIs(t, err, ErrEmptyOperationID)
	})

	t.Run("it rejects duplicate registrations", func(t *testing.T) {
		_, err := NewRegistry(
			WithRequirement("GET /users", "read:users"),
			WithEntries([]Entry{{ID: "GET /users"}}),
		)
		assert.ErrorIs(t, err, ErrDuplicateOperationID)
		assert.Contains(t, err.Error(), `"GET /users"`)
	})

	t.Run("it loads declarative entries", func(t *testing.T) {
		registry, err := NewRegistry(WithEntries([]Entry{
			{ID: "POST /users", Scopes: []string{"write:users", " "}},
			{ID: "GET /whoAmI"},
		}))
		require.NoError(t, err)

		assert.Equal(t, 2, registry.Len())
		assert.Equal(t, []string{"GET /whoAmI", "POST /users"}, registry.IDs())

		req, _ := registry.Lookup("POST /users")
		assert.Equal(t, []string{"write:users"}, req.Scopes())
	})

	t.Run("it can be used as a Lookup", func(t *testing.T) {
		registry, err := NewRegistry(WithRequirement("GET /whoAmI"))
		require.NoError(t, err)

		var lookup Lookup = registry.Lookup
		_, ok := lookup("GET /whoAmI")
		assert.True(t, ok)
	})
}

func TestRequirement_ScopesIsACopy(t *testing.T) {
	req := Require("read:users")
	scopes := req.Scopes()
	scopes[0] = "tampered"

	assert.Equal(t, []string{"read:users"}, req.Scopes())
}

func TestID(t *testing.T) {
	assert.Equal(t, "GET /whoAmI", ID("get", "/whoAmI"))
	assert.Equal(t, "DELETE /users/{id}", ID(http.MethodDelete, "/users/{id}"))
}
