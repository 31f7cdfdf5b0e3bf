package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	t.Run("WithKeyFunc", func(t *testing.T) {
		t.Run("valid", func(t *testing.T) {
			v := &Validator{}
			err := WithKeyFunc(StaticKey([]byte("secret")))(v)
			assert.NoError(t, err)
			assert.NotNil(t, v.keyFunc)
		})

		t.Run("nil keyFunc", func(t *testing.T) {
			v := &Validator{}
			err := WithKeyFunc(nil)(v)
			assert.EqualError(t, err, "keyFunc cannot be nil")
		})
	})

	t.Run("WithIssuer", func(t *testing.T) {
		t.Run("valid", func(t *testing.T) {
			v := &Validator{}
			assert.NoError(t, WithIssuer("https://a.labshare.org/")(v))
			assert.Equal(t, "https://a.labshare.org/", v.issuer)
		})

		t.Run("empty", func(t *testing.T) {
			assert.EqualError(t, WithIssuer("")(&Validator{}), "issuer cannot be empty")
		})

		t.Run("invalid URL", func(t *testing.T) {
			assert.ErrorContains(t, WithIssuer("://bad")(&Validator{}), "issuer is not a valid URL")
		})
	})

	t.Run("Audience options", func(t *testing.T) {
		t.Run("WithAudience", func(t *testing.T) {
			v := &Validator{}
			assert.NoError(t, WithAudience("api")(v))
			assert.Equal(t, []string{"api"}, v.audience)
			assert.Error(t, WithAudience("")(v))
		})

		t.Run("WithAudiences copies the input", func(t *testing.T) {
			v := &Validator{}
			in := []string{"api1", "api2"}
			assert.NoError(t, WithAudiences(in)(v))
			in[0] = "changed"
			assert.Equal(t, []string{"api1", "api2"}, v.audience)
		})

		t.Run("WithAudiences rejects empty input", func(t *testing.T) {
			assert.EqualError(t, WithAudiences(nil)(&Validator{}), "audiences cannot be empty")
			assert.EqualError(t, WithAudiences([]string{"api", ""})(&Validator{}), "audience 1 is empty")
		})
	})

	t.Run("WithAllowedClockSkew", func(t *testing.T) {
		v := &Validator{}
		assert.NoError(t, WithAllowedClockSkew(30*time.Second)(v))
		assert.Equal(t, 30*time.Second, v.allowedClockSkew)
		assert.EqualError(t, WithAllowedClockSkew(-time.Second)(v), "clock skew cannot be negative")
	})
}
