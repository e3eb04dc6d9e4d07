package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := ConfigError{
		Field:      "url",
		Message:    "required field missing",
		Suggestion: "Set 'url' to the Vault API endpoint",
	}

	assert.Contains(t, err.Error(), "field 'url'")
	assert.Contains(t, err.Error(), "required field missing")
	assert.Contains(t, err.Error(), "Set 'url'")
}

func TestNotFoundError(t *testing.T) {
	t.Parallel()

	pathOnly := NotFoundError{Path: "/secret/passwords/database"}
	assert.Equal(t, "secret not found at path '/secret/passwords/database'", pathOnly.Error())

	withField := NotFoundError{Path: "/secret/certs/domain", Field: "certificate"}
	assert.Contains(t, withField.Error(), "field 'certificate'")
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	nf := NotFoundError{Path: "/secret/a"}
	assert.True(t, IsNotFound(nf))
	assert.True(t, IsNotFound(fmt.Errorf("fetching binding: %w", nf)))
	assert.False(t, IsNotFound(TransportError{Op: "read", Path: "/secret/a"}))
	assert.False(t, IsNotFound(nil))
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(NotFoundError{Path: "/secret/a"}))
	assert.False(t, IsFatal(CacheError{Op: "get"}))
	assert.True(t, IsFatal(TransportError{Op: "read"}))
	assert.True(t, IsFatal(AuthError{Method: "approle"}))
	assert.True(t, IsFatal(AuthConfigError{Message: "no scheme"}))
	assert.True(t, IsFatal(ConfigError{Message: "bad yaml"}))
}

func TestSimplify(t *testing.T) {
	t.Parallel()

	// structured errors pass through untouched
	orig := AuthError{Method: "token"}
	assert.Equal(t, error(orig), Simplify(orig))

	simplified := Simplify(fmt.Errorf("yaml: line 3: mapping values are not allowed"))
	cfgErr, ok := simplified.(ConfigError)
	assert.True(t, ok)
	assert.Contains(t, cfgErr.Message, "invalid YAML")
}
