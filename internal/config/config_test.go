package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vperrors "github.com/saltops/vaultpillar/internal/errors"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := New()
	assert.Equal(t, DefaultURL, cfg.URL)
	assert.Equal(t, DefaultRuleDocument, cfg.RuleDocument)
	assert.False(t, cfg.UnsetIfMissing)
	assert.Equal(t, DefaultExpirationSec, cfg.MemcachedExpiration)
	assert.Equal(t, DefaultMaxConcurrent, cfg.MaxConcurrent)
}

func TestFromMap(t *testing.T) {
	t.Parallel()

	cfg := FromMap(map[string]interface{}{
		"url":                  "https://vault.internal:8200",
		"config":               "salt://secrets.yml",
		"token":                "abc",
		"role_id":              "role-1",
		"secret_file":          "/etc/salt/secret-id",
		"unset_if_missing":     true,
		"memcached_socket":     "/var/run/memcached.sock",
		"memcached_expiration": 60,
		"memcached_timeout":    float64(200), // YAML numbers can arrive as floats
	})

	assert.Equal(t, "https://vault.internal:8200", cfg.URL)
	assert.Equal(t, "salt://secrets.yml", cfg.RuleDocument)
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, "role-1", cfg.RoleID)
	assert.Equal(t, "/etc/salt/secret-id", cfg.SecretFile)
	assert.True(t, cfg.UnsetIfMissing)
	assert.Equal(t, "/var/run/memcached.sock", cfg.MemcachedSocket)
	assert.Equal(t, 60, cfg.MemcachedExpiration)
	assert.Equal(t, 200, cfg.MemcachedTimeout)
}

func TestFromMapIgnoresUnknownAndEmpty(t *testing.T) {
	t.Parallel()

	cfg := FromMap(map[string]interface{}{
		"url":     "",
		"bogus":   42,
		"app_id":  nil,
		"user_id": 17,
	})

	assert.Equal(t, DefaultURL, cfg.URL)
	assert.Empty(t, cfg.AppID)
	assert.Empty(t, cfg.UserID)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "pillar.yaml")
	doc := `
url: https://vault:8200
config: /srv/salt/secrets.yml
app_id: my-app
user_file: /etc/salt/vault-user
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-app", cfg.AppID)
	assert.Equal(t, "/etc/salt/vault-user", cfg.UserFile)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	var cfgErr vperrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "path", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := New()
	cfg.URL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")

	cfg = New()
	cfg.RuleDocument = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")

	cfg = New()
	cfg.MemcachedExpiration = -1
	require.Error(t, cfg.Validate())
}
