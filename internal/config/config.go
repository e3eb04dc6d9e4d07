// Package config holds the ext_pillar configuration supplied by the
// master: Vault endpoint, rule-document location, the active credential
// scheme, the missing-secret policy, and optional memcached wiring.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	vperrors "github.com/saltops/vaultpillar/internal/errors"
)

// Defaults mirror the stock ext_pillar stanza.
const (
	DefaultURL           = "https://vault:8200"
	DefaultRuleDocument  = "/srv/salt/secrets.yml"
	DefaultExpirationSec = 300
	DefaultCacheTimeout  = 150
	DefaultVaultTimeout  = 30000
	DefaultMaxConcurrent = 10
)

// Config is the per-master pillar configuration. Exactly one credential
// scheme is expected; precedence on conflict is token > token_file >
// app-id > approle.
type Config struct {
	URL            string `yaml:"url"`
	RuleDocument   string `yaml:"config"`
	UnsetIfMissing bool   `yaml:"unset_if_missing"`

	// Credential schemes.
	Token      string `yaml:"token"`
	TokenFile  string `yaml:"token_file"`
	AppID      string `yaml:"app_id"`
	UserID     string `yaml:"user_id"`
	UserFile   string `yaml:"user_file"`
	RoleID     string `yaml:"role_id"`
	SecretID   string `yaml:"secret_id"`
	SecretFile string `yaml:"secret_file"`

	// Optional memcached cache wiring.
	MemcachedSocket     string `yaml:"memcached_socket"`
	MemcachedExpiration int    `yaml:"memcached_expiration"`
	MemcachedTimeout    int    `yaml:"memcached_timeout"`

	// Network and concurrency limits.
	TimeoutMs     int `yaml:"timeout_ms"`
	MaxConcurrent int `yaml:"max_concurrent"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		URL:                 DefaultURL,
		RuleDocument:        DefaultRuleDocument,
		MemcachedExpiration: DefaultExpirationSec,
		MemcachedTimeout:    DefaultCacheTimeout,
		TimeoutMs:           DefaultVaultTimeout,
		MaxConcurrent:       DefaultMaxConcurrent,
	}
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vperrors.ConfigError{
				Field:      "path",
				Value:      path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config path",
			}
		}

		return nil, vperrors.ConfigError{
			Message:    "failed to read configuration file",
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, vperrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
			Err:        err,
		}
	}

	return cfg, nil
}

// FromMap builds a Config from the loosely-typed keyword arguments the
// master passes to an ext_pillar module. Unknown keys are ignored.
func FromMap(kwargs map[string]interface{}) *Config {
	cfg := New()

	str := func(key string, dst *string) {
		if v, ok := kwargs[key].(string); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		switch v := kwargs[key].(type) {
		case int:
			*dst = v
		case float64:
			*dst = int(v)
		}
	}

	str("url", &cfg.URL)
	str("config", &cfg.RuleDocument)
	str("token", &cfg.Token)
	str("token_file", &cfg.TokenFile)
	str("app_id", &cfg.AppID)
	str("user_id", &cfg.UserID)
	str("user_file", &cfg.UserFile)
	str("role_id", &cfg.RoleID)
	str("secret_id", &cfg.SecretID)
	str("secret_file", &cfg.SecretFile)
	str("memcached_socket", &cfg.MemcachedSocket)
	num("memcached_expiration", &cfg.MemcachedExpiration)
	num("memcached_timeout", &cfg.MemcachedTimeout)
	num("timeout_ms", &cfg.TimeoutMs)
	num("max_concurrent", &cfg.MaxConcurrent)

	if v, ok := kwargs["unset_if_missing"].(bool); ok {
		cfg.UnsetIfMissing = v
	}

	return cfg
}

// Validate checks the required fields.
func (c *Config) Validate() error {
	if c.URL == "" {
		return vperrors.ConfigError{
			Field:      "url",
			Message:    "Vault endpoint is required",
			Suggestion: "Set 'url' to the full Vault API endpoint, e.g. https://vault:8200",
		}
	}

	if c.RuleDocument == "" {
		return vperrors.ConfigError{
			Field:      "config",
			Message:    "rule document location is required",
			Suggestion: fmt.Sprintf("Set 'config' to the secret mapping file, e.g. %s", DefaultRuleDocument),
		}
	}

	if c.MemcachedExpiration < 0 {
		return vperrors.ConfigError{
			Field:   "memcached_expiration",
			Value:   c.MemcachedExpiration,
			Message: "expiration must not be negative",
		}
	}

	return nil
}
