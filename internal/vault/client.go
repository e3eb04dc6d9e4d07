package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/saltops/vaultpillar/internal/config"
	vperrors "github.com/saltops/vaultpillar/internal/errors"
	"github.com/saltops/vaultpillar/internal/logging"
	"github.com/saltops/vaultpillar/internal/metrics"
	"github.com/saltops/vaultpillar/pkg/pillar"
)

// base64Prefix marks field values stored base64-encoded in Vault; they
// are decoded transparently on fetch.
const base64Prefix = "base64:"

// Client reads secrets from a Vault server. It implements
// pillar.SecretSource.
type Client struct {
	api    *api.Client
	logger *logging.Logger
}

// NewClient builds a Vault client for the configured endpoint. The
// client is unauthenticated until Login is called.
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	apiConfig := api.DefaultConfig()
	if apiConfig.Error != nil {
		return nil, vperrors.ConfigError{
			Message: "Vault client configuration failed",
			Err:     apiConfig.Error,
		}
	}

	apiConfig.Address = cfg.URL
	apiConfig.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	// no automatic retries: a failing fetch must surface as a fatal
	// transport error for the current resolution
	apiConfig.MaxRetries = 0

	c, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, vperrors.ConfigError{
			Field:      "url",
			Value:      cfg.URL,
			Message:    "Vault client creation failed",
			Suggestion: "Check the 'url' setting",
			Err:        err,
		}
	}

	return &Client{api: c, logger: logger}, nil
}

// Login resolves credentials with the given method. Called once per
// resolution; every secret fetch reuses the resulting token.
func (c *Client) Login(ctx context.Context, auth AuthMethod) error {
	c.logger.Debug("authenticating to Vault (method: %s)", auth.Name())
	return auth.Login(ctx, c.api)
}

// Token exposes the current token for tests.
func (c *Client) Token() string {
	return c.api.Token()
}

// Fetch reads the secret at ref.Path, narrowed to ref.Field when set.
// Missing paths and fields surface as NotFoundError; anything else is a
// TransportError.
func (c *Client) Fetch(ctx context.Context, ref pillar.PathRef) (interface{}, error) {
	secret, err := c.api.Logical().ReadWithContext(ctx, strings.TrimPrefix(ref.Path, "/"))
	if err != nil {
		respErr := &api.ResponseError{}
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			metrics.RecordFetch("not_found")
			return nil, vperrors.NotFoundError{Path: ref.Path}
		}

		metrics.RecordFetch("error")

		return nil, vperrors.TransportError{Op: "read", Path: ref.Path, Err: err}
	}

	if secret == nil || secret.Data == nil {
		metrics.RecordFetch("not_found")
		return nil, vperrors.NotFoundError{Path: ref.Path}
	}

	if ref.Field == "" {
		metrics.RecordFetch("ok")
		return secret.Data, nil
	}

	value, ok := secret.Data[ref.Field]
	if !ok {
		metrics.RecordFetch("not_found")
		return nil, vperrors.NotFoundError{Path: ref.Path, Field: ref.Field}
	}

	metrics.RecordFetch("ok")

	return decodeFieldValue(value), nil
}

// decodeFieldValue decodes string values carrying the base64: prefix,
// trimming trailing whitespace from the decoded bytes. Undecodable
// values are passed through unchanged.
func decodeFieldValue(value interface{}) interface{} {
	s, ok := value.(string)
	if !ok || !strings.HasPrefix(s, base64Prefix) {
		return value
	}

	decoded, err := base64.StdEncoding.DecodeString(s[len(base64Prefix):])
	if err != nil {
		return value
	}

	return strings.TrimRight(string(decoded), " \t\r\n")
}

var _ pillar.SecretSource = (*Client)(nil)
