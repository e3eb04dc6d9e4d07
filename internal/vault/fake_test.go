package vault

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saltops/vaultpillar/internal/config"
	"github.com/saltops/vaultpillar/internal/logging"
)

// newFakeVault starts an httptest server and returns a Client pointed at
// it plus the config used to build it.
func newFakeVault(t *testing.T, handler http.Handler) (*Client, *config.Config) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.New()
	cfg.URL = srv.URL
	cfg.TimeoutMs = 2000

	client, err := NewClient(cfg, logging.New(false, true))
	require.NoError(t, err)

	return client, cfg
}

// secretsHandler serves KV reads from a path-to-data map and login
// requests from a login-path-to-token map, mirroring the endpoints the
// client touches.
func secretsHandler(t *testing.T, secrets map[string]map[string]interface{}, logins map[string]string) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := logins[r.URL.Path]; ok {
			writeJSON(t, w, map[string]interface{}{
				"auth": map[string]interface{}{"client_token": token},
			})

			return
		}

		data, ok := secrets[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		writeJSON(t, w, map[string]interface{}{"data": data})
	})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(v))
}
