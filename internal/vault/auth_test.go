package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltops/vaultpillar/internal/config"
	vperrors "github.com/saltops/vaultpillar/internal/errors"
)

func TestSelectAuthMethodPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		wantName string
	}{
		{
			name:     "explicit token wins over everything",
			mutate:   func(c *config.Config) { c.Token = "abc"; c.TokenFile = "/f"; c.AppID = "a"; c.RoleID = "r" },
			wantName: "token",
		},
		{
			name:     "token file beats app-id and approle",
			mutate:   func(c *config.Config) { c.TokenFile = "/f"; c.AppID = "a"; c.RoleID = "r" },
			wantName: "token-file",
		},
		{
			name:     "app-id beats approle",
			mutate:   func(c *config.Config) { c.AppID = "a"; c.RoleID = "r" },
			wantName: "app-id",
		},
		{
			name:     "approle",
			mutate:   func(c *config.Config) { c.RoleID = "r"; c.SecretID = "s" },
			wantName: "approle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			tt.mutate(cfg)

			auth, err := SelectAuthMethod(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, auth.Name())
		})
	}
}

func TestSelectAuthMethodEnvFallback(t *testing.T) {
	t.Setenv("VAULT_TOKEN", "from-env")

	auth, err := SelectAuthMethod(config.New())
	require.NoError(t, err)
	assert.Equal(t, "token", auth.Name())
}

func TestSelectAuthMethodNoScheme(t *testing.T) {
	t.Setenv("VAULT_TOKEN", "")

	_, err := SelectAuthMethod(config.New())
	require.Error(t, err)

	var authCfgErr vperrors.AuthConfigError
	assert.ErrorAs(t, err, &authCfgErr)
}

func TestExplicitTokenMakesNoLoginCall(t *testing.T) {
	var calls atomic.Int64

	client, _ := newFakeVault(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	cfg := config.New()
	cfg.Token = "abc"
	cfg.RoleID = "role-1"
	cfg.SecretID = "secret-1"

	auth, err := SelectAuthMethod(cfg)
	require.NoError(t, err)

	require.NoError(t, client.Login(context.Background(), auth))
	assert.Equal(t, "abc", client.Token())
	assert.Zero(t, calls.Load())
}

func TestTokenFileAuth(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vault-token")
	require.NoError(t, os.WriteFile(path, []byte("  filetoken\n"), 0o600))

	client, _ := newFakeVault(t, http.NotFoundHandler())

	err := client.Login(context.Background(), &tokenFileAuth{path: path})
	require.NoError(t, err)
	assert.Equal(t, "filetoken", client.Token())
}

func TestTokenFileAuthUnreadable(t *testing.T) {
	t.Parallel()

	client, _ := newFakeVault(t, http.NotFoundHandler())

	err := client.Login(context.Background(), &tokenFileAuth{path: filepath.Join(t.TempDir(), "absent")})
	require.Error(t, err)

	var cfgErr vperrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "token_file", cfgErr.Field)
}

func TestAppIDAuth(t *testing.T) {
	t.Parallel()

	client, _ := newFakeVault(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/auth/app-id/login/my-app", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-1", body["user_id"])

		writeJSON(t, w, map[string]interface{}{
			"auth": map[string]interface{}{"client_token": "appidtoken"},
		})
	}))

	err := client.Login(context.Background(), &appIDAuth{appID: "my-app", userID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "appidtoken", client.Token())
}

func TestAppIDAuthUserFile(t *testing.T) {
	t.Parallel()

	userFile := filepath.Join(t.TempDir(), "vault-user")
	require.NoError(t, os.WriteFile(userFile, []byte("file-user\n"), 0o600))

	client, _ := newFakeVault(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "file-user", body["user_id"])

		writeJSON(t, w, map[string]interface{}{
			"auth": map[string]interface{}{"client_token": "t"},
		})
	}))

	require.NoError(t, client.Login(context.Background(), &appIDAuth{appID: "my-app", userFile: userFile}))
}

func TestAppIDAuthExplicitUserBeatsFile(t *testing.T) {
	t.Parallel()

	client, _ := newFakeVault(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "explicit-user", body["user_id"])

		writeJSON(t, w, map[string]interface{}{
			"auth": map[string]interface{}{"client_token": "t"},
		})
	}))

	auth := &appIDAuth{appID: "my-app", userID: "explicit-user", userFile: "/nonexistent"}
	require.NoError(t, client.Login(context.Background(), auth))
}

func TestAppIDAuthMissingUserFileFatal(t *testing.T) {
	t.Parallel()

	client, _ := newFakeVault(t, http.NotFoundHandler())

	auth := &appIDAuth{appID: "my-app", userFile: filepath.Join(t.TempDir(), "absent")}
	err := client.Login(context.Background(), auth)
	require.Error(t, err)

	var cfgErr vperrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "user_file", cfgErr.Field)
}

func TestAppRoleAuth(t *testing.T) {
	t.Parallel()

	client, _ := newFakeVault(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/auth/approle/login", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "role-1", body["role_id"])
		assert.Equal(t, "secret-1", body["secret_id"])

		writeJSON(t, w, map[string]interface{}{
			"auth": map[string]interface{}{"client_token": "approletoken"},
		})
	}))

	err := client.Login(context.Background(), &appRoleAuth{roleID: "role-1", secretID: "secret-1"})
	require.NoError(t, err)
	assert.Equal(t, "approletoken", client.Token())
}

func TestAppRoleAuthSecretFile(t *testing.T) {
	t.Parallel()

	secretFile := filepath.Join(t.TempDir(), "secret-id")
	require.NoError(t, os.WriteFile(secretFile, []byte("file-secret\n"), 0o600))

	client, _ := newFakeVault(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "file-secret", body["secret_id"])

		writeJSON(t, w, map[string]interface{}{
			"auth": map[string]interface{}{"client_token": "t"},
		})
	}))

	require.NoError(t, client.Login(context.Background(), &appRoleAuth{roleID: "role-1", secretFile: secretFile}))
}

func TestAppRoleLoginFailureIsAuthError(t *testing.T) {
	t.Parallel()

	client, _ := newFakeVault(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	err := client.Login(context.Background(), &appRoleAuth{roleID: "r", secretID: "s"})
	require.Error(t, err)

	var authErr vperrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "approle", authErr.Method)
}
