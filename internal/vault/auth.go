// Package vault wraps the Vault API: credential-scheme selection and
// login, and secret reads with NotFound/transport error separation.
package vault

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/hashicorp/vault/api"

	"github.com/saltops/vaultpillar/internal/config"
	vperrors "github.com/saltops/vaultpillar/internal/errors"
)

// DefaultUserIDFile is consulted for an app-id user id when neither an
// explicit value nor a user_file is configured.
const DefaultUserIDFile = "~/.vault-id"

// AuthMethod produces a Vault token and attaches it to the client.
type AuthMethod interface {
	// Name identifies the scheme for logging and error reporting.
	Name() string
	// Login acquires a token and configures client with it.
	Login(ctx context.Context, client *api.Client) error
}

// SelectAuthMethod picks the single active credential scheme from the
// configuration, in fixed precedence order: explicit token, token file,
// app-id, approle. With no scheme configured it falls back to
// $VAULT_TOKEN, and only then fails with AuthConfigError.
func SelectAuthMethod(cfg *config.Config) (AuthMethod, error) {
	switch {
	case cfg.Token != "":
		return &tokenAuth{token: cfg.Token}, nil
	case cfg.TokenFile != "":
		return &tokenFileAuth{path: cfg.TokenFile}, nil
	case cfg.AppID != "":
		return &appIDAuth{appID: cfg.AppID, userID: cfg.UserID, userFile: cfg.UserFile}, nil
	case cfg.RoleID != "":
		return &appRoleAuth{roleID: cfg.RoleID, secretID: cfg.SecretID, secretFile: cfg.SecretFile}, nil
	}

	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		return &tokenAuth{token: token}, nil
	}

	return nil, vperrors.AuthConfigError{
		Message:    "no usable credential scheme configured",
		Suggestion: "Set one of: token, token_file, app_id (+user_id/user_file), or role_id (+secret_id/secret_file)",
	}
}

// tokenAuth uses an explicit token verbatim; no network call.
type tokenAuth struct {
	token string
}

func (a *tokenAuth) Name() string { return "token" }

func (a *tokenAuth) Login(_ context.Context, client *api.Client) error {
	client.SetToken(a.token)
	return nil
}

// tokenFileAuth reads the token from a file; no network call.
type tokenFileAuth struct {
	path string
}

func (a *tokenFileAuth) Name() string { return "token-file" }

func (a *tokenFileAuth) Login(_ context.Context, client *api.Client) error {
	token, err := readCredentialFile(a.path)
	if err != nil {
		return vperrors.ConfigError{
			Field:      "token_file",
			Value:      a.path,
			Message:    "token file is unreadable",
			Suggestion: "Check that the file exists and the master can read it",
			Err:        err,
		}
	}

	client.SetToken(token)

	return nil
}

// appIDAuth exchanges an app-id/user-id pair for a token at the backend's
// app-id login endpoint. The user id comes from the explicit value, then
// user_file, then ~/.vault-id.
type appIDAuth struct {
	appID    string
	userID   string
	userFile string
}

func (a *appIDAuth) Name() string { return "app-id" }

func (a *appIDAuth) Login(ctx context.Context, client *api.Client) error {
	userID := a.userID
	if userID == "" {
		source := a.userFile
		explicit := source != ""
		if !explicit {
			source = DefaultUserIDFile
		}

		var err error
		userID, err = readCredentialFile(source)
		if err != nil && explicit {
			return vperrors.ConfigError{
				Field:      "user_file",
				Value:      source,
				Message:    "user-id file is unreadable",
				Suggestion: "Check that the file exists and the master can read it",
				Err:        err,
			}
		}
	}

	if userID == "" {
		return vperrors.AuthError{Method: a.Name(), Err: fmt.Errorf("no user_id available")}
	}

	secret, err := remoteAuth(ctx, client, path.Join("auth/app-id/login", a.appID),
		map[string]interface{}{"user_id": userID})
	if err != nil {
		return vperrors.AuthError{Method: a.Name(), Err: err}
	}

	client.SetToken(secret.Auth.ClientToken)

	return nil
}

// appRoleAuth exchanges a role-id/secret-id pair for a token at the
// AppRole login endpoint. The secret id comes from the explicit value,
// then secret_file.
type appRoleAuth struct {
	roleID     string
	secretID   string
	secretFile string
}

func (a *appRoleAuth) Name() string { return "approle" }

func (a *appRoleAuth) Login(ctx context.Context, client *api.Client) error {
	secretID := a.secretID
	if secretID == "" {
		if a.secretFile == "" {
			return vperrors.AuthError{Method: a.Name(), Err: fmt.Errorf("no secret_id available")}
		}

		var err error
		secretID, err = readCredentialFile(a.secretFile)
		if err != nil {
			return vperrors.ConfigError{
				Field:      "secret_file",
				Value:      a.secretFile,
				Message:    "secret-id file is unreadable",
				Suggestion: "Check that the file exists and the master can read it",
				Err:        err,
			}
		}
	}

	secret, err := remoteAuth(ctx, client, "auth/approle/login",
		map[string]interface{}{"role_id": a.roleID, "secret_id": secretID})
	if err != nil {
		return vperrors.AuthError{Method: a.Name(), Err: err}
	}

	client.SetToken(secret.Auth.ClientToken)

	return nil
}

func remoteAuth(ctx context.Context, client *api.Client, loginPath string, vars map[string]interface{}) (*api.Secret, error) {
	secret, err := client.Logical().WriteWithContext(ctx, loginPath, vars)
	if err != nil {
		return nil, fmt.Errorf("login to %s failed: %w", loginPath, err)
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return nil, fmt.Errorf("login to %s returned no token", loginPath)
	}

	return secret, nil
}

// readCredentialFile reads a credential value from disk, expanding a
// leading ~ and trimming surrounding whitespace.
func readCredentialFile(source string) (string, error) {
	if strings.HasPrefix(source, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		source = path.Join(home, source[2:])
	}

	b, err := os.ReadFile(source)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}
