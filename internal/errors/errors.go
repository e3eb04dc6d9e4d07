// Package errors defines the error taxonomy for pillar resolution.
//
// Fatal kinds (ConfigError, AuthConfigError, AuthError, TransportError)
// abort the whole per-minion resolution and must reach the operator.
// NotFoundError is non-fatal and interpreted by the missing-secret policy.
// CacheError is non-fatal and always swallowed by the cache layer.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError represents a configuration or rule-document error with
// helpful context. It is fatal to the current resolution.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
	Err        error
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Err != nil {
		msg += "\n  Details: " + e.Err.Error()
	}
	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

func (e ConfigError) Unwrap() error {
	return e.Err
}

// AuthConfigError means no usable credential scheme could be selected
// from the supplied configuration. Fatal.
type AuthConfigError struct {
	Message    string
	Suggestion string
}

func (e AuthConfigError) Error() string {
	msg := "Authentication configuration error: " + e.Message
	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// AuthError means a backend login call failed (bad credentials, or a
// network failure during login). Fatal.
type AuthError struct {
	Method string
	Err    error
}

func (e AuthError) Error() string {
	msg := "Vault authentication failed"
	if e.Method != "" {
		msg += fmt.Sprintf(" (method: %s)", e.Method)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e AuthError) Unwrap() error {
	return e.Err
}

// TransportError means a network failure or unexpected backend response
// during a secret read. Fatal, and distinct from NotFoundError so that
// connectivity problems are never silently downgraded to empty pillars.
type TransportError struct {
	Op   string
	Path string
	Err  error
}

func (e TransportError) Error() string {
	msg := "Vault transport error"
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path: %s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// NotFoundError reports that a secret path, or a named field within a
// secret, does not exist. Non-fatal: the orchestrator applies the
// configured missing-secret policy.
type NotFoundError struct {
	Path  string
	Field string
}

func (e NotFoundError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("secret field '%s' not found at path '%s'", e.Field, e.Path)
	}

	return fmt.Sprintf("secret not found at path '%s'", e.Path)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// CacheError wraps a cache transport failure. The cache layer logs these
// and treats them as misses; they never propagate out of a resolution.
type CacheError struct {
	Op  string
	Err error
}

func (e CacheError) Error() string {
	msg := "cache " + e.Op + " failed"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e CacheError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err should abort the whole resolution.
// NotFound and cache failures are the only non-fatal kinds.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if IsNotFound(err) {
		return false
	}

	var ce CacheError
	return !errors.As(err, &ce)
}

// Simplify rewrites common low-level failures into user-facing errors
// with suggestions, leaving already-structured errors untouched.
func Simplify(err error) error {
	if err == nil {
		return nil
	}

	switch err.(type) {
	case ConfigError, AuthConfigError, AuthError, TransportError, NotFoundError:
		return err
	}

	errStr := err.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "invalid YAML in rule document",
			Suggestion: "Check for indentation errors and missing quotes",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return ConfigError{
			Message:    "file not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
