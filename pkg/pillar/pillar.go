// Package pillar defines the core types and collaborator interfaces for
// Vault-backed external pillar resolution.
//
// The resolution pipeline evaluates a templated rule document against a
// minion's identity and grains, fetches the matched Vault secrets through
// an optional cache, and returns the assembled pillar fragment. The
// pieces the engine does not own - compound matching, templating, rule
// document transport, the secret backend, and the cache - are expressed
// here as small interfaces so implementations can be swapped and faked
// in tests.
//
// # Collaborators
//
// A Matcher answers whether a compound filter expression selects a
// minion. A TemplateEngine expands the raw rule document with the
// minion's attributes in scope. A Loader fetches the raw rule document
// from wherever the master keeps it. A SecretSource reads secrets; a
// Cache fronts it with best-effort get/set.
//
// # Error contract
//
// SecretSource implementations return errors.NotFoundError for missing
// paths or fields and errors.TransportError for anything else. Cache
// implementations never return errors at all: failures degrade to
// misses or dropped writes.
package pillar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Minion identifies the client being provisioned: its id plus the static
// attribute set (grains) used for matching and templating.
type Minion struct {
	ID     string
	Grains map[string]interface{}
}

// PathRef addresses a secret: a Vault path, optionally narrowed to a
// single named field within the secret's data.
type PathRef struct {
	Path  string
	Field string
}

// ParsePathRef splits a path spec on the first '?' into path and field.
// "/secret/certs/domain?certificate" narrows to one field;
// "/secret/passwords/database" addresses the whole secret.
func ParsePathRef(spec string) PathRef {
	path, field, found := strings.Cut(spec, "?")
	if !found {
		return PathRef{Path: spec}
	}

	return PathRef{Path: path, Field: field}
}

// String renders the reference back into path-spec form.
func (r PathRef) String() string {
	if r.Field == "" {
		return r.Path
	}

	return r.Path + "?" + r.Field
}

// Fragment is the resolved pillar data for one minion: variable name to
// secret value. A value may be a whole secret structure, a single field,
// or nil when the missing-secret policy keeps absent keys visible.
type Fragment map[string]interface{}

// Matcher evaluates a compound filter expression against a minion.
type Matcher interface {
	Match(expr string, m Minion) (bool, error)
}

// TemplateEngine expands raw rule-document text with the minion's
// attributes available as template variables.
type TemplateEngine interface {
	Render(text string, m Minion) (string, error)
}

// Loader fetches the raw rule document from its configured location.
type Loader interface {
	Load(location string) ([]byte, error)
}

// SecretSource reads a secret, optionally narrowed to a single field.
type SecretSource interface {
	Fetch(ctx context.Context, ref PathRef) (interface{}, error)
}

// Cache is a best-effort key/value store fronting secret fetches.
// Implementations apply their configured TTL at Set time and must
// swallow transport errors.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
}

// CacheKey derives the deterministic cache slot for a secret reference,
// so the same path/field combination always maps to the same entry. The
// digest keeps keys within memcached's length and character limits.
func CacheKey(ref PathRef) string {
	sum := sha256.Sum256([]byte(ref.String()))
	return "vaultpillar:" + hex.EncodeToString(sum[:])
}
