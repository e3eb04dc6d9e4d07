package pillar

import (
	"context"
	"fmt"
	"sync"

	vperrors "github.com/saltops/vaultpillar/internal/errors"
)

// FakeMatcher matches expressions against a fixed allow-set, keyed by
// expression string. Unknown expressions optionally error.
type FakeMatcher struct {
	Matches map[string]bool
	ErrOn   map[string]error
}

func (f *FakeMatcher) Match(expr string, _ Minion) (bool, error) {
	if err, ok := f.ErrOn[expr]; ok {
		return false, err
	}

	return f.Matches[expr], nil
}

// PassthroughTemplate returns the input unchanged, for tests that do not
// exercise templating.
type PassthroughTemplate struct{}

func (PassthroughTemplate) Render(text string, _ Minion) (string, error) {
	return text, nil
}

// MapLoader serves rule documents from an in-memory map.
type MapLoader struct {
	Docs map[string][]byte
}

func (l *MapLoader) Load(location string) ([]byte, error) {
	doc, ok := l.Docs[location]
	if !ok {
		return nil, fmt.Errorf("no document at %q", location)
	}

	return doc, nil
}

// FakeSecretSource serves secrets from an in-memory map of path to data
// structure, applying the same NotFound semantics as the real client.
// It records fetched paths for assertions.
type FakeSecretSource struct {
	Secrets map[string]map[string]interface{}
	Err     error

	mu      sync.Mutex
	Fetched []string
}

func (f *FakeSecretSource) Fetch(_ context.Context, ref PathRef) (interface{}, error) {
	f.mu.Lock()
	f.Fetched = append(f.Fetched, ref.String())
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	data, ok := f.Secrets[ref.Path]
	if !ok {
		return nil, vperrors.NotFoundError{Path: ref.Path}
	}

	if ref.Field == "" {
		return data, nil
	}

	value, ok := data[ref.Field]
	if !ok {
		return nil, vperrors.NotFoundError{Path: ref.Path, Field: ref.Field}
	}

	return value, nil
}
