// Package resolve orchestrates per-minion pillar resolution: load the
// rule document, evaluate it for the minion, authenticate to Vault once,
// fetch every matched secret through the cache, and assemble the pillar
// fragment.
package resolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/saltops/vaultpillar/internal/cache"
	"github.com/saltops/vaultpillar/internal/config"
	vperrors "github.com/saltops/vaultpillar/internal/errors"
	"github.com/saltops/vaultpillar/internal/logging"
	"github.com/saltops/vaultpillar/internal/match"
	"github.com/saltops/vaultpillar/internal/metrics"
	"github.com/saltops/vaultpillar/internal/rules"
	"github.com/saltops/vaultpillar/internal/template"
	"github.com/saltops/vaultpillar/internal/vault"
	"github.com/saltops/vaultpillar/pkg/pillar"
)

// Resolver resolves pillar fragments for minions. Construct one per
// master process and reuse it across resolutions; the cache client and
// collaborators are shared, everything else is per-request.
type Resolver struct {
	cfg    *config.Config
	logger *logging.Logger

	loader  pillar.Loader
	engine  pillar.TemplateEngine
	matcher pillar.Matcher
	cache   pillar.Cache

	// newSource is replaceable in tests to avoid a live Vault.
	newSource func(ctx context.Context) (pillar.SecretSource, error)
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithLoader replaces the rule-document loader.
func WithLoader(l pillar.Loader) Option {
	return func(r *Resolver) { r.loader = l }
}

// WithMatcher replaces the compound matcher.
func WithMatcher(m pillar.Matcher) Option {
	return func(r *Resolver) { r.matcher = m }
}

// WithTemplateEngine replaces the template engine.
func WithTemplateEngine(e pillar.TemplateEngine) Option {
	return func(r *Resolver) { r.engine = e }
}

// WithCache replaces the cache layer.
func WithCache(c pillar.Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithSecretSource replaces Vault client construction, for tests.
func WithSecretSource(s pillar.SecretSource) Option {
	return func(r *Resolver) {
		r.newSource = func(context.Context) (pillar.SecretSource, error) { return s, nil }
	}
}

// New builds a Resolver with the default collaborators: file loader,
// compound matcher, Jinja-style templating, and the cache backend the
// configuration selects.
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics.Init()

	r := &Resolver{
		cfg:     cfg,
		logger:  logger,
		loader:  FileLoader{},
		engine:  template.New(),
		matcher: match.New(),
		cache:   cache.FromConfig(cfg, logger),
	}
	r.newSource = r.vaultSource

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// vaultSource builds an authenticated Vault client using the configured
// credential scheme. Credentials resolve once per resolution, not per
// secret.
func (r *Resolver) vaultSource(ctx context.Context) (pillar.SecretSource, error) {
	auth, err := vault.SelectAuthMethod(r.cfg)
	if err != nil {
		return nil, err
	}

	client, err := vault.NewClient(r.cfg, r.logger)
	if err != nil {
		return nil, err
	}

	if err := client.Login(ctx, auth); err != nil {
		return nil, err
	}

	return client, nil
}

// Resolve computes the pillar fragment for one minion. Fatal errors
// (configuration, auth, transport) abort the whole request; per-secret
// NotFound is handled by the missing-secret policy.
func (r *Resolver) Resolve(ctx context.Context, minionID string, grains map[string]interface{}) (pillar.Fragment, error) {
	fragment, err := r.resolve(ctx, pillar.Minion{ID: minionID, Grains: grains})
	if err != nil {
		metrics.RecordResolution("error")
		return nil, err
	}

	metrics.RecordResolution("ok")

	return fragment, nil
}

func (r *Resolver) resolve(ctx context.Context, minion pillar.Minion) (pillar.Fragment, error) {
	raw, err := r.loader.Load(r.cfg.RuleDocument)
	if err != nil {
		return nil, vperrors.ConfigError{
			Field:      "config",
			Value:      r.cfg.RuleDocument,
			Message:    "unable to read secret mappings file",
			Suggestion: "Check that the rule document exists and is readable by the master",
			Err:        err,
		}
	}

	bindings, err := rules.Evaluate(raw, minion, r.engine, r.matcher)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("minion %s matched %d secret bindings", minion.ID, len(bindings))

	if len(bindings) == 0 {
		return pillar.Fragment{}, nil
	}

	source, err := r.newSource(ctx)
	if err != nil {
		return nil, err
	}

	return r.fetchAll(ctx, source, bindings)
}

// fetchAll resolves every binding with a bounded number of concurrent
// fetches. All fetches share the already-resolved token; the first fatal
// error cancels the rest and fails the whole resolution.
func (r *Resolver) fetchAll(parent context.Context, source pillar.SecretSource, bindings map[string]pillar.PathRef) (pillar.Fragment, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	maxConcurrent := r.cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	semaphore := make(chan struct{}, maxConcurrent)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fragment = pillar.Fragment{}
		firstErr error
	)

	for variable, ref := range bindings {
		wg.Add(1)

		go func(variable string, ref pillar.PathRef) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				return
			}

			value, err := r.fetchOne(ctx, source, ref)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				fragment[variable] = value
			case !vperrors.IsFatal(err):
				// missing-secret policy: unset the key entirely, or
				// keep it visible with an explicit null
				r.logger.Debug("secret for %s missing: %v", variable, err)
				if !r.cfg.UnsetIfMissing {
					fragment[variable] = nil
				}
			default:
				if firstErr == nil {
					firstErr = fmt.Errorf("resolving variable %q: %w", variable, err)
					cancel()
				}
			}
		}(variable, ref)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	// A cancelled resolution must report failure, never a partial
	// fragment: goroutines that bail out on ctx.Done() record no error
	// while cache hits may already have merged their values.
	if err := parent.Err(); err != nil {
		return nil, fmt.Errorf("resolution cancelled: %w", err)
	}

	return fragment, nil
}

// fetchOne reads a single secret through the cache: read-through on
// miss, write-through on success.
func (r *Resolver) fetchOne(ctx context.Context, source pillar.SecretSource, ref pillar.PathRef) (interface{}, error) {
	key := pillar.CacheKey(ref)

	if value, ok := r.cache.Get(key); ok {
		r.logger.Debug("cache hit for %s", ref)
		return value, nil
	}

	value, err := source.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	r.cache.Set(key, value)

	return value, nil
}
