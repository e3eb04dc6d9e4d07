// Package template renders rule documents with Jinja-style syntax. The
// minion's identity and grains are exposed as template variables, so a
// path like /secret/certs/{{ minion_id }} resolves per minion.
package template

import (
	"github.com/flosch/pongo2/v6"

	"github.com/saltops/vaultpillar/pkg/pillar"
)

// Engine is the pongo2-backed pillar.TemplateEngine.
type Engine struct{}

// New returns a template engine.
func New() *Engine {
	return &Engine{}
}

// Render expands text with the minion's attributes in scope:
//
//	{{ minion_id }}   the minion's id
//	{{ grains.os }}   any grain, with dotted lookups into nested maps
func (e *Engine) Render(text string, m pillar.Minion) (string, error) {
	tpl, err := pongo2.FromString(text)
	if err != nil {
		return "", err
	}

	return tpl.Execute(pongo2.Context{
		"minion_id": m.ID,
		"grains":    m.Grains,
	})
}
