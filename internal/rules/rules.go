// Package rules parses and evaluates the secret-mapping rule document: a
// templated YAML mapping of compound filter expressions to variable
// bindings. Document order matters - when several matching filters bind
// the same variable, the last one wins, so specificity is expressed by
// ordering rather than an explicit priority field.
package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"

	vperrors "github.com/saltops/vaultpillar/internal/errors"
	"github.com/saltops/vaultpillar/pkg/pillar"
)

// Entry is one rule: a filter expression and the variable bindings it
// contributes when the minion matches.
type Entry struct {
	Filter   string
	Bindings []Binding
}

// Binding maps a pillar variable name to a path spec.
type Binding struct {
	Variable string
	PathSpec string
}

// Document is the ordered sequence of rule entries.
type Document struct {
	Entries []Entry
}

// Parse decodes the expanded rule text. The top level must be a mapping
// of filter expression to a mapping of variable name to path spec; entry
// order is preserved. An empty document is valid and yields no entries.
func Parse(text []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(text, &root); err != nil {
		return nil, vperrors.ConfigError{
			Message:    "rule document is not valid YAML",
			Suggestion: "Check the secret mapping file for indentation errors",
			Err:        err,
		}
	}

	doc := &Document{}

	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}

	mapping := root.Content[0]
	if mapping.Kind == yaml.ScalarNode && mapping.Tag == "!!null" {
		return doc, nil
	}
	if mapping.Kind != yaml.MappingNode {
		return nil, vperrors.ConfigError{
			Message:    "rule document must be a mapping of filter expressions to bindings",
			Suggestion: "Expected the form: 'filter': {variable: path}",
		}
	}

	for i := 0; i < len(mapping.Content); i += 2 {
		keyNode, valueNode := mapping.Content[i], mapping.Content[i+1]

		var filter string
		if err := keyNode.Decode(&filter); err != nil {
			return nil, parseError(keyNode, "filter expression must be a string", err)
		}

		if valueNode.Kind != yaml.MappingNode {
			return nil, parseError(valueNode,
				fmt.Sprintf("bindings for filter %q must be a mapping of variable to path", filter), nil)
		}

		entry := Entry{Filter: filter}
		for j := 0; j < len(valueNode.Content); j += 2 {
			var variable, pathSpec string
			if err := valueNode.Content[j].Decode(&variable); err != nil {
				return nil, parseError(valueNode.Content[j], "variable name must be a string", err)
			}
			if err := valueNode.Content[j+1].Decode(&pathSpec); err != nil {
				return nil, parseError(valueNode.Content[j+1],
					fmt.Sprintf("path for variable %q must be a string", variable), err)
			}

			entry.Bindings = append(entry.Bindings, Binding{Variable: variable, PathSpec: pathSpec})
		}

		doc.Entries = append(doc.Entries, entry)
	}

	return doc, nil
}

func parseError(node *yaml.Node, msg string, err error) error {
	return vperrors.ConfigError{
		Message:    fmt.Sprintf("rule document line %d: %s", node.Line, msg),
		Suggestion: "Check the secret mapping file structure",
		Err:        err,
	}
}

// Evaluate renders the raw rule text for the minion, parses it, and
// collects the bindings of every matching filter in document order.
// Later matches overwrite earlier bindings of the same variable.
func Evaluate(raw []byte, m pillar.Minion, engine pillar.TemplateEngine, matcher pillar.Matcher) (map[string]pillar.PathRef, error) {
	expanded, err := engine.Render(string(raw), m)
	if err != nil {
		return nil, vperrors.ConfigError{
			Message:    "rule document template expansion failed",
			Suggestion: "Check template syntax and referenced grains",
			Err:        err,
		}
	}

	doc, err := Parse([]byte(expanded))
	if err != nil {
		return nil, err
	}

	bindings := make(map[string]pillar.PathRef)

	for _, entry := range doc.Entries {
		matched, err := matcher.Match(entry.Filter, m)
		if err != nil {
			return nil, vperrors.ConfigError{
				Field:      "filter",
				Value:      entry.Filter,
				Message:    "filter expression could not be evaluated",
				Suggestion: "Check the compound matcher syntax",
				Err:        err,
			}
		}
		if !matched {
			continue
		}

		for _, b := range entry.Bindings {
			bindings[b.Variable] = pillar.ParsePathRef(b.PathSpec)
		}
	}

	return bindings, nil
}
