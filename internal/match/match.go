// Package match implements the subset of Salt's compound targeting
// grammar the pillar engine needs: minion-id globs, grain globs, PCRE
// matchers, id lists, and boolean composition with and/or/not and
// parentheses.
//
// Supported matcher tokens:
//
//	web*            glob on the minion id
//	G@os:Ubuntu     glob on a (possibly nested) grain value
//	E@^web\d+$      regular expression on the minion id
//	P@os:Ubu.*      regular expression on a grain value
//	L@web01,web02   list of minion-id globs
package match

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/saltops/vaultpillar/pkg/pillar"
)

// Compound is the default pillar.Matcher implementation.
type Compound struct{}

// New returns a Compound matcher.
func New() *Compound {
	return &Compound{}
}

// Match evaluates the compound expression against the minion.
func (c *Compound) Match(expr string, m pillar.Minion) (bool, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return false, err
	}
	if len(tokens) == 0 {
		return false, fmt.Errorf("empty filter expression")
	}

	p := &parser{tokens: tokens, minion: m}

	result, err := p.parseOr()
	if err != nil {
		return false, fmt.Errorf("invalid filter %q: %w", expr, err)
	}
	if p.pos != len(p.tokens) {
		return false, fmt.Errorf("invalid filter %q: unexpected token %q", expr, p.tokens[p.pos])
	}

	return result, nil
}

// tokenize splits on whitespace, peeling parentheses off token edges so
// "( web* or db* )" and "(web* or db*)" both parse.
func tokenize(expr string) ([]string, error) {
	var tokens []string

	for _, raw := range strings.Fields(expr) {
		for strings.HasPrefix(raw, "(") {
			tokens = append(tokens, "(")
			raw = raw[1:]
		}

		var closers int
		for strings.HasSuffix(raw, ")") {
			closers++
			raw = raw[:len(raw)-1]
		}

		if raw != "" {
			tokens = append(tokens, raw)
		}
		for ; closers > 0; closers-- {
			tokens = append(tokens, ")")
		}
	}

	return tokens, nil
}

type parser struct {
	tokens []string
	minion pillar.Minion
	pos    int
}

func (p *parser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}

	return p.tokens[p.pos]
}

func (p *parser) next() string {
	tok := p.peek()
	p.pos++

	return tok
}

func (p *parser) parseOr() (bool, error) {
	left, err := p.parseAnd()
	if err != nil {
		return false, err
	}

	for p.peek() == "or" {
		p.next()

		right, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		left = left || right
	}

	return left, nil
}

func (p *parser) parseAnd() (bool, error) {
	left, err := p.parseUnary()
	if err != nil {
		return false, err
	}

	for p.peek() == "and" {
		p.next()

		right, err := p.parseUnary()
		if err != nil {
			return false, err
		}
		left = left && right
	}

	return left, nil
}

func (p *parser) parseUnary() (bool, error) {
	switch tok := p.peek(); tok {
	case "not":
		p.next()

		val, err := p.parseUnary()
		if err != nil {
			return false, err
		}

		return !val, nil

	case "(":
		p.next()

		val, err := p.parseOr()
		if err != nil {
			return false, err
		}
		if p.next() != ")" {
			return false, fmt.Errorf("missing closing parenthesis")
		}

		return val, nil

	case "", ")", "and", "or":
		return false, fmt.Errorf("expected a matcher, got %q", tok)

	default:
		return p.evalMatcher(p.next())
	}
}

// evalMatcher evaluates a single matcher token against the minion.
func (p *parser) evalMatcher(token string) (bool, error) {
	if len(token) > 1 && token[1] == '@' {
		body := token[2:]

		switch token[0] {
		case 'G':
			return matchGrain(p.minion.Grains, body, globMatch)
		case 'P':
			return matchGrain(p.minion.Grains, body, regexMatch)
		case 'E':
			re, err := regexp.Compile(body)
			if err != nil {
				return false, fmt.Errorf("bad regex %q: %w", body, err)
			}

			return re.MatchString(p.minion.ID), nil
		case 'L':
			for _, pattern := range strings.Split(body, ",") {
				ok, err := globMatch(pattern, p.minion.ID)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}

			return false, nil
		default:
			return false, fmt.Errorf("unsupported matcher prefix %q", token[:2])
		}
	}

	return globMatch(token, p.minion.ID)
}

func globMatch(pattern, value string) (bool, error) {
	ok, err := filepath.Match(pattern, value)
	if err != nil {
		return false, fmt.Errorf("bad glob %q: %w", pattern, err)
	}

	return ok, nil
}

func regexMatch(pattern, value string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("bad regex %q: %w", pattern, err)
	}

	return re.MatchString(value), nil
}

// matchGrain walks a colon-delimited grain path into nested maps; the
// unconsumed remainder of the body is the pattern matched against the
// grain value. List grains match when any element matches.
func matchGrain(grains map[string]interface{}, body string, cmp func(pattern, value string) (bool, error)) (bool, error) {
	segments := strings.Split(body, ":")
	if len(segments) < 2 {
		return false, fmt.Errorf("grain matcher %q needs 'path:pattern'", body)
	}

	var current interface{} = grains

	for i, segment := range segments[:len(segments)-1] {
		node, ok := current.(map[string]interface{})
		if !ok {
			// path ended early; the rest of the body is the pattern
			return matchGrainValue(current, strings.Join(segments[i:], ":"), cmp)
		}

		current, ok = node[segment]
		if !ok {
			return false, nil
		}
	}

	return matchGrainValue(current, segments[len(segments)-1], cmp)
}

func matchGrainValue(value interface{}, pattern string, cmp func(pattern, value string) (bool, error)) (bool, error) {
	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			ok, err := cmp(pattern, fmt.Sprint(item))
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}

		return false, nil
	case map[string]interface{}:
		return false, nil
	default:
		return cmp(pattern, fmt.Sprint(v))
	}
}
