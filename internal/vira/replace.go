package vira

import (
	"fmt"
	"strings"
)

// Replacement replaces every literal occurrence of Match with Replace.
type Replacement struct {
	Match   string
	Replace string
}

func (r Replacement) String() string {
	return fmt.Sprintf("%q -> %q", r.Match, r.Replace)
}

// ParseReplacement parses "MATCH=REPLACEMENT". The first '=' separates the
// two; the replacement may be empty but the match may not.
func ParseReplacement(s string) (Replacement, error) {
	match, repl, ok := strings.Cut(s, "=")
	if !ok {
		return Replacement{}, fmt.Errorf("invalid replacement %q: expected MATCH=REPLACEMENT", s)
	}
	if match == "" {
		return Replacement{}, fmt.Errorf("invalid replacement %q: empty match text", s)
	}
	return Replacement{Match: match, Replace: repl}, nil
}

// Replacer applies an ordered list of literal replacements. Rules run one
// after another, so a later rule sees the output of earlier ones.
type Replacer struct {
	rules []Replacement
}

// NewReplacer returns a Replacer with the given rules.
func NewReplacer(rules ...Replacement) *Replacer {
	r := &Replacer{}
	for _, rule := range rules {
		r.Add(rule.Match, rule.Replace)
	}
	return r
}

// Add appends a rule. Rules with an empty match are ignored.
func (r *Replacer) Add(match, replace string) {
	if match == "" {
		return
	}
	r.rules = append(r.rules, Replacement{Match: match, Replace: replace})
}

// Rules returns a copy of the rules in application order.
func (r *Replacer) Rules() []Replacement {
	if r == nil {
		return nil
	}
	return append([]Replacement(nil), r.rules...)
}

// Apply runs every rule over s in order.
func (r *Replacer) Apply(s string) string {
	if r == nil {
		return s
	}
	for _, rule := range r.rules {
		s = strings.ReplaceAll(s, rule.Match, rule.Replace)
	}
	return s
}
