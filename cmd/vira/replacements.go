package main

import (
	"github.com/peorobertsson/vira/internal/vira"
)

// Template markers removed from every deep-copied summary.
var defaultReplacements = []vira.Replacement{
	{Match: "[TEMPLATE, COPY ME] ", Replace: ""},
	{Match: "[Template, COPY ME] ", Replace: ""},
}

// replaceOptions are the deep-copy text replacement flags. A nil text means
// the flag was not given.
type replaceOptions struct {
	capability *string
	sm         *string
	rules      []string
}

// buildReplacer returns the default rules, then the capability and SM
// placeholders, then the MATCH=REPLACEMENT rules in the order given.
func buildReplacer(opts replaceOptions) (*vira.Replacer, error) {
	r := vira.NewReplacer(defaultReplacements...)
	if opts.capability != nil {
		r.Add("<capability>", *opts.capability)
		r.Add("<sSOLCSP Capability>", *opts.capability)
	}
	if opts.sm != nil {
		r.Add("<SM>", *opts.sm)
	}
	for _, s := range opts.rules {
		rule, err := vira.ParseReplacement(s)
		if err != nil {
			return nil, err
		}
		r.Add(rule.Match, rule.Replace)
	}
	return r, nil
}
