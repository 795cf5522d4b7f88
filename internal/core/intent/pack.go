// Package intent classifies natural-language search queries into a structured
// intent: a query kind, extracted entities, keywords, and scores.
// Patterns live in the embedded patterns.json and are compiled once at Load
package intent

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
)

//go:embed patterns.json
var embedded []byte

type rawKindBlock struct {
	Kind     string   `json:"kind"`
	Patterns []string `json:"patterns"`
}

type rawEntityBlock struct {
	Kind      string   `json:"kind"`
	Patterns  []string `json:"patterns"`
	Stopwords []string `json:"stopwords,omitempty"`
}

type rawPack struct {
	Version         int              `json:"version"`
	Kinds           []rawKindBlock   `json:"kinds"`
	Entities        []rawEntityBlock `json:"entities"`
	IntentKeywords  []string         `json:"intent_keywords"`
	SpecialKeywords []string         `json:"special_keywords"`
}

// kindRules holds the compiled patterns for one query kind
type kindRules struct {
	Kind     Kind
	Compiled []*regexp.Regexp
}

// entityRules holds the compiled patterns for one entity kind
type entityRules struct {
	Kind     EntityKind
	Compiled []*regexp.Regexp
	Stopset  map[string]struct{}
}

// Pack is a compiled set of classification rules
type Pack struct {
	Version         int
	Kinds           []kindRules
	Entities        []entityRules
	IntentKeywords  []string
	SpecialKeywords []string
}

// Load returns the compiled pack from the embedded patterns.json
func Load() (*Pack, error) {
	var rp rawPack
	if err := json.Unmarshal(embedded, &rp); err != nil {
		return nil, fmt.Errorf("intent: parse patterns.json: %w", err)
	}

	p := &Pack{
		Version:         rp.Version,
		IntentKeywords:  rp.IntentKeywords,
		SpecialKeywords: rp.SpecialKeywords,
	}

	for _, kb := range rp.Kinds {
		kr := kindRules{Kind: Kind(kb.Kind)}
		for _, pat := range kb.Patterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("intent: compile kind %q pattern %q: %w", kb.Kind, pat, err)
			}
			kr.Compiled = append(kr.Compiled, re)
		}
		p.Kinds = append(p.Kinds, kr)
	}

	for _, eb := range rp.Entities {
		er := entityRules{Kind: EntityKind(eb.Kind), Stopset: map[string]struct{}{}}
		for _, pat := range eb.Patterns {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("intent: compile entity %q pattern %q: %w", eb.Kind, pat, err)
			}
			er.Compiled = append(er.Compiled, re)
		}
		for _, sw := range eb.Stopwords {
			er.Stopset[sw] = struct{}{}
		}
		p.Entities = append(p.Entities, er)
	}

	return p, nil
}

// MustLoad panics when the embedded pack cannot be compiled
func MustLoad() *Pack {
	p, err := Load()
	if err != nil {
		panic(err)
	}
	return p
}
