// Package sqlgen turns a classified intent into a parameterized SQL artifact.
// Values never travel inside the SQL text; they ride in Parameters under
// %(name)s placeholders so the runner can bind them positionally
package sqlgen

import (
	"regexp"
	"sort"
)

// Artifact source labels
const (
	SourceRule   = "rule"
	SourceLLM    = "llm"
	SourceHybrid = "hybrid"
)

// Artifact is a generated query plus everything needed to judge and run it
type Artifact struct {
	SQL         string         `json:"sql"`
	Parameters  map[string]any `json:"parameters"`
	Explanation string         `json:"explanation,omitempty"`
	Confidence  float64        `json:"confidence"`
	Source      string         `json:"source"`
}

var placeholderRe = regexp.MustCompile(`%\(([a-zA-Z_][a-zA-Z0-9_]*)\)s`)

// Placeholders returns the distinct %(name)s placeholder names in sql, sorted
func Placeholders(sql string) []string {
	matches := placeholderRe.FindAllStringSubmatch(sql, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	sort.Strings(out)
	return out
}

// ParamsMatch reports whether the placeholder set in sql equals the key set
// of params exactly. Both generators must hold this before handing an
// artifact downstream
func ParamsMatch(sql string, params map[string]any) bool {
	names := Placeholders(sql)
	if len(names) != len(params) {
		return false
	}
	for _, n := range names {
		if _, ok := params[n]; !ok {
			return false
		}
	}
	return true
}
