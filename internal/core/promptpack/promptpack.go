// Package promptpack holds the LLM prompt as embedded data: the schema
// summary and the few-shot example set, plus the renderers that assemble
// them into chat messages. Prompt text lives in assets/, not in code
package promptpack

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"sibyl/internal/core/intent"
)

//go:embed assets/schema.md assets/examples.json
var assets embed.FS

// Example is one few-shot pair. Reasoning lines teach the model the
// chain-of-thought shape without asking it to echo one back
type Example struct {
	Query       string         `json:"query"`
	SQL         string         `json:"sql"`
	Parameters  map[string]any `json:"parameters"`
	Explanation string         `json:"explanation"`
	Complexity  int            `json:"complexity"`
	Reasoning   []string       `json:"reasoning"`
}

type rawExamples struct {
	Version  int       `json:"version"`
	Examples []Example `json:"examples"`
}

// Pack is the compiled prompt material. Load once, share freely
type Pack struct {
	Version  int
	Schema   string
	Examples []Example

	system string
}

// Load parses the embedded assets and pre-renders the system prompt.
// Examples render in ascending complexity regardless of file order
func Load() (*Pack, error) {
	schema, err := assets.ReadFile("assets/schema.md")
	if err != nil {
		return nil, fmt.Errorf("promptpack: read schema.md: %w", err)
	}
	raw, err := assets.ReadFile("assets/examples.json")
	if err != nil {
		return nil, fmt.Errorf("promptpack: read examples.json: %w", err)
	}
	var re rawExamples
	if err := json.Unmarshal(raw, &re); err != nil {
		return nil, fmt.Errorf("promptpack: parse examples.json: %w", err)
	}
	if len(re.Examples) == 0 {
		return nil, fmt.Errorf("promptpack: examples.json has no examples")
	}
	sort.SliceStable(re.Examples, func(i, j int) bool {
		return re.Examples[i].Complexity < re.Examples[j].Complexity
	})

	p := &Pack{
		Version:  re.Version,
		Schema:   strings.TrimSpace(string(schema)),
		Examples: re.Examples,
	}
	p.system = p.renderSystem()
	return p, nil
}

// MustLoad panics when the embedded assets cannot be parsed
func MustLoad() *Pack {
	p, err := Load()
	if err != nil {
		panic(err)
	}
	return p
}

// System returns the pre-rendered system prompt: role, schema, few-shot
// examples, and the strict output directive
func (p *Pack) System() string { return p.system }

func (p *Pack) renderSystem() string {
	var b strings.Builder
	b.WriteString("You translate natural-language search requests into a single read-only PostgreSQL query.\n\n")
	b.WriteString(p.Schema)
	b.WriteString("\n\n# Examples\n")
	for i, ex := range p.Examples {
		fmt.Fprintf(&b, "\n## Example %d (complexity %d/5)\n", i+1, ex.Complexity)
		fmt.Fprintf(&b, "Request: %s\n", ex.Query)
		if len(ex.Reasoning) > 0 {
			b.WriteString("Reasoning:\n")
			for _, line := range ex.Reasoning {
				fmt.Fprintf(&b, "- %s\n", line)
			}
		}
		out, _ := json.Marshal(map[string]any{
			"sql":         ex.SQL,
			"parameters":  ex.Parameters,
			"explanation": ex.Explanation,
		})
		fmt.Fprintf(&b, "Response: %s\n", out)
	}
	b.WriteString(`
# Rules

- Respond with exactly one JSON object: {"sql", "parameters", "explanation", "confidence"}. No prose, no code fences.
- "sql" must be a single SELECT or WITH statement against the tables above. Never write DML or DDL.
- Every literal value rides in "parameters" under a %(name)s placeholder inside "sql". Never inline user values.
- Include LIMIT 100 unless a smaller limit is asked for.
- "confidence" is your own estimate in [0,1].
`)
	return b.String()
}

// User renders the per-request message: the query, its classified intent,
// and any caller context worth passing through. Extras render sorted so the
// message is deterministic for identical requests
func (p *Pack) User(query string, in intent.Intent, extras map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", query)
	fmt.Fprintf(&b, "Classified intent: %s (confidence %.2f)\n", in.Kind, in.Confidence)
	if len(in.Entities) > 0 {
		kinds := make([]string, 0, len(in.Entities))
		for k := range in.Entities {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		b.WriteString("Entities:\n")
		for _, k := range kinds {
			fmt.Fprintf(&b, "- %s: %s\n", k, strings.Join(in.Entities[intent.EntityKind(k)], ", "))
		}
	}
	if len(in.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(in.Keywords, ", "))
	}
	if len(extras) > 0 {
		keys := make([]string, 0, len(extras))
		for k := range extras {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Context:\n")
		for _, k := range keys {
			v, _ := json.Marshal(extras[k])
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}
	b.WriteString("Respond with the JSON object only.")
	return b.String()
}
