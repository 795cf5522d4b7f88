package intent

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the query classification
type Kind string

// Query kinds in ascending structural complexity
const (
	KindSimpleQuery Kind = "simple_query"
	KindFiltering   Kind = "filtering"
	KindAggregation Kind = "aggregation"
	KindJoin        Kind = "join"
)

// EntityKind names an extracted entity class
type EntityKind string

// Entity kinds recognized by the classifier
const (
	EntityCustomerName EntityKind = "customer_name"
	EntityDate         EntityKind = "date"
	EntityProductName  EntityKind = "product_name"
	EntityAmount       EntityKind = "amount"
	EntityLocation     EntityKind = "location"
	EntityKeyword      EntityKind = "keyword"
)

// Intent is the structured classification of one normalized query.
// Entities maps entity kind to values in query order; kinds with no
// matches are absent from the map
type Intent struct {
	Kind       Kind                    `json:"kind"`
	Entities   map[EntityKind][]string `json:"entities,omitempty"`
	Keywords   []string                `json:"keywords,omitempty"`
	Complexity float64                 `json:"complexity"`
	Confidence float64                 `json:"confidence"`
	Reasoning  string                  `json:"reasoning,omitempty"`
}

// EntityCount returns the total number of extracted entity values
func (in Intent) EntityCount() int {
	n := 0
	for _, vs := range in.Entities {
		n += len(vs)
	}
	return n
}

// First returns the first value for kind or ""
func (in Intent) First(kind EntityKind) string {
	if vs := in.Entities[kind]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Morpheme is one token from an optional morphological analyzer
type Morpheme struct {
	Word string
	POS  string
}

// Morpher is the optional Korean morphological analyzer hook.
// When nil, pattern matching is the sole signal source
type Morpher interface {
	Morphemes(query string) []Morpheme
}

// Classifier turns normalized queries into Intents. Classification never
// fails; unrecognizable input degrades to simple_query with low confidence
type Classifier struct {
	pack  *Pack
	morph Morpher
}

// Option configures a Classifier
type Option func(*Classifier)

// WithMorpher installs a morphological analyzer hook
func WithMorpher(m Morpher) Option {
	return func(c *Classifier) { c.morph = m }
}

// New constructs a Classifier over a compiled pack
func New(p *Pack, opts ...Option) *Classifier {
	if p == nil {
		panic("intent: nil pack")
	}
	c := &Classifier{pack: p}
	for _, o := range opts {
		o(c)
	}
	return c
}

// precedence orders kinds for tie-breaking: higher wins
var precedence = map[Kind]int{
	KindAggregation: 3,
	KindJoin:        2,
	KindFiltering:   1,
	KindSimpleQuery: 0,
}

// Classify analyzes a normalized query and returns its Intent
func (c *Classifier) Classify(query string) Intent {
	if strings.TrimSpace(query) == "" {
		return Intent{
			Kind:       KindSimpleQuery,
			Complexity: 0.1,
			Confidence: 0.1,
			Reasoning:  "empty query, defaulted",
		}
	}

	var morphemes []Morpheme
	if c.morph != nil {
		morphemes = c.morph.Morphemes(query)
	}

	kind, confidence, kindHits := c.scoreKinds(query, morphemes)
	entities := c.extractEntities(query)
	keywords := c.keywords(query, morphemes)

	in := Intent{
		Kind:       kind,
		Keywords:   keywords,
		Confidence: clamp01(confidence),
		Reasoning:  reasoning(kind, confidence, len(morphemes)),
	}
	if len(entities) > 0 {
		in.Entities = entities
	}
	in.Complexity = clamp01(c.complexity(query, in, kindHits))
	return in
}

// scoreKinds runs every kind's patterns and picks the best normalized score.
// Ties resolve by precedence: aggregation > join > filtering > simple_query.
// Returns the winner, its score, and the per-kind raw hit counts
func (c *Classifier) scoreKinds(query string, morphemes []Morpheme) (Kind, float64, map[Kind]int) {
	best := KindSimpleQuery
	bestScore := 0.0
	hits := make(map[Kind]int, len(c.pack.Kinds))

	for _, kr := range c.pack.Kinds {
		matched := 0
		for _, re := range kr.Compiled {
			if re.MatchString(query) {
				matched++
			}
		}
		hits[kr.Kind] = matched

		score := float64(matched)
		score += morphemeBoost(kr.Kind, morphemes)
		if n := len(kr.Compiled); n > 0 {
			score /= float64(n)
		}

		if score > bestScore || (score == bestScore && precedence[kr.Kind] > precedence[best]) {
			best = kr.Kind
			bestScore = score
		}
	}

	if bestScore == 0 {
		return KindSimpleQuery, 0.1, hits
	}
	return best, bestScore, hits
}

// morphemeBoost mirrors the analyzer-assisted scoring: each morpheme that
// signals a kind adds half a pattern hit
func morphemeBoost(kind Kind, morphemes []Morpheme) float64 {
	if len(morphemes) == 0 {
		return 0
	}
	boost := 0.0
	for _, m := range morphemes {
		switch kind {
		case KindAggregation:
			if m.POS == "Noun" && containsAny(m.Word, "수", "개수", "총", "평균") {
				boost += 0.5
			}
		case KindFiltering:
			if m.POS == "Modifier" && containsAny(m.Word, "최근", "지난", "특정") {
				boost += 0.5
			}
		case KindJoin:
			if m.POS == "Josa" && (m.Word == "와" || m.Word == "과" || m.Word == "랑") {
				boost += 0.5
			}
		}
	}
	return boost
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// extractEntities collects entity values for every kind in query order,
// deduplicated keeping the first occurrence
func (c *Classifier) extractEntities(query string) map[EntityKind][]string {
	out := map[EntityKind][]string{}
	for _, er := range c.pack.Entities {
		type hit struct {
			pos  int
			text string
		}
		var found []hit
		for _, re := range er.Compiled {
			for _, loc := range re.FindAllStringIndex(query, -1) {
				text := strings.TrimSpace(query[loc[0]:loc[1]])
				if er.Kind == EntityCustomerName {
					text = trimHonorific(text)
				}
				if len([]rune(text)) < 2 {
					continue
				}
				if _, stopped := er.Stopset[text]; stopped {
					continue
				}
				found = append(found, hit{pos: loc[0], text: text})
			}
		}
		if len(found) == 0 {
			continue
		}
		sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })
		seen := map[string]struct{}{}
		var vals []string
		for _, h := range found {
			if _, dup := seen[h.text]; dup {
				continue
			}
			seen[h.text] = struct{}{}
			vals = append(vals, h.text)
		}
		out[er.Kind] = vals
	}
	return out
}

// trimHonorific drops a trailing honorific from a name candidate when the
// remainder is still a plausible name
func trimHonorific(name string) string {
	for _, suffix := range []string{"님", "씨"} {
		if strings.HasSuffix(name, suffix) {
			rest := strings.TrimSuffix(name, suffix)
			if len([]rune(rest)) >= 2 {
				return rest
			}
		}
	}
	return name
}

// keywords collects intent keywords present in the query, sorted
func (c *Classifier) keywords(query string, morphemes []Morpheme) []string {
	set := map[string]struct{}{}
	for _, kw := range c.pack.IntentKeywords {
		if strings.Contains(query, kw) {
			set[kw] = struct{}{}
		}
	}
	for _, m := range morphemes {
		if (m.POS == "Verb" || m.POS == "Noun") && len([]rune(m.Word)) >= 2 {
			for _, kw := range c.pack.IntentKeywords {
				if strings.Contains(m.Word, kw) {
					set[m.Word] = struct{}{}
				}
			}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for kw := range set {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

// complexity scores structural difficulty:
// 0.1 per entity, 0.2 per join signal, 0.15 per aggregation signal,
// 0.05 per 100 chars of query, clamped to [0,1]
func (c *Classifier) complexity(query string, in Intent, kindHits map[Kind]int) float64 {
	score := 0.1 * float64(in.EntityCount())
	score += 0.2 * float64(kindHits[KindJoin])
	score += 0.15 * float64(kindHits[KindAggregation])
	score += 0.05 * float64(len([]rune(query))) / 100
	return score
}

func reasoning(kind Kind, confidence float64, morphemeCount int) string {
	var strength string
	switch {
	case confidence > 0.7:
		strength = "strong"
	case confidence > 0.4:
		strength = "moderate"
	default:
		strength = "weak"
	}
	r := fmt.Sprintf("%s pattern match (%.2f) for %s", strength, confidence, kind)
	if morphemeCount > 0 {
		r += fmt.Sprintf(", %d morphemes", morphemeCount)
	}
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
