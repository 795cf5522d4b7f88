package sqlgen

import (
	"time"

	perr "sibyl/internal/platform/errors"

	"sibyl/internal/core/intent"
)

// template is one row of the pattern table. Matching requires the exact
// intent kind plus every listed entity; templates are tried in declared
// order so the more specific rows sit first
type template struct {
	kind       intent.Kind
	requires   []intent.EntityKind
	sql        string
	confidence float64
	explain    string
	bind       func(in intent.Intent, now time.Time) (map[string]any, bool)
}

// Generator is the rule branch. Stateless apart from the clock seam
type Generator struct {
	now func() time.Time
}

// Option tunes a Generator
type Option func(*Generator)

// WithNow overrides the clock, for tests
func WithNow(fn func() time.Time) Option {
	return func(g *Generator) { g.now = fn }
}

// New constructs a Generator
func New(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate picks the first matching template and binds its parameters.
// Returns a no_rule_match error when nothing in the table fits the intent
func (g *Generator) Generate(in intent.Intent) (Artifact, error) {
	for _, t := range templates {
		if t.kind != in.Kind || !hasAll(in, t.requires) {
			continue
		}
		params := map[string]any{}
		if t.bind != nil {
			bound, ok := t.bind(in, g.now())
			if !ok {
				continue
			}
			params = bound
		}
		return Artifact{
			SQL:         t.sql,
			Parameters:  params,
			Explanation: t.explain,
			Confidence:  t.confidence,
			Source:      SourceRule,
		}, nil
	}
	return Artifact{}, perr.NoRuleMatchf("no template for %s intent", in.Kind)
}

func hasAll(in intent.Intent, kinds []intent.EntityKind) bool {
	for _, k := range kinds {
		if len(in.Entities[k]) == 0 {
			return false
		}
	}
	return true
}

var templates = []template{
	{
		kind:       intent.KindJoin,
		requires:   []intent.EntityKind{intent.EntityCustomerName},
		sql:        "SELECT c.id, c.name, m.content, m.memo_type, m.created_at FROM customers c LEFT JOIN customer_memos m ON m.customer_id = c.id WHERE c.name = %(customer_name)s ORDER BY m.created_at DESC LIMIT 100",
		confidence: 0.8,
		explain:    "memos joined for the named customer",
		bind:       bindName,
	},
	{
		kind:       intent.KindJoin,
		requires:   []intent.EntityKind{intent.EntityProductName},
		sql:        "SELECT c.id, c.name, p.product_name, p.premium, p.status FROM customers c JOIN customer_products p ON p.customer_id = c.id WHERE p.product_name ILIKE %(product_name)s LIMIT 100",
		confidence: 0.75,
		explain:    "customers joined with matching products",
		bind:       bindProductLike,
	},
	{
		kind:       intent.KindJoin,
		sql:        "SELECT c.id, c.name, m.content, m.created_at FROM customers c LEFT JOIN customer_memos m ON m.customer_id = c.id ORDER BY m.created_at DESC LIMIT 100",
		confidence: 0.65,
		explain:    "customers with their latest memos",
	},
	{
		kind:       intent.KindAggregation,
		requires:   []intent.EntityKind{intent.EntityLocation},
		sql:        "SELECT COUNT(*) AS count FROM customers WHERE region = %(location)s",
		confidence: 0.75,
		explain:    "customer count in the named region",
		bind:       bindLocation,
	},
	{
		kind:       intent.KindAggregation,
		requires:   []intent.EntityKind{intent.EntityProductName},
		sql:        "SELECT COUNT(DISTINCT p.customer_id) AS count FROM customer_products p WHERE p.product_name ILIKE %(product_name)s",
		confidence: 0.7,
		explain:    "holders of the matching product",
		bind:       bindProductLike,
	},
	{
		kind:       intent.KindAggregation,
		requires:   []intent.EntityKind{intent.EntityDate},
		sql:        "SELECT COUNT(*) AS count FROM customers WHERE created_at >= %(since)s",
		confidence: 0.7,
		explain:    "customers created since the date",
		bind:       bindSince,
	},
	{
		kind:       intent.KindAggregation,
		sql:        "SELECT region, COUNT(*) AS count FROM customers GROUP BY region ORDER BY count DESC LIMIT 100",
		confidence: 0.65,
		explain:    "customer counts grouped by region",
	},
	{
		kind:       intent.KindFiltering,
		requires:   []intent.EntityKind{intent.EntityCustomerName},
		sql:        "SELECT * FROM customers WHERE name = %(customer_name)s LIMIT 100",
		confidence: 0.75,
		explain:    "customers filtered by name",
		bind:       bindName,
	},
	{
		kind:       intent.KindFiltering,
		requires:   []intent.EntityKind{intent.EntityLocation},
		sql:        "SELECT * FROM customers WHERE region = %(location)s ORDER BY created_at DESC LIMIT 100",
		confidence: 0.7,
		explain:    "customers filtered by region",
		bind:       bindLocation,
	},
	{
		kind:       intent.KindFiltering,
		requires:   []intent.EntityKind{intent.EntityDate},
		sql:        "SELECT * FROM customers WHERE created_at >= %(since)s ORDER BY created_at DESC LIMIT 100",
		confidence: 0.7,
		explain:    "customers created since the date",
		bind:       bindSince,
	},
	{
		kind:       intent.KindFiltering,
		requires:   []intent.EntityKind{intent.EntityKeyword},
		sql:        "SELECT DISTINCT c.* FROM customers c JOIN customer_memos m ON m.customer_id = c.id WHERE m.content ILIKE %(keyword)s LIMIT 100",
		confidence: 0.7,
		explain:    "customers whose memos mention the keyword",
		bind:       bindKeywordLike,
	},
	{
		kind:       intent.KindSimpleQuery,
		requires:   []intent.EntityKind{intent.EntityCustomerName},
		sql:        "SELECT * FROM customers WHERE name = %(customer_name)s LIMIT 100",
		confidence: 0.8,
		explain:    "customers looked up by name",
		bind:       bindName,
	},
	{
		kind:       intent.KindSimpleQuery,
		requires:   []intent.EntityKind{intent.EntityLocation},
		sql:        "SELECT * FROM customers WHERE region = %(location)s LIMIT 100",
		confidence: 0.7,
		explain:    "customers looked up by region",
		bind:       bindLocation,
	},
	{
		kind:       intent.KindSimpleQuery,
		sql:        "SELECT * FROM customers ORDER BY created_at DESC LIMIT 100",
		confidence: 0.6,
		explain:    "latest customers",
	},
}

func bindName(in intent.Intent, _ time.Time) (map[string]any, bool) {
	return map[string]any{"customer_name": in.First(intent.EntityCustomerName)}, true
}

func bindLocation(in intent.Intent, _ time.Time) (map[string]any, bool) {
	return map[string]any{"location": in.First(intent.EntityLocation)}, true
}

func bindProductLike(in intent.Intent, _ time.Time) (map[string]any, bool) {
	return map[string]any{"product_name": like(in.First(intent.EntityProductName))}, true
}

func bindKeywordLike(in intent.Intent, _ time.Time) (map[string]any, bool) {
	return map[string]any{"keyword": like(in.First(intent.EntityKeyword))}, true
}

func bindSince(in intent.Intent, now time.Time) (map[string]any, bool) {
	iso, ok := resolveDate(in.First(intent.EntityDate), now)
	if !ok {
		return nil, false
	}
	return map[string]any{"since": iso}, true
}

func like(s string) string {
	return "%" + s + "%"
}
