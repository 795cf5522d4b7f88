package promptpack

import (
	"sort"
	"strings"
	"testing"

	"sibyl/internal/core/intent"
	"sibyl/internal/core/sqlgen"
)

func TestLoad(t *testing.T) {
	p, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Examples) < 5 {
		t.Fatalf("examples = %d, want >= 5", len(p.Examples))
	}
	if !sort.SliceIsSorted(p.Examples, func(i, j int) bool {
		return p.Examples[i].Complexity < p.Examples[j].Complexity
	}) {
		t.Fatalf("examples not ordered by complexity")
	}
}

func TestExamples_PlaceholdersMatchParameters(t *testing.T) {
	p := MustLoad()
	for _, ex := range p.Examples {
		if !sqlgen.ParamsMatch(ex.SQL, ex.Parameters) {
			t.Fatalf("example %q: placeholders %v do not match parameters %v",
				ex.Query, sqlgen.Placeholders(ex.SQL), ex.Parameters)
		}
	}
}

func TestSystem_CarriesSchemaExamplesDirective(t *testing.T) {
	p := MustLoad()
	sys := p.System()

	for _, want := range []string{
		"customers",
		"customer_memos",
		"customer_products",
		"# Examples",
		`{"sql"`,
		"%(name)s",
		"LIMIT 100",
	} {
		if !strings.Contains(sys, want) {
			t.Fatalf("system prompt missing %q", want)
		}
	}
}

func TestUser_DeterministicAndComplete(t *testing.T) {
	p := MustLoad()
	in := intent.Intent{
		Kind:       intent.KindFiltering,
		Confidence: 0.82,
		Entities: map[intent.EntityKind][]string{
			intent.EntityCustomerName: {"홍길동"},
			intent.EntityLocation:     {"seoul"},
		},
		Keywords: []string{"find"},
	}
	extras := map[string]any{"department": "sales", "account": 7}

	a := p.User("customers named 홍길동", in, extras)
	b := p.User("customers named 홍길동", in, extras)
	if a != b {
		t.Fatalf("user prompt not deterministic")
	}
	for _, want := range []string{"홍길동", "filtering", "customer_name", "location", "department", "account"} {
		if !strings.Contains(a, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, a)
		}
	}
	// context keys render sorted
	if strings.Index(a, "account") > strings.Index(a, "department") {
		t.Fatalf("extras not sorted:\n%s", a)
	}
}
