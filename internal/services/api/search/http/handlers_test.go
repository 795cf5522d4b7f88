package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	perr "sibyl/internal/platform/errors"
	phttp "sibyl/internal/platform/net/http"
	analyticsdom "sibyl/internal/services/analytics/domain"
	dom "sibyl/internal/services/pipeline/domain"
)

type fakeSearch struct {
	mu   sync.Mutex
	last dom.Request
	res  *dom.Result
	err  error
}

func (f *fakeSearch) Search(_ context.Context, req dom.Request, _ dom.EventSink) (*dom.Result, error) {
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := *f.res
	return &out, nil
}

func (f *fakeSearch) captured() dom.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeReader struct {
	q     string
	limit int
	out   []analyticsdom.Suggestion
	err   error
}

func (f *fakeReader) Popular(context.Context, int, time.Duration) ([]analyticsdom.PopularQuery, error) {
	return nil, nil
}

func (f *fakeReader) Failures(context.Context, float64, int) ([]analyticsdom.FailurePattern, error) {
	return nil, nil
}

func (f *fakeReader) Stats(context.Context, time.Duration) (analyticsdom.Stats, error) {
	return analyticsdom.Stats{}, nil
}

func (f *fakeReader) Suggest(_ context.Context, q string, limit int) ([]analyticsdom.Suggestion, error) {
	f.q, f.limit = q, limit
	return f.out, f.err
}

func cannedResult() *dom.Result {
	return &dom.Result{
		RequestID: "req-1",
		Execution: dom.Execution{
			SQLQuery:         "SELECT id, name FROM customers LIMIT 100",
			Parameters:       map[string]any{},
			StrategyUsed:     "llm_first",
			GenerationSource: "llm",
		},
		Data:      []map[string]any{{"id": float64(1), "name": "김철수"}},
		TotalRows: 1,
		Success:   true,
		Timestamp: time.Now().UTC(),
	}
}

func newTestRouter(search dom.SearchPort, reader analyticsdom.ReaderPort) phttp.Router {
	r := phttp.AdaptChi(chi.NewRouter())
	Register(r, search, reader, dom.StrategyLLMFirst)
	return r
}

func do(r phttp.Router, method, target, body string) *httptest.ResponseRecorder {
	var req *stdhttp.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.Mux().ServeHTTP(rr, req)
	return rr
}

func TestNaturalLanguage_SuccessIsRawResult(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{res: cannedResult()}
	r := newTestRouter(search, &fakeReader{})

	rr := do(r, stdhttp.MethodPost, "/natural-language", `{"query":"김철수 고객의 메모를 보여줘","user_id":42}`)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("code=%d body=%q", rr.Code, rr.Body.String())
	}

	// the success body is the pipeline result, not the envelope
	if strings.Contains(rr.Body.String(), `"status_code"`) {
		t.Fatalf("success body must not be enveloped: %q", rr.Body.String())
	}

	var res dom.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !res.Success || res.TotalRows != 1 || res.RequestID != "req-1" {
		t.Fatalf("unexpected result %+v", res)
	}

	got := search.captured()
	if got.Query != "김철수 고객의 메모를 보여줘" {
		t.Fatalf("query = %q", got.Query)
	}
	if got.Strategy != dom.StrategyLLMFirst {
		t.Fatalf("default strategy = %q", got.Strategy)
	}
	if !got.UseCache {
		t.Fatal("cache should default on")
	}
	if got.UserID != 42 {
		t.Fatalf("user id = %d", got.UserID)
	}
}

func TestNaturalLanguage_OptionsFlowThrough(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{res: cannedResult()}
	r := newTestRouter(search, &fakeReader{})

	body := `{
		"query": "서울 고객",
		"context": {"team": "alpha"},
		"options": {
			"strategy": "rule_only",
			"timeout_seconds": 2.5,
			"use_cache": false,
			"enable_highlighting": true,
			"limit": 10
		}
	}`
	rr := do(r, stdhttp.MethodPost, "/natural-language", body)
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("code=%d body=%q", rr.Code, rr.Body.String())
	}

	got := search.captured()
	if got.Strategy != dom.StrategyRuleOnly {
		t.Fatalf("strategy = %q", got.Strategy)
	}
	if got.Timeout != 2500*time.Millisecond {
		t.Fatalf("timeout = %v", got.Timeout)
	}
	if got.UseCache {
		t.Fatal("use_cache=false should flow through")
	}
	if !got.Highlight {
		t.Fatal("enable_highlighting should flow through")
	}
	if got.Limit != 10 {
		t.Fatalf("limit = %d", got.Limit)
	}
	if got.Context["team"] != "alpha" {
		t.Fatalf("context = %v", got.Context)
	}
}

func TestNaturalLanguage_RejectsBadRequests(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"missing query", `{}`},
		{"not json", `this is not json`},
		{"unknown field", `{"query":"x","bogus":1}`},
		{"bad strategy", `{"query":"x","options":{"strategy":"psychic"}}`},
		{"limit too big", `{"query":"x","options":{"limit":1000}}`},
		{"empty body", ``},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			search := &fakeSearch{res: cannedResult()}
			r := newTestRouter(search, &fakeReader{})

			rr := do(r, stdhttp.MethodPost, "/natural-language", tc.body)
			if rr.Code != stdhttp.StatusBadRequest {
				t.Fatalf("code=%d body=%q", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), `"success":false`) {
				t.Fatalf("failure body missing success flag: %q", rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), `"kind":"validation"`) {
				t.Fatalf("failure body missing kind: %q", rr.Body.String())
			}
			if got := search.captured(); got.Query != "" {
				t.Fatal("pipeline must not run on a rejected request")
			}
		})
	}
}

func TestNaturalLanguage_FailureMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"security", perr.Securityf("sql rejected: unauthorized_table"), stdhttp.StatusBadRequest, "security"},
		{"timeout", perr.Timeoutf("search aborted by request deadline"), stdhttp.StatusGatewayTimeout, "timeout"},
		{"generation", perr.GenerationFailedf("rule: no template; llm: breaker open"), stdhttp.StatusServiceUnavailable, "generation_failed"},
		{"runtime", perr.Runtimef("row scan failed"), stdhttp.StatusInternalServerError, "runtime"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			search := &fakeSearch{err: tc.err}
			r := newTestRouter(search, &fakeReader{})

			rr := do(r, stdhttp.MethodPost, "/natural-language", `{"query":"hello"}`)
			if rr.Code != tc.wantCode {
				t.Fatalf("code=%d want %d body=%q", rr.Code, tc.wantCode, rr.Body.String())
			}

			var body struct {
				Success bool `json:"success"`
				Error   struct {
					Kind    string   `json:"kind"`
					Message string   `json:"message"`
					Reasons []string `json:"reasons"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Success {
				t.Fatal("failure body must carry success=false")
			}
			if body.Error.Kind != tc.wantKind {
				t.Fatalf("kind = %q want %q", body.Error.Kind, tc.wantKind)
			}

			if tc.wantKind == "generation_failed" {
				want := []string{"rule: no template", "llm: breaker open"}
				if len(body.Error.Reasons) != len(want) {
					t.Fatalf("reasons = %v", body.Error.Reasons)
				}
				for i, r := range want {
					if body.Error.Reasons[i] != r {
						t.Fatalf("reasons[%d] = %q want %q", i, body.Error.Reasons[i], r)
					}
				}
			} else if len(body.Error.Reasons) != 0 {
				t.Fatalf("unexpected reasons for %s: %v", tc.wantKind, body.Error.Reasons)
			}
		})
	}
}

func TestStrategies_ListsAllFive(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&fakeSearch{res: cannedResult()}, &fakeReader{})

	rr := do(r, stdhttp.MethodGet, "/strategies", "")
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("code=%d body=%q", rr.Code, rr.Body.String())
	}

	var env struct {
		StatusCode int `json:"status_code"`
		Data       struct {
			Default    string              `json:"default"`
			Strategies []dom.StrategyInfo `json:"strategies"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.StatusCode != stdhttp.StatusOK {
		t.Fatalf("envelope status = %d", env.StatusCode)
	}
	if env.Data.Default != "llm_first" {
		t.Fatalf("default = %q", env.Data.Default)
	}
	if len(env.Data.Strategies) != 5 {
		t.Fatalf("strategies = %d", len(env.Data.Strategies))
	}
}

func TestSuggestions_QueryAndLimit(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{out: []analyticsdom.Suggestion{{Query: "김철수 고객 메모", Count: 12}}}
	r := newTestRouter(&fakeSearch{res: cannedResult()}, reader)

	rr := do(r, stdhttp.MethodGet, "/suggestions?q=김&limit=2", "")
	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("code=%d body=%q", rr.Code, rr.Body.String())
	}
	if reader.q != "김" || reader.limit != 2 {
		t.Fatalf("reader got q=%q limit=%d", reader.q, reader.limit)
	}
	if !strings.Contains(rr.Body.String(), "김철수 고객 메모") {
		t.Fatalf("body missing suggestion: %q", rr.Body.String())
	}
}

func TestSuggestions_Validation(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{}
	r := newTestRouter(&fakeSearch{res: cannedResult()}, reader)

	if rr := do(r, stdhttp.MethodGet, "/suggestions", ""); rr.Code != stdhttp.StatusBadRequest {
		t.Fatalf("missing q: code=%d", rr.Code)
	}
	if rr := do(r, stdhttp.MethodGet, "/suggestions?q=a&limit=0", ""); rr.Code != stdhttp.StatusBadRequest {
		t.Fatalf("limit=0: code=%d", rr.Code)
	}
	if rr := do(r, stdhttp.MethodGet, "/suggestions?q=a&limit=999", ""); rr.Code != stdhttp.StatusOK {
		t.Fatalf("big limit: code=%d", rr.Code)
	} else if reader.limit != maxSuggestLimit {
		t.Fatalf("limit should clamp to %d, got %d", maxSuggestLimit, reader.limit)
	}
}
