package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"sibyl/internal/modkit"
	"sibyl/internal/platform/store"
	dom "sibyl/internal/services/analytics/domain"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func newAnalytics(cfg Config) *Svc {
	s := New(modkit.Deps{}, cfg)
	s.now = fixedNow
	return s
}

func rec(query string, success bool, respMS float64) dom.Record {
	r := dom.Record{
		Timestamp:      fixedNow(),
		Query:          query,
		Strategy:       "llm_first",
		Source:         "llm",
		Success:        success,
		ResponseTimeMS: respMS,
	}
	if !success {
		r.ErrorKind = "timeout"
	}
	return r
}

// TestRecord_DropsOldestOnOverflow sheds the head of a full queue
func TestRecord_DropsOldestOnOverflow(t *testing.T) {
	t.Parallel()

	s := newAnalytics(Config{QueueSize: 2})

	for i := range 4 {
		r := rec("q", true, float64(i))
		r.ResultCount = i
		s.Record(r)
	}

	if got := s.dropped.Load(); got != 2 {
		t.Fatalf("dropped = %d, want 2", got)
	}

	// the two newest records survive
	first := <-s.queue
	second := <-s.queue
	if first.ResultCount != 2 || second.ResultCount != 3 {
		t.Fatalf("queue kept %d and %d, want 2 and 3", first.ResultCount, second.ResultCount)
	}
}

// TestPopular orders by count and applies the EWMA response time
func TestPopular(t *testing.T) {
	t.Parallel()

	s := newAnalytics(Config{Alpha: 0.1})

	s.apply(rec("top query", true, 100))
	s.apply(rec("top query", true, 200))
	s.apply(rec("rare query", false, 50))

	out, err := s.Popular(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("Popular returned error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d queries, want 2", len(out))
	}
	if out[0].Query != "top query" || out[0].Count != 2 {
		t.Fatalf("top entry = %+v", out[0])
	}
	// ewma after 100 then 200 at alpha 0.1 is 110 ms, stored as seconds
	if got := out[0].AvgResponseTime; got < 0.1099 || got > 0.1101 {
		t.Fatalf("avg response time = %v, want 0.110", got)
	}
	if out[0].SuccessRate != 1 {
		t.Fatalf("success rate = %v", out[0].SuccessRate)
	}
	if out[1].Query != "rare query" || out[1].SuccessRate != 0 {
		t.Fatalf("second entry = %+v", out[1])
	}
}

// TestPopular_WindowExcludesStale drops queries not seen inside the window
func TestPopular_WindowExcludesStale(t *testing.T) {
	t.Parallel()

	s := newAnalytics(Config{})

	old := rec("stale", true, 10)
	old.Timestamp = fixedNow().Add(-2 * time.Hour)
	s.apply(old)
	s.apply(rec("fresh", true, 10))

	out, err := s.Popular(context.Background(), 10, time.Hour)
	if err != nil {
		t.Fatalf("Popular returned error: %v", err)
	}
	if len(out) != 1 || out[0].Query != "fresh" {
		t.Fatalf("windowed popular = %+v", out)
	}
}

// TestFailures surfaces buckets by attempt floor and failure rate
func TestFailures(t *testing.T) {
	t.Parallel()

	s := newAnalytics(Config{})

	// 2 of 3 attempts fail: rate 0.667
	s.apply(rec("flaky", false, 900))
	s.apply(rec("flaky", false, 1100))
	s.apply(rec("flaky", true, 100))
	// 3 of 3 fail: rate 1.0
	s.apply(rec("broken", false, 500))
	s.apply(rec("broken", false, 500))
	s.apply(rec("broken", false, 500))
	// only 2 attempts: under the floor
	s.apply(rec("young", false, 500))
	s.apply(rec("young", false, 500))

	out, err := s.Failures(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("Failures returned error: %v", err)
	}
	if len(out) != 1 || out[0].Query != "broken" {
		t.Fatalf("default min rate should keep only broken: %+v", out)
	}
	if out[0].FailureRate != 1 || out[0].Attempts != 3 || out[0].Failures != 3 {
		t.Fatalf("broken bucket = %+v", out[0])
	}
	if out[0].QueryHash == "" || len(out[0].QueryHash) != 16 {
		t.Fatalf("query hash = %q", out[0].QueryHash)
	}

	out, err = s.Failures(context.Background(), 0.5, 10)
	if err != nil {
		t.Fatalf("Failures returned error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("lower min rate should keep two buckets: %+v", out)
	}
	if out[0].Query != "broken" || out[1].Query != "flaky" {
		t.Fatalf("order = %q then %q", out[0].Query, out[1].Query)
	}
	if out[1].P50MS != 1000 {
		t.Fatalf("flaky p50 = %v, want 1000", out[1].P50MS)
	}
}

// TestStats_Lifetime aggregates totals, rates, and percentiles
func TestStats_Lifetime(t *testing.T) {
	t.Parallel()

	s := newAnalytics(Config{})

	hit := rec("q1", true, 100)
	hit.CacheHit = true
	s.apply(hit)
	s.apply(rec("q2", true, 200))
	s.apply(rec("q3", false, 300))
	s.apply(rec("q4", true, 400))

	st, err := s.Stats(context.Background(), 0)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if st.Total != 4 || st.Succeeded != 3 || st.Failed != 1 {
		t.Fatalf("totals = %+v", st)
	}
	if st.SuccessRate != 0.75 || st.CacheHits != 1 || st.CacheHitRate != 0.25 {
		t.Fatalf("rates = %+v", st)
	}
	if st.AvgResponseMS != 250 {
		t.Fatalf("avg response = %v, want 250", st.AvgResponseMS)
	}
	if st.P50ResponseMS != 250 {
		t.Fatalf("p50 = %v, want 250", st.P50ResponseMS)
	}
	if st.ByStrategy["llm_first"] != 4 || st.ByError["timeout"] != 1 {
		t.Fatalf("breakdowns = %+v", st)
	}
}

// TestStats_Window excludes samples older than the window
func TestStats_Window(t *testing.T) {
	t.Parallel()

	s := newAnalytics(Config{})

	old := rec("q", true, 1000)
	old.Timestamp = fixedNow().Add(-2 * time.Hour)
	s.apply(old)
	s.apply(rec("q", false, 100))

	st, err := s.Stats(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if st.Total != 1 || st.Succeeded != 0 {
		t.Fatalf("windowed totals = %+v", st)
	}
	if st.AvgResponseMS != 100 {
		t.Fatalf("windowed avg = %v", st.AvgResponseMS)
	}
	if st.WindowSeconds != 3600 {
		t.Fatalf("window seconds = %v", st.WindowSeconds)
	}
}

// TestSuggest ranks prefix matches before substring matches
func TestSuggest(t *testing.T) {
	t.Parallel()

	s := newAnalytics(Config{})

	for range 3 {
		s.apply(rec("고객 목록 보여줘", true, 10))
	}
	s.apply(rec("최근 고객 목록", true, 10))
	s.apply(rec("전혀 다른 검색", true, 10))

	out, err := s.Suggest(context.Background(), "고객", 5)
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d suggestions, want 2: %+v", len(out), out)
	}
	if out[0].Query != "고객 목록 보여줘" || out[0].Count != 3 {
		t.Fatalf("first suggestion = %+v", out[0])
	}
	if out[1].Query != "최근 고객 목록" {
		t.Fatalf("second suggestion = %+v", out[1])
	}

	none, err := s.Suggest(context.Background(), "   ", 5)
	if err != nil || none != nil {
		t.Fatalf("blank needle should return nothing, got %+v %v", none, err)
	}
}

type fakeAnalyticsRepo struct {
	mu       sync.Mutex
	upserted [][]dom.PopularQuery
	upsertCh chan []dom.PopularQuery
	seedRows []dom.PopularQuery
	listErr  error
}

func (f *fakeAnalyticsRepo) UpsertPopular(ctx context.Context, rows []dom.PopularQuery) error {
	f.mu.Lock()
	f.upserted = append(f.upserted, rows)
	f.mu.Unlock()
	if f.upsertCh != nil {
		f.upsertCh <- rows
	}
	return nil
}

func (f *fakeAnalyticsRepo) ListPopular(ctx context.Context, limit int) ([]dom.PopularQuery, error) {
	return f.seedRows, f.listErr
}

type fakeCH struct {
	mu     sync.Mutex
	tables []string
	rows   int
}

func (f *fakeCH) Insert(ctx context.Context, table string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables = append(f.tables, table)
	if b, ok := data.([][]any); ok {
		f.rows += len(b)
	}
	return nil
}

func (f *fakeCH) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return nil, nil
}

func (f *fakeCH) Close() error { return nil }

// TestRun_FlushesAggregatesAndArchive drives records through the worker
// into the popularity upsert and the event archive
func TestRun_FlushesAggregatesAndArchive(t *testing.T) {
	t.Parallel()

	repo := &fakeAnalyticsRepo{upsertCh: make(chan []dom.PopularQuery, 4)}
	ch := &fakeCH{}

	s := newAnalytics(Config{FlushInterval: 10 * time.Millisecond})
	s.repo = repo
	s.ch = ch

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	s.Record(rec("고객 목록", true, 120))
	s.Record(rec("고객 목록", true, 80))

	// a tick may land between the two records, so wait for the flush
	// that carries the final count
	deadline := time.After(2 * time.Second)
wait:
	for {
		select {
		case rows := <-repo.upsertCh:
			if len(rows) == 1 && rows[0].Query == "고객 목록" && rows[0].Count == 2 {
				break wait
			}
		case <-deadline:
			t.Fatalf("worker never flushed the full count")
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v", err)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.tables) == 0 || ch.tables[0] != "search_events" {
		t.Fatalf("archive tables = %v", ch.tables)
	}
	if ch.rows != 2 {
		t.Fatalf("archived %d events, want 2", ch.rows)
	}
}

// TestSeed warms aggregates from persisted rows
func TestSeed(t *testing.T) {
	t.Parallel()

	repo := &fakeAnalyticsRepo{seedRows: []dom.PopularQuery{
		{Query: "단골 검색", Count: 7, LastSeen: fixedNow(), AvgResponseTime: 0.2, SuccessRate: 1},
	}}

	s := newAnalytics(Config{})
	s.repo = repo
	s.seed(context.Background())

	out, err := s.Popular(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("Popular returned error: %v", err)
	}
	if len(out) != 1 || out[0].Query != "단골 검색" || out[0].Count != 7 {
		t.Fatalf("seeded popular = %+v", out)
	}
	if out[0].AvgResponseTime != 0.2 {
		t.Fatalf("seeded avg = %v", out[0].AvgResponseTime)
	}
}
