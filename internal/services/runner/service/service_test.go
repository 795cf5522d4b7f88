package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"sibyl/internal/modkit"
	perr "sibyl/internal/platform/errors"
	"sibyl/internal/platform/store"
)

type fakeRows struct {
	cols []string
	data [][]any
	i    int
	err  error
}

func (f *fakeRows) Next() bool {
	if f.i >= len(f.data) {
		return false
	}
	f.i++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.data[f.i-1]
	for j := range dest {
		if p, ok := dest[j].(*any); ok {
			*p = row[j]
		}
	}
	return nil
}

func (f *fakeRows) Err() error        { return f.err }
func (f *fakeRows) Close()            {}
func (f *fakeRows) Columns() []string { return f.cols }

type fakeDB struct {
	lastSQL  string
	lastArgs []any
	rows     *fakeRows
	err      error
	sleep    time.Duration
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	f.lastSQL = sql
	f.lastArgs = args
	if f.sleep > 0 {
		time.Sleep(f.sleep)
	}
	if f.err != nil {
		return nil, f.err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return f.rows, nil
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	return nil, errors.New("not used")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) store.Row { return nil }

func (f *fakeDB) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error { return fn(f) }

func newSvc(db *fakeDB, cfg Config) *Svc {
	return New(modkit.Deps{PG: db}, cfg)
}

// TestRun_RewritesPlaceholders binds %(name)s values positionally
func TestRun_RewritesPlaceholders(t *testing.T) {
	t.Parallel()

	db := &fakeDB{rows: &fakeRows{
		cols: []string{"id", "name"},
		data: [][]any{{int64(1), "홍길동"}},
	}}
	s := newSvc(db, Config{})

	res, err := s.Run(context.Background(),
		"SELECT * FROM customers WHERE name = %(customer_name)s AND region = %(location)s LIMIT 100",
		map[string]any{"customer_name": "홍길동", "location": "서울"},
	)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := "SELECT * FROM customers WHERE name = $1 AND region = $2 LIMIT 100"
	if db.lastSQL != want {
		t.Fatalf("sql = %q, want %q", db.lastSQL, want)
	}
	if len(db.lastArgs) != 2 || db.lastArgs[0] != "홍길동" || db.lastArgs[1] != "서울" {
		t.Fatalf("args = %v", db.lastArgs)
	}
	if len(res.Rows) != 1 || res.Rows[0]["name"] != "홍길동" {
		t.Fatalf("rows = %v", res.Rows)
	}
	if res.Truncated {
		t.Fatalf("unexpected truncation")
	}
}

// TestRun_MissingParam rejects placeholders without bound values
func TestRun_MissingParam(t *testing.T) {
	t.Parallel()

	s := newSvc(&fakeDB{}, Config{})
	_, err := s.Run(context.Background(),
		"SELECT * FROM customers WHERE name = %(customer_name)s",
		map[string]any{},
	)
	if err == nil {
		t.Fatalf("expected error for unbound placeholder")
	}
	if !perr.IsCode(err, perr.ErrorCodeRuntime) {
		t.Fatalf("expected runtime code, got %v", err)
	}
}

// TestRun_TruncatesAtCap drops rows past MaxRows and flags it
func TestRun_TruncatesAtCap(t *testing.T) {
	t.Parallel()

	db := &fakeDB{rows: &fakeRows{
		cols: []string{"n"},
		data: [][]any{{int64(1)}, {int64(2)}, {int64(3)}},
	}}
	s := newSvc(db, Config{MaxRows: 2})

	res, err := s.Run(context.Background(), "SELECT n FROM events", nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Rows))
	}
	if !res.Truncated {
		t.Fatalf("expected truncation flag")
	}
}

// TestRun_ZeroRowsIsSuccess returns an empty set without error
func TestRun_ZeroRowsIsSuccess(t *testing.T) {
	t.Parallel()

	db := &fakeDB{rows: &fakeRows{cols: []string{"n"}}}
	s := newSvc(db, Config{})

	res, err := s.Run(context.Background(), "SELECT n FROM events WHERE 1=0", nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Rows) != 0 || res.Truncated {
		t.Fatalf("unexpected result: %+v", res)
	}
}

// TestRun_DeadlineExhausted fails fast when no time remains
func TestRun_DeadlineExhausted(t *testing.T) {
	t.Parallel()

	s := newSvc(&fakeDB{}, Config{})
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := s.Run(ctx, "SELECT 1", nil)
	if err == nil {
		t.Fatalf("expected error for exhausted deadline")
	}
	if !perr.IsCode(err, perr.ErrorCodeTimeout) {
		t.Fatalf("expected timeout code, got %v", err)
	}
}

// TestRun_StatementBudgetMapsToRuntime separates the per-query budget
// from the request deadline
func TestRun_StatementBudgetMapsToRuntime(t *testing.T) {
	t.Parallel()

	db := &fakeDB{sleep: 30 * time.Millisecond}
	s := newSvc(db, Config{StatementTimeout: time.Millisecond})

	_, err := s.Run(context.Background(), "SELECT pg_something_slow()", nil)
	if err == nil {
		t.Fatalf("expected error for exceeded statement budget")
	}
	if !perr.IsCode(err, perr.ErrorCodeRuntime) {
		t.Fatalf("expected runtime code, got %v", err)
	}
}

// TestRun_CanceledParent maps client cancellation
func TestRun_CanceledParent(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	s := newSvc(db, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, "SELECT 1", nil)
	if err == nil {
		t.Fatalf("expected error for canceled context")
	}
	if !perr.IsCode(err, perr.ErrorCodeCanceled) {
		t.Fatalf("expected canceled code, got %v", err)
	}
}

// TestRun_BackendErrorMapsToDB classifies driver failures as runtime kind
func TestRun_BackendErrorMapsToDB(t *testing.T) {
	t.Parallel()

	db := &fakeDB{err: errors.New("connection refused")}
	s := newSvc(db, Config{})

	_, err := s.Run(context.Background(), "SELECT 1", nil)
	if err == nil {
		t.Fatalf("expected error from backend")
	}
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("expected db code, got %v", err)
	}
	if perr.Kind(err) != "runtime" {
		t.Fatalf("expected runtime kind, got %s", perr.Kind(err))
	}
}

// TestRun_NormalizesDriverValues flattens uuid and numeric values
func TestRun_NormalizesDriverValues(t *testing.T) {
	t.Parallel()

	id := [16]byte{0x9f, 0x3a, 0x11, 0x00, 0x00, 0x00, 0x40, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	num := pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}

	db := &fakeDB{rows: &fakeRows{
		cols: []string{"id", "premium"},
		data: [][]any{{id, num}},
	}}
	s := newSvc(db, Config{})

	res, err := s.Run(context.Background(), "SELECT id, premium FROM customer_products", nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	got := res.Rows[0]
	if _, ok := got["id"].(string); !ok {
		t.Fatalf("id should normalize to a string, got %T", got["id"])
	}
	f, ok := got["premium"].(float64)
	if !ok || f != 123.45 {
		t.Fatalf("premium = %v (%T), want 123.45", got["premium"], got["premium"])
	}
}
