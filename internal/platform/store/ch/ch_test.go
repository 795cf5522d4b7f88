package ch

import (
	"context"
	"testing"
)

// TestOpen_BadDSN rejects DSNs the driver cannot parse
func TestOpen_BadDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{URL: "not a dsn"}); err == nil {
		t.Fatalf("Open expected error for bad dsn")
	}
}

// TestOpen_LazyDial parses a valid DSN without dialing
func TestOpen_LazyDial(t *testing.T) {
	t.Parallel()

	cl, err := Open(context.Background(), Config{
		URL:  "clickhouse://default@localhost:9000/sibyl?dial_timeout=200ms",
		Role: "test",
	})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if cl == nil {
		t.Fatalf("Open returned nil client")
	}
	if err := cl.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

// TestNilGuards verifies unconnected clients fail loudly instead of panicking
func TestNilGuards(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for _, cl := range []*CH{nil, {}} {
		if err := cl.Insert(ctx, "t", [][]any{{1}}); err == nil {
			t.Fatalf("Insert expected error on unconnected client")
		}
		if _, err := cl.Query(ctx, "SELECT 1"); err == nil {
			t.Fatalf("Query expected error on unconnected client")
		}
		if err := cl.Ping(ctx); err == nil {
			t.Fatalf("Ping expected error on unconnected client")
		}
		if err := cl.Close(); err != nil {
			t.Fatalf("Close returned error: %v", err)
		}
	}
}

// TestInsert_EmptyBatchNoop skips the round trip entirely for zero rows
func TestInsert_EmptyBatchNoop(t *testing.T) {
	t.Parallel()

	cl := &CH{}
	if err := cl.Insert(context.Background(), "t", nil); err != nil {
		t.Fatalf("Insert of zero rows should be a noop, got: %v", err)
	}
}

// TestBuildClientInfo carries the product, role and a non empty tag
func TestBuildClientInfo(t *testing.T) {
	t.Parallel()

	ci := BuildClientInfo("api", "")
	if len(ci.Products) == 0 {
		t.Fatalf("expected products, got none")
	}
	if ci.Products[0].Name != "sibyl" {
		t.Fatalf("first product should be sibyl, got %q", ci.Products[0].Name)
	}
	if ci.Products[0].Version == "" {
		t.Fatalf("empty tag should default, got empty version")
	}
}
