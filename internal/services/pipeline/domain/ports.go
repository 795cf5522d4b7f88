package domain

import "context"

// SearchPort runs one search request end to end. Events go to sink in
// emit order; pass NopSink when no stream is attached. The returned
// Result is nil exactly when err is non-nil
type SearchPort interface {
	Search(ctx context.Context, req Request, sink EventSink) (*Result, error)
}
