package domain

import (
	"context"
	"time"
)

// RecorderPort accepts finished-request records.
// Record never blocks the caller: when the queue is full the oldest
// queued record is dropped and a drop counter incremented
type RecorderPort interface {
	Record(rec Record)
}

// ReaderPort serves aggregates built by the background worker
type ReaderPort interface {
	Popular(ctx context.Context, limit int, window time.Duration) ([]PopularQuery, error)
	Failures(ctx context.Context, minRate float64, limit int) ([]FailurePattern, error)
	Stats(ctx context.Context, window time.Duration) (Stats, error)
	Suggest(ctx context.Context, q string, limit int) ([]Suggestion, error)
}

// WorkerPort drains the queue and flushes aggregates until ctx ends
type WorkerPort interface {
	Run(ctx context.Context) error
}
