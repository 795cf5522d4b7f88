package domain

import "context"

// CachePort is the read-through surface the pipeline depends on.
// GetOrCompute returns the cached payload for key, or runs compute exactly
// once per key across concurrent callers and serves everyone its result.
// hit is false only for the caller whose compute actually ran. Store
// failures degrade to compute; they never fail the request
type CachePort interface {
	GetOrCompute(ctx context.Context, key, normalizedQuery string, compute func(context.Context) ([]byte, error)) (payload []byte, hit bool, err error)
}

// AdminPort manages cache content out of band
type AdminPort interface {
	Invalidate(ctx context.Context, pattern string) (int64, error)
	Cleanup(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (Stats, error)
}

// WorkerPort runs the expiry sweeper until ctx ends
type WorkerPort interface {
	Run(ctx context.Context) error
}
