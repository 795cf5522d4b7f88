// Package service implements the search result cache.
// Reads are single-flight: concurrent misses on one key run compute once
// and share the result. Store failures degrade to a miss or a dropped
// write; the cache never fails a search
package service

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"sibyl/internal/modkit"
	"sibyl/internal/modkit/repokit"
	perr "sibyl/internal/platform/errors"
	"sibyl/internal/platform/logger"
	dom "sibyl/internal/services/searchcache/domain"
	screpo "sibyl/internal/services/searchcache/repo"
)

// Config controls entry lifetime and sweeping
type Config struct {
	TTL           time.Duration
	MaxEntries    int
	SweepInterval time.Duration
}

// Svc implements the cache ports. A nil PG seam degrades lookups to
// misses and admin operations to unavailable
type Svc struct {
	db     repokit.TxRunner
	repo   screpo.Repo
	binder repokit.Binder[screpo.Repo]
	cfg    Config
	log    *logger.Logger
	group  singleflight.Group
	now    func() time.Time

	lookups atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
}

// New constructs the cache service
func New(deps modkit.Deps, cfg Config) *Svc {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	s := &Svc{
		binder: screpo.NewPG(),
		cfg:    cfg,
		log:    logger.Named("searchcache"),
		now:    time.Now,
	}
	if deps.PG != nil {
		s.repo = s.binder.Bind(deps.PG)
		// sweep txs shed row locks quickly instead of stalling lookups
		s.db = repokit.WithBeginHooks(deps.PG, func(ctx context.Context, q repokit.Queryer) error {
			_, err := q.Exec(ctx, "SET LOCAL lock_timeout = '2s'")
			return err
		})
	}
	return s
}

// GetOrCompute implements dom.CachePort
func (s *Svc) GetOrCompute(ctx context.Context, key, normalizedQuery string, compute func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	s.lookups.Add(1)

	if payload, ok := s.lookup(ctx, key); ok {
		s.hits.Add(1)
		return payload, true, nil
	}
	s.misses.Add(1)

	ran := false
	ch := s.group.DoChan(key, func() (any, error) {
		ran = true
		payload, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, normalizedQuery, payload)
		return payload, nil
	})

	select {
	case <-ctx.Done():
		// the in-flight compute keeps running for other waiters
		if ctx.Err() == context.Canceled {
			return nil, false, perr.Canceledf("request canceled while waiting for result")
		}
		return nil, false, perr.Timeoutf("request deadline expired while waiting for result")
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]byte), !ran, nil
	}
}

// lookup reads one live entry; any store error is logged and served as a miss
func (s *Svc) lookup(ctx context.Context, key string) ([]byte, bool) {
	if s.repo == nil {
		return nil, false
	}
	e, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache get failed, serving miss")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return e.Payload, true
}

// store upserts asynchronously. Writes are skipped once the request is
// canceled and failures only log
func (s *Svc) store(ctx context.Context, key, normalizedQuery string, payload []byte) {
	if s.repo == nil || ctx.Err() != nil {
		return
	}

	expires := s.now().Add(s.cfg.TTL)
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	go func() {
		defer cancel()
		err := s.repo.Upsert(pctx, dom.Entry{
			Key:             key,
			NormalizedQuery: normalizedQuery,
			Payload:         payload,
			ExpiresAt:       expires,
		})
		if err != nil {
			s.log.Warn().Err(err).Msg("cache store failed")
		}
	}()
}

// Invalidate implements dom.AdminPort
func (s *Svc) Invalidate(ctx context.Context, pattern string) (int64, error) {
	if s.repo == nil {
		return 0, perr.Unavailablef("cache store disabled")
	}
	n, err := s.repo.Invalidate(ctx, pattern)
	if err != nil {
		return 0, perr.FromPostgresf(err, "invalidate cache")
	}
	s.log.Info().Str("pattern", pattern).Int64("removed", n).Msg("cache invalidated")
	return n, nil
}

// Cleanup implements dom.AdminPort
func (s *Svc) Cleanup(ctx context.Context) (int64, error) {
	if s.repo == nil {
		return 0, perr.Unavailablef("cache store disabled")
	}
	n, err := s.repo.Cleanup(ctx)
	if err != nil {
		return 0, perr.FromPostgresf(err, "cleanup cache")
	}
	return n, nil
}

// Stats implements dom.AdminPort. Runtime counters survive a degraded store
func (s *Svc) Stats(ctx context.Context) (dom.Stats, error) {
	st := dom.Stats{
		Lookups:    s.lookups.Load(),
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		TTLSeconds: s.cfg.TTL.Seconds(),
		MaxEntries: s.cfg.MaxEntries,
	}
	if st.Lookups > 0 {
		st.HitRate = float64(st.Hits) / float64(st.Lookups)
	}

	if s.repo == nil {
		return st, nil
	}
	entries, expired, totalHits, err := s.repo.Counts(ctx)
	if err != nil {
		return st, perr.FromPostgresf(err, "cache counts")
	}
	st.Entries, st.Expired, st.TotalHits = entries, expired, totalHits
	return st, nil
}
