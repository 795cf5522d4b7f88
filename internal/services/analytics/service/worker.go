package service

import (
	"context"
	"sort"
	"time"

	dom "sibyl/internal/services/analytics/domain"
)

// seedLimit caps how many persisted aggregates are loaded at startup
const seedLimit = maxTrackedQueries

// Run implements dom.WorkerPort. It drains the record queue, folds
// records into the aggregates, and flushes on a ticker. On shutdown the
// remaining queue is drained and flushed once more
func (s *Svc) Run(ctx context.Context) error {
	s.seed(ctx)

	flush := time.NewTicker(s.cfg.FlushInterval)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			s.drain()
			s.flush(ctx)
			return ctx.Err()
		case rec := <-s.queue:
			s.apply(rec)
		case <-flush.C:
			s.flush(ctx)
		}
	}
}

// seed warms the per-query aggregates from persisted popularity rows so
// suggestions and popular listings survive a restart
func (s *Svc) seed(ctx context.Context) {
	if s.repo == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.repo.ListPopular(sctx, seedLimit)
	if err != nil {
		s.log.Warn().Err(err).Msg("popular seed failed, starting cold")
		return
	}

	s.mu.Lock()
	for _, p := range rows {
		if _, ok := s.queries[p.Query]; ok {
			continue
		}
		s.queries[p.Query] = &queryAgg{
			count:     p.Count,
			successes: int64(p.SuccessRate * float64(p.Count)),
			lastSeen:  p.LastSeen,
			ewmaMS:    p.AvgResponseTime * 1000,
		}
	}
	s.mu.Unlock()

	if len(rows) > 0 {
		s.log.Info().Int("queries", len(rows)).Msg("popular aggregates seeded")
	}
}

// drain folds whatever is still queued without blocking
func (s *Svc) drain() {
	for {
		select {
		case rec := <-s.queue:
			s.apply(rec)
		default:
			return
		}
	}
}

// flush persists dirty popularity rows and the pending event archive.
// It survives a canceled parent so the shutdown flush still lands
func (s *Svc) flush(ctx context.Context) {
	rows, batch := s.collect()
	if len(rows) == 0 && len(batch) == 0 {
		return
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if s.repo != nil && len(rows) > 0 {
		if err := s.repo.UpsertPopular(fctx, rows); err != nil {
			s.log.Warn().Err(err).Int("rows", len(rows)).Msg("popular flush failed")
			s.remarkDirty(rows)
		}
	}
	if s.ch != nil && len(batch) > 0 {
		if err := s.ch.Insert(fctx, "search_events", batch); err != nil {
			s.log.Warn().Err(err).Int("events", len(batch)).Msg("event archive flush failed")
		}
	}
}

// collect snapshots dirty popularity rows and takes the pending archive
// batch, then trims the aggregate maps back under their bound
func (s *Svc) collect() ([]dom.PopularQuery, [][]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []dom.PopularQuery
	if s.repo != nil && len(s.dirty) > 0 {
		rows = make([]dom.PopularQuery, 0, len(s.dirty))
		for q := range s.dirty {
			a := s.queries[q]
			if a == nil {
				continue
			}
			rows = append(rows, dom.PopularQuery{
				Query:           q,
				Count:           a.count,
				LastSeen:        a.lastSeen,
				AvgResponseTime: a.ewmaMS / 1000,
				SuccessRate:     rate(a.successes, a.count),
			})
		}
		s.dirty = map[string]struct{}{}
	}

	batch := s.pending
	s.pending = nil

	s.trimLocked()
	return rows, batch
}

// remarkDirty requeues rows for the next flush after a failed upsert
func (s *Svc) remarkDirty(rows []dom.PopularQuery) {
	s.mu.Lock()
	for _, p := range rows {
		if _, ok := s.queries[p.Query]; ok {
			s.dirty[p.Query] = struct{}{}
		}
	}
	s.mu.Unlock()
}

// trimLocked evicts the least recently seen queries beyond the bound.
// Caller holds mu
func (s *Svc) trimLocked() {
	over := len(s.queries) - maxTrackedQueries
	if over <= 0 {
		return
	}

	type aged struct {
		query string
		seen  time.Time
	}
	all := make([]aged, 0, len(s.queries))
	for q, a := range s.queries {
		all = append(all, aged{q, a.lastSeen})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seen.Before(all[j].seen) })

	for _, x := range all[:over] {
		delete(s.queries, x.query)
		delete(s.dirty, x.query)
	}
	for key, b := range s.buckets {
		if _, ok := s.queries[b.query]; !ok {
			delete(s.buckets, key)
		}
	}
}
