package service

import (
	"context"
	"sort"
	"strings"
	"time"

	dom "sibyl/internal/services/analytics/domain"
)

// Popular implements dom.ReaderPort. A zero window means all time
func (s *Svc) Popular(ctx context.Context, limit int, window time.Duration) ([]dom.PopularQuery, error) {
	if limit <= 0 {
		limit = 10
	}
	var cutoff time.Time
	if window > 0 {
		cutoff = s.now().Add(-window)
	}

	s.mu.RLock()
	out := make([]dom.PopularQuery, 0, len(s.queries))
	for q, a := range s.queries {
		if !cutoff.IsZero() && a.lastSeen.Before(cutoff) {
			continue
		}
		out = append(out, dom.PopularQuery{
			Query:           q,
			Count:           a.count,
			LastSeen:        a.lastSeen,
			AvgResponseTime: a.ewmaMS / 1000,
			SuccessRate:     rate(a.successes, a.count),
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Failures implements dom.ReaderPort. Buckets surface once a query has
// at least three attempts and its failure rate for that error kind
// reaches minRate
func (s *Svc) Failures(ctx context.Context, minRate float64, limit int) ([]dom.FailurePattern, error) {
	if minRate <= 0 {
		minRate = 0.7
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	out := make([]dom.FailurePattern, 0, len(s.buckets))
	for _, b := range s.buckets {
		a := s.queries[b.query]
		if a == nil || a.count < 3 {
			continue
		}
		fr := rate(b.failures, a.count)
		if fr < minRate {
			continue
		}
		durs := append([]float64(nil), b.durs...)
		sort.Float64s(durs)
		out = append(out, dom.FailurePattern{
			QueryHash:   queryHash(b.query),
			Query:       b.query,
			ErrorKind:   b.kind,
			Attempts:    a.count,
			Failures:    b.failures,
			FailureRate: fr,
			P50MS:       percentile(durs, 0.5),
			P95MS:       percentile(durs, 0.95),
			LastSeen:    b.lastSeen,
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FailureRate != out[j].FailureRate {
			return out[i].FailureRate > out[j].FailureRate
		}
		return out[i].Attempts > out[j].Attempts
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats implements dom.ReaderPort. A zero window reports lifetime totals;
// percentiles always come from the bounded sample ring
func (s *Svc) Stats(ctx context.Context, window time.Duration) (dom.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := dom.Stats{
		WindowSeconds:  window.Seconds(),
		ByStrategy:     map[string]int64{},
		BySource:       map[string]int64{},
		ByError:        map[string]int64{},
		DroppedRecords: s.dropped.Load(),
	}

	if window <= 0 {
		st.Total = s.total
		st.Succeeded = s.succeeded
		st.Failed = s.total - s.succeeded
		st.CacheHits = s.cacheHits
		for k, v := range s.byStrategy {
			st.ByStrategy[k] = v
		}
		for k, v := range s.bySource {
			st.BySource[k] = v
		}
		for k, v := range s.byError {
			st.ByError[k] = v
		}
		if s.total > 0 {
			st.SuccessRate = rate(s.succeeded, s.total)
			st.CacheHitRate = rate(s.cacheHits, s.total)
			st.AvgResponseMS = s.respSum / float64(s.total)
			st.AvgSQLGenMS = s.genSum / float64(s.total)
			st.AvgSQLExecMS = s.execSum / float64(s.total)
		}
		durs := make([]float64, 0, len(s.history))
		for i := range s.history {
			durs = append(durs, s.history[i].respMS)
		}
		sort.Float64s(durs)
		st.P50ResponseMS = percentile(durs, 0.5)
		st.P95ResponseMS = percentile(durs, 0.95)
		return st, nil
	}

	cutoff := s.now().Add(-window)
	var respSum, genSum, execSum float64
	durs := make([]float64, 0, len(s.history))
	for i := range s.history {
		x := &s.history[i]
		if x.ts.Before(cutoff) {
			continue
		}
		st.Total++
		if x.success {
			st.Succeeded++
		}
		if x.cacheHit {
			st.CacheHits++
		}
		if x.strategy != "" {
			st.ByStrategy[x.strategy]++
		}
		if x.source != "" {
			st.BySource[x.source]++
		}
		if x.errKind != "" {
			st.ByError[x.errKind]++
		}
		respSum += x.respMS
		genSum += x.genMS
		execSum += x.execMS
		durs = append(durs, x.respMS)
	}
	st.Failed = st.Total - st.Succeeded
	if st.Total > 0 {
		st.SuccessRate = rate(st.Succeeded, st.Total)
		st.CacheHitRate = rate(st.CacheHits, st.Total)
		st.AvgResponseMS = respSum / float64(st.Total)
		st.AvgSQLGenMS = genSum / float64(st.Total)
		st.AvgSQLExecMS = execSum / float64(st.Total)
	}
	sort.Float64s(durs)
	st.P50ResponseMS = percentile(durs, 0.5)
	st.P95ResponseMS = percentile(durs, 0.95)
	return st, nil
}

// Suggest implements dom.ReaderPort. Prefix matches rank before
// substring matches, then by popularity
func (s *Svc) Suggest(ctx context.Context, q string, limit int) ([]dom.Suggestion, error) {
	if limit <= 0 {
		limit = 5
	}
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return nil, nil
	}

	type scored struct {
		dom.Suggestion
		prefix bool
	}

	s.mu.RLock()
	cands := make([]scored, 0, 16)
	for query, a := range s.queries {
		lq := strings.ToLower(query)
		switch {
		case strings.HasPrefix(lq, needle):
			cands = append(cands, scored{dom.Suggestion{Query: query, Count: a.count}, true})
		case strings.Contains(lq, needle):
			cands = append(cands, scored{dom.Suggestion{Query: query, Count: a.count}, false})
		}
	}
	s.mu.RUnlock()

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].prefix != cands[j].prefix {
			return cands[i].prefix
		}
		if cands[i].Count != cands[j].Count {
			return cands[i].Count > cands[j].Count
		}
		return cands[i].Query < cands[j].Query
	})

	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]dom.Suggestion, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Suggestion)
	}
	return out, nil
}

func rate(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

// percentile interpolates between closest ranks of a sorted slice
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	i := int(pos)
	f := pos - float64(i)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + f*(sorted[i+1]-sorted[i])
}
