// Package service implements the asynchronous search analytics recorder.
// Requests enqueue one record each; a background worker drains the queue,
// maintains in-memory aggregates, and periodically persists popularity
// rows to postgres and raw events to clickhouse when either is configured
package service

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"sibyl/internal/modkit"
	"sibyl/internal/platform/logger"
	"sibyl/internal/platform/store"
	dom "sibyl/internal/services/analytics/domain"
	arepo "sibyl/internal/services/analytics/repo"
)

// Config controls the recorder queue and flush cadence
type Config struct {
	QueueSize     int
	FlushInterval time.Duration
	Alpha         float64
}

// bucketDurCap bounds per-bucket response time history used for quantiles
const bucketDurCap = 64

// maxTrackedQueries bounds the per-query aggregate map
const maxTrackedQueries = 10000

type queryAgg struct {
	count     int64
	successes int64
	lastSeen  time.Time
	ewmaMS    float64
}

type failureBucket struct {
	query    string
	kind     string
	failures int64
	lastSeen time.Time
	durs     []float64
}

// sample is the compact per-record copy kept for windowed stats
type sample struct {
	ts       time.Time
	success  bool
	cacheHit bool
	strategy string
	source   string
	errKind  string
	respMS   float64
	genMS    float64
	execMS   float64
}

// Svc aggregates search records off the request path.
// Aggregate maps are guarded by mu: the worker writes, readers take RLock
type Svc struct {
	repo arepo.Repo
	ch   store.Clickhouse
	cfg  Config
	log  *logger.Logger
	now  func() time.Time

	queue   chan dom.Record
	dropped atomic.Int64

	mu      sync.RWMutex
	queries map[string]*queryAgg
	dirty   map[string]struct{}
	buckets map[string]*failureBucket
	pending [][]any

	history []sample
	next    int

	total      int64
	succeeded  int64
	cacheHits  int64
	byStrategy map[string]int64
	bySource   map[string]int64
	byError    map[string]int64
	respSum    float64
	genSum     float64
	execSum    float64
}

// New constructs the recorder service
func New(deps modkit.Deps, cfg Config) *Svc {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4096
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = 0.1
	}

	s := &Svc{
		ch:         deps.CH,
		cfg:        cfg,
		log:        logger.Named("analytics"),
		now:        time.Now,
		queue:      make(chan dom.Record, cfg.QueueSize),
		queries:    map[string]*queryAgg{},
		dirty:      map[string]struct{}{},
		buckets:    map[string]*failureBucket{},
		history:    make([]sample, 0, cfg.QueueSize),
		byStrategy: map[string]int64{},
		bySource:   map[string]int64{},
		byError:    map[string]int64{},
	}
	if deps.PG != nil {
		s.repo = arepo.NewPG().Bind(deps.PG)
	}
	return s
}

// Record implements dom.RecorderPort. It never blocks: a full queue
// sheds its oldest record and the drop counter is incremented
func (s *Svc) Record(rec dom.Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	for {
		select {
		case s.queue <- rec:
			return
		default:
		}
		select {
		case <-s.queue:
			s.dropped.Add(1)
		default:
		}
	}
}

// apply folds one record into the aggregates
func (s *Svc) apply(rec dom.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.push(sample{
		ts:       rec.Timestamp,
		success:  rec.Success,
		cacheHit: rec.CacheHit,
		strategy: rec.Strategy,
		source:   rec.Source,
		errKind:  rec.ErrorKind,
		respMS:   rec.ResponseTimeMS,
		genMS:    rec.SQLGenMS,
		execMS:   rec.SQLExecMS,
	})

	s.total++
	if rec.Success {
		s.succeeded++
	}
	if rec.CacheHit {
		s.cacheHits++
	}
	if rec.Strategy != "" {
		s.byStrategy[rec.Strategy]++
	}
	if rec.Source != "" {
		s.bySource[rec.Source]++
	}
	if rec.ErrorKind != "" {
		s.byError[rec.ErrorKind]++
	}
	s.respSum += rec.ResponseTimeMS
	s.genSum += rec.SQLGenMS
	s.execSum += rec.SQLExecMS

	if rec.Query != "" {
		a := s.queries[rec.Query]
		if a == nil {
			a = &queryAgg{}
			s.queries[rec.Query] = a
		}
		a.count++
		if rec.Success {
			a.successes++
		}
		if rec.Timestamp.After(a.lastSeen) {
			a.lastSeen = rec.Timestamp
		}
		if a.count == 1 {
			a.ewmaMS = rec.ResponseTimeMS
		} else {
			a.ewmaMS = s.cfg.Alpha*rec.ResponseTimeMS + (1-s.cfg.Alpha)*a.ewmaMS
		}
		s.dirty[rec.Query] = struct{}{}

		if !rec.Success && rec.ErrorKind != "" {
			key := queryHash(rec.Query) + ":" + rec.ErrorKind
			b := s.buckets[key]
			if b == nil {
				b = &failureBucket{query: rec.Query, kind: rec.ErrorKind}
				s.buckets[key] = b
			}
			b.failures++
			if rec.Timestamp.After(b.lastSeen) {
				b.lastSeen = rec.Timestamp
			}
			if len(b.durs) >= bucketDurCap {
				copy(b.durs, b.durs[1:])
				b.durs = b.durs[:bucketDurCap-1]
			}
			b.durs = append(b.durs, rec.ResponseTimeMS)
		}
	}

	if s.ch != nil {
		s.pending = append(s.pending, chRow(rec))
	}
}

// push appends to the sample ring, overwriting the oldest entry when full
func (s *Svc) push(x sample) {
	if len(s.history) < cap(s.history) {
		s.history = append(s.history, x)
		return
	}
	s.history[s.next] = x
	s.next = (s.next + 1) % len(s.history)
}

// chRow shapes one record for the search_events archive
func chRow(rec dom.Record) []any {
	return []any{
		rec.Timestamp,
		rec.UserID,
		rec.Query,
		rec.Strategy,
		rec.Source,
		boolU8(rec.Success),
		boolU8(rec.CacheHit),
		int64(rec.ResultCount),
		rec.ResponseTimeMS,
		rec.SQLGenMS,
		rec.SQLExecMS,
		rec.ErrorKind,
	}
}

func boolU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// queryHash is the short bucket key for a normalized query
func queryHash(q string) string {
	sum := sha256.Sum256([]byte(q))
	return hex.EncodeToString(sum[:8])
}
