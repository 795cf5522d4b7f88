// Package service implements the natural language search pipeline: cache
// lookup, intent classification, strategy-scheduled SQL generation,
// validation, read-only execution, and result formatting, with progress
// events emitted along the way
package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"sibyl/internal/core/highlight"
	"sibyl/internal/core/intent"
	"sibyl/internal/core/normalize"
	"sibyl/internal/core/promptpack"
	"sibyl/internal/core/sqlgen"
	"sibyl/internal/core/sqlguard"
	perr "sibyl/internal/platform/errors"
	"sibyl/internal/platform/logger"
	analyticsdom "sibyl/internal/services/analytics/domain"
	dom "sibyl/internal/services/pipeline/domain"
	runnerdom "sibyl/internal/services/runner/domain"
	cachedom "sibyl/internal/services/searchcache/domain"
)

// Config controls the pipeline controller
type Config struct {
	// DefaultStrategy applies when a request names none
	DefaultStrategy dom.Strategy
	// RequestTimeout is the system-wide deadline cap
	RequestTimeout time.Duration
	// Tables is the whitelist handed to the validator
	Tables []string
	// MaxRows caps result size and the enforced LIMIT
	MaxRows int
	// Retry shapes the LLM branch retry executor
	Retry RetryPolicy
}

func (c Config) withDefaults() Config {
	if c.DefaultStrategy == "" {
		c.DefaultStrategy = dom.StrategyLLMFirst
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.MaxRows <= 0 {
		c.MaxRows = 100
	}
	return c
}

// Svc implements dom.SearchPort. A nil cache skips caching, a nil
// recorder skips analytics, and a nil chat port degrades LLM strategies
// to their rule branches
type Svc struct {
	cfg      Config
	intents  *intent.Classifier
	norm     *normalize.Normalizer
	sched    *scheduler
	guard    *sqlguard.Validator
	exec     runnerdom.ExecPort
	cache    cachedom.CachePort
	recorder analyticsdom.RecorderPort
	log      *logger.Logger

	now   func() time.Time
	newID func() string
}

// New constructs the pipeline controller
func New(cfg Config, chat ChatPort, exec runnerdom.ExecPort, cache cachedom.CachePort, rec analyticsdom.RecorderPort) *Svc {
	if exec == nil {
		panic("pipeline requires the runner exec port")
	}
	cfg = cfg.withDefaults()

	var gen *llmGenerator
	if chat != nil {
		gen = newLLMGenerator(chat, promptpack.MustLoad())
	}

	return &Svc{
		cfg:      cfg,
		intents:  intent.New(intent.MustLoad()),
		norm:     normalize.New(),
		sched:    newScheduler(sqlgen.New(), gen, newRetryer(cfg.Retry)),
		guard:    sqlguard.New(sqlguard.Config{Tables: cfg.Tables, MaxRows: cfg.MaxRows}),
		exec:     exec,
		cache:    cache,
		recorder: rec,
		log:      logger.Named("pipeline"),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// timings carries per-stage durations into the analytics record
type timings struct {
	genMS  float64
	execMS float64
}

// Search implements dom.SearchPort. Exactly one terminal event reaches
// sink: pipeline_complete on success, error otherwise
func (s *Svc) Search(ctx context.Context, req dom.Request, sink dom.EventSink) (*dom.Result, error) {
	if sink == nil {
		sink = dom.NopSink{}
	}
	start := s.now()

	if req.RequestID == "" {
		req.RequestID = s.newID()
	}
	// downstream query logs pick the id up from ctx
	ctx = logger.WithRequest(ctx, req.RequestID, "")
	if req.Strategy == "" {
		req.Strategy = s.cfg.DefaultStrategy
	}
	if req.Limit <= 0 || req.Limit > s.cfg.MaxRows {
		req.Limit = s.cfg.MaxRows
	}

	query := s.norm.Normalize(req.Query)
	if query == "" {
		err := perr.Validationf("query must not be empty")
		s.finishErr(req, query, start, timings{}, sink, err)
		return nil, err
	}

	s.emit(sink, req.RequestID, dom.Event{Type: dom.EventSearchStarted})

	budget := s.cfg.RequestTimeout
	if req.Timeout > 0 && req.Timeout < budget {
		budget = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	res, t, err := s.run(ctx, req, query, sink)
	if err != nil {
		s.finishErr(req, query, start, t, sink, err)
		return nil, err
	}

	s.record(req, query, start, t, res, nil)
	s.emit(sink, req.RequestID, dom.Event{Type: dom.EventPipelineComplete, Result: res})

	s.log.Info().
		Str("request_id", req.RequestID).
		Str("strategy", string(req.Strategy)).
		Str("source", res.Execution.GenerationSource).
		Bool("cache_hit", res.CacheHit).
		Int("rows", res.TotalRows).
		Dur("elapsed", s.now().Sub(start)).
		Msg("search complete")
	return res, nil
}

// finishErr records the failure and emits the terminal error event
func (s *Svc) finishErr(req dom.Request, query string, start time.Time, t timings, sink dom.EventSink, err error) {
	s.record(req, query, start, t, nil, err)
	s.emit(sink, req.RequestID, dom.Event{
		Type:      dom.EventError,
		ErrorKind: perr.Kind(err),
		Message:   err.Error(),
	})
	s.log.Warn().
		Str("request_id", req.RequestID).
		Str("kind", perr.Kind(err)).
		Err(err).
		Msg("search failed")
}

// run goes through the cache when enabled, otherwise straight to compute
func (s *Svc) run(ctx context.Context, req dom.Request, query string, sink dom.EventSink) (*dom.Result, timings, error) {
	if !req.UseCache || s.cache == nil {
		return s.compute(ctx, req, query, sink)
	}

	key := cacheKey(query, req.Context, req.Strategy, req.Limit, req.Highlight)

	var (
		leaderRes *dom.Result
		leaderT   timings
	)
	payload, hit, err := s.cache.GetOrCompute(ctx, key, query, func(cctx context.Context) ([]byte, error) {
		r, t, cerr := s.compute(cctx, req, query, sink)
		if cerr != nil {
			return nil, cerr
		}
		leaderRes, leaderT = r, t
		return json.Marshal(r)
	})
	if err != nil {
		if leaderRes != nil {
			s.log.Warn().Str("key", key).Err(err).Msg("cache store failed, serving computed result")
			return leaderRes, leaderT, nil
		}
		return nil, leaderT, err
	}
	if !hit {
		return leaderRes, leaderT, nil
	}

	var res dom.Result
	if uerr := json.Unmarshal(payload, &res); uerr != nil {
		s.log.Warn().Str("key", key).Err(uerr).Msg("cached payload unreadable, recomputing")
		return s.compute(ctx, req, query, sink)
	}
	res.RequestID = req.RequestID
	res.CacheHit = true
	res.Timestamp = s.now()

	s.emit(sink, req.RequestID, dom.Event{Type: dom.EventCacheHit})
	return &res, timings{}, nil
}

// compute is the uncached pipeline: classify, generate, validate,
// execute, format. Failed stages emit no stage_end; the terminal error
// event comes from Search
func (s *Svc) compute(ctx context.Context, req dom.Request, query string, sink dom.EventSink) (*dom.Result, timings, error) {
	var t timings

	end := s.stage(sink, req.RequestID, dom.StageIntent)
	in := s.intents.Classify(query)
	end()

	onToken := func(tok string) {
		s.emit(sink, req.RequestID, dom.Event{Type: dom.EventToken, Stage: dom.StageSQLGen, Content: tok})
	}
	end = s.stage(sink, req.RequestID, dom.StageSQLGen)
	art, err := s.sched.Generate(ctx, req.Strategy, query, in, onToken)
	if err != nil {
		return nil, t, err
	}
	t.genMS = end()

	end = s.stage(sink, req.RequestID, dom.StageValidate)
	verdict := s.guard.Validate(art.SQL)
	if !verdict.Accepted {
		// reasons only, never the offending SQL
		return nil, t, perr.Securityf("sql rejected: %s", strings.Join(verdict.Reasons, ", "))
	}
	end()

	end = s.stage(sink, req.RequestID, dom.StageExecute)
	run, err := s.exec.Run(ctx, verdict.NormalizedSQL, art.Parameters)
	if err != nil {
		return nil, t, err
	}
	t.execMS = end()

	end = s.stage(sink, req.RequestID, dom.StageFormat)
	rows := run.Rows
	if req.Highlight {
		rows = highlight.Rows(rows, query, highlight.Options{})
	}
	total := len(rows)
	rows, page := highlight.Paginate(rows, 0, req.Limit, total)
	end()

	res := &dom.Result{
		RequestID: req.RequestID,
		Intent:    in,
		Execution: dom.Execution{
			SQLQuery:         verdict.NormalizedSQL,
			Parameters:       art.Parameters,
			ExecutionTimeMS:  t.execMS,
			RowsAffected:     total,
			StrategyUsed:     string(req.Strategy),
			GenerationSource: art.Source,
		},
		Data:      rows,
		TotalRows: total,
		PageInfo:  &page,
		Success:   true,
		Timestamp: s.now(),
	}
	if res.Data == nil {
		res.Data = []map[string]any{}
	}
	return res, t, nil
}

// stage emits stage_start and returns a closure that emits stage_end,
// reporting the stage duration in milliseconds
func (s *Svc) stage(sink dom.EventSink, reqID, name string) func() float64 {
	s.emit(sink, reqID, dom.Event{Type: dom.EventStageStart, Stage: name})
	t0 := s.now()
	return func() float64 {
		d := float64(s.now().Sub(t0)) / float64(time.Millisecond)
		s.emit(sink, reqID, dom.Event{Type: dom.EventStageEnd, Stage: name, DurationMS: d})
		return d
	}
}

func (s *Svc) emit(sink dom.EventSink, reqID string, ev dom.Event) {
	ev.RequestID = reqID
	ev.Timestamp = s.now()
	sink.Emit(ev)
}

// record hands the request outcome to analytics; it never blocks
func (s *Svc) record(req dom.Request, query string, start time.Time, t timings, res *dom.Result, err error) {
	if s.recorder == nil {
		return
	}
	rec := analyticsdom.Record{
		Timestamp:      s.now(),
		Query:          query,
		Strategy:       string(req.Strategy),
		Success:        err == nil,
		ResponseTimeMS: float64(s.now().Sub(start)) / float64(time.Millisecond),
		SQLGenMS:       t.genMS,
		SQLExecMS:      t.execMS,
	}
	if req.UserID != 0 {
		rec.UserID = strconv.FormatInt(req.UserID, 10)
	}
	if res != nil {
		rec.Source = res.Execution.GenerationSource
		rec.CacheHit = res.CacheHit
		rec.ResultCount = res.TotalRows
	}
	if err != nil {
		rec.ErrorKind = perr.Kind(err)
	}
	s.recorder.Record(rec)
}
