// Package service executes validated read-only SQL against postgres.
// It rewrites %(name)s placeholders to positional arguments, bounds every
// query with a statement budget and truncates result sets at the row cap
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"sibyl/internal/core/sqlgen"
	"sibyl/internal/modkit"
	perr "sibyl/internal/platform/errors"
	"sibyl/internal/platform/logger"
	"sibyl/internal/platform/store"
	dom "sibyl/internal/services/runner/domain"
)

// Config bounds a single execution
type Config struct {
	// StatementTimeout caps one query; the remaining request deadline wins when smaller
	StatementTimeout time.Duration

	// MaxRows caps returned rows; longer result sets are truncated, never an error
	MaxRows int
}

// Svc implements dom.ExecPort over the postgres seam
type Svc struct {
	db  store.RowQuerier
	cfg Config
	log *logger.Logger

	now func() time.Time
}

// New constructs the runner
func New(deps modkit.Deps, cfg Config) *Svc {
	if cfg.StatementTimeout <= 0 {
		cfg.StatementTimeout = 10 * time.Second
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 100
	}
	return &Svc{
		db:  deps.PG,
		cfg: cfg,
		log: logger.Named("runner"),
		now: time.Now,
	}
}

// Run executes sql with params bound positionally and returns up to MaxRows rows
func (s *Svc) Run(ctx context.Context, sql string, params map[string]any) (dom.RunResult, error) {
	var out dom.RunResult

	psql, names := sqlgen.Positional(sql)
	args := make([]any, 0, len(names))
	for _, n := range names {
		v, ok := params[n]
		if !ok {
			return out, perr.Runtimef("parameter %q has no bound value", n)
		}
		args = append(args, v)
	}

	budget := s.cfg.StatementTimeout
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < budget {
			budget = rem
		}
	}
	if budget <= 0 {
		return out, perr.Timeoutf("request deadline exhausted before execution")
	}

	qctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	started := s.now()
	maps, err := store.Maps(qctx, s.db, psql, args...)
	if err != nil {
		return out, s.mapExecErr(ctx, qctx, err)
	}
	if len(maps) > s.cfg.MaxRows {
		maps = maps[:s.cfg.MaxRows]
		out.Truncated = true
	}
	for _, m := range maps {
		for c, v := range m {
			m[c] = jsonValue(v)
		}
	}
	out.Rows = maps
	out.Elapsed = s.now().Sub(started)

	s.log.Debug().
		Int("rows", len(out.Rows)).
		Bool("truncated", out.Truncated).
		Dur("elapsed", out.Elapsed).
		Msg("sql executed")
	return out, nil
}

// mapExecErr separates request-level deadlines from the statement budget
// and leaves backend classification to the postgres error mapper
func (s *Svc) mapExecErr(ctx, qctx context.Context, err error) error {
	switch {
	case ctx.Err() == context.Canceled:
		return perr.Canceledf("execution canceled")
	case ctx.Err() == context.DeadlineExceeded:
		return perr.Timeoutf("request deadline expired during execution")
	case qctx.Err() == context.DeadlineExceeded:
		return perr.Runtimef("sql execution exceeded the %s statement budget", s.cfg.StatementTimeout)
	default:
		return perr.FromPostgresf(err, "execute generated sql")
	}
}

// jsonValue flattens driver-native values into JSON-friendly shapes
func jsonValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		if f, err := x.Float64Value(); err == nil {
			return f.Float64
		}
		return nil
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	default:
		return v
	}
}
