package service

import (
	"context"
	"time"

	"sibyl/internal/modkit/repokit"
)

// Run sweeps expired entries and enforces the entry cap until ctx ends.
// With no store configured it parks until shutdown
func (s *Svc) Run(ctx context.Context) error {
	if s.db == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			expired, trimmed, err := s.sweep(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("cache sweep failed")
				continue
			}
			if expired+trimmed > 0 {
				s.log.Debug().Int64("expired", expired).Int64("trimmed", trimmed).Msg("cache swept")
			}
		}
	}
}

// sweep deletes expired entries and enforces the cap in one transaction
// so the cap check sees post cleanup state
func (s *Svc) sweep(ctx context.Context) (expired, trimmed int64, err error) {
	err = repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		var e error
		if expired, e = r.Cleanup(ctx); e != nil {
			return e
		}
		trimmed, e = r.Trim(ctx, s.cfg.MaxEntries)
		return e
	})
	return expired, trimmed, err
}
