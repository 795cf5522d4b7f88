// Package repo provides postgres access for search analytics aggregates
package repo

import (
	"context"
	"fmt"
	"strings"

	"sibyl/internal/modkit/repokit"
	dom "sibyl/internal/services/analytics/domain"
)

// Repo is the persistence surface for popularity aggregates
type Repo interface {
	// UpsertPopular writes the current aggregate rows, replacing stale ones
	UpsertPopular(ctx context.Context, rows []dom.PopularQuery) error

	// ListPopular returns the most frequent queries, highest count first
	ListPopular(ctx context.Context, limit int) ([]dom.PopularQuery, error)
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// UpsertPopular implements Repo
func (r *queries) UpsertPopular(ctx context.Context, rows []dom.PopularQuery) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO popular_queries
		(normalized_query, count, last_seen, avg_response_time, success_rate) VALUES `)

	args := make([]any, 0, len(rows)*5)
	for i, p := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*5 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d)", base, base+1, base+2, base+3, base+4)
		args = append(args, p.Query, p.Count, p.LastSeen, p.AvgResponseTime, p.SuccessRate)
	}
	// In-memory aggregates are authoritative for the process lifetime
	sb.WriteString(` ON CONFLICT (normalized_query) DO UPDATE SET
		count = EXCLUDED.count,
		last_seen = EXCLUDED.last_seen,
		avg_response_time = EXCLUDED.avg_response_time,
		success_rate = EXCLUDED.success_rate`)

	_, err := r.q.Exec(ctx, sb.String(), args...)
	return err
}

// ListPopular implements Repo
func (r *queries) ListPopular(ctx context.Context, limit int) ([]dom.PopularQuery, error) {
	const sql = `
select normalized_query, count, last_seen, avg_response_time, success_rate
  from popular_queries
 order by count desc, last_seen desc
 limit $1`

	rows, err := r.q.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dom.PopularQuery
	for rows.Next() {
		var p dom.PopularQuery
		if err := rows.Scan(&p.Query, &p.Count, &p.LastSeen, &p.AvgResponseTime, &p.SuccessRate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
