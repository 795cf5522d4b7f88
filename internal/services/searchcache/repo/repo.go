// Package repo provides postgres access for the search result cache
package repo

import (
	"context"

	"sibyl/internal/modkit/repokit"
	dom "sibyl/internal/services/searchcache/domain"
)

// Repo is the persistence surface for cache entries
type Repo interface {
	// Get returns the live entry for key, bumping hit_count and last_access.
	// Expired rows are removed and reported as a miss
	Get(ctx context.Context, key string) (dom.Entry, bool, error)

	// Upsert writes an entry; replacing an existing key bumps its hit_count
	Upsert(ctx context.Context, e dom.Entry) error

	// Invalidate removes entries whose normalized query contains pattern;
	// an empty pattern clears everything
	Invalidate(ctx context.Context, pattern string) (int64, error)

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) (int64, error)

	// Trim drops the least recently accessed entries beyond max
	Trim(ctx context.Context, max int) (int64, error)

	// Counts reports stored totals
	Counts(ctx context.Context) (entries, expired, totalHits int64, err error)
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

func (r *queries) Get(ctx context.Context, key string) (dom.Entry, bool, error) {
	const sql = `
with hit as (
  update search_cache
     set hit_count = hit_count + 1,
         last_access = now()
   where key = $1
     and expires_at > now()
  returning key, normalized_query, payload, hit_count, created_at, last_access, expires_at
), gone as (
  delete from search_cache
   where key = $1
     and expires_at <= now()
)
select key, normalized_query, payload, hit_count, created_at, last_access, expires_at
from hit
`
	rows, err := r.q.Query(ctx, sql, key)
	if err != nil {
		return dom.Entry{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return dom.Entry{}, false, rows.Err()
	}
	var e dom.Entry
	if err := rows.Scan(&e.Key, &e.NormalizedQuery, &e.Payload, &e.HitCount,
		&e.CreatedAt, &e.LastAccess, &e.ExpiresAt); err != nil {
		return dom.Entry{}, false, err
	}
	return e, true, rows.Err()
}

func (r *queries) Upsert(ctx context.Context, e dom.Entry) error {
	const sql = `
insert into search_cache (key, normalized_query, payload, hit_count, created_at, last_access, expires_at)
values ($1, $2, $3, 1, now(), now(), $4)
on conflict (key) do update
   set payload = excluded.payload,
       normalized_query = excluded.normalized_query,
       hit_count = search_cache.hit_count + 1,
       last_access = now(),
       expires_at = excluded.expires_at
`
	_, err := r.q.Exec(ctx, sql, e.Key, e.NormalizedQuery, e.Payload, e.ExpiresAt)
	return err
}

func (r *queries) Invalidate(ctx context.Context, pattern string) (int64, error) {
	const sql = `
delete from search_cache
where $1 = '' or normalized_query like '%' || $1 || '%'
`
	tag, err := r.q.Exec(ctx, sql, pattern)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *queries) Cleanup(ctx context.Context) (int64, error) {
	const sql = `
delete from search_cache
where expires_at <= now()
`
	tag, err := r.q.Exec(ctx, sql)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *queries) Trim(ctx context.Context, max int) (int64, error) {
	const sql = `
delete from search_cache
where key in (
  select key
  from search_cache
  order by last_access desc
  offset $1
)
`
	tag, err := r.q.Exec(ctx, sql, max)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *queries) Counts(ctx context.Context) (int64, int64, int64, error) {
	const sql = `
select count(*),
       count(*) filter (where expires_at <= now()),
       coalesce(sum(hit_count), 0)
from search_cache
`
	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return 0, 0, 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, 0, 0, rows.Err()
	}
	var entries, expired, hits int64
	if err := rows.Scan(&entries, &expired, &hits); err != nil {
		return 0, 0, 0, err
	}
	return entries, expired, hits, rows.Err()
}
