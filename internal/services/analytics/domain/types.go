// Package domain defines analytics records and aggregate read models
package domain

import "time"

// Record is one finished search request as seen by the recorder.
// Query carries the normalized form so identical phrasings aggregate together
type Record struct {
	Timestamp      time.Time
	UserID         string
	Query          string
	Strategy       string
	Source         string
	Success        bool
	CacheHit       bool
	ResultCount    int
	ResponseTimeMS float64
	SQLGenMS       float64
	SQLExecMS      float64
	ErrorKind      string
}

// PopularQuery is the persisted popularity aggregate for one normalized query.
// AvgResponseTime is in seconds to match the popular_queries schema
type PopularQuery struct {
	Query           string    `json:"query"`
	Count           int64     `json:"count"`
	LastSeen        time.Time `json:"last_seen"`
	AvgResponseTime float64   `json:"avg_response_time"`
	SuccessRate     float64   `json:"success_rate"`
}

// Suggestion is a completion candidate for a partial query
type Suggestion struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// FailurePattern is a failure bucket for one (query, error kind) pair
type FailurePattern struct {
	QueryHash   string    `json:"query_hash"`
	Query       string    `json:"query"`
	ErrorKind   string    `json:"error_kind"`
	Attempts    int64     `json:"attempts"`
	Failures    int64     `json:"failures"`
	FailureRate float64   `json:"failure_rate"`
	P50MS       float64   `json:"p50_response_time_ms"`
	P95MS       float64   `json:"p95_response_time_ms"`
	LastSeen    time.Time `json:"last_seen"`
}

// Stats summarizes recorded searches within a window (zero window means all)
type Stats struct {
	WindowSeconds  float64          `json:"window_seconds"`
	Total          int64            `json:"total_searches"`
	Succeeded      int64            `json:"succeeded"`
	Failed         int64            `json:"failed"`
	SuccessRate    float64          `json:"success_rate"`
	CacheHits      int64            `json:"cache_hits"`
	CacheHitRate   float64          `json:"cache_hit_rate"`
	AvgResponseMS  float64          `json:"avg_response_time_ms"`
	P50ResponseMS  float64          `json:"p50_response_time_ms"`
	P95ResponseMS  float64          `json:"p95_response_time_ms"`
	AvgSQLGenMS    float64          `json:"avg_sql_gen_ms"`
	AvgSQLExecMS   float64          `json:"avg_sql_exec_ms"`
	ByStrategy     map[string]int64 `json:"by_strategy"`
	BySource       map[string]int64 `json:"by_source"`
	ByError        map[string]int64 `json:"by_error"`
	DroppedRecords int64            `json:"dropped_records"`
}
