// Package domain defines the search pipeline request, result, and event
// models shared by the controller, the API layer, and the stream dispatcher
package domain

import (
	"time"

	"sibyl/internal/core/highlight"
	"sibyl/internal/core/intent"
	perr "sibyl/internal/platform/errors"
)

// Strategy selects how SQL generation runs
type Strategy string

// Generation strategies
const (
	StrategyRuleOnly  Strategy = "rule_only"
	StrategyLLMOnly   Strategy = "llm_only"
	StrategyRuleFirst Strategy = "rule_first"
	StrategyLLMFirst  Strategy = "llm_first"
	StrategyHybrid    Strategy = "hybrid"
)

// ParseStrategy validates a wire strategy name. Empty input selects def
func ParseStrategy(s string, def Strategy) (Strategy, error) {
	if s == "" {
		return def, nil
	}
	switch st := Strategy(s); st {
	case StrategyRuleOnly, StrategyLLMOnly, StrategyRuleFirst, StrategyLLMFirst, StrategyHybrid:
		return st, nil
	default:
		return "", perr.Validationf("unsupported strategy %q", s)
	}
}

// StrategyInfo describes one strategy for the listing endpoint
type StrategyInfo struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	RecommendedFor string `json:"recommended_for"`
}

// Strategies returns the metadata for every supported strategy
func Strategies() []StrategyInfo {
	return []StrategyInfo{
		{
			Name:           string(StrategyRuleOnly),
			Description:    "Template rules only, no LLM call",
			RecommendedFor: "simple lookups where latency matters most",
		},
		{
			Name:           string(StrategyLLMOnly),
			Description:    "LLM generation only, retried on transient failures",
			RecommendedFor: "free-form questions no template covers",
		},
		{
			Name:           string(StrategyRuleFirst),
			Description:    "Rules first, LLM fallback on no match or low confidence",
			RecommendedFor: "predictable traffic with an LLM safety net",
		},
		{
			Name:           string(StrategyLLMFirst),
			Description:    "LLM first, rule fallback when retries are exhausted",
			RecommendedFor: "complex queries with graceful degradation",
		},
		{
			Name:           string(StrategyHybrid),
			Description:    "Rules and LLM race in parallel, higher confidence wins",
			RecommendedFor: "quality-critical searches with latency headroom",
		},
	}
}

// Request is one search request after binding and defaulting
type Request struct {
	RequestID string
	Query     string
	Context   map[string]any
	UserID    int64
	Strategy  Strategy
	Timeout   time.Duration
	Limit     int
	UseCache  bool
	Highlight bool
}

// Execution describes the SQL that ran for a request
type Execution struct {
	SQLQuery        string         `json:"sql_query"`
	Parameters      map[string]any `json:"parameters"`
	ExecutionTimeMS float64        `json:"execution_time_ms"`
	RowsAffected    int            `json:"rows_affected"`
	StrategyUsed    string         `json:"strategy_used"`
	// GenerationSource is the branch that produced the winning artifact
	GenerationSource string `json:"generation_source,omitempty"`
}

// Result is the success payload returned over HTTP and stored in the cache
type Result struct {
	RequestID string              `json:"request_id"`
	Intent    intent.Intent       `json:"intent"`
	Execution Execution           `json:"execution"`
	Data      []map[string]any    `json:"data"`
	TotalRows int                 `json:"total_rows"`
	PageInfo  *highlight.PageInfo `json:"page_info,omitempty"`
	CacheHit  bool                `json:"cache_hit"`
	Success   bool                `json:"success"`
	Timestamp time.Time           `json:"timestamp"`
}
