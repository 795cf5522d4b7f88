// Package domain holds DTOs for the search http and stream contracts
package domain

import (
	"time"

	dom "sibyl/internal/services/pipeline/domain"
)

// SearchOptions tunes one search request
type SearchOptions struct {
	Strategy           string  `json:"strategy,omitempty" validate:"omitempty,oneof=rule_only llm_only rule_first llm_first hybrid" example:"llm_first"`
	TimeoutSeconds     float64 `json:"timeout_seconds,omitempty" validate:"omitempty,gt=0,lte=3600" example:"10"`
	UseCache           *bool   `json:"use_cache,omitempty" example:"true"`
	EnableHighlighting bool    `json:"enable_highlighting,omitempty" example:"false"`
	Limit              int     `json:"limit,omitempty" validate:"omitempty,min=1,max=100" example:"20"`
}

// SearchInput is the natural language search request body
type SearchInput struct {
	Query   string         `json:"query" validate:"required,max=2000" example:"김철수 고객의 메모를 보여줘"`
	Context map[string]any `json:"context,omitempty"`
	Options *SearchOptions `json:"options,omitempty"`
	UserID  int64          `json:"user_id,omitempty" validate:"omitempty,min=0" example:"42"`
}

// ToDomain maps the wire request onto the pipeline request. Cache stays
// on unless the caller turns it off
func (in SearchInput) ToDomain(def dom.Strategy) (dom.Request, error) {
	req := dom.Request{
		Query:    in.Query,
		Context:  in.Context,
		UserID:   in.UserID,
		UseCache: true,
	}

	opts := in.Options
	if opts == nil {
		opts = &SearchOptions{}
	}
	strat, err := dom.ParseStrategy(opts.Strategy, def)
	if err != nil {
		return dom.Request{}, err
	}
	req.Strategy = strat
	if opts.TimeoutSeconds > 0 {
		req.Timeout = time.Duration(opts.TimeoutSeconds * float64(time.Second))
	}
	if opts.UseCache != nil {
		req.UseCache = *opts.UseCache
	}
	req.Highlight = opts.EnableHighlighting
	req.Limit = opts.Limit
	return req, nil
}

// ErrorInfo is the failure detail carried by FailureBody
type ErrorInfo struct {
	Kind      string   `json:"kind" example:"generation_failed"`
	Message   string   `json:"message" example:"rule: no template for filtering intent; llm: breaker open"`
	RequestID string   `json:"request_id,omitempty" example:"7f9c1e2a-..."`
	Reasons   []string `json:"reasons,omitempty"`
}

// FailureBody is the search failure response shape
type FailureBody struct {
	Success bool      `json:"success"`
	Error   ErrorInfo `json:"error"`
}

// StrategiesOutput lists the available generation strategies
type StrategiesOutput struct {
	Default    string             `json:"default" example:"llm_first"`
	Strategies []dom.StrategyInfo `json:"strategies"`
}
