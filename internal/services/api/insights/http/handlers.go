// Package http provides http transport for search insights
package http

import (
	stdhttp "net/http"
	"strconv"
	"time"

	"sibyl/internal/modkit/httpkit"
	perr "sibyl/internal/platform/errors"
	analyticsdom "sibyl/internal/services/analytics/domain"
)

const (
	defaultPopularLimit   = 10
	defaultFailureLimit   = 20
	maxListLimit          = 100
	defaultMinFailureRate = 0.7
)

// Register mounts insights endpoints on the given router
func Register(r httpkit.Router, reader analyticsdom.ReaderPort) {
	h := &handlers{reader: reader}

	httpkit.Get(r, "/popular-queries", h.popular)
	httpkit.Get(r, "/performance", h.performance)
	httpkit.Get(r, "/failure-patterns", h.failures)
}

type handlers struct {
	reader analyticsdom.ReaderPort
}

// swagger:route GET /insights/popular-queries Insights insightsPopular
// @Summary Most popular normalized queries
// @Tags Insights
// @Produce json
// @Param limit query int false "max rows (default 10, cap 100)"
// @Param window query string false "look-back window, go duration (default all)"
// @Success 200 {array} analyticsdom.PopularQuery "ok"
// @Router /insights/popular-queries [get]
func (h *handlers) popular(r *stdhttp.Request) (any, error) {
	limit, err := queryLimit(r, defaultPopularLimit)
	if err != nil {
		return nil, err
	}
	window, err := queryWindow(r)
	if err != nil {
		return nil, err
	}
	return h.reader.Popular(r.Context(), limit, window)
}

// swagger:route GET /insights/performance Insights insightsPerformance
// @Summary Search performance summary
// @Tags Insights
// @Produce json
// @Param window query string false "look-back window, go duration (default all)"
// @Success 200 {object} analyticsdom.Stats "ok"
// @Router /insights/performance [get]
func (h *handlers) performance(r *stdhttp.Request) (any, error) {
	window, err := queryWindow(r)
	if err != nil {
		return nil, err
	}
	return h.reader.Stats(r.Context(), window)
}

// swagger:route GET /insights/failure-patterns Insights insightsFailures
// @Summary Recurring failure buckets
// @Tags Insights
// @Produce json
// @Param min_rate query number false "minimum failure rate (default 0.7)"
// @Param limit query int false "max rows (default 20, cap 100)"
// @Success 200 {array} analyticsdom.FailurePattern "ok"
// @Router /insights/failure-patterns [get]
func (h *handlers) failures(r *stdhttp.Request) (any, error) {
	limit, err := queryLimit(r, defaultFailureLimit)
	if err != nil {
		return nil, err
	}
	minRate := defaultMinFailureRate
	if raw := r.URL.Query().Get("min_rate"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 || f > 1 {
			return nil, perr.Validationf("min_rate must be a number in [0,1]")
		}
		minRate = f
	}
	return h.reader.Failures(r.Context(), minRate, limit)
}

func queryLimit(r *stdhttp.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, perr.Validationf("limit must be a positive integer")
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}

// queryWindow parses the look-back window. Accepts go durations ("24h")
// and bare second counts ("3600"); absent means all recorded history
func queryWindow(r *stdhttp.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0, perr.Validationf("window must not be negative")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, perr.Validationf("window must be a duration like 24h or seconds")
	}
	return d, nil
}
