// Package http provides http transport for cache administration
package http

import (
	stdhttp "net/http"
	"strings"

	"sibyl/internal/modkit/httpkit"
	perr "sibyl/internal/platform/errors"
	"sibyl/internal/services/api/cachectl/domain"
	cachedom "sibyl/internal/services/searchcache/domain"
)

// Register mounts cache admin endpoints on the given router
func Register(r httpkit.Router, admin cachedom.AdminPort) {
	h := &handlers{admin: admin}

	httpkit.Get(r, "/statistics", h.statistics)
	httpkit.PostJSON[domain.InvalidateInput](r, "/invalidate", h.invalidate)
	httpkit.Post(r, "/cleanup", h.cleanup)
}

type handlers struct {
	admin cachedom.AdminPort
}

// swagger:route GET /cache/statistics Cache cacheStatistics
// @Summary Cache size and hit rate counters
// @Tags Cache
// @Produce json
// @Success 200 {object} cachedom.Stats "ok"
// @Router /cache/statistics [get]
func (h *handlers) statistics(r *stdhttp.Request) (any, error) {
	return h.admin.Stats(r.Context())
}

// swagger:route POST /cache/invalidate Cache cacheInvalidate
// @Summary Remove entries whose normalized query matches pattern
// @Tags Cache
// @Accept json
// @Produce json
// @Param payload body domain.InvalidateInput true "Pattern"
// @Success 200 {object} domain.SweepOutput "ok"
// @Router /cache/invalidate [post]
func (h *handlers) invalidate(r *stdhttp.Request, in domain.InvalidateInput) (any, error) {
	// an empty pattern would match every entry
	if strings.TrimSpace(in.Pattern) == "" {
		return nil, perr.Validationf("pattern must not be empty")
	}
	n, err := h.admin.Invalidate(r.Context(), in.Pattern)
	if err != nil {
		return nil, err
	}
	return domain.SweepOutput{Removed: n}, nil
}

// swagger:route POST /cache/cleanup Cache cacheCleanup
// @Summary Remove expired entries now
// @Tags Cache
// @Produce json
// @Success 200 {object} domain.SweepOutput "ok"
// @Router /cache/cleanup [post]
func (h *handlers) cleanup(r *stdhttp.Request) (any, error) {
	n, err := h.admin.Cleanup(r.Context())
	if err != nil {
		return nil, err
	}
	return domain.SweepOutput{Removed: n}, nil
}
