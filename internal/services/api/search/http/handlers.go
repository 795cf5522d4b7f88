// Package http provides http transport for natural language search
package http

import (
	stdhttp "net/http"
	"strconv"
	"strings"

	"sibyl/internal/modkit/httpkit"
	perr "sibyl/internal/platform/errors"
	lumnet "sibyl/internal/platform/net"
	phttp "sibyl/internal/platform/net/http"
	"sibyl/internal/platform/net/http/bind"
	"sibyl/internal/services/api/search/domain"
	analyticsdom "sibyl/internal/services/analytics/domain"
	dom "sibyl/internal/services/pipeline/domain"
)

const (
	defaultSuggestLimit = 10
	maxSuggestLimit     = 25
)

// Register mounts search endpoints on the given router
func Register(r httpkit.Router, search dom.SearchPort, reader analyticsdom.ReaderPort, def dom.Strategy) {
	h := &handlers{search: search, reader: reader, def: def}

	// raw handler: success and failure bodies follow the pipeline result
	// contract, not the envelope
	r.Post("/natural-language", h.naturalLanguage)

	httpkit.Get(r, "/strategies", h.strategies)
	httpkit.Get(r, "/suggestions", h.suggestions)
}

type handlers struct {
	search dom.SearchPort
	reader analyticsdom.ReaderPort
	def    dom.Strategy
}

// swagger:route POST /search/natural-language Search searchNaturalLanguage
// @Summary Run a natural language search
// @Tags Search
// @Accept json
// @Produce json
// @Param payload body domain.SearchInput true "Query"
// @Success 200 {object} dom.Result "ok"
// @Failure 400 {object} domain.FailureBody "rejected"
// @Router /search/natural-language [post]
func (h *handlers) naturalLanguage(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	in, err := bind.ParseJSON[domain.SearchInput](r)
	if err != nil {
		h.writeFailure(w, r, "", err)
		return
	}
	req, err := in.ToDomain(h.def)
	if err != nil {
		h.writeFailure(w, r, "", err)
		return
	}
	req.RequestID = lumnet.RequestID(r.Context())

	res, err := h.search.Search(r.Context(), req, dom.NopSink{})
	if err != nil {
		h.writeFailure(w, r, req.RequestID, err)
		return
	}
	phttp.JSON(w, stdhttp.StatusOK, res)
}

// writeFailure renders the search failure body. generation_failed carries
// the per-branch reasons split out of the combined message
func (h *handlers) writeFailure(w stdhttp.ResponseWriter, r *stdhttp.Request, reqID string, err error) {
	if reqID == "" {
		reqID = lumnet.RequestID(r.Context())
	}
	kind := perr.Kind(err)
	info := domain.ErrorInfo{
		Kind:      kind,
		Message:   perr.WireFrom(err).Message,
		RequestID: reqID,
	}
	if kind == "generation_failed" {
		info.Reasons = splitReasons(info.Message)
	}
	phttp.JSON(w, perr.HTTPStatus(err), domain.FailureBody{Error: info})
}

func splitReasons(msg string) []string {
	parts := strings.Split(msg, "; ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// swagger:route GET /search/strategies Search searchStrategies
// @Summary List generation strategies
// @Tags Search
// @Produce json
// @Success 200 {object} domain.StrategiesOutput "ok"
// @Router /search/strategies [get]
func (h *handlers) strategies(_ *stdhttp.Request) (any, error) {
	return domain.StrategiesOutput{
		Default:    string(h.def),
		Strategies: dom.Strategies(),
	}, nil
}

// swagger:route GET /search/suggestions Search searchSuggestions
// @Summary Suggest completions from popular queries
// @Tags Search
// @Produce json
// @Param q query string true "partial query"
// @Param limit query int false "max suggestions (default 10, cap 25)"
// @Success 200 {array} analyticsdom.Suggestion "ok"
// @Router /search/suggestions [get]
func (h *handlers) suggestions(r *stdhttp.Request) (any, error) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		return nil, perr.Validationf("q must not be empty")
	}
	limit := defaultSuggestLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, perr.Validationf("limit must be a positive integer")
		}
		limit = n
	}
	if limit > maxSuggestLimit {
		limit = maxSuggestLimit
	}
	return h.reader.Suggest(r.Context(), q, limit)
}
