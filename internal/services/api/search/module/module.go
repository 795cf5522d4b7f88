// Package module wires natural language search into the API using modkit
package module

import (
	"net/http"
	"time"

	modkit "sibyl/internal/modkit"
	"sibyl/internal/modkit/httpkit"
	"sibyl/internal/platform/net/middleware"
	searchhttp "sibyl/internal/services/api/search/http"
	analyticsdom "sibyl/internal/services/analytics/domain"
	dom "sibyl/internal/services/pipeline/domain"
)

// Ports declares the injected ports this API module requires
type Ports struct {
	Search dom.SearchPort
	Reader analyticsdom.ReaderPort
}

// Module implements the search API module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the search module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("search"),
		modkit.WithPrefix("/search"),
	}, opts...)...)

	cfg := FromConfig(deps.Cfg)
	def := dom.Strategy(cfg.DefaultStrategy)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Search == nil {
		panic("search API module requires the pipeline Search port")
	}
	if injected.Reader == nil {
		panic("search API module requires the analytics Reader port")
	}

	// JSON utf-8 bodies only; the normalizer assumes utf-8 input.
	// A scope wide throttle shields the LLM and runner behind the pipeline
	mws := []func(http.Handler) http.Handler{
		middleware.AllowContentType("application/json"),
		middleware.ContentCharset("utf-8", ""),
	}
	if cfg.MaxInflight > 0 {
		mws = append(mws, middleware.ThrottleBacklog(cfg.MaxInflight, cfg.MaxInflight, 2*time.Second))
	}

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       append(mws, b.Mw...),
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
	}
	m.ports = injected

	external := b.Register
	m.register = func(r httpkit.Router) {
		searchhttp.Register(r, injected.Search, injected.Reader, def)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router. The websocket
// stream is not mounted here: it lives outside the versioned stack so the
// compress and timeout middlewares cannot break the upgrade
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, func(rr httpkit.Router) {
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.prefix }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
