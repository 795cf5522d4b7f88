// Package api composes the sibyl HTTP surface: worker modules for the
// pipeline, cache, runner, and analytics, plus the API modules that
// expose them
package api

import (
	"sibyl/internal/platform/config"
	"sibyl/internal/platform/logger"
	phttp "sibyl/internal/platform/net/http"
	"sibyl/internal/platform/net/middleware"
	"sibyl/internal/platform/store"

	"sibyl/internal/modkit"
	"sibyl/internal/modkit/httpkit"
	"sibyl/internal/modkit/module"
	"sibyl/internal/modkit/swaggerkit"

	cachectlmod "sibyl/internal/services/api/cachectl/module"
	insightsmod "sibyl/internal/services/api/insights/module"
	metamod "sibyl/internal/services/api/meta/module"
	searchhttp "sibyl/internal/services/api/search/http"
	searchmod "sibyl/internal/services/api/search/module"

	analyticsdom "sibyl/internal/services/analytics/domain"
	analyticsmod "sibyl/internal/services/analytics/module"
	dom "sibyl/internal/services/pipeline/domain"
	pipelinemod "sibyl/internal/services/pipeline/module"
	runnermod "sibyl/internal/services/runner/module"
	cachedom "sibyl/internal/services/searchcache/domain"
	searchcachemod "sibyl/internal/services/searchcache/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Workers are the background loops main runs alongside the server
type Workers struct {
	CacheSweeper cachedom.WorkerPort
	Analytics    analyticsdom.WorkerPort
}

// Mount mounts the API service onto the given router and returns the
// worker handles
func Mount(r phttp.Router, opt Options) Workers {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}

	// Worker modules first; their ports feed the pipeline and the API
	runner := runnermod.New(deps, runnermod.Options{})
	cache := searchcachemod.New(deps, searchcachemod.Options{})
	analytics := analyticsmod.New(deps, analyticsmod.Options{})

	cachePorts := module.MustPortsOf[searchcachemod.Ports](cache)
	analyticsPorts := module.MustPortsOf[analyticsmod.Ports](analytics)

	pipeline := pipelinemod.New(deps, pipelinemod.Injected{
		Exec:     module.MustPortsOf[runnermod.Ports](runner).Exec,
		Cache:    cachePorts.Cache,
		Recorder: analyticsPorts.Recorder,
	}, pipelinemod.Options{})
	searchPort := module.MustPortsOf[pipelinemod.Ports](pipeline).Search

	// Inject the worker ports into the API modules
	apiSearch := searchmod.New(deps, modkit.WithPorts(searchmod.Ports{
		Search: searchPort,
		Reader: analyticsPorts.Reader,
	}))
	apiInsights := insightsmod.New(deps, modkit.WithPorts(insightsmod.Ports{
		Reader: analyticsPorts.Reader,
	}))
	apiCache := cachectlmod.New(deps, modkit.WithPorts(cachectlmod.Ports{
		Admin: cachePorts.Admin,
	}))

	mods := []module.Module{
		metamod.New(deps),
		runner,    // workers are included so their ports are registered
		cache,     //
		analytics, //
		pipeline,  //
		apiSearch,
		apiInsights,
		apiCache,
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})

	// The websocket stream mounts outside the versioned stack: the
	// compress and timeout middlewares there cannot wrap an upgraded
	// connection
	sopts := searchmod.FromConfig(deps.Cfg)
	def := dom.Strategy(sopts.DefaultStrategy)
	r.Group(func(ws phttp.Router) {
		ws.Use(
			middleware.RequestID(),
			middleware.RealIP(),
			middleware.RecoverJSON,
			middleware.Logger(),
		)
		if sopts.MaxStreams > 0 {
			// a stream request lasts as long as its socket, so this
			// caps concurrent connections
			ws.Use(middleware.Throttle(sopts.MaxStreams))
		}
		ws.Get("/search/stream", searchhttp.StreamHandler(searchPort, def))
	})

	return Workers{
		CacheSweeper: cachePorts.Worker,
		Analytics:    analyticsPorts.Worker,
	}
}
