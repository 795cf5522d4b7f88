// Package module wires the search pipeline controller: LLM client,
// strategy scheduler, validator, and the ports it consumes from the
// runner, cache, and analytics modules
package module

import (
	"sibyl/internal/adapters/llm"
	"sibyl/internal/modkit"
	"sibyl/internal/modkit/httpkit"
	analyticsdom "sibyl/internal/services/analytics/domain"
	dom "sibyl/internal/services/pipeline/domain"
	"sibyl/internal/services/pipeline/service"
	runnerdom "sibyl/internal/services/runner/domain"
	cachedom "sibyl/internal/services/searchcache/domain"
)

// Injected carries the cross-module ports the pipeline consumes.
// Exec is required; Cache and Recorder degrade to no-ops when nil
type Injected struct {
	Exec     runnerdom.ExecPort
	Cache    cachedom.CachePort
	Recorder analyticsdom.RecorderPort
}

// Module defines the pipeline module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the pipeline module with its port
func New(deps modkit.Deps, in Injected, overrides Options) *Module {
	if in.Exec == nil {
		panic("pipeline module requires the runner exec port")
	}

	// Load defaults, then apply non-zero overrides
	opts := FromConfig(deps.Cfg)

	if overrides.DefaultStrategy != "" {
		opts.DefaultStrategy = overrides.DefaultStrategy
	}
	if overrides.RequestTimeout != 0 {
		opts.RequestTimeout = overrides.RequestTimeout
	}
	if len(overrides.Tables) != 0 {
		opts.Tables = overrides.Tables
	}
	if overrides.MaxRows != 0 {
		opts.MaxRows = overrides.MaxRows
	}
	if overrides.LLMBaseURL != "" {
		opts.LLMBaseURL = overrides.LLMBaseURL
	}
	if overrides.LLMAPIKey != "" {
		opts.LLMAPIKey = overrides.LLMAPIKey
	}
	if overrides.LLMModel != "" {
		opts.LLMModel = overrides.LLMModel
	}
	if overrides.MaxRetries != 0 {
		opts.MaxRetries = overrides.MaxRetries
	}

	var chat service.ChatPort
	if opts.LLMBaseURL != "" {
		chat = llm.NewClient(llm.Options{
			BaseURL:          opts.LLMBaseURL,
			APIKey:           opts.LLMAPIKey,
			Model:            opts.LLMModel,
			Temperature:      opts.LLMTemperature,
			MaxTokens:        opts.LLMMaxTokens,
			Timeout:          opts.LLMTimeout,
			BreakerThreshold: uint32(opts.BreakerTrip),
			BreakerCooldown:  opts.BreakerCooldown,
		})
	}

	svc := service.New(service.Config{
		DefaultStrategy: dom.Strategy(opts.DefaultStrategy),
		RequestTimeout:  opts.RequestTimeout,
		Tables:          opts.Tables,
		MaxRows:         opts.MaxRows,
		Retry: service.RetryPolicy{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   opts.RetryBase,
			MaxDelay:    opts.RetryMax,
			Jitter:      opts.Jitter,
		},
	}, chat, in.Exec, in.Cache, in.Recorder)

	m := &Module{deps: deps}
	m.ports = Ports{Search: svc}
	return m
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "pipeline" }

// Prefix returns the module config prefix (none for a portless service)
func (m *Module) Prefix() string { return "" }

// MountRoutes returns no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
