// Package module wires the search result cache and exposes its ports
package module

import (
	"sibyl/internal/modkit"
	"sibyl/internal/modkit/httpkit"
	"sibyl/internal/services/searchcache/service"
)

// Module defines the searchcache module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the searchcache module with its ports
func New(deps modkit.Deps, overrides Options) *Module {
	// Load defaults, then apply non-zero overrides
	opts := FromConfig(deps.Cfg)

	if overrides.TTL != 0 {
		opts.TTL = overrides.TTL
	}
	if overrides.MaxEntries != 0 {
		opts.MaxEntries = overrides.MaxEntries
	}
	if overrides.SweepInterval != 0 {
		opts.SweepInterval = overrides.SweepInterval
	}

	svc := service.New(deps, service.Config{
		TTL:           opts.TTL,
		MaxEntries:    opts.MaxEntries,
		SweepInterval: opts.SweepInterval,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Cache: svc, Admin: svc, Worker: svc}
	return m
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "searchcache" }

// Prefix returns the module config prefix (none for a portless service)
func (m *Module) Prefix() string { return "" }

// MountRoutes returns no HTTP routes (cache admin endpoints live in the API layer)
func (m *Module) MountRoutes(_ httpkit.Router) {}
