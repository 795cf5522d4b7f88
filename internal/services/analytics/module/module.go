// Package module wires the analytics recorder and exposes its ports
package module

import (
	"sibyl/internal/modkit"
	"sibyl/internal/modkit/httpkit"
	"sibyl/internal/services/analytics/service"
)

// Module defines the analytics module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the analytics module with its ports
func New(deps modkit.Deps, overrides Options) *Module {
	// Load defaults, then apply non-zero overrides
	opts := FromConfig(deps.Cfg)

	if overrides.QueueSize != 0 {
		opts.QueueSize = overrides.QueueSize
	}
	if overrides.FlushInterval != 0 {
		opts.FlushInterval = overrides.FlushInterval
	}
	if overrides.Alpha != 0 {
		opts.Alpha = overrides.Alpha
	}

	svc := service.New(deps, service.Config{
		QueueSize:     opts.QueueSize,
		FlushInterval: opts.FlushInterval,
		Alpha:         opts.Alpha,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Recorder: svc, Reader: svc, Worker: svc}
	return m
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "analytics" }

// Prefix returns the module config prefix (none for a portless service)
func (m *Module) Prefix() string { return "" }

// MountRoutes returns no HTTP routes (insight endpoints live in the API layer)
func (m *Module) MountRoutes(_ httpkit.Router) {}
