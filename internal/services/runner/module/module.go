// Package module wires the SQL runner service and exposes its port
package module

import (
	"sibyl/internal/modkit"
	"sibyl/internal/modkit/httpkit"
	"sibyl/internal/services/runner/service"
)

// Module defines the runner module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the runner module with its port
func New(deps modkit.Deps, overrides Options) *Module {
	// Load defaults, then apply non-zero overrides
	opts := FromConfig(deps.Cfg)

	if overrides.StatementTimeout != 0 {
		opts.StatementTimeout = overrides.StatementTimeout
	}
	if overrides.MaxRows != 0 {
		opts.MaxRows = overrides.MaxRows
	}

	svc := service.New(deps, service.Config{
		StatementTimeout: opts.StatementTimeout,
		MaxRows:          opts.MaxRows,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Exec: svc}
	return m
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "runner" }

// Prefix returns the module config prefix (none for a portless service)
func (m *Module) Prefix() string { return "" }

// MountRoutes returns no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
