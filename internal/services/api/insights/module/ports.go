package module

// Ports returns the injected ports so other modules can look them up
func (m *Module) Ports() any { return m.ports }
