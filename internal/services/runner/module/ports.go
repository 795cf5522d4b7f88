package module

import dom "sibyl/internal/services/runner/domain"

// Ports holds the ports exposed by the runner module
type Ports struct {
	Exec dom.ExecPort
}
