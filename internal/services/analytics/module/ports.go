package module

import (
	dom "sibyl/internal/services/analytics/domain"
)

// Ports exposed by the analytics module
type Ports struct {
	Recorder dom.RecorderPort
	Reader   dom.ReaderPort
	Worker   dom.WorkerPort
}
