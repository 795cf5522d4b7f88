package module

import (
	dom "sibyl/internal/services/searchcache/domain"
)

// Ports exposed by the searchcache module
type Ports struct {
	Cache  dom.CachePort
	Admin  dom.AdminPort
	Worker dom.WorkerPort
}
