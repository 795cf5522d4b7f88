package module

import dom "sibyl/internal/services/pipeline/domain"

// Ports exposes the pipeline surface to other modules
type Ports struct {
	Search dom.SearchPort
}
