package module

import "sibyl/internal/platform/config"

// Options configure the search API surface
type Options struct {
	DefaultStrategy string

	// MaxInflight bounds concurrent requests on the search scope; the
	// pipeline behind it holds LLM and runner capacity. Zero disables
	MaxInflight int

	// MaxStreams bounds concurrent websocket streams. Zero disables
	MaxStreams int
}

// FromConfig reads with the SEARCH_ prefix. The default strategy here
// must agree with the pipeline module: both read the same key
func FromConfig(cfg config.Conf) Options {
	s := cfg.Prefix("SEARCH_")
	return Options{
		DefaultStrategy: s.MayEnum("DEFAULT_STRATEGY", "llm_first",
			"rule_only", "llm_only", "rule_first", "llm_first", "hybrid"),
		MaxInflight: s.MayInt("MAX_INFLIGHT", 16),
		MaxStreams:  s.MayInt("MAX_STREAMS", 64),
	}
}
