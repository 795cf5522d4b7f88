package module

import (
	"time"

	"sibyl/internal/platform/config"
)

// Options controls the pipeline controller and its LLM client
type Options struct {
	DefaultStrategy string
	RequestTimeout  time.Duration
	Tables          []string
	MaxRows         int

	// LLM transport; an empty BaseURL leaves the LLM branch unconfigured
	LLMBaseURL      string
	LLMAPIKey       string
	LLMModel        string
	LLMTemperature  float64
	LLMMaxTokens    int
	LLMTimeout      time.Duration
	BreakerTrip     int
	BreakerCooldown time.Duration

	// Retry policy around the LLM branch
	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration
	Jitter     bool
}

var defaultTables = []string{"customers", "customer_memos", "customer_products", "users", "events"}

// FromConfig reads with SEARCH_ and LLM_ prefixes
func FromConfig(cfg config.Conf) Options {
	s := cfg.Prefix("SEARCH_")
	l := cfg.Prefix("LLM_")
	return Options{
		DefaultStrategy: s.MayEnum("DEFAULT_STRATEGY", "llm_first",
			"rule_only", "llm_only", "rule_first", "llm_first", "hybrid"),
		RequestTimeout: s.MayDuration("REQUEST_TIMEOUT", 60*time.Second),
		Tables:         s.MayCSV("TABLES", defaultTables),
		MaxRows:        s.MayInt("ROW_LIMIT", 100),

		LLMBaseURL:      l.MayString("BASE_URL", ""),
		LLMAPIKey:       l.MayString("API_KEY", ""),
		LLMModel:        l.MayString("MODEL", ""),
		LLMTemperature:  l.MayFloat64("TEMPERATURE", 0),
		LLMMaxTokens:    l.MayInt("MAX_TOKENS", 0),
		LLMTimeout:      l.MayDuration("TIMEOUT", 30*time.Second),
		BreakerTrip:     l.MayInt("BREAKER_THRESHOLD", 5),
		BreakerCooldown: l.MayDuration("BREAKER_COOLDOWN", time.Minute),

		MaxRetries: l.MayInt("MAX_RETRIES", 3),
		RetryBase:  l.MayDuration("RETRY_BASE", time.Second),
		RetryMax:   l.MayDuration("RETRY_MAX", time.Minute),
		Jitter:     l.MayBool("RETRY_JITTER", true),
	}
}
