package module

import (
	"time"

	"sibyl/internal/platform/config"
)

// Options controls the result cache
type Options struct {
	TTL           time.Duration
	MaxEntries    int
	SweepInterval time.Duration
}

// FromConfig reads with CACHE_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CACHE_")
	return Options{
		TTL:           c.MayDuration("TTL", 5*time.Minute),
		MaxEntries:    c.MayInt("MAX_ENTRIES", 10000),
		SweepInterval: c.MayDuration("SWEEP_INTERVAL", time.Minute),
	}
}
