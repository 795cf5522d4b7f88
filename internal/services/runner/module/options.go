package module

import (
	"time"

	"sibyl/internal/platform/config"
)

// Options controls the SQL runner
type Options struct {
	StatementTimeout time.Duration
	MaxRows          int
}

// FromConfig reads with SEARCH_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("SEARCH_")
	return Options{
		StatementTimeout: c.MayDuration("DB_TIMEOUT", 10*time.Second),
		MaxRows:          c.MayInt("ROW_LIMIT", 100),
	}
}
