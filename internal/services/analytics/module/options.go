package module

import (
	"time"

	"sibyl/internal/platform/config"
)

// Options controls the analytics recorder
type Options struct {
	QueueSize     int
	FlushInterval time.Duration
	Alpha         float64
}

// FromConfig reads with ANALYTICS_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("ANALYTICS_")
	return Options{
		QueueSize:     c.MayInt("QUEUE_SIZE", 4096),
		FlushInterval: c.MayDuration("FLUSH_INTERVAL", 5*time.Second),
		Alpha:         c.MayFloat64("EWMA_ALPHA", 0.1),
	}
}
