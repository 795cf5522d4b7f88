// Package domain defines the result cache types and ports
package domain

import "time"

// Entry is one cached search result row
type Entry struct {
	Key             string
	NormalizedQuery string
	Payload         []byte
	HitCount        int64
	CreatedAt       time.Time
	LastAccess      time.Time
	ExpiresAt       time.Time
}

// Stats merges stored counts with runtime lookup counters
type Stats struct {
	Entries    int64   `json:"entries"`
	Expired    int64   `json:"expired"`
	TotalHits  int64   `json:"total_hits"`
	Lookups    int64   `json:"lookups"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	TTLSeconds float64 `json:"ttl_seconds"`
	MaxEntries int     `json:"max_entries"`
}
