// Package domain holds DTOs for cache administration
package domain

// InvalidateInput selects cache entries to remove by normalized query
type InvalidateInput struct {
	Pattern string `json:"pattern" validate:"required,max=500" example:"customer"`
}

// SweepOutput reports how many entries an admin operation removed
type SweepOutput struct {
	Removed int64 `json:"removed" example:"12"`
}
