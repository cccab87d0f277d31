package types

import "time"

// APIKey is a key issued through the key management endpoints. Holders are
// not rate limited.
type APIKey struct {
	ID          int        `json:"id"`
	Key         string     `json:"key"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	IsActive    bool       `json:"is_active"`
}
