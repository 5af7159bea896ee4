// Package model defines domain entities for the application.
package model

import "time"

// Plan label constants reported by key validation.
const (
	PlanFree = "Free"
	PlanPaid = "Paid"
)

// Key is a time-bound access credential bound to one user identity.
// Keys are immutable after issuance; expiry is the only way one dies.
type Key struct {
	ID        string    `json:"key"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	IsPaid    bool      `json:"is_paid"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether the key is past its expiry at the given instant.
func (k *Key) IsExpired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}

// Plan returns the tier label for this key.
func (k *Key) Plan() string {
	if k.IsPaid {
		return PlanPaid
	}
	return PlanFree
}
