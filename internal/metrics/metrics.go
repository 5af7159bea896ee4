// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Key validation statuses.
const (
	StatusValid   = "valid"
	StatusInvalid = "invalid"
)

// Access resolution outcomes.
const (
	OutcomeAllow     = "allow"
	OutcomeForbidden = "forbidden"
	OutcomeKick      = "kick"
	OutcomeNotFound  = "not_found"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Key lifecycle metrics
	IncKeyIssued()
	IncKeyValidated(status string) // status: "valid" or "invalid"

	// Script management metrics
	IncScriptCreated()
	IncScriptDeleted()

	// Access resolution metrics
	IncAccessResolved(outcome string) // outcome: allow, forbidden, kick, not_found
	ObserveResolveDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
