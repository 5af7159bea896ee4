package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	KeysIssued            uint64 `json:"keys_issued"`
	KeyValidationsValid   uint64 `json:"key_validations_valid"`
	KeyValidationsInvalid uint64 `json:"key_validations_invalid"`
	ScriptsCreated        uint64 `json:"scripts_created"`
	ScriptsDeleted        uint64 `json:"scripts_deleted"`
	AccessAllowed         uint64 `json:"access_allowed"`
	AccessForbidden       uint64 `json:"access_forbidden"`
	AccessKicked          uint64 `json:"access_kicked"`
	AccessNotFound        uint64 `json:"access_not_found"`
	ResolveDurationCount  uint64 `json:"resolve_duration_count"`
	ResolveDurationNs     int64  `json:"resolve_duration_total_ns"`
}

// InMemoryRecorder stores metrics in memory, for tests and for the admin
// metrics snapshot endpoint.
type InMemoryRecorder struct {
	keysIssued            uint64
	keyValidationsValid   uint64
	keyValidationsInvalid uint64
	scriptsCreated        uint64
	scriptsDeleted        uint64
	accessAllowed         uint64
	accessForbidden       uint64
	accessKicked          uint64
	accessNotFound        uint64
	resolveDurationCount  uint64
	resolveDurationNs     int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		KeysIssued:            atomic.LoadUint64(&m.keysIssued),
		KeyValidationsValid:   atomic.LoadUint64(&m.keyValidationsValid),
		KeyValidationsInvalid: atomic.LoadUint64(&m.keyValidationsInvalid),
		ScriptsCreated:        atomic.LoadUint64(&m.scriptsCreated),
		ScriptsDeleted:        atomic.LoadUint64(&m.scriptsDeleted),
		AccessAllowed:         atomic.LoadUint64(&m.accessAllowed),
		AccessForbidden:       atomic.LoadUint64(&m.accessForbidden),
		AccessKicked:          atomic.LoadUint64(&m.accessKicked),
		AccessNotFound:        atomic.LoadUint64(&m.accessNotFound),
		ResolveDurationCount:  atomic.LoadUint64(&m.resolveDurationCount),
		ResolveDurationNs:     atomic.LoadInt64(&m.resolveDurationNs),
	}
}

// IncKeyIssued increments the issued-key counter.
func (m *InMemoryRecorder) IncKeyIssued() {
	atomic.AddUint64(&m.keysIssued, 1)
}

// IncKeyValidated increments the validation counter for the status.
func (m *InMemoryRecorder) IncKeyValidated(status string) {
	if status == StatusValid {
		atomic.AddUint64(&m.keyValidationsValid, 1)
	} else {
		atomic.AddUint64(&m.keyValidationsInvalid, 1)
	}
}

// IncScriptCreated increments the script created counter.
func (m *InMemoryRecorder) IncScriptCreated() {
	atomic.AddUint64(&m.scriptsCreated, 1)
}

// IncScriptDeleted increments the script deleted counter.
func (m *InMemoryRecorder) IncScriptDeleted() {
	atomic.AddUint64(&m.scriptsDeleted, 1)
}

// IncAccessResolved increments the resolution counter for the outcome.
func (m *InMemoryRecorder) IncAccessResolved(outcome string) {
	switch outcome {
	case OutcomeAllow:
		atomic.AddUint64(&m.accessAllowed, 1)
	case OutcomeForbidden:
		atomic.AddUint64(&m.accessForbidden, 1)
	case OutcomeKick:
		atomic.AddUint64(&m.accessKicked, 1)
	case OutcomeNotFound:
		atomic.AddUint64(&m.accessNotFound, 1)
	}
}

// ObserveResolveDuration records a resolution duration.
func (m *InMemoryRecorder) ObserveResolveDuration(duration time.Duration) {
	atomic.AddUint64(&m.resolveDurationCount, 1)
	atomic.AddInt64(&m.resolveDurationNs, duration.Nanoseconds())
}
