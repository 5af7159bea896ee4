package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncKeyIssued is a no-op.
func (n *NoopRecorder) IncKeyIssued() {}

// IncKeyValidated is a no-op.
func (n *NoopRecorder) IncKeyValidated(status string) {}

// IncScriptCreated is a no-op.
func (n *NoopRecorder) IncScriptCreated() {}

// IncScriptDeleted is a no-op.
func (n *NoopRecorder) IncScriptDeleted() {}

// IncAccessResolved is a no-op.
func (n *NoopRecorder) IncAccessResolved(outcome string) {}

// ObserveResolveDuration is a no-op.
func (n *NoopRecorder) ObserveResolveDuration(duration time.Duration) {}
