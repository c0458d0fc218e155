package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRecipeCacheHit is a no-op.
func (n *NoopRecorder) IncRecipeCacheHit() {}

// IncRecipeCacheMiss is a no-op.
func (n *NoopRecorder) IncRecipeCacheMiss() {}

// IncOfflineDumpServed is a no-op.
func (n *NoopRecorder) IncOfflineDumpServed() {}

// IncPaymentCreated is a no-op.
func (n *NoopRecorder) IncPaymentCreated() {}

// IncRecurringExecution is a no-op.
func (n *NoopRecorder) IncRecurringExecution(status string) {}

// IncExchangeRateLookup is a no-op.
func (n *NoopRecorder) IncExchangeRateLookup(source string) {}

// ObserveSchedulerRun is a no-op.
func (n *NoopRecorder) ObserveSchedulerRun(duration time.Duration) {}

// IncTournamentScoreRecorded is a no-op.
func (n *NoopRecorder) IncTournamentScoreRecorded(stage string) {}
