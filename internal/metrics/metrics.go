// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Label values used by the recorders.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	SourceCache = "cache"
	SourceAPI   = "api"
	SourceError = "error"

	StageGroup   = "group"
	StageBracket = "bracket"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Recipe metrics
	IncRecipeCacheHit()
	IncRecipeCacheMiss()
	IncOfflineDumpServed()

	// Cospend metrics
	IncPaymentCreated()
	IncRecurringExecution(status string) // status: "success" or "failed"
	IncExchangeRateLookup(source string) // source: "cache", "api" or "error"
	ObserveSchedulerRun(duration time.Duration)

	// Tournament metrics
	IncTournamentScoreRecorded(stage string) // stage: "group" or "bracket"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
