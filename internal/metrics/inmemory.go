package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RecipeCacheHits       uint64
	RecipeCacheMisses     uint64
	OfflineDumpsServed    uint64
	PaymentsCreated       uint64
	RecurringSucceeded    uint64
	RecurringFailed       uint64
	ExchangeCacheHits     uint64
	ExchangeAPICalls      uint64
	ExchangeErrors        uint64
	SchedulerRunCount     uint64
	SchedulerRunTotalNs   int64
	GroupScoresRecorded   uint64
	BracketScoresRecorded uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	recipeCacheHits       atomic.Uint64
	recipeCacheMisses     atomic.Uint64
	offlineDumpsServed    atomic.Uint64
	paymentsCreated       atomic.Uint64
	recurringSucceeded    atomic.Uint64
	recurringFailed       atomic.Uint64
	exchangeCacheHits     atomic.Uint64
	exchangeAPICalls      atomic.Uint64
	exchangeErrors        atomic.Uint64
	schedulerRunCount     atomic.Uint64
	schedulerRunTotalNs   atomic.Int64
	groupScoresRecorded   atomic.Uint64
	bracketScoresRecorded atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		RecipeCacheHits:       m.recipeCacheHits.Load(),
		RecipeCacheMisses:     m.recipeCacheMisses.Load(),
		OfflineDumpsServed:    m.offlineDumpsServed.Load(),
		PaymentsCreated:       m.paymentsCreated.Load(),
		RecurringSucceeded:    m.recurringSucceeded.Load(),
		RecurringFailed:       m.recurringFailed.Load(),
		ExchangeCacheHits:     m.exchangeCacheHits.Load(),
		ExchangeAPICalls:      m.exchangeAPICalls.Load(),
		ExchangeErrors:        m.exchangeErrors.Load(),
		SchedulerRunCount:     m.schedulerRunCount.Load(),
		SchedulerRunTotalNs:   m.schedulerRunTotalNs.Load(),
		GroupScoresRecorded:   m.groupScoresRecorded.Load(),
		BracketScoresRecorded: m.bracketScoresRecorded.Load(),
	}
}

// IncRecipeCacheHit increments the recipe cache hit counter.
func (m *InMemoryRecorder) IncRecipeCacheHit() {
	m.recipeCacheHits.Add(1)
}

// IncRecipeCacheMiss increments the recipe cache miss counter.
func (m *InMemoryRecorder) IncRecipeCacheMiss() {
	m.recipeCacheMisses.Add(1)
}

// IncOfflineDumpServed increments the offline dump counter.
func (m *InMemoryRecorder) IncOfflineDumpServed() {
	m.offlineDumpsServed.Add(1)
}

// IncPaymentCreated increments the payment created counter.
func (m *InMemoryRecorder) IncPaymentCreated() {
	m.paymentsCreated.Add(1)
}

// IncRecurringExecution counts a recurring payment execution by status.
func (m *InMemoryRecorder) IncRecurringExecution(status string) {
	if status == StatusSuccess {
		m.recurringSucceeded.Add(1)
		return
	}
	m.recurringFailed.Add(1)
}

// IncExchangeRateLookup counts an exchange rate lookup by source.
func (m *InMemoryRecorder) IncExchangeRateLookup(source string) {
	switch source {
	case SourceCache:
		m.exchangeCacheHits.Add(1)
	case SourceAPI:
		m.exchangeAPICalls.Add(1)
	default:
		m.exchangeErrors.Add(1)
	}
}

// ObserveSchedulerRun records a scheduler run duration.
func (m *InMemoryRecorder) ObserveSchedulerRun(duration time.Duration) {
	m.schedulerRunCount.Add(1)
	m.schedulerRunTotalNs.Add(duration.Nanoseconds())
}

// IncTournamentScoreRecorded counts a recorded score by stage.
func (m *InMemoryRecorder) IncTournamentScoreRecorded(stage string) {
	if stage == StageBracket {
		m.bracketScoresRecorded.Add(1)
		return
	}
	m.groupScoresRecorded.Add(1)
}
