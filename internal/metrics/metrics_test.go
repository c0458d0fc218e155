package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var (
	_ Recorder = (*NoopRecorder)(nil)
	_ Recorder = (*InMemoryRecorder)(nil)
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestInMemoryRecorder(t *testing.T) {
	m := NewInMemory()
	m.IncRecipeCacheHit()
	m.IncRecipeCacheHit()
	m.IncRecipeCacheMiss()
	m.IncRecurringExecution(StatusSuccess)
	m.IncRecurringExecution(StatusFailed)
	m.IncExchangeRateLookup(SourceCache)
	m.IncExchangeRateLookup(SourceAPI)
	m.IncExchangeRateLookup(SourceError)
	m.ObserveSchedulerRun(2 * time.Second)
	m.IncTournamentScoreRecorded(StageBracket)

	snap := m.Snapshot()
	if snap.RecipeCacheHits != 2 || snap.RecipeCacheMisses != 1 {
		t.Errorf("cache counters = %d/%d, want 2/1", snap.RecipeCacheHits, snap.RecipeCacheMisses)
	}
	if snap.RecurringSucceeded != 1 || snap.RecurringFailed != 1 {
		t.Errorf("recurring counters = %d/%d", snap.RecurringSucceeded, snap.RecurringFailed)
	}
	if snap.ExchangeCacheHits != 1 || snap.ExchangeAPICalls != 1 || snap.ExchangeErrors != 1 {
		t.Errorf("exchange counters = %+v", snap)
	}
	if snap.SchedulerRunCount != 1 || snap.SchedulerRunTotalNs != int64(2*time.Second) {
		t.Errorf("scheduler = %d/%d", snap.SchedulerRunCount, snap.SchedulerRunTotalNs)
	}
	if snap.BracketScoresRecorded != 1 || snap.GroupScoresRecorded != 0 {
		t.Errorf("scores = %d/%d", snap.BracketScoresRecorded, snap.GroupScoresRecorded)
	}
}

func TestPrometheusRecorderHandler(t *testing.T) {
	p := NewPrometheus()
	p.IncPaymentCreated()
	p.IncRecipeCacheMiss()
	p.IncTournamentScoreRecorded(StageGroup)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"homestead_payments_created_total 1",
		`homestead_recipe_cache_requests_total{result="miss"} 1`,
		`homestead_tournament_scores_recorded_total{stage="group"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
