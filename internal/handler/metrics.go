package handler

import (
	"fmt"
	"net/http"

	"github.com/homestead/homestead/internal/metrics"
)

// MetricsHandler exposes recorder state in the Prometheus text format.
type MetricsHandler struct {
	exporter    http.Handler
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler serves the Prometheus registry when recorder has one,
// and otherwise renders in-memory counters. Other recorders answer 503.
func NewMetricsHandler(recorder metrics.Recorder) *MetricsHandler {
	h := &MetricsHandler{}
	switch r := recorder.(type) {
	case *metrics.PrometheusRecorder:
		h.exporter = r.Handler()
	case metrics.Snapshotter:
		h.snapshotter = r
	}
	return h
}

// Metrics handles GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.exporter != nil {
		h.exporter.ServeHTTP(w, r)
		return
	}
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "homestead_recipe_cache_requests_total{result=\"hit\"} %d\n", snap.RecipeCacheHits)
	writeMetric(w, "homestead_recipe_cache_requests_total{result=\"miss\"} %d\n", snap.RecipeCacheMisses)
	writeMetric(w, "homestead_offline_dumps_served_total %d\n", snap.OfflineDumpsServed)

	writeMetric(w, "homestead_payments_created_total %d\n", snap.PaymentsCreated)
	writeMetric(w, "homestead_recurring_executions_total{status=\"success\"} %d\n", snap.RecurringSucceeded)
	writeMetric(w, "homestead_recurring_executions_total{status=\"failed\"} %d\n", snap.RecurringFailed)

	writeMetric(w, "homestead_exchange_rate_lookups_total{source=\"cache\"} %d\n", snap.ExchangeCacheHits)
	writeMetric(w, "homestead_exchange_rate_lookups_total{source=\"api\"} %d\n", snap.ExchangeAPICalls)
	writeMetric(w, "homestead_exchange_rate_lookups_total{source=\"error\"} %d\n", snap.ExchangeErrors)

	writeMetric(w, "homestead_scheduler_run_duration_seconds_count %d\n", snap.SchedulerRunCount)
	writeMetric(w, "homestead_scheduler_run_duration_seconds_sum %.6f\n", float64(snap.SchedulerRunTotalNs)/1e9)

	writeMetric(w, "homestead_tournament_scores_recorded_total{stage=\"group\"} %d\n", snap.GroupScoresRecorded)
	writeMetric(w, "homestead_tournament_scores_recorded_total{stage=\"bracket\"} %d\n", snap.BracketScoresRecorded)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
