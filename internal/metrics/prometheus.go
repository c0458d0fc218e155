package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homestead"

// PrometheusRecorder records metrics on a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	recipeCache     *prometheus.CounterVec
	offlineDumps    prometheus.Counter
	paymentsCreated prometheus.Counter
	recurring       *prometheus.CounterVec
	exchangeLookups *prometheus.CounterVec
	schedulerRuns   prometheus.Histogram
	scores          *prometheus.CounterVec
}

// NewPrometheus creates a recorder with Go runtime and process collectors registered.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	p := &PrometheusRecorder{
		registry: reg,
		recipeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipe_cache_requests_total",
			Help:      "Recipe list cache lookups by result.",
		}, []string{"result"}),
		offlineDumps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offline_dumps_served_total",
			Help:      "Offline recipe dumps served.",
		}),
		paymentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_created_total",
			Help:      "Cospend payments created.",
		}),
		recurring: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_executions_total",
			Help:      "Recurring payment executions by status.",
		}, []string{"status"}),
		exchangeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_rate_lookups_total",
			Help:      "Exchange rate lookups by source.",
		}, []string{"source"}),
		schedulerRuns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_run_duration_seconds",
			Help:      "Duration of recurring payment scheduler runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		scores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournament_scores_recorded_total",
			Help:      "Tournament round scores recorded by stage.",
		}, []string{"stage"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.recipeCache,
		p.offlineDumps,
		p.paymentsCreated,
		p.recurring,
		p.exchangeLookups,
		p.schedulerRuns,
		p.scores,
	)
	return p
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *PrometheusRecorder) IncRecipeCacheHit() {
	p.recipeCache.WithLabelValues("hit").Inc()
}

func (p *PrometheusRecorder) IncRecipeCacheMiss() {
	p.recipeCache.WithLabelValues("miss").Inc()
}

func (p *PrometheusRecorder) IncOfflineDumpServed() {
	p.offlineDumps.Inc()
}

func (p *PrometheusRecorder) IncPaymentCreated() {
	p.paymentsCreated.Inc()
}

func (p *PrometheusRecorder) IncRecurringExecution(status string) {
	p.recurring.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncExchangeRateLookup(source string) {
	p.exchangeLookups.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) ObserveSchedulerRun(duration time.Duration) {
	p.schedulerRuns.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncTournamentScoreRecorded(stage string) {
	p.scores.WithLabelValues(stage).Inc()
}
