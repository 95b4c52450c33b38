package metrics

import (
	"context"
	"time"

	"courtsync/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	syncRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtsync",
		Name:      "sync_runs_total",
		Help:      "Sync runs by kind, trigger and result.",
	}, []string{"kind", "trigger", "result"})

	syncItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtsync",
		Name:      "sync_items_total",
		Help:      "Remote records processed by kind and action.",
	}, []string{"kind", "action"})

	syncRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "courtsync",
		Name:      "sync_run_duration_seconds",
		Help:      "Wall time of sync runs.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"kind"})

	syncLastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "courtsync",
		Name:      "sync_last_success_timestamp_seconds",
		Help:      "Unix time of the last successful, non dry-run sync.",
	}, []string{"kind"})

	remoteRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "courtsync",
		Name:      "ayo_request_duration_seconds",
		Help:      "AYO API request latency by endpoint and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "status"})
)

// Registry holds every collector this service exports.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		syncRunsTotal,
		syncItemsTotal,
		syncRunDuration,
		syncLastSuccess,
		remoteRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveRemoteRequest records one AYO API call. status is the HTTP code or
// "transport_error".
func ObserveRemoteRequest(endpoint, status string, d time.Duration) {
	remoteRequestDuration.WithLabelValues(endpoint, status).Observe(d.Seconds())
}

// Listener turns finished sync runs into metrics.
type Listener struct{}

func NewListener() *Listener {
	return &Listener{}
}

func (l *Listener) Name() string { return "metrics" }

func (l *Listener) SyncFinished(_ context.Context, run *models.SyncRun) error {
	result := "success"
	if run.Stats == nil || !run.Stats.Success {
		result = "failure"
	}
	syncRunsTotal.WithLabelValues(run.Kind, run.Trigger, result).Inc()
	syncRunDuration.WithLabelValues(run.Kind).Observe(run.Duration().Seconds())

	if s := run.Stats; s != nil {
		syncItemsTotal.WithLabelValues(run.Kind, models.ActionCreated).Add(float64(s.Created))
		syncItemsTotal.WithLabelValues(run.Kind, models.ActionUpdated).Add(float64(s.Updated))
		syncItemsTotal.WithLabelValues(run.Kind, models.ActionSkipped).Add(float64(s.Skipped))
		syncItemsTotal.WithLabelValues(run.Kind, models.ActionError).Add(float64(len(s.Errors)))
		syncItemsTotal.WithLabelValues(run.Kind, "discarded").Add(float64(s.Discarded))
		if s.Success && !s.DryRun {
			syncLastSuccess.WithLabelValues(run.Kind).Set(float64(run.FinishedAt.Unix()))
		}
	}
	return nil
}
