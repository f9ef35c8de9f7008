package observer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kode4food/paisley/pkg/api"
)

type metricsObserver struct {
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	steps        *prometheus.CounterVec
	stepDuration prometheus.Histogram
	retries      prometheus.Counter
}

const metricsNamespace = "paisley"

var _ api.Observer = (*metricsObserver)(nil)

// Metrics creates an observer exporting run and step counters plus
// duration histograms through the given registerer
func Metrics(reg prometheus.Registerer) api.Observer {
	factory := promauto.With(reg)
	return &metricsObserver{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Workflow runs by terminal status",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of settled workflow runs",
			Buckets:   prometheus.DefBuckets,
		}),
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "steps_total",
			Help:      "Step executions by terminal status",
		}, []string{"status"}),
		stepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of settled steps",
			Buckets:   prometheus.DefBuckets,
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "step_retries_total",
			Help:      "Retry waits across all steps",
		}),
	}
}

func (o *metricsObserver) HandleEvent(e api.Event) {
	switch e := e.(type) {
	case api.RunCompletedEvent:
		o.runs.WithLabelValues(string(api.RunCompleted)).Inc()
		o.runDuration.Observe(float64(e.Duration) / 1000)
	case api.RunFailedEvent:
		o.runs.WithLabelValues(string(api.RunFailed)).Inc()
		o.runDuration.Observe(float64(e.Duration) / 1000)
	case api.StepCompletedEvent:
		o.steps.WithLabelValues(string(api.StepCompleted)).Inc()
		o.stepDuration.Observe(float64(e.Duration) / 1000)
	case api.StepFailedEvent:
		o.steps.WithLabelValues(string(e.Status)).Inc()
		o.stepDuration.Observe(float64(e.Duration) / 1000)
	case api.StepSkippedEvent:
		o.steps.WithLabelValues(string(api.StepSkipped)).Inc()
	case api.StepRetryingEvent:
		o.retries.Inc()
	}
}
