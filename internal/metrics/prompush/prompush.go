// Package prompush is the Prometheus Pushgateway backend for package metrics.
//
// The batch normalizer is a short-lived job, so there is nothing to scrape:
// collectors live in a private registry and Flush pushes them once, grouped
// under the job name. The "job" label of metrics calls is therefore dropped;
// the Pushgateway grouping key carries it.
package prompush

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"ytetl/internal/metrics"
)

// Backend is a Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec   // step, status
	stepDuration  *prometheus.HistogramVec // step, status
	recordCounter *prometheus.CounterVec   // kind
	fileCounter   prometheus.Counter
}

// NewBackend constructs a backend pushing to gatewayURL under jobName
// ("ytetl" when empty).
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, errors.New("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "ytetl"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline step executions by step and status.",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.StepDuration,
			Help:    "Pipeline step duration in seconds by step and status.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"step", "status"}),
		recordCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Records by kind (read, mapped, written).",
		}, []string{"kind"}),
		fileCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.FilesTotal,
			Help: "Objects written to the cleansed layer.",
		}),
	}
	for _, c := range []prometheus.Collector{b.stepCounter, b.stepDuration, b.recordCounter, b.fileCounter} {
		if err := b.reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "prompush: register collector")
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.RecordsTotal:
		b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
	case metrics.FilesTotal:
		b.fileCounter.Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the registry to the Pushgateway, replacing the group.
func (b *Backend) Flush() error {
	err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push()
	return errors.Wrapf(err, "prompush: push to %s", b.gatewayURL)
}
