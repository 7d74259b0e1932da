// Package metrics records operational metrics for both normalizers behind a
// narrow, backend-agnostic interface.
//
// A process-wide Backend defaults to a no-op, so instrumentation is always
// safe to call. The batch job installs the Pushgateway backend (package
// prompush) and flushes once at exit; the event function installs the
// DogStatsD backend (package datadog) and flushes after every invocation.
//
// Metric names:
//
//	ytetl_step_total{job,step,status}            counter
//	ytetl_step_duration_seconds{job,step,status} histogram
//	ytetl_records_total{job,kind}                counter (read, mapped, written, ...)
//	ytetl_files_total{job}                       counter (objects written)
package metrics

import (
	"sync"
	"time"
)

// Metric names shared with the backends.
const (
	StepTotal    = "ytetl_step_total"
	StepDuration = "ytetl_step_duration_seconds"
	RecordsTotal = "ytetl_records_total"
	FilesTotal   = "ytetl_files_total"
)

// Steps instrumented by the pipelines.
const (
	StepSelect   = "select"
	StepMap      = "map"
	StepWrite    = "write"
	StepDecode   = "decode"
	StepFlatten  = "flatten"
	StepEnsureDB = "ensure_db"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes buffered metrics.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of step and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow adds delta to the record counter of kind. Non-positive deltas
// are ignored.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordFiles adds delta to the written-objects counter.
func RecordFiles(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(FilesTotal, float64(delta), Labels{"job": job})
}

// Timer starts timing step; call the returned func with the step's error.
func Timer(job, step string) func(error) {
	start := time.Now()
	return func(err error) { RecordStep(job, step, err, time.Since(start)) }
}
