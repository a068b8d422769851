// Package metrics is a small backend-agnostic layer for run metrics.
//
// Callers record through package functions; the process-wide Backend defaults
// to a no-op so instrumentation is always safe. Concrete systems live in
// subpackages (prompush, datadog) and are installed once at startup with
// SetBackend.
package metrics

import "time"

// Metric names shared by every backend.
const (
	StepTotal           = "ruian_step_total"
	StepDurationSeconds = "ruian_step_duration_seconds"
	RecordsTotal        = "ruian_records_total"
	EntriesTotal        = "ruian_entries_total"
	BytesTotal          = "ruian_bytes_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend receives counters and timings.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs b. Passing nil keeps the current backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Current returns the installed backend.
func Current() Backend { return backend }

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep counts one execution of a run step (open, parse, entry) and
// observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": status(err)}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows adds delta records of the given kind ("parsed", "discarded").
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordEntry counts one archive entry and its decompressed bytes.
func RecordEntry(job string, bytes int64, err error) {
	backend.IncCounter(EntriesTotal, 1, Labels{"job": job, "status": status(err)})
	if bytes > 0 {
		backend.IncCounter(BytesTotal, float64(bytes), Labels{"job": job})
	}
}
