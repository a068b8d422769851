package metrics

import "sync"

// Call is one recorded counter increment or observation.
type Call struct {
	Name   string
	Value  float64
	Labels Labels
}

// Recorder is an in-memory Backend. It is safe for concurrent use and is
// meant for tests and dry runs.
type Recorder struct {
	mu       sync.Mutex
	counters []Call
	hists    []Call
	flushes  int
}

func (r *Recorder) IncCounter(name string, delta float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, Call{Name: name, Value: delta, Labels: labels})
}

func (r *Recorder) ObserveHistogram(name string, value float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hists = append(r.hists, Call{Name: name, Value: value, Labels: labels})
}

func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return nil
}

// Counters returns a copy of the counter calls in order.
func (r *Recorder) Counters() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.counters...)
}

// Histograms returns a copy of the observations in order.
func (r *Recorder) Histograms() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.hists...)
}

// Sum totals all counter increments named name.
func (r *Recorder) Sum(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s float64
	for _, c := range r.counters {
		if c.Name == name {
			s += c.Value
		}
	}
	return s
}

// Flushes reports how many times Flush was called.
func (r *Recorder) Flushes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushes
}
