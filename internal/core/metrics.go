package core

import (
	"context"
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsRecorder receives one observation per executed mutation and per
// queue event. Implementations must be safe for concurrent use; the scheduler
// calls Observe from every drain goroutine.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	QueueDepth(key string, depth int)
	Dropped(key string)
}

// NoopMetricsRecorder discards all observations.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}
func (NoopMetricsRecorder) QueueDepth(string, int)                               {}
func (NoopMetricsRecorder) Dropped(string)                                       {}

var expvarSeq uint64

// ExpvarMetricsRecorder publishes aggregate timing and result counters via
// expvar for deployments that prefer process-local metrics without external
// dependencies. Totals are kept in milliseconds per operation alongside
// success/error counters, queue depths, and drop counts.
type ExpvarMetricsRecorder struct {
	name      string
	mu        sync.Mutex
	durations map[string]float64
	results   map[string]map[string]int64
	depths    map[string]int
	dropped   map[string]int64
}

// ExpvarMetricsSnapshot captures a read-only view of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	QueueDepths map[string]int              `json:"queue_depths"`
	Dropped     map[string]int64            `json:"dropped_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder constructs an expvar-backed recorder and publishes
// it under the supplied name. When name is empty, a unique identifier is
// generated.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("gridcore_metrics_%d", id)
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		durations: make(map[string]float64),
		results:   make(map[string]map[string]int64),
		depths:    make(map[string]int),
		dropped:   make(map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Snapshot returns an immutable copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	durations := make(map[string]float64, len(r.durations))
	for op, total := range r.durations {
		durations[op] = total
	}

	results := make(map[string]map[string]int64, len(r.results))
	for op, statusCounts := range r.results {
		cpy := make(map[string]int64, len(statusCounts))
		for status, count := range statusCounts {
			cpy[status] = count
		}
		results[op] = cpy
	}

	depths := make(map[string]int, len(r.depths))
	for key, depth := range r.depths {
		depths[key] = depth
	}

	dropped := make(map[string]int64, len(r.dropped))
	for key, count := range r.dropped {
		dropped[key] = count
	}

	return ExpvarMetricsSnapshot{
		DurationsMS: durations,
		Results:     results,
		QueueDepths: depths,
		Dropped:     dropped,
		RecordedAt:  time.Now().UTC(),
	}
}

// Observe records a mutation outcome.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	status := "error"
	if success {
		status = "success"
	}

	r.mu.Lock()
	r.durations[operation] += ms
	if _, ok := r.results[operation]; !ok {
		r.results[operation] = make(map[string]int64, 2)
	}
	r.results[operation][status]++
	r.mu.Unlock()
}

// QueueDepth records the current depth of a serialization key's queue.
func (r *ExpvarMetricsRecorder) QueueDepth(key string, depth int) {
	r.mu.Lock()
	if depth == 0 {
		delete(r.depths, key)
	} else {
		r.depths[key] = depth
	}
	r.mu.Unlock()
}

// Dropped counts a mutation abandoned after exhausting its retry budget.
func (r *ExpvarMetricsRecorder) Dropped(key string) {
	r.mu.Lock()
	r.dropped[key]++
	r.mu.Unlock()
}
