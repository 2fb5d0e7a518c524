package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"gridcore/pkg/domain"
)

// ErrSchedulerClosed is returned by Enqueue after Close has been called.
var ErrSchedulerClosed = errors.New("scheduler closed")

// ExecuteFunc runs one mutation to completion. The scheduler calls it from
// drain goroutines; it must be safe for concurrent use across distinct keys.
type ExecuteFunc func(ctx context.Context, m Mutation) (Outcome, Result, error)

// Scheduler serializes mutations per key while letting unrelated keys run in
// parallel. Each key owns a FIFO queue drained by at most one goroutine at a
// time; order within a key is the enqueue order, and a mutation's effects are
// committed before the next mutation on the same key starts.
type Scheduler struct {
	exec    ExecuteFunc
	policy  RetryPolicy
	metrics MetricsRecorder
	timeout time.Duration

	mu      sync.Mutex
	queues  map[string][]*queueItem
	running map[string]bool
	closed  bool
	wg      sync.WaitGroup
}

type queueItem struct {
	id       string
	mutation Mutation
	done     chan struct{}
	outcome  Outcome
	result   Result
	err      error
}

// SchedulerOption customizes scheduler construction.
type SchedulerOption func(*Scheduler)

// WithRetryPolicy overrides the default retry budget.
func WithRetryPolicy(policy RetryPolicy) SchedulerOption {
	return func(s *Scheduler) { s.policy = policy }
}

// WithSchedulerMetrics installs a metrics recorder.
func WithSchedulerMetrics(rec MetricsRecorder) SchedulerOption {
	return func(s *Scheduler) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithExecutionTimeout bounds each execution attempt.
func WithExecutionTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewScheduler constructs a scheduler around the execute function.
func NewScheduler(exec ExecuteFunc, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		exec:    exec,
		policy:  DefaultRetryPolicy(),
		metrics: NoopMetricsRecorder{},
		timeout: 5 * time.Second,
		queues:  make(map[string][]*queueItem),
		running: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pending is a handle to an enqueued mutation.
type Pending struct {
	item *queueItem
}

// ID returns the queue-assigned identifier of the mutation.
func (p *Pending) ID() string {
	return p.item.id
}

// Wait blocks until the mutation has been executed (or dropped) and returns
// its outcome. Cancelling ctx abandons the wait, not the mutation: it keeps
// its queue slot and still executes.
func (p *Pending) Wait(ctx context.Context) (Outcome, Result, error) {
	select {
	case <-p.item.done:
		return p.item.outcome, p.item.result, p.item.err
	case <-ctx.Done():
		return Outcome{}, Result{}, ctx.Err()
	}
}

// Enqueue validates m and appends it to the queue for its serialization key.
// It never blocks on execution.
func (s *Scheduler) Enqueue(m Mutation) (*Pending, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	key := m.QueueKey()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSchedulerClosed
	}
	item := &queueItem{
		id:       ulid.Make().String(),
		mutation: m,
		done:     make(chan struct{}),
	}
	s.queues[key] = append(s.queues[key], item)
	depth := len(s.queues[key])
	if !s.running[key] {
		s.running[key] = true
		s.wg.Add(1)
		go s.drain(key)
	}
	s.mu.Unlock()

	s.metrics.QueueDepth(key, depth)
	return &Pending{item: item}, nil
}

// drain pops items for key until its queue empties, then retires. A later
// Enqueue on the same key starts a fresh drain goroutine.
func (s *Scheduler) drain(key string) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		queue := s.queues[key]
		if len(queue) == 0 {
			delete(s.queues, key)
			delete(s.running, key)
			s.mu.Unlock()
			s.metrics.QueueDepth(key, 0)
			return
		}
		item := queue[0]
		s.queues[key] = queue[1:]
		depth := len(s.queues[key])
		s.mu.Unlock()
		s.metrics.QueueDepth(key, depth)

		s.execute(key, item)
		close(item.done)
	}
}

// execute runs one item with the retry budget. Retryable failures are retried
// in place so later mutations on the key cannot overtake; exhausting the
// budget drops the mutation with a QueueSaturatedError and the drain moves on.
func (s *Scheduler) execute(key string, item *queueItem) {
	start := time.Now()
	attempts := s.policy.attempts()
	var (
		outcome Outcome
		result  Result
		err     error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		outcome, result, err = s.exec(ctx, item.mutation)
		cancel()
		if err == nil || !retryable(err) {
			break
		}
		if attempt < attempts {
			time.Sleep(s.policy.pause(attempt))
		}
	}
	if err != nil && retryable(err) {
		err = domain.QueueSaturatedError{Key: key, Attempts: attempts, Err: err}
		s.metrics.Dropped(key)
	}
	item.outcome = outcome
	item.result = result
	item.err = err
	s.metrics.Observe(context.Background(), string(item.mutation.Kind), err == nil, time.Since(start))
}

// Close stops accepting mutations and waits for every queued mutation to
// finish executing.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
