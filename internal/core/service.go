package core

import (
	"context"

	"gridcore/pkg/domain"
)

// Service is the write path of the grid backend. Every mutation is validated,
// queued on its serialization key, and executed inside a single store
// transaction; reads go straight to the store's committed state.
type Service struct {
	store   PersistentStore
	sched   *Scheduler
	limits  Limits
	metrics MetricsRecorder
}

// ServiceOption customizes service construction.
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	limits    Limits
	metrics   MetricsRecorder
	policy    RetryPolicy
	schedOpts []SchedulerOption
}

// WithLimits overrides the default entity limits.
func WithLimits(limits Limits) ServiceOption {
	return func(c *serviceConfig) { c.limits = limits }
}

// WithMetrics installs a metrics recorder for mutations and queue state.
func WithMetrics(rec MetricsRecorder) ServiceOption {
	return func(c *serviceConfig) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

// WithServiceRetryPolicy overrides the scheduler's retry budget.
func WithServiceRetryPolicy(policy RetryPolicy) ServiceOption {
	return func(c *serviceConfig) { c.policy = policy }
}

// WithSchedulerOptions forwards extra options to the internal scheduler.
func WithSchedulerOptions(opts ...SchedulerOption) ServiceOption {
	return func(c *serviceConfig) { c.schedOpts = append(c.schedOpts, opts...) }
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	cfg := serviceConfig{
		limits:  domain.DefaultLimits(),
		metrics: NoopMetricsRecorder{},
		policy:  DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Service{
		store:   store,
		limits:  cfg.limits,
		metrics: cfg.metrics,
	}
	schedOpts := append([]SchedulerOption{
		WithRetryPolicy(cfg.policy),
		WithSchedulerMetrics(cfg.metrics),
	}, cfg.schedOpts...)
	s.sched = NewScheduler(s.run, schedOpts...)
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Limits returns the limits the service enforces.
func (s *Service) Limits() Limits {
	return s.limits
}

// run executes one mutation inside a store transaction. It is the scheduler's
// ExecuteFunc; callers never invoke it directly.
func (s *Service) run(ctx context.Context, m Mutation) (Outcome, Result, error) {
	var outcome Outcome
	result, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		outcome, err = s.applyMutation(tx, m)
		return err
	})
	if err != nil {
		return Outcome{}, result, err
	}
	outcome.Rules = result
	return outcome, result, nil
}

// Submit validates the mutation, enqueues it on its serialization key, and
// blocks until it has executed. Cancelling ctx abandons the wait only; the
// mutation keeps its queue slot.
func (s *Service) Submit(ctx context.Context, m Mutation) (Outcome, Result, error) {
	pending, err := s.sched.Enqueue(m)
	if err != nil {
		return Outcome{}, Result{}, err
	}
	return pending.Wait(ctx)
}

// Enqueue validates the mutation and queues it without waiting.
func (s *Service) Enqueue(m Mutation) (*Pending, error) {
	return s.sched.Enqueue(m)
}

// Close drains the queue and stops accepting mutations.
func (s *Service) Close() {
	s.sched.Close()
}

// GetBase returns a committed base record.
func (s *Service) GetBase(id string) (Base, bool) {
	return s.store.GetBase(id)
}

// GetTable returns a committed table record.
func (s *Service) GetTable(id string) (Table, bool) {
	return s.store.GetTable(id)
}

// GetView returns a committed view record.
func (s *Service) GetView(id string) (View, bool) {
	return s.store.GetView(id)
}

// ListBases returns an owner's bases ordered by creation time.
func (s *Service) ListBases(ownerID string) []Base {
	return s.store.ListBases(ownerID)
}

// ListTables returns a base's tables ordered by creation time.
func (s *Service) ListTables(baseID string) []Table {
	return s.store.ListTables(baseID)
}

// ListColumns returns a table's columns in column order.
func (s *Service) ListColumns(tableID string) []Column {
	return s.store.ListColumns(tableID)
}

// ListRows returns a table's rows in row order.
func (s *Service) ListRows(tableID string) []Row {
	return s.store.ListRows(tableID)
}

// ListViews returns a table's views ordered by creation time.
func (s *Service) ListViews(tableID string) []View {
	return s.store.ListViews(tableID)
}

// ListCells returns a table's cell records in key order.
func (s *Service) ListCells(tableID string) []Cell {
	return s.store.ListCells(tableID)
}
