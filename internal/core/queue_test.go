package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gridcore/pkg/domain"
)

func addRowMutation(tableID, actor string) Mutation {
	return Mutation{Kind: MutationAddRow, Actor: actor, Payload: AddRowPayload{TableID: tableID}}
}

func TestSchedulerFIFOWithinKey(t *testing.T) {
	var mu sync.Mutex
	var order []string
	var overlap, active atomic.Int32

	exec := func(_ context.Context, m Mutation) (Outcome, Result, error) {
		if active.Add(1) > 1 {
			overlap.Store(1)
		}
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, m.Actor)
		mu.Unlock()
		active.Add(-1)
		return Outcome{}, Result{}, nil
	}
	sched := NewScheduler(exec)
	defer sched.Close()

	const n = 20
	pendings := make([]*Pending, 0, n)
	for i := 0; i < n; i++ {
		p, err := sched.Enqueue(addRowMutation("t1", strconv.Itoa(i)))
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		pendings = append(pendings, p)
	}
	for _, p := range pendings {
		if _, _, err := p.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}

	if overlap.Load() != 0 {
		t.Fatalf("executions on one key overlapped")
	}
	for i, actor := range order {
		if actor != strconv.Itoa(i) {
			t.Fatalf("order[%d] = %s, want %d (full order %v)", i, actor, i, order)
		}
	}
}

func TestSchedulerParallelismAcrossKeys(t *testing.T) {
	release := make(chan struct{})
	firstRunning := make(chan struct{})
	exec := func(_ context.Context, m Mutation) (Outcome, Result, error) {
		if p := m.Payload.(AddRowPayload); p.TableID == "slow" {
			close(firstRunning)
			<-release
		}
		return Outcome{}, Result{}, nil
	}
	sched := NewScheduler(exec)
	defer sched.Close()

	slow, err := sched.Enqueue(addRowMutation("slow", "a"))
	if err != nil {
		t.Fatalf("enqueue slow: %v", err)
	}
	<-firstRunning

	fast, err := sched.Enqueue(addRowMutation("fast", "b"))
	if err != nil {
		t.Fatalf("enqueue fast: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, _, err := fast.Wait(ctx); err != nil {
		t.Fatalf("fast key blocked behind slow key: %v", err)
	}

	close(release)
	if _, _, err := slow.Wait(context.Background()); err != nil {
		t.Fatalf("slow wait: %v", err)
	}
}

func TestSchedulerRetriesTransientThenDrops(t *testing.T) {
	var attempts atomic.Int32
	exec := func(context.Context, Mutation) (Outcome, Result, error) {
		attempts.Add(1)
		return Outcome{}, Result{}, errors.New("connection reset")
	}
	sched := NewScheduler(exec, WithRetryPolicy(RetryPolicy{MaxAttempts: 3}))
	defer sched.Close()

	p, err := sched.Enqueue(addRowMutation("t1", "a"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	_, _, err = p.Wait(context.Background())

	var saturated domain.QueueSaturatedError
	if !errors.As(err, &saturated) {
		t.Fatalf("expected QueueSaturatedError, got %v", err)
	}
	if saturated.Attempts != 3 || attempts.Load() != 3 {
		t.Fatalf("attempts = %d (error says %d), want 3", attempts.Load(), saturated.Attempts)
	}
	if saturated.Key != "table/t1" {
		t.Fatalf("key = %q", saturated.Key)
	}
}

func TestSchedulerDropKeepsKeyDraining(t *testing.T) {
	exec := func(_ context.Context, m Mutation) (Outcome, Result, error) {
		if m.Actor == "poison" {
			return Outcome{}, Result{}, errors.New("boom")
		}
		return Outcome{}, Result{}, nil
	}
	sched := NewScheduler(exec, WithRetryPolicy(RetryPolicy{MaxAttempts: 2}))
	defer sched.Close()

	poison, err := sched.Enqueue(addRowMutation("t1", "poison"))
	if err != nil {
		t.Fatalf("enqueue poison: %v", err)
	}
	healthy, err := sched.Enqueue(addRowMutation("t1", "healthy"))
	if err != nil {
		t.Fatalf("enqueue healthy: %v", err)
	}

	if _, _, err := poison.Wait(context.Background()); err == nil {
		t.Fatalf("poison mutation should fail")
	}
	if _, _, err := healthy.Wait(context.Background()); err != nil {
		t.Fatalf("queue stalled after drop: %v", err)
	}
}

func TestSchedulerDoesNotRetryDeterministicFailures(t *testing.T) {
	var attempts atomic.Int32
	exec := func(context.Context, Mutation) (Outcome, Result, error) {
		attempts.Add(1)
		return Outcome{}, Result{}, LimitError{Entity: EntityRow, Limit: 10}
	}
	sched := NewScheduler(exec, WithRetryPolicy(RetryPolicy{MaxAttempts: 5}))
	defer sched.Close()

	p, err := sched.Enqueue(addRowMutation("t1", "a"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	_, _, err = p.Wait(context.Background())

	var limit LimitError
	if !errors.As(err, &limit) {
		t.Fatalf("expected LimitError, got %v", err)
	}
	var saturated domain.QueueSaturatedError
	if errors.As(err, &saturated) {
		t.Fatalf("deterministic failure wrongly wrapped as saturation: %v", err)
	}
	if attempts.Load() != 1 {
		t.Fatalf("attempts = %d, want 1", attempts.Load())
	}
}

func TestSchedulerValidatesBeforeEnqueue(t *testing.T) {
	exec := func(context.Context, Mutation) (Outcome, Result, error) {
		t.Fatalf("invalid mutation reached the executor")
		return Outcome{}, Result{}, nil
	}
	sched := NewScheduler(exec)
	defer sched.Close()

	_, err := sched.Enqueue(Mutation{Kind: MutationAddRow, Payload: AddRowPayload{}})
	var invalid ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSchedulerCloseDrainsAndRejects(t *testing.T) {
	var executed atomic.Int32
	exec := func(context.Context, Mutation) (Outcome, Result, error) {
		time.Sleep(time.Millisecond)
		executed.Add(1)
		return Outcome{}, Result{}, nil
	}
	sched := NewScheduler(exec)

	const n = 5
	for i := 0; i < n; i++ {
		if _, err := sched.Enqueue(addRowMutation("t1", fmt.Sprintf("%d", i))); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	sched.Close()

	if executed.Load() != n {
		t.Fatalf("executed = %d, want %d", executed.Load(), n)
	}
	if _, err := sched.Enqueue(addRowMutation("t1", "late")); !errors.Is(err, ErrSchedulerClosed) {
		t.Fatalf("expected ErrSchedulerClosed, got %v", err)
	}
}

func TestSchedulerWaitHonorsContext(t *testing.T) {
	block := make(chan struct{})
	exec := func(context.Context, Mutation) (Outcome, Result, error) {
		<-block
		return Outcome{}, Result{}, nil
	}
	sched := NewScheduler(exec)

	p, err := sched.Enqueue(addRowMutation("t1", "a"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, _, err := p.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	// The mutation still executes despite the abandoned wait.
	close(block)
	sched.Close()
	if _, _, err := p.Wait(context.Background()); err != nil {
		t.Fatalf("mutation lost after abandoned wait: %v", err)
	}
}

func TestSchedulerRetiresIdleKeys(t *testing.T) {
	exec := func(context.Context, Mutation) (Outcome, Result, error) {
		return Outcome{}, Result{}, nil
	}
	sched := NewScheduler(exec)
	defer sched.Close()

	for _, table := range []string{"t1", "t2", "t3"} {
		p, err := sched.Enqueue(addRowMutation(table, "a"))
		if err != nil {
			t.Fatalf("enqueue %s: %v", table, err)
		}
		if _, _, err := p.Wait(context.Background()); err != nil {
			t.Fatalf("wait %s: %v", table, err)
		}
	}

	// Drains retire shortly after delivering their last result.
	deadline := time.Now().Add(2 * time.Second)
	for {
		sched.mu.Lock()
		queues, running := len(sched.queues), len(sched.running)
		sched.mu.Unlock()
		if queues == 0 && running == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("scheduler kept %d queues and %d running entries after drain", queues, running)
		}
		time.Sleep(time.Millisecond)
	}
}
