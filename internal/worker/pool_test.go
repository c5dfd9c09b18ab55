package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"gradecore/pkg/domain"
)

type recordingExecutor struct {
	mu  sync.Mutex
	ran []string

	block chan struct{} // when non-nil, Execute waits on this until closed
}

func (r *recordingExecutor) Execute(ctx context.Context, runID string) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	r.ran = append(r.ran, runID)
	r.mu.Unlock()
	return nil
}

func (r *recordingExecutor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ran)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestPoolExecutesEnqueuedRuns(t *testing.T) {
	exec := &recordingExecutor{}
	p := New(exec, 2, 4, nil)
	defer p.Shutdown(time.Second)

	if err := p.Enqueue(context.Background(), "run-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := p.Enqueue(context.Background(), "run-2"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitFor(t, func() bool { return exec.count() == 2 })
}

func TestPoolEnqueueFailsBusyWhenQueueFull(t *testing.T) {
	exec := &recordingExecutor{block: make(chan struct{})}
	p := New(exec, 1, 1, nil)
	defer func() {
		close(exec.block)
		p.Shutdown(time.Second)
	}()

	if err := p.Enqueue(context.Background(), "run-1"); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	waitFor(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		_, inFlight := p.cancels["run-1"]
		return inFlight
	})

	if err := p.Enqueue(context.Background(), "run-2"); err != nil {
		t.Fatalf("second Enqueue (should just fill the queue): %v", err)
	}

	err := p.Enqueue(context.Background(), "run-3")
	if err == nil || !domain.Is(err, domain.KindBusy) {
		t.Fatalf("expected Busy, got %v", err)
	}
}

func TestPoolCancelStopsInFlightRun(t *testing.T) {
	started := make(chan struct{})
	exec := &blockingOnStartExecutor{started: started}
	p := New(exec, 1, 1, nil)
	defer p.Shutdown(time.Second)

	if err := p.Enqueue(context.Background(), "run-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	<-started

	p.Cancel("run-1")
	waitFor(t, func() bool { return exec.canceled() })
}

type blockingOnStartExecutor struct {
	started chan struct{}

	mu       sync.Mutex
	wasCancel bool
}

func (e *blockingOnStartExecutor) Execute(ctx context.Context, runID string) error {
	close(e.started)
	<-ctx.Done()
	e.mu.Lock()
	e.wasCancel = true
	e.mu.Unlock()
	return ctx.Err()
}

func (e *blockingOnStartExecutor) canceled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wasCancel
}
