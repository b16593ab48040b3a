package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSameKeyRunsInOrder(t *testing.T) {
	wp := NewWorkerPool(100, time.Minute)
	wp.Start()

	var mu sync.Mutex
	var order []int
	var running atomic.Int32
	var overlap atomic.Bool

	for i := 0; i < 50; i++ {
		i := i
		err := wp.Submit(context.Background(), 7, func(ctx context.Context) {
			if running.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			running.Add(-1)
		})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	wp.Stop()

	if overlap.Load() {
		t.Fatal("jobs for the same key overlapped")
	}
	if len(order) != 50 {
		t.Fatalf("expected 50 jobs, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("job %d ran at position %d", v, i)
		}
	}
}

func TestBlockedChatDoesNotStallOthers(t *testing.T) {
	// keys that are equal modulo 8 and used to share a bucket
	tests := []struct {
		name    string
		blocked int64
		others  []int64
	}{
		{"distinct keys", 0, []int64{1}},
		{"colliding keys", 1, []int64{9, 17, -7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wp := NewWorkerPool(10, time.Minute)
			wp.Start()
			defer wp.Stop()

			release := make(chan struct{})
			defer close(release)
			blocked := make(chan struct{})

			if err := wp.Submit(context.Background(), tt.blocked, func(ctx context.Context) {
				close(blocked)
				<-release
			}); err != nil {
				t.Fatalf("Submit: %v", err)
			}
			<-blocked

			var wg sync.WaitGroup
			for _, key := range tt.others {
				wg.Add(1)
				if err := wp.Submit(context.Background(), key, func(ctx context.Context) { wg.Done() }); err != nil {
					t.Fatalf("Submit %d: %v", key, err)
				}
			}

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("a busy chat stalled jobs of other chats")
			}
		})
	}
}

func TestPanicDoesNotKillLane(t *testing.T) {
	wp := NewWorkerPool(10, time.Minute)
	wp.Start()

	var ran atomic.Bool
	wp.Submit(context.Background(), 1, func(ctx context.Context) { panic("boom") })
	wp.Submit(context.Background(), 1, func(ctx context.Context) { ran.Store(true) })
	wp.Stop()

	if !ran.Load() {
		t.Fatal("job after a panic did not run")
	}
	m := wp.Metrics()
	if m.JobsPanicked != 1 || m.JobsProcessed != 2 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	wp := NewWorkerPool(1, time.Minute)
	wp.Start()
	wp.Stop()
	wp.Stop()

	if err := wp.Submit(context.Background(), 1, func(ctx context.Context) {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Submit after stop = %v, want ErrStopped", err)
	}
	if wp.Metrics().JobsDropped != 1 {
		t.Fatal("rejected job should be counted as dropped")
	}
}

func TestSubmitCancelledContext(t *testing.T) {
	wp := NewWorkerPool(1, time.Minute)
	defer wp.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := wp.Submit(ctx, 1, func(ctx context.Context) {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Submit = %v, want context.Canceled", err)
	}
}

func TestFullLaneRejectsWithoutBlocking(t *testing.T) {
	wp := NewWorkerPool(2, time.Minute)
	wp.Start()

	release := make(chan struct{})
	started := make(chan struct{})
	wp.Submit(context.Background(), 5, func(ctx context.Context) {
		close(started)
		<-release
	})
	<-started

	// the running job no longer counts against the queue
	for i := 0; i < 2; i++ {
		if err := wp.Submit(context.Background(), 5, func(ctx context.Context) {}); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	result := make(chan error, 1)
	go func() {
		result <- wp.Submit(context.Background(), 5, func(ctx context.Context) {})
	}()
	select {
	case err := <-result:
		if !errors.Is(err, ErrQueueFull) {
			t.Fatalf("Submit on a full lane = %v, want ErrQueueFull", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full lane")
	}

	if err := wp.Submit(context.Background(), 6, func(ctx context.Context) {}); err != nil {
		t.Fatalf("other chat rejected: %v", err)
	}

	m := wp.Metrics()
	if m.QueuedJobs != 2 || m.JobsDropped != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}

	close(release)
	wp.Stop()
	if got := wp.Metrics().JobsProcessed; got != 4 {
		t.Fatalf("expected 4 processed jobs, got %d", got)
	}
}

func TestIdleLaneIsRetired(t *testing.T) {
	wp := NewWorkerPool(10, 20*time.Millisecond)
	wp.Start()
	defer wp.Stop()

	var runs atomic.Int32
	wp.Submit(context.Background(), 3, func(ctx context.Context) { runs.Add(1) })
	waitFor(t, func() bool {
		m := wp.Metrics()
		return m.ActiveLanes == 0 && m.LanesRetired == 1
	})

	wp.Submit(context.Background(), 3, func(ctx context.Context) { runs.Add(1) })
	waitFor(t, func() bool { return runs.Load() == 2 })
}
