package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ivanoskov/sg_finance_bot/internal/logger"
)

var (
	ErrStopped   = errors.New("worker pool is stopped")
	ErrQueueFull = errors.New("chat queue is full")
)

// Job is one unit of work for a conversation.
type Job func(ctx context.Context)

// Metrics is a snapshot of the pool counters.
type Metrics struct {
	JobsProcessed   uint64  `json:"jobs_processed"`
	JobsDropped     uint64  `json:"jobs_dropped"`
	JobsPanicked    uint64  `json:"jobs_panicked"`
	AvgProcessingMs float64 `json:"avg_processing_ms"`
	QueuedJobs      int     `json:"queued_jobs"`
	ActiveLanes     int     `json:"active_lanes"`
	LanesRetired    uint64  `json:"lanes_retired"`
}

// lane is the FIFO queue of one key, drained by its own goroutine.
type lane struct {
	key        int64
	queue      []Job
	busy       bool
	lastActive time.Time
	wake       chan struct{}
	quit       chan struct{}
}

// WorkerPool runs jobs on one lane per key. Jobs submitted with the same key
// run one at a time in submission order; lanes of different keys never wait
// on each other. A lane is created on first use and retired once it has been
// idle for the idle timeout.
type WorkerPool struct {
	queueSize   int
	idleTimeout time.Duration

	mu      sync.Mutex
	lanes   map[int64]*lane
	stopped bool
	stopCh  chan struct{}

	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	processed  atomic.Uint64
	dropped    atomic.Uint64
	panicked   atomic.Uint64
	retired    atomic.Uint64
	durationMs atomic.Uint64
}

// NewWorkerPool creates a pool whose lanes hold at most queueSize pending
// jobs each.
func NewWorkerPool(queueSize int, idleTimeout time.Duration) *WorkerPool {
	if queueSize < 1 {
		queueSize = 100
	}
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		queueSize:   queueSize,
		idleTimeout: idleTimeout,
		lanes:       make(map[int64]*lane),
		stopCh:      make(chan struct{}),
		ctx:         ctx,
		cancelFunc:  cancel,
	}
}

// Start launches the reaper that retires idle lanes.
func (wp *WorkerPool) Start() {
	logger.Get().Info("Starting worker pool",
		zap.Int("queue_size", wp.queueSize),
		zap.Duration("idle_timeout", wp.idleTimeout))
	wp.wg.Add(1)
	go wp.reap()
}

// Stop rejects new jobs, lets queued jobs finish and waits for every lane.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	logger.Get().Info("Stopping worker pool")
	wp.stopped = true
	close(wp.stopCh)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.cancelFunc()
}

// Submit queues job on the lane of key. It never blocks: a stopped pool
// returns ErrStopped and a lane already holding queueSize jobs returns
// ErrQueueFull.
func (wp *WorkerPool) Submit(ctx context.Context, key int64, job Job) error {
	if err := ctx.Err(); err != nil {
		wp.dropped.Add(1)
		return err
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		wp.dropped.Add(1)
		logger.Get().Warn("Worker pool is stopped, job not submitted", zap.Int64("key", key))
		return ErrStopped
	}

	l, ok := wp.lanes[key]
	if !ok {
		l = &lane{
			key:        key,
			lastActive: time.Now(),
			wake:       make(chan struct{}, 1),
			quit:       make(chan struct{}),
		}
		wp.lanes[key] = l
		wp.wg.Add(1)
		go wp.run(l)
		logger.Get().Debug("Lane started", zap.Int64("key", key))
	}

	if len(l.queue) >= wp.queueSize {
		wp.dropped.Add(1)
		logger.Get().Warn("Lane is full, job not submitted", zap.Int64("key", key), zap.Int("queued", len(l.queue)))
		return ErrQueueFull
	}
	l.queue = append(l.queue, job)

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

func (wp *WorkerPool) run(l *lane) {
	defer wp.wg.Done()

	stopping := false
	for {
		if job, ok := wp.next(l); ok {
			start := time.Now()
			wp.execute(l.key, job)
			wp.processed.Add(1)
			wp.durationMs.Add(uint64(time.Since(start).Milliseconds()))
			continue
		}
		if stopping {
			return
		}

		select {
		case <-l.wake:
		case <-l.quit:
			return
		case <-wp.stopCh:
			stopping = true
		}
	}
}

// next pops the oldest job of l and marks the lane busy while it runs.
func (wp *WorkerPool) next(l *lane) (Job, bool) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if len(l.queue) == 0 {
		l.busy = false
		l.lastActive = time.Now()
		return nil, false
	}
	job := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	l.busy = true
	return job, true
}

func (wp *WorkerPool) execute(key int64, job Job) {
	defer func() {
		if r := recover(); r != nil {
			wp.panicked.Add(1)
			logger.Get().Error("Job panicked",
				zap.Int64("key", key),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	job(wp.ctx)
}

func (wp *WorkerPool) reap() {
	defer wp.wg.Done()

	interval := wp.idleTimeout / 2
	if interval <= 0 {
		interval = wp.idleTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-wp.stopCh:
			return
		case now := <-ticker.C:
			wp.retireIdle(now)
		}
	}
}

// retireIdle stops lanes that have had nothing to do since before the idle
// timeout. A later job for the same key starts a fresh lane.
func (wp *WorkerPool) retireIdle(now time.Time) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	for key, l := range wp.lanes {
		if l.busy || len(l.queue) > 0 || now.Sub(l.lastActive) < wp.idleTimeout {
			continue
		}
		close(l.quit)
		delete(wp.lanes, key)
		wp.retired.Add(1)
		logger.Get().Debug("Lane retired", zap.Int64("key", key))
	}
}

// Metrics returns the current counters.
func (wp *WorkerPool) Metrics() Metrics {
	m := Metrics{
		JobsProcessed: wp.processed.Load(),
		JobsDropped:   wp.dropped.Load(),
		JobsPanicked:  wp.panicked.Load(),
		LanesRetired:  wp.retired.Load(),
	}
	if m.JobsProcessed > 0 {
		m.AvgProcessingMs = float64(wp.durationMs.Load()) / float64(m.JobsProcessed)
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()
	m.ActiveLanes = len(wp.lanes)
	for _, l := range wp.lanes {
		m.QueuedJobs += len(l.queue)
	}
	return m
}
