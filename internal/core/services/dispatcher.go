package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campus-admissions/internal/pkg/logger"
)

// AsyncDispatcher runs side-effect tasks on a small worker pool
type AsyncDispatcher struct {
	log     *logger.Logger
	queue   chan Task
	workers int
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	started sync.Once
}

// NewAsyncDispatcher creates a dispatcher; call Start before use
func NewAsyncDispatcher(workers, queueSize int, timeout time.Duration, log *logger.Logger) *AsyncDispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AsyncDispatcher{
		log:     log,
		queue:   make(chan Task, queueSize),
		workers: workers,
		timeout: timeout,
	}
}

// Start launches the workers
func (d *AsyncDispatcher) Start() {
	d.started.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
		d.log.WithField("workers", d.workers).Info("🚀 side-effect dispatcher started")
	})
}

// Dispatch queues a task. When the queue is full the task runs on its own
// goroutine; after Stop it runs inline. Tasks are never dropped.
func (d *AsyncDispatcher) Dispatch(task Task) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.run(task)
		return
	}

	select {
	case d.queue <- task:
		return
	default:
		d.log.WithField("task", task.Name).Warn("side-effect queue full, running detached")
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(task)
	}()
}

// Stop stops accepting queued work and waits for in-flight tasks or ctx
func (d *AsyncDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("🛑 side-effect dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AsyncDispatcher) worker() {
	defer d.wg.Done()
	for task := range d.queue {
		d.run(task)
	}
}

func (d *AsyncDispatcher) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	runTask(ctx, d.log, task)
}

// SyncDispatcher runs each task inline on the caller's goroutine
type SyncDispatcher struct {
	Log *logger.Logger
}

func (d SyncDispatcher) Dispatch(task Task) {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	runTask(context.Background(), log, task)
}

func runTask(ctx context.Context, log *logger.Logger, task Task) {
	entry := log.WithField("task", task.Name)
	if task.ApplicationID != 0 {
		entry = entry.WithField("application_id", task.ApplicationID)
	}

	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", fmt.Sprint(r)).Error("side-effect task panicked")
		}
	}()

	if task.Run == nil {
		return
	}
	if err := task.Run(ctx); err != nil {
		entry.WithError(err).Warn("side-effect task failed")
		return
	}
	entry.Debug("side-effect task done")
}
