// Package worker provides a bounded job queue drained by a fixed pool of
// goroutines. Submit never blocks: when the queue is full the job is refused.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"brein.evalgo.org/brerr"
	"brein.evalgo.org/common"
)

// ErrPoolStopped is returned by Submit after Stop has been called.
var ErrPoolStopped = errors.New("worker pool stopped")

// Job is a unit of work executed by exactly one worker.
type Job interface {
	// ID identifies the job in logs
	ID() string

	// Process performs the work. ctx is the context given to Start.
	Process(ctx context.Context)
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	Name string
	Fn   func(ctx context.Context)
}

// ID implements Job.
func (j JobFunc) ID() string { return j.Name }

// Process implements Job.
func (j JobFunc) Process(ctx context.Context) { j.Fn(ctx) }

// Config configures the worker pool
type Config struct {
	Workers   int // Number of goroutines processing jobs
	QueueSize int // Jobs accepted but not yet picked up
}

// DefaultConfig returns the default worker configuration
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		QueueSize: 128,
	}
}

// Pool manages a pool of workers that process jobs from a bounded queue
type Pool struct {
	config Config
	queue  chan Job
	logger *common.ContextLogger

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup

	active    atomic.Int64
	processed atomic.Int64
}

// Worker represents a single worker that processes jobs from the queue
type Worker struct {
	id     int
	pool   *Pool
	logger *common.ContextLogger
}

// NewPool creates a new worker pool. Non-positive sizes fall back to the defaults.
func NewPool(config Config, logger *common.ContextLogger) *Pool {
	defaults := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if logger == nil {
		logger = common.NewContextLogger(nil, map[string]interface{}{"component": "worker"})
	}

	return &Pool{
		config: config,
		queue:  make(chan Job, config.QueueSize),
		logger: logger,
	}
}

// Start starts all workers in the pool. ctx is handed to every job; it is
// not used to stop the workers, Stop does that.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.logger.Debugf("Starting worker pool with %d workers, queue size %d", p.config.Workers, p.config.QueueSize)

	for i := 0; i < p.config.Workers; i++ {
		worker := &Worker{
			id:     i,
			pool:   p,
			logger: p.logger.WithField("worker", i),
		}
		p.wg.Add(1)
		go worker.Start(ctx)
	}
}

// Submit enqueues job without blocking. It fails with a queue-full error when
// the queue is at capacity and with ErrPoolStopped after Stop.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- job:
		return nil
	default:
		return brerr.New(brerr.KindQueueFull, "worker.Submit", "%d jobs pending", p.config.QueueSize)
	}
}

// Stop refuses new jobs, lets the workers drain what is queued and waits for
// them to exit. It is safe to call more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.stopped = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	p.logger.Debug("Stopping worker pool...")

	if !started {
		// Nobody will drain the queue; run leftovers inline
		for job := range p.queue {
			(&Worker{id: -1, pool: p, logger: p.logger}).run(context.Background(), job)
		}
	}
	p.wg.Wait()

	p.logger.Debugf("Worker pool stopped after %d jobs", p.processed.Load())
}

// Pending returns the number of queued jobs not yet picked up.
func (p *Pool) Pending() int {
	return len(p.queue)
}

// Active returns the number of jobs currently being processed.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Processed returns the number of jobs finished so far.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Start runs the worker loop until the queue is closed and drained
func (w *Worker) Start(ctx context.Context) {
	defer w.pool.wg.Done()

	for job := range w.pool.queue {
		w.run(ctx, job)
	}
	w.logger.Debug("Worker stopped")
}

// run processes one job; a panicking job does not take the worker down
func (w *Worker) run(ctx context.Context, job Job) {
	w.pool.active.Add(1)
	defer func() {
		w.pool.active.Add(-1)
		w.pool.processed.Add(1)
	}()
	defer common.LogPanic(w.logger.WithField("job", job.ID()))

	job.Process(ctx)
}
