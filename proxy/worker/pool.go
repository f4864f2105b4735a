// Package worker provides an asynchronous worker pool that delivers error
// reports to the configured notification sinks.
//
// The pool decouples notification from the relay's HTTP hot path: a failing
// or slow sink can never delay, alter or fail the response to the widget.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/allie-chat/allieproxy/pkg/notify"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultSinkTimeout       = 10 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Report *notify.Report
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Notifiers are the sinks each report is delivered to.
	// An empty list makes every job a no-op.
	Notifiers []notify.Notifier

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// SinkTimeout bounds each individual delivery attempt (defaults to 10s).
	SinkTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool processes notification jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed and the send side of queue.
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.SinkTimeout <= 0 {
		c.SinkTimeout = defaultSinkTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	if job.Report == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Error("notification not queued, pool closed, report dropped",
			"report_id", job.Report.ID,
			"error", job.Report.Message,
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("notification queued",
			"report_id", job.Report.ID,
		)
		return true
	default:
		p.logger.Error("notification not queued, queue full, report dropped",
			"report_id", job.Report.ID,
			"error", job.Report.Message,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the relay HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("notification worker stopped", "worker_id", id)
}

// processJob delivers the job's report to every sink. Each sink gets its own
// attempt and timeout; a failure is logged and does not affect the others.
func (p *Pool) processJob(job Job) {
	if job.Report == nil {
		return
	}

	for _, n := range p.config.Notifiers {
		if err := p.deliver(n, job.Report); err != nil {
			p.logger.Error("notification failed",
				"sink", n.Name(),
				"report_id", job.Report.ID,
				"error", err,
			)
			continue
		}

		p.logger.Info("notification sent",
			"sink", n.Name(),
			"report_id", job.Report.ID,
		)
	}
}

// deliver runs one attempt against n, converting a panic in the sink into a
// notify.Error so a broken sink cannot take the worker down.
func (p *Pool) deliver(n notify.Notifier, report *notify.Report) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.SinkTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = &notify.Error{Sink: n.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := n.Notify(ctx, report); err != nil {
		return &notify.Error{Sink: n.Name(), Err: err}
	}
	return nil
}
