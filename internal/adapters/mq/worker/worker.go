// Package worker drains the match-submission queue and applies results.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/mq/queue"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/repository"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Submission is what workers read off the queue.
type Submission = model.MatchSubmission

// Applier applies one match result to the rating state.
type Applier interface {
	ApplyResult(ctx context.Context, sub Submission) error
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Submission
}

// Worker processes queued submissions through the Applier.
type Worker struct {
	queue   Queue
	applier Applier
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// NewWorker creates a worker reading from queue and applying via applier.
func NewWorker(q Queue, applier Applier, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		applier:  applier,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logger.Get().Named(w.name)
	return w
}

// Run starts the worker loop until ctx is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	submissions := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case sub, ok := <-submissions:
			if !ok {
				return
			}
			w.process(ctx, sub)
		}
	}
}

// Shutdown stops the worker and waits for the current submission to finish.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, sub Submission) {
	start := time.Now()
	err := w.applier.ApplyResult(ctx, sub)
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))

	switch {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicateResult):
		// Replays are expected under retried bulk ingest; not a failure.
		w.logger.Debug(ctx, "skipping already-recorded match",
			logger.String("matchID", sub.MatchID),
		)
	default:
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "apply_error")
		w.logger.Error(ctx, "applying match result",
			logger.String("matchID", sub.MatchID),
			logger.Error(err),
		)
	}
}

// Pool manages a set of workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates workerCount workers; workerCount < 1 defaults to a
// multiple of the CPU count.
func NewPool(workerCount int, q Queue, applier Applier) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(q, applier, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stop shuts every worker down, bounded by the pool shutdown timeout.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
	defer cancel()

	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker did not stop cleanly", logger.Error(err))
		}
	}
	metrics.UpdateWorkerCount(0)
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}
