package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shiinazuki/zero2prod/internal/email"
	"github.com/shiinazuki/zero2prod/internal/ratelimiter"
	"github.com/shiinazuki/zero2prod/internal/repository"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the pool constructor signature clean.
type MetricHooks struct {
	OnSent      func(latency time.Duration)
	OnRetried   func()
	OnDiscarded func()
}

// Options bundles the per-worker tuning knobs.
type Options struct {
	Workers      int
	PollInterval time.Duration
	SendTimeout  time.Duration
	RetryBackoff []time.Duration
}

// Pool manages the lifecycle of all delivery workers. Any number of workers
// (and any number of process instances) may drain the same queue: the
// skip-locked claim guarantees a task is only ever held by one of them.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

func NewPool(
	opts Options,
	queue repository.DeliveryQueueRepository,
	sender email.Sender,
	limiter *ratelimiter.Limiter,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	workers := make([]*Worker, opts.Workers)
	for i := range workers {
		workers[i] = NewWorker(
			i, queue, sender, limiter,
			opts.PollInterval, opts.SendTimeout, opts.RetryBackoff,
			logger.With(zap.Int("worker_id", i)),
			hooks.OnSent,
			hooks.OnRetried,
			hooks.OnDiscarded,
		)
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// Cancelling ctx triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
// Call this after cancelling the context so in-flight sends finish.
func (p *Pool) Wait() {
	p.wg.Wait()
}
