package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/shiinazuki/zero2prod/internal/domain"
	"github.com/shiinazuki/zero2prod/internal/email"
	"github.com/shiinazuki/zero2prod/internal/ratelimiter"
	"github.com/shiinazuki/zero2prod/internal/repository"
)

// Worker is a single goroutine that continuously drains the delivery queue:
// claim one task under a row lock, send through the mail provider, resolve
// the task. Transient provider failures leave the task queued with a pushed
// retry time; a recipient address that does not parse is a permanent failure
// and is discarded after logging.
type Worker struct {
	id          int
	queue       repository.DeliveryQueueRepository
	sender      email.Sender
	limiter     *ratelimiter.Limiter
	poll        time.Duration
	sendTimeout time.Duration
	backoff     []time.Duration
	logger      *zap.Logger

	// Metric hooks injected by the pool; the worker stays metrics-agnostic.
	onSent      func(latency time.Duration)
	onRetried   func()
	onDiscarded func()
}

// NewWorker constructs a worker. The metric hooks are optional (nil = no-op).
func NewWorker(
	id int,
	queue repository.DeliveryQueueRepository,
	sender email.Sender,
	limiter *ratelimiter.Limiter,
	poll, sendTimeout time.Duration,
	backoff []time.Duration,
	logger *zap.Logger,
	onSent func(time.Duration),
	onRetried func(),
	onDiscarded func(),
) *Worker {
	if onSent == nil {
		onSent = func(time.Duration) {}
	}
	if onRetried == nil {
		onRetried = func() {}
	}
	if onDiscarded == nil {
		onDiscarded = func() {}
	}
	return &Worker{
		id: id, queue: queue, sender: sender, limiter: limiter,
		poll: poll, sendTimeout: sendTimeout, backoff: backoff, logger: logger,
		onSent: onSent, onRetried: onRetried, onDiscarded: onDiscarded,
	}
}

// Run blocks until ctx is cancelled. The cancellation check sits at the
// idle/poll boundary: a task claimed before shutdown is sent and resolved
// before the worker exits, so no task is ever abandoned half-processed.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("delivery worker started", zap.Int("id", w.id))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("delivery worker stopping", zap.Int("id", w.id))
			return
		default:
		}

		claim, err := w.queue.ClaimTask(ctx)
		if errors.Is(err, domain.ErrEmptyQueue) {
			w.sleep(ctx)
			continue
		}
		if err != nil {
			w.logger.Error("failed to claim delivery task", zap.Error(err))
			w.sleep(ctx)
			continue
		}

		w.process(ctx, claim)
	}
}

func (w *Worker) process(ctx context.Context, claim repository.TaskClaim) {
	start := time.Now()
	task := claim.Task()
	issue := claim.Issue()
	log := w.logger.With(
		zap.String("issue_id", task.NewsletterIssueID.String()),
		zap.String("recipient", task.SubscriberEmail),
	)

	// From here on the claim must be resolved even if shutdown started,
	// so resolution runs on a context that survives cancellation.
	resolveCtx := context.WithoutCancel(ctx)

	recipient, err := domain.ParseSubscriberEmail(task.SubscriberEmail)
	if err != nil {
		// Stored garbage never becomes deliverable; retrying is futile.
		log.Warn("discarding task with invalid recipient address")
		w.resolve(resolveCtx, claim.Delete, log)
		w.onDiscarded()
		return
	}

	if err := w.limiter.Wait(ctx); err != nil {
		// ctx cancelled while waiting for a send slot, so the worker is
		// shutting down; put the task back untouched.
		_ = claim.Release(resolveCtx)
		return
	}

	// The send carries its own deadline, detached from the shutdown signal:
	// an in-flight send is always allowed to finish.
	sendCtx, cancel := context.WithTimeout(resolveCtx, w.sendTimeout)
	err = w.sender.Send(sendCtx, recipient, issue.Title, issue.HTMLContent, issue.TextContent)
	cancel()

	switch {
	case err == nil:
		w.resolve(resolveCtx, claim.Delete, log)
		w.onSent(time.Since(start))
		log.Info("newsletter issue delivered", zap.Duration("latency", time.Since(start)))

	case email.IsPermanent(err):
		log.Warn("discarding task after permanent provider failure", zap.Error(err))
		w.resolve(resolveCtx, claim.Delete, log)
		w.onDiscarded()

	default:
		retryIn := w.retryDelay(task.NAttempts)
		log.Warn("provider send failed, task left for retry",
			zap.Error(err),
			zap.Int("n_attempts", task.NAttempts),
			zap.Duration("retry_in", retryIn),
		)
		if err := claim.Fail(resolveCtx, retryIn); err != nil {
			log.Error("failed to reschedule delivery task", zap.Error(err))
		}
		w.onRetried()
	}
}

func (w *Worker) resolve(ctx context.Context, del func(context.Context) error, log *zap.Logger) {
	if err := del(ctx); err != nil {
		log.Error("failed to delete delivery task", zap.Error(err))
	}
}

// retryDelay picks the backoff for the next attempt:
//
//	attempt 0 → backoff[0]
//	attempt 1 → backoff[1]
//	attempt N ≥ len(backoff) → last backoff entry (clamped)
func (w *Worker) retryDelay(attempts int) time.Duration {
	if len(w.backoff) == 0 {
		return w.poll
	}
	if attempts >= len(w.backoff) {
		attempts = len(w.backoff) - 1
	}
	return w.backoff[attempts]
}

// sleep waits one poll interval, returning early on cancellation.
func (w *Worker) sleep(ctx context.Context) {
	t := time.NewTimer(w.poll)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
