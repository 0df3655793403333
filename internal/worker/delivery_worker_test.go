package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shiinazuki/zero2prod/internal/domain"
	"github.com/shiinazuki/zero2prod/internal/email"
	"github.com/shiinazuki/zero2prod/internal/ratelimiter"
	"github.com/shiinazuki/zero2prod/internal/repository"
	"github.com/shiinazuki/zero2prod/internal/worker"
)

// scriptedSender returns one scripted error per call (nil = success) and
// records every invocation. Extra calls beyond the script succeed.
type scriptedSender struct {
	mu     sync.Mutex
	script []error
	calls  []string // recipient per call
	delay  time.Duration
}

func (s *scriptedSender) Send(ctx context.Context, to domain.SubscriberEmail, subject, htmlBody, textBody string) error {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, to.String())
	var err error
	if n < len(s.script) {
		err = s.script[n]
	}
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return err
}

func (s *scriptedSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *scriptedSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func testIssue() domain.NewsletterIssue {
	return domain.NewsletterIssue{
		ID:          uuid.New(),
		Title:       "Issue #1",
		HTMLContent: "<p>Hello</p>",
		TextContent: "Hello",
		PublishedAt: time.Now().UTC(),
	}
}

func runWorkers(t *testing.T, n int, q repository.DeliveryQueueRepository, sender email.Sender) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	pool := worker.NewPool(worker.Options{
		Workers:      n,
		PollInterval: 2 * time.Millisecond,
		SendTimeout:  time.Second,
		RetryBackoff: []time.Duration{time.Millisecond, time.Millisecond},
	}, q, sender, ratelimiter.New(10000), zap.NewNop(), worker.MetricHooks{})
	pool.Start(ctx)
	return func() {
		cancel()
		pool.Wait()
	}
}

// waitDrained polls until the queue is empty or the deadline passes.
func waitDrained(t *testing.T, q *repository.MockDeliveryQueueRepository) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.Remaining() == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("queue not drained: %d tasks remain", q.Remaining())
}

func TestWorker_DrainsQueue(t *testing.T) {
	q := repository.NewMockDeliveryQueueRepository()
	q.Seed(testIssue(), "ursula@domain.com", "sappho@domain.com")
	sender := &scriptedSender{}

	stop := runWorkers(t, 1, q, sender)
	waitDrained(t, q)
	stop()

	if got := sender.callCount(); got != 2 {
		t.Fatalf("expected exactly 2 sends, got %d", got)
	}
	seen := map[string]int{}
	for _, r := range sender.recipients() {
		seen[r]++
	}
	if seen["ursula@domain.com"] != 1 || seen["sappho@domain.com"] != 1 {
		t.Fatalf("expected one send per recipient, got %v", seen)
	}
}

func TestWorker_RetriesTransientFailureUntilSuccess(t *testing.T) {
	q := repository.NewMockDeliveryQueueRepository()
	q.Seed(testIssue(), "ursula@domain.com")
	sender := &scriptedSender{script: []error{
		&email.SendError{StatusCode: 500, Message: "provider down", Permanent: false},
	}}

	stop := runWorkers(t, 1, q, sender)
	waitDrained(t, q)
	stop()

	if got := sender.callCount(); got != 2 {
		t.Fatalf("expected the send to be attempted exactly twice, got %d", got)
	}
}

func TestWorker_NoDuplicateSendWithConcurrentWorkers(t *testing.T) {
	q := repository.NewMockDeliveryQueueRepository()
	q.Seed(testIssue(), "ursula@domain.com")
	// Slow sends widen the race window between the two pollers.
	sender := &scriptedSender{delay: 20 * time.Millisecond}

	stop := runWorkers(t, 2, q, sender)
	waitDrained(t, q)
	stop()

	if got := sender.callCount(); got != 1 {
		t.Fatalf("expected the task to be sent exactly once, got %d sends", got)
	}
}

func TestWorker_DiscardsMalformedRecipient(t *testing.T) {
	q := repository.NewMockDeliveryQueueRepository()
	q.Seed(testIssue(), "definitely-not-an-email")
	sender := &scriptedSender{}

	stop := runWorkers(t, 1, q, sender)
	waitDrained(t, q)
	stop()

	if got := sender.callCount(); got != 0 {
		t.Fatalf("expected no provider call for a malformed recipient, got %d", got)
	}
}

func TestWorker_DiscardsOnPermanentProviderFailure(t *testing.T) {
	q := repository.NewMockDeliveryQueueRepository()
	q.Seed(testIssue(), "rejected@domain.com")
	sender := &scriptedSender{script: []error{
		&email.SendError{StatusCode: 422, Message: "recipient rejected", Permanent: true},
	}}

	stop := runWorkers(t, 1, q, sender)
	waitDrained(t, q)
	stop()

	if got := sender.callCount(); got != 1 {
		t.Fatalf("expected exactly 1 attempt before discard, got %d", got)
	}
}

func TestWorker_StopsCleanlyOnEmptyQueue(t *testing.T) {
	q := repository.NewMockDeliveryQueueRepository()
	sender := &scriptedSender{}

	stop := runWorkers(t, 2, q, sender)
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker pool did not stop within the deadline")
	}
	if sender.callCount() != 0 {
		t.Fatalf("expected no sends on an empty queue, got %d", sender.callCount())
	}
}
