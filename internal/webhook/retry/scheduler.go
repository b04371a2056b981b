// Package retry schedules webhook redelivery after failed attempts. Each
// pending request id owns one goroutine walking the backoff ladder; a
// successful delivery or an explicit cancel stops it.
package retry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultBackoffSteps is the delivery backoff ladder. Attempts past the
// last step reuse it.
var DefaultBackoffSteps = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	30 * time.Second,
	5 * time.Minute,
}

// DefaultMaxAttempts is the number of retries after the initial send.
const DefaultMaxAttempts = 4

// DeliverFunc performs one redelivery attempt. attempt counts retries
// starting at 1. A nil return stops the schedule.
type DeliverFunc func(ctx context.Context, requestID string, attempt int) error

// Scheduler runs backoff retries for failed webhook deliveries. One
// schedule per request id; scheduling an id that is already pending is a
// no-op.
type Scheduler struct {
	deliver     DeliverFunc
	steps       []time.Duration
	maxAttempts int
	logger      *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingRetry
	closed  bool
	wg      sync.WaitGroup
}

type pendingRetry struct {
	cancel chan struct{}
	once   sync.Once
}

func (p *pendingRetry) stop() {
	p.once.Do(func() { close(p.cancel) })
}

type Option func(*Scheduler)

// WithBackoffSteps overrides the backoff ladder. Tests inject short steps.
func WithBackoffSteps(steps []time.Duration) Option {
	return func(s *Scheduler) {
		if len(steps) > 0 {
			s.steps = steps
		}
	}
}

// WithMaxAttempts caps retries after the initial send. Zero retries
// indefinitely on the last backoff step.
func WithMaxAttempts(n int) Option {
	return func(s *Scheduler) {
		s.maxAttempts = n
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Scheduler invoking deliver for each retry attempt.
func New(deliver DeliverFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		deliver:     deliver,
		steps:       DefaultBackoffSteps,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
		pending:     make(map[string]*pendingRetry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule starts the retry ladder for requestID. Returns false when a
// schedule for the id is already pending or the scheduler is closed.
func (s *Scheduler) Schedule(requestID string) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if _, exists := s.pending[requestID]; exists {
		s.mu.Unlock()
		return false
	}
	p := &pendingRetry{cancel: make(chan struct{})}
	s.pending[requestID] = p
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(requestID, p)
	return true
}

// Cancel stops the pending schedule for requestID, if any. Callers cancel
// when a fresher delivery supersedes the failed one.
func (s *Scheduler) Cancel(requestID string) {
	s.mu.Lock()
	p, ok := s.pending[requestID]
	s.mu.Unlock()
	if ok {
		p.stop()
	}
}

// Close cancels every pending schedule and waits for the retry goroutines
// to drain.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	all := make([]*pendingRetry, 0, len(s.pending))
	for _, p := range s.pending {
		all = append(all, p)
	}
	s.mu.Unlock()

	for _, p := range all {
		p.stop()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(requestID string, p *pendingRetry) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.pending, requestID)
		s.mu.Unlock()
	}()

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	go func() {
		select {
		case <-p.cancel:
			cancelCtx()
		case <-ctx.Done():
		}
	}()

	for attempt := 1; s.maxAttempts == 0 || attempt <= s.maxAttempts; attempt++ {
		stepIdx := attempt - 1
		if stepIdx >= len(s.steps) {
			stepIdx = len(s.steps) - 1
		}
		delay := s.steps[stepIdx]

		timer := time.NewTimer(delay)
		select {
		case <-p.cancel:
			timer.Stop()
			s.logger.Debug("webhook retry canceled", "request_id", requestID, "attempt", attempt)
			return
		case <-timer.C:
		}

		err := s.deliver(ctx, requestID, attempt)
		if err == nil {
			s.logger.Info("webhook retry succeeded", "request_id", requestID, "attempt", attempt)
			return
		}
		s.logger.Warn("webhook retry failed",
			"request_id", requestID,
			"attempt", attempt,
			"error", err)
	}

	s.logger.Error("webhook retries exhausted",
		"request_id", requestID,
		"attempts", s.maxAttempts)
}
