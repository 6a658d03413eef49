package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/vhlong/readpulse-api/internal/generation"
)

// Common errors returned by the RequestScheduler.
var (
	ErrSchedulerClosed = errors.New("request scheduler is closed")
	ErrQueueFull       = errors.New("request queue is full")
)

// Operation is one unit of remote work: a single bound call against the
// provider. The scheduler executes it, possibly several times, from its one
// drain goroutine.
type Operation func(ctx context.Context) (string, error)

// SchedulerConfig holds the tunables of the request scheduler.
type SchedulerConfig struct {
	// QueueSize is the buffer size of the pending-call queue.
	QueueSize int

	// MaxRetries is how many in-place retries follow the initial attempt
	// when a call fails with a transient server signal.
	MaxRetries int

	// BaseDelay seeds the exponential backoff between in-place retries.
	BaseDelay time.Duration

	// MaxDelay caps the backoff.
	MaxDelay time.Duration

	// InterCallDelay is the fixed spacing between consecutive calls drained
	// from the queue, so the aggregate rate never bursts the remote service.
	InterCallDelay time.Duration
}

// DefaultSchedulerConfig returns the production tunables.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		QueueSize:      64,
		MaxRetries:     3,
		BaseDelay:      time.Second,
		MaxDelay:       10 * time.Second,
		InterCallDelay: 300 * time.Millisecond,
	}
}

// queuedCall is one pending unit of work: the operation to execute, the
// channel its result settles on, and the enqueue timestamp. It is created
// on enqueue, consumed exactly once by the drain loop, and discarded after
// its result channel is written.
type queuedCall struct {
	ctx        context.Context
	op         Operation
	result     chan callResult
	enqueuedAt time.Time
}

type callResult struct {
	text string
	err  error
}

// RequestScheduler serializes outbound calls into a single logical stream:
// enqueued operations are initiated in FIFO order, at most one call from
// the queue is in flight at a time, and consecutive calls are spaced by a
// fixed delay. Transient server failures are retried in place with
// exponential backoff; every other failure is returned immediately for the
// layer above to handle with credential rotation.
//
// A process is expected to wire exactly one scheduler in front of the
// remote service. Running several schedulers is possible but weakens the
// ordering guarantee to per-scheduler FIFO only.
type RequestScheduler struct {
	queue    chan *queuedCall
	cfg      SchedulerConfig
	limiter  *rate.Limiter
	logger   *slog.Logger
	draining atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRequestScheduler creates a scheduler; call Start before enqueuing.
func NewRequestScheduler(cfg SchedulerConfig, logger *slog.Logger) *RequestScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.InterCallDelay > 0 {
		limit = rate.Every(cfg.InterCallDelay)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RequestScheduler{
		queue:   make(chan *queuedCall, cfg.QueueSize),
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With(slog.String("component", "request_scheduler")),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the drain loop. The atomic guard makes Start idempotent:
// there is never more than one drain loop consuming the queue.
func (s *RequestScheduler) Start() {
	if !s.draining.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go s.drain()
}

// Stop shuts the scheduler down and waits for the drain loop to exit.
// Pending calls still in the queue are settled with ErrSchedulerClosed.
func (s *RequestScheduler) Stop() {
	s.cancel()
	s.wg.Wait()

	// Fail whatever is still queued so no caller blocks forever.
	for {
		select {
		case call := <-s.queue:
			call.result <- callResult{err: ErrSchedulerClosed}
		default:
			return
		}
	}
}

// Enqueue appends the operation to the queue and blocks until the drain
// loop settles it, the context is cancelled, or the scheduler stops.
func (s *RequestScheduler) Enqueue(ctx context.Context, op Operation) (string, error) {
	call := &queuedCall{
		ctx:        ctx,
		op:         op,
		result:     make(chan callResult, 1),
		enqueuedAt: time.Now(),
	}

	select {
	case <-s.ctx.Done():
		return "", ErrSchedulerClosed
	case s.queue <- call:
	default:
		return "", fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(s.queue))
	}

	select {
	case res := <-call.result:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.ctx.Done():
		return "", ErrSchedulerClosed
	}
}

// drain is the single queue consumer: one call at a time, a fixed pause
// between calls.
func (s *RequestScheduler) drain() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case call := <-s.queue:
			text, err := s.executeWithRetry(call.ctx, call.op)
			call.result <- callResult{text: text, err: err}

			s.logger.Debug("call settled",
				slog.Duration("queue_wait", time.Since(call.enqueuedAt)),
				slog.Bool("ok", err == nil))

			if err := s.limiter.Wait(s.ctx); err != nil {
				return
			}
		}
	}
}

// executeWithRetry performs the initial attempt plus up to MaxRetries
// in-place retries. Only transient server signals (503, 500) and network
// failures are retried here; anything else is returned immediately so the
// orchestration facade can rotate credentials instead.
func (s *RequestScheduler) executeWithRetry(ctx context.Context, op Operation) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoffDelay(attempt)
			s.logger.Debug("retrying transient failure",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-s.ctx.Done():
				return "", ErrSchedulerClosed
			case <-time.After(delay):
			}
		}

		text, err := op(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !generation.KindOf(err).Transient() {
			return "", err
		}
	}

	return "", lastErr
}

// backoffDelay returns min(BaseDelay * 2^(attempt-1), MaxDelay): strictly
// non-decreasing until the cap.
func (s *RequestScheduler) backoffDelay(attempt int) time.Duration {
	d := s.cfg.BaseDelay << uint(attempt-1)
	if d <= 0 || d > s.cfg.MaxDelay {
		return s.cfg.MaxDelay
	}
	return d
}
