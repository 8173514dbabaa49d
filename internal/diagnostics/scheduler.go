package diagnostics

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the refresh interval used when none is given.
const DefaultInterval = 2 * time.Second

var (
	ErrInvalidInterval = errors.New("refresh interval must be positive")
	ErrNilConsumer     = errors.New("snapshot consumer is nil")
)

// Scheduler collects a snapshot every interval and hands it to a consumer.
// At most one collection is in flight; the next tick is armed only after the
// consumer returns, so slow ticks are delayed rather than queued.
type Scheduler struct {
	collector Collector
	logger    *zap.Logger
	clock     Clock

	// lifecycle serializes Start and Stop so a new loop never starts while
	// a stopping one still has a collection in flight.
	lifecycle sync.Mutex

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// NewScheduler creates a stopped Scheduler driving collector.
func NewScheduler(collector Collector, logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		collector: collector,
		logger:    logger,
		clock:     realClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins periodic collection. A zero interval selects DefaultInterval.
// Starting a running scheduler is a no-op and keeps the current interval and
// consumer. A Start racing Stop waits until the stopped loop has exited. The
// loop also ends when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration, onSnapshot func(SystemStats)) error {
	if interval == 0 {
		interval = DefaultInterval
	}
	if interval < 0 {
		return ErrInvalidInterval
	}
	if onSnapshot == nil {
		return ErrNilConsumer
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningLocked() {
		s.logger.Debug("scheduler already running, ignoring start",
			zap.Duration("interval", s.interval),
		)
		return nil
	}
	if s.cancel != nil {
		// Previous run ended with its parent context; release it.
		s.cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.interval = interval

	s.logger.Info("snapshot scheduler started", zap.Duration("interval", interval))
	go s.run(ctx, interval, onSnapshot, s.done)
	return nil
}

// Stop cancels the periodic task and waits for the loop to exit. A collection
// already in progress is allowed to finish but its snapshot is not delivered.
// Running stays true until that collection returns. No consumer call happens
// after Stop returns. Stop must not be called from inside the consumer.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mu.Lock()
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	s.logger.Info("snapshot scheduler stopped")
}

// Running reports whether the periodic task is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

// Interval returns the interval of the current or most recent run.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// runningLocked must be called with s.mu held.
func (s *Scheduler) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration, onSnapshot func(SystemStats), done chan struct{}) {
	defer close(done)

	for {
		timer := s.clock.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}

		// Provider queries are never interrupted mid-flight.
		stats := s.collector.Collect(context.WithoutCancel(ctx))
		if ctx.Err() != nil {
			return
		}
		onSnapshot(stats)
	}
}
