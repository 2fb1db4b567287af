package trader

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock abstracts time for the scheduler so tests can simulate slow ticks
// and long waits without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// TickStatus classifies the outcome of one tick.
type TickStatus string

const (
	TickPlaced     TickStatus = "placed"
	TickSkipped    TickStatus = "skipped"
	TickNoDecision TickStatus = "no_decision"
	TickFailed     TickStatus = "failed"
)

// TickOutcome is what a tick reports back to the scheduler. Ticks never
// panic or propagate errors across the scheduling boundary; a failure is
// carried in Err and the schedule advances regardless.
type TickOutcome struct {
	Status TickStatus
	Detail string
	Err    error
}

// ScheduleState is a snapshot of the scheduler's progress.
type ScheduleState struct {
	NextFire  time.Time
	Remaining int
}

// Scheduler runs a fixed number of ticks at a fixed interval without drift:
// each fire time is the previous one plus the interval, independent of how
// long the tick's work took. Skipped time is absorbed, never replayed.
type Scheduler struct {
	interval   time.Duration
	iterations int
	poll       time.Duration
	gate       *PauseGate
	clock      Clock
	logger     *zap.Logger

	mu    sync.Mutex
	state ScheduleState
}

// NewScheduler creates a scheduler with the given cadence and iteration
// budget. The pause flag is checked at least once per second while waiting.
func NewScheduler(interval time.Duration, iterations int, gate *PauseGate, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		interval:   interval,
		iterations: iterations,
		poll:       time.Second,
		gate:       gate,
		clock:      realClock{},
		logger:     logger.Named("scheduler"),
	}
}

// State returns a snapshot of the remaining schedule.
func (s *Scheduler) State() ScheduleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(next time.Time, remaining int) {
	s.mu.Lock()
	s.state = ScheduleState{NextFire: next, Remaining: remaining}
	s.mu.Unlock()
}

// Run executes the tick function once per interval until the iteration
// budget is exhausted or ctx is cancelled. The first tick fires immediately.
func (s *Scheduler) Run(ctx context.Context, tick func(ctx context.Context, iteration int) TickOutcome) error {
	next := s.clock.Now()
	s.setState(next, s.iterations)
	s.logger.Info("Scheduler starting",
		zap.Duration("interval", s.interval),
		zap.Int("iterations", s.iterations))

	for i := 0; i < s.iterations; i++ {
		if err := s.wait(ctx, next); err != nil {
			s.logger.Info("Scheduler stopped", zap.Int("completed", i))
			return err
		}

		outcome := tick(ctx, i)
		if outcome.Err != nil {
			s.logger.Error("Tick failed",
				zap.Int("iteration", i),
				zap.Error(outcome.Err))
		} else {
			s.logger.Info("Tick complete",
				zap.Int("iteration", i),
				zap.String("status", string(outcome.Status)),
				zap.String("detail", outcome.Detail))
		}

		// Advance by the interval, not from "now": a slow tick must not
		// push every later fire time back.
		next = next.Add(s.interval)
		s.setState(next, s.iterations-i-1)
	}

	s.logger.Info("Iteration budget exhausted, scheduler done")
	return nil
}

// wait blocks until the deadline has passed and the gate is open. Both the
// pause flag and cancellation are honored within one poll period.
func (s *Scheduler) wait(ctx context.Context, deadline time.Time) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := s.clock.Now()
		if !s.gate.Paused() && !now.Before(deadline) {
			return nil
		}

		d := s.poll
		if !s.gate.Paused() {
			if remaining := deadline.Sub(now); remaining < d {
				d = remaining
			}
		}
		s.clock.Sleep(d)
	}
}
