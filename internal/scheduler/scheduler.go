package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"scalpbot/internal/logger"
)

// Task is one decision cycle. Its error is logged and never stops the loop.
type Task func(ctx context.Context) error

// SerialScheduler runs a task, waits Interval after it settles, and repeats.
// Runs never overlap because the next one is only scheduled once the current
// one has returned.
type SerialScheduler struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	// OnResult observes every completed run; used for metrics.
	OnResult func(err error, took time.Duration)

	nowFn func() time.Time
	log   *logger.Component
}

func NewSerialScheduler(name string, interval time.Duration) *SerialScheduler {
	return &SerialScheduler{
		Name:           name,
		Interval:       interval,
		RunImmediately: true,
		nowFn:          time.Now,
		log:            logger.Named("scheduler").With("task", name),
	}
}

// Start blocks until ctx is done.
func (s *SerialScheduler) Start(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("scheduler %s: task is nil", s.Name)
	}
	if s.Interval <= 0 {
		return fmt.Errorf("scheduler %s: invalid interval=%s", s.Name, s.Interval)
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	if s.log == nil {
		s.log = logger.Named("scheduler").With("task", s.Name)
	}
	s.log.Infof("started interval=%s run_immediately=%v", s.Interval, s.RunImmediately)

	if !s.RunImmediately && !s.wait(ctx) {
		return nil
	}
	for {
		if ctx.Err() != nil {
			s.log.Infof("ctx done, exit")
			return nil
		}
		s.runOnce(ctx, task)
		if !s.wait(ctx) {
			return nil
		}
	}
}

func (s *SerialScheduler) runOnce(ctx context.Context, task Task) {
	start := s.nowFn()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				s.log.Errorf("recovered panic: %v\n%s", r, debug.Stack())
			}
		}()
		err = task(ctx)
	}()
	took := s.nowFn().Sub(start)
	if err != nil {
		s.log.Warnf("cycle failed after %s: %v", took.Truncate(time.Millisecond), err)
	} else {
		s.log.Debugf("cycle done in %s", took.Truncate(time.Millisecond))
	}
	if s.OnResult != nil {
		s.OnResult(err, took)
	}
}

func (s *SerialScheduler) wait(ctx context.Context) bool {
	timer := time.NewTimer(s.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.log.Infof("ctx done, exit")
		return false
	case <-timer.C:
		return true
	}
}
