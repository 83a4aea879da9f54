package client

import (
	"context"
	"sync"
	"time"

	"github.com/DoyleJ11/commons-client/internal/clock"
)

// Scheduler turns clock timers into work items for the render loop: a due
// fn is posted to C and run by the loop, never on the timer goroutine.
type Scheduler struct {
	clock clock.Clock
	ready chan func(context.Context)
	done  chan struct{}
	once  sync.Once
}

func NewScheduler(c clock.Clock) *Scheduler {
	return &Scheduler{
		clock: c,
		ready: make(chan func(context.Context), 16),
		done:  make(chan struct{}),
	}
}

func (s *Scheduler) After(d time.Duration, fn func(ctx context.Context)) (cancel func()) {
	t := s.clock.AfterFunc(d, func() {
		select {
		case s.ready <- fn:
		case <-s.done:
		}
	})
	return func() { t.Stop() }
}

func (s *Scheduler) C() <-chan func(context.Context) { return s.ready }

// Stop releases timer callbacks blocked on a loop that has exited.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.done) })
}
