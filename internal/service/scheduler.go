package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler defers effects to a future instant without blocking the caller.
// Pending timers are in-memory only; the sweep loops re-derive anything a
// restart dropped from the durable scheduled_at/ephemeral_expires_at fields.
// Effects are not cancellable once accepted.
type Scheduler struct {
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[*time.Timer]struct{}),
	}
}

// After runs effect exactly once at now+d. A non-positive d runs it on its
// own goroutine immediately. The effect must not block indefinitely.
func (s *Scheduler) After(d time.Duration, name string, effect func()) {
	if s.ctx.Err() != nil {
		return
	}

	if d <= 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runEffect(name, effect)
		}()
		return
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.timersMu.Lock()
		delete(s.timers, t)
		s.timersMu.Unlock()

		if s.ctx.Err() != nil {
			return
		}
		s.runEffect(name, effect)
	})

	s.timersMu.Lock()
	s.timers[t] = struct{}{}
	s.timersMu.Unlock()
}

// Every runs effect on an interval until the scheduler stops. Used for the
// reconciliation sweeps.
func (s *Scheduler) Every(interval time.Duration, name string, effect func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runEffect(name, effect)
			}
		}
	}()
}

// runEffect shields the scheduler from panicking effects. Failed effects
// log and drop; there is no retry queue.
func (s *Scheduler) runEffect(name string, effect func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled effect panicked",
				zap.String("effect", name),
				zap.Any("panic", r),
			)
		}
	}()
	effect()
}

// Stop cancels pending timers and waits for running effects.
func (s *Scheduler) Stop() {
	s.cancel()

	s.timersMu.Lock()
	for t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
	s.timersMu.Unlock()

	s.wg.Wait()
}
