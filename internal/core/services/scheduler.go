package services

import (
	"context"
	"sync"
	"time"

	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driving"
	"github.com/zukiwong/mirrornote-prompt/internal/logger"
)

// IntervalSource reports the currently configured update interval. The
// remote configuration may change it between runs.
type IntervalSource interface {
	CurrentInterval() time.Duration
}

// UpdateScheduler triggers periodic configuration updates. Extra runs
// fire when the app returns to the foreground (Resume) and when
// connectivity comes back.
type UpdateScheduler struct {
	updater   driving.ConfigUpdater
	intervals IntervalSource
	reach     driven.Reachability

	mu      sync.Mutex
	running bool

	resumeCh chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewUpdateScheduler wires a scheduler. reach may be nil, in which case
// only the timer and Resume trigger runs.
func NewUpdateScheduler(updater driving.ConfigUpdater, intervals IntervalSource, reach driven.Reachability) *UpdateScheduler {
	return &UpdateScheduler{
		updater:   updater,
		intervals: intervals,
		reach:     reach,
		resumeCh:  make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Resume requests an out-of-band update run, e.g. when the app comes to
// the foreground. Coalesces while a request is pending.
func (s *UpdateScheduler) Resume() {
	select {
	case s.resumeCh <- struct{}{}:
	default:
	}
}

// Start runs the scheduling loop until the context is cancelled or Stop
// is called. It blocks; run it on its own goroutine. The first update
// fires immediately. Calling Start while a loop is already running is a
// no-op returning nil.
func (s *UpdateScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	interval := s.currentInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var connCh <-chan bool
	if s.reach != nil {
		connCh = s.reach.Changes()
	}

	s.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.run(ctx)
		case <-s.resumeCh:
			logger.Debug("foreground resume, checking for configuration updates")
			s.run(ctx)
		case online, ok := <-connCh:
			if !ok {
				connCh = nil
				continue
			}
			if online {
				logger.Debug("connectivity restored, checking for configuration updates")
				s.run(ctx)
			}
		}

		if next := s.currentInterval(); next != interval {
			logger.Debug("update interval changed from %s to %s", interval, next)
			interval = next
			ticker.Reset(interval)
		}
	}
}

// Stop signals the loop to exit and waits for it.
func (s *UpdateScheduler) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	return nil
}

func (s *UpdateScheduler) run(ctx context.Context) {
	if s.reach != nil && !s.reach.Online() {
		logger.Debug("offline, skipping scheduled update")
		return
	}
	if _, err := s.updater.UpdateFromRemote(ctx); err != nil {
		logger.Warn("scheduled configuration update failed: %v", err)
	}
}

func (s *UpdateScheduler) currentInterval() time.Duration {
	if s.intervals != nil {
		if iv := s.intervals.CurrentInterval(); iv > 0 {
			return iv
		}
	}
	return DefaultUpdateInterval
}
