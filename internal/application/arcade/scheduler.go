package arcade

import (
	"sync"
	"time"
)

const (
	// First resolution attempt fires at max(marketEnd - now + grace, min).
	resolutionGrace = 2 * time.Second
	minResolveDelay = 5 * time.Second

	// Pending resolutions retry on a fixed interval, capped.
	retryInterval      = 10 * time.Second
	maxResolveAttempts = 12
)

// scheduler owns one pending timer per bet id. Scheduling a bet that
// already has a timer replaces it; cancel stops it synchronously so a fire
// after cancellation can never reach discarded state.
type scheduler struct {
	clock Clock

	mu     sync.Mutex
	timers map[string]Timer
}

func newScheduler(clock Clock) *scheduler {
	return &scheduler{clock: clock, timers: make(map[string]Timer)}
}

// resolveDelay is the delay until the first resolution attempt for a market
// ending at endTime.
func resolveDelay(endTime, now time.Time) time.Duration {
	d := endTime.Sub(now) + resolutionGrace
	if d < minResolveDelay {
		return minResolveDelay
	}
	return d
}

// schedule arms (or re-arms) the timer for a bet.
func (s *scheduler) schedule(betID string, delay time.Duration, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[betID]; ok {
		t.Stop()
	}
	s.timers[betID] = s.clock.AfterFunc(delay, fire)
}

// cancel stops and forgets the bet's timer, if any.
func (s *scheduler) cancel(betID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[betID]; ok {
		t.Stop()
		delete(s.timers, betID)
	}
}

// cancelAll stops every pending timer.
func (s *scheduler) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// done forgets a fired timer that reached a terminal state.
func (s *scheduler) done(betID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, betID)
}
