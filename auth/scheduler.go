package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Scheduler refreshes the access token shortly before it expires. It keeps at most one
// pending timer; scheduling again replaces it.
type Scheduler struct {
	mu      sync.Mutex
	timer   *time.Timer
	lead    time.Duration
	refresh func(ctx context.Context) error
	now     func() time.Time
	fired   func() // test hook, called after each timer-triggered refresh
}

// NewScheduler creates a Scheduler that calls refresh lead before the token's exp claim.
func NewScheduler(lead time.Duration, refresh func(ctx context.Context) error) *Scheduler {
	return &Scheduler{lead: lead, refresh: refresh, now: time.Now}
}

// Schedule cancels any pending timer and arms a new one for token. Tokens without a
// readable exp claim, or that expire within the lead time, leave no timer armed.
// Failures are logged, never returned: reactive refresh on 401 still applies.
func (s *Scheduler) Schedule(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	exp, err := tokenExpiry(token)
	if err != nil {
		log.Warn().Err(err).Msg("Cannot schedule proactive token refresh")
		return
	}
	delay := exp.Add(-s.lead).Sub(s.now())
	if delay <= 0 {
		log.Debug().Time("expires_at", exp).Msg("Token expires within lead time; not scheduling refresh")
		return
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.timer == t {
			s.timer = nil
		}
		s.mu.Unlock()

		if err := s.refresh(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Proactive token refresh failed")
		}
		if s.fired != nil {
			s.fired()
		}
	})
	s.timer = t
	log.Debug().Dur("in", delay).Msg("Proactive token refresh scheduled")
}

// Stop cancels the pending timer, if any.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Active reports whether a timer is pending.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
