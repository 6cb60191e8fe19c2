package auth

import "sync"

// Outcome is the result of one refresh cycle, shared by every request that waited on it.
type Outcome struct {
	AccessToken string
	Err         error
}

// Coordinator owns the refresh-in-progress flag and the queue of pending requests.
// At most one cycle is active at a time; callers that arrive while it runs are queued
// and settled together by Resolve.
type Coordinator struct {
	mu       sync.Mutex
	inFlight bool
	pending  []chan Outcome
}

// NewCoordinator returns an idle Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Join either starts a cycle (leader == true, wait == nil) or queues the caller behind the
// running one. A leader must call Resolve exactly once.
func (c *Coordinator) Join() (leader bool, wait <-chan Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inFlight {
		c.inFlight = true
		return true, nil
	}
	ch := make(chan Outcome, 1)
	c.pending = append(c.pending, ch)
	return false, ch
}

// Resolve ends the active cycle and delivers the outcome to every queued caller.
// It returns the number of callers settled.
func (c *Coordinator) Resolve(out Outcome) int {
	c.mu.Lock()
	queued := c.pending
	c.pending = nil
	c.inFlight = false
	c.mu.Unlock()

	// Channels are buffered, so a caller that stopped waiting does not block the cycle.
	for _, ch := range queued {
		ch <- out
		close(ch)
	}
	return len(queued)
}

// InProgress reports whether a cycle is active.
func (c *Coordinator) InProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Pending returns how many callers are queued behind the active cycle.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
