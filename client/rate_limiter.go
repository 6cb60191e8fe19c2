package client

import (
	"context"
	"io"
	"sync"
	"time"
)

// RateLimiter is a token bucket measured in bytes per second. A nil *RateLimiter
// does not limit.
type RateLimiter struct {
	mu     sync.Mutex
	rate   int64   // bytes per second
	tokens float64 // current available tokens
	last   time.Time
}

// NewRateLimiter returns nil for a non-positive rate.
func NewRateLimiter(bytesPerSecond int64) *RateLimiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	return &RateLimiter{rate: bytesPerSecond, tokens: float64(bytesPerSecond), last: time.Now()}
}

// SetRate changes the rate in place, capping any saved-up tokens to the new burst size.
func (l *RateLimiter) SetRate(bytesPerSecond int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rate = bytesPerSecond
	if l.tokens > float64(bytesPerSecond) {
		l.tokens = float64(bytesPerSecond)
	}
	l.last = time.Now()
}

// take reserves up to want bytes and returns how many may be read now, or how long to
// wait before asking again.
func (l *RateLimiter) take(want int) (int, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rate <= 0 {
		return want, 0
	}
	now := time.Now()
	if elapsed := now.Sub(l.last).Seconds(); elapsed > 0 {
		l.tokens += elapsed * float64(l.rate)
		if maxTokens := float64(l.rate); l.tokens > maxTokens {
			l.tokens = maxTokens
		}
		l.last = now
	}
	allowed := int(l.tokens)
	if allowed <= 0 {
		return 0, time.Duration(float64(time.Second) / float64(l.rate))
	}
	if want < allowed {
		allowed = want
	}
	l.tokens -= float64(allowed)
	return allowed, 0
}

// Reader wraps r so reads are throttled by l and stop when ctx ends.
func (l *RateLimiter) Reader(ctx context.Context, r io.Reader) io.Reader {
	if l == nil {
		return r
	}
	return &limitedReader{ctx: ctx, under: r, lim: l}
}

type limitedReader struct {
	ctx   context.Context
	under io.Reader
	lim   *RateLimiter
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return lr.under.Read(p)
	}
	for {
		n, wait := lr.lim.take(len(p))
		if n > 0 {
			read, err := lr.under.Read(p[:n])
			if read < n {
				// Give back what the underlying reader did not use.
				lr.lim.mu.Lock()
				lr.lim.tokens += float64(n - read)
				lr.lim.mu.Unlock()
			}
			return read, err
		}
		select {
		case <-lr.ctx.Done():
			return 0, lr.ctx.Err()
		case <-time.After(wait):
		}
	}
}
