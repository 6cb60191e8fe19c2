package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

// newTestScheduler pins the clock so that a token expiring at exp fires after delay.
func newTestScheduler(exp time.Time, lead, delay time.Duration, refresh func(context.Context) error) (*Scheduler, *atomic.Int32) {
	fired := &atomic.Int32{}
	s := NewScheduler(lead, refresh)
	s.now = func() time.Time { return exp.Add(-lead - delay) }
	s.fired = func() { fired.Add(1) }
	return s, fired
}

func TestScheduler_FiresOnceBeforeExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	var calls atomic.Int32
	s, fired := newTestScheduler(exp, time.Minute, 20*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	s.Schedule(signedToken(t, jwt.MapClaims{"exp": exp.Unix()}))
	assert.True(t, s.Active())

	require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, s.Active())
}

func TestScheduler_RescheduleReplacesTimer(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	var calls atomic.Int32
	s, fired := newTestScheduler(exp, time.Minute, 30*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	tok := signedToken(t, jwt.MapClaims{"exp": exp.Unix()})
	s.Schedule(tok)
	s.Schedule(tok)
	s.Schedule(tok)

	require.Eventually(t, func() bool { return fired.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "only the latest timer may fire")
}

func TestScheduler_NoTimer(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tests := []struct {
		name  string
		token string
		delay time.Duration
	}{
		{"opaque token", "not-a-jwt", time.Second},
		{"missing exp", signedToken(t, jwt.MapClaims{"sub": "u1"}), time.Second},
		{"expires within lead", signedToken(t, jwt.MapClaims{"exp": exp.Unix()}), -time.Second},
		{"exactly at lead", signedToken(t, jwt.MapClaims{"exp": exp.Unix()}), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestScheduler(exp, time.Minute, tt.delay, func(context.Context) error {
				t.Fatal("refresh must not run")
				return nil
			})
			s.Schedule(tt.token)
			assert.False(t, s.Active())
		})
	}
}

func TestScheduler_UnparseableTokenCancelsPrevious(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s, fired := newTestScheduler(exp, time.Minute, 50*time.Millisecond, func(context.Context) error { return nil })

	s.Schedule(signedToken(t, jwt.MapClaims{"exp": exp.Unix()}))
	require.True(t, s.Active())
	s.Schedule("garbage")
	assert.False(t, s.Active())

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestScheduler_Stop(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s, fired := newTestScheduler(exp, time.Minute, 50*time.Millisecond, func(context.Context) error { return nil })

	s.Schedule(signedToken(t, jwt.MapClaims{"exp": exp.Unix()}))
	s.Stop()
	assert.False(t, s.Active())

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestScheduler_RefreshErrorIsSwallowed(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s, fired := newTestScheduler(exp, time.Minute, 10*time.Millisecond, func(context.Context) error {
		return errors.New("refresh down")
	})

	s.Schedule(signedToken(t, jwt.MapClaims{"exp": exp.Unix()}))
	require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, s.Active())
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)
	got, err := tokenExpiry(signedToken(t, jwt.MapClaims{"exp": exp.Unix()}))
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))

	_, err = tokenExpiry("a.b.c")
	assert.Error(t, err)
}

func TestTokenPreview(t *testing.T) {
	assert.Equal(t, "***", tokenPreview("short"))
	assert.Equal(t, "abcdefgh...", tokenPreview("abcdefghijkl"))
}
