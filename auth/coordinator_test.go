package auth_test

import (
	"errors"
	"testing"

	"github.com/habedi/tasksctl/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_FirstJoinLeads(t *testing.T) {
	c := auth.NewCoordinator()
	assert.False(t, c.InProgress())

	leader, wait := c.Join()
	assert.True(t, leader)
	assert.Nil(t, wait)
	assert.True(t, c.InProgress())

	leader, wait = c.Join()
	assert.False(t, leader)
	assert.NotNil(t, wait)
	assert.Equal(t, 1, c.Pending())
}

func TestCoordinator_ResolveSettlesEveryWaiter(t *testing.T) {
	c := auth.NewCoordinator()
	leader, _ := c.Join()
	require.True(t, leader)

	var waits []<-chan auth.Outcome
	for i := 0; i < 4; i++ {
		_, w := c.Join()
		waits = append(waits, w)
	}

	n := c.Resolve(auth.Outcome{AccessToken: "tok"})
	assert.Equal(t, 4, n)
	for _, w := range waits {
		out, ok := <-w
		require.True(t, ok)
		assert.Equal(t, "tok", out.AccessToken)
		assert.NoError(t, out.Err)
		_, open := <-w
		assert.False(t, open, "channel is closed after delivery")
	}
	assert.False(t, c.InProgress())
	assert.Equal(t, 0, c.Pending())
}

func TestCoordinator_ResolveFailureAndNextCycle(t *testing.T) {
	c := auth.NewCoordinator()
	c.Join()
	_, w := c.Join()

	boom := errors.New("boom")
	c.Resolve(auth.Outcome{Err: boom})
	assert.ErrorIs(t, (<-w).Err, boom)

	leader, _ := c.Join()
	assert.True(t, leader, "a new cycle starts once the previous one resolved")
}

func TestCoordinator_AbandonedWaiterDoesNotBlock(t *testing.T) {
	c := auth.NewCoordinator()
	c.Join()
	c.Join() // never read

	assert.Equal(t, 1, c.Resolve(auth.Outcome{AccessToken: "tok"}))
}
