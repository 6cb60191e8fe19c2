package auth_test

import (
	"context"
	"net/http"
	"sync"

	"github.com/habedi/tasksctl/auth"
)

// memStore is an in-memory TokenStore.
type memStore struct {
	mu      sync.Mutex
	access  string
	refresh string
	cleared int
}

func (m *memStore) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.access != ""
}

func (m *memStore) RefreshToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh, m.refresh != ""
}

func (m *memStore) SetAccessToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = token
	return nil
}

func (m *memStore) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = "", ""
	m.cleared++
	return nil
}

func (m *memStore) clearCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleared
}

// recordingNavigator remembers every route it was sent to.
type recordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNavigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

// countingRefresher wraps a Refresher and counts calls.
type countingRefresher struct {
	mu    sync.Mutex
	next  auth.Refresher
	calls int
	creds []auth.Credential
}

func (c *countingRefresher) Refresh(ctx context.Context, cred auth.Credential) (string, error) {
	c.mu.Lock()
	c.calls++
	c.creds = append(c.creds, cred)
	c.mu.Unlock()
	return c.next.Refresh(ctx, cred)
}

func (c *countingRefresher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
