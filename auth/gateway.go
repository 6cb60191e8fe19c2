package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultLoginRoute is where the Navigator is sent when credentials are purged.
	DefaultLoginRoute = "/login"
	// DefaultRefreshCookie is the name of the HTTP-only refresh cookie.
	DefaultRefreshCookie = "refresh_token"
	// DefaultRefreshTimeout bounds a single refresh call.
	DefaultRefreshTimeout = 15 * time.Second
)

type retriedKey struct{}

// MarkRetried returns a copy of req flagged as a replay after a refresh.
func MarkRetried(req *http.Request) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), retriedKey{}, true))
}

// IsRetried reports whether req is already a replay.
func IsRetried(req *http.Request) bool {
	v, _ := req.Context().Value(retriedKey{}).(bool)
	return v
}

// Gateway is an http.RoundTripper that attaches the access token to every request and,
// on a 401, runs a single shared refresh cycle before replaying the request once.
type Gateway struct {
	base      http.RoundTripper
	store     TokenStore
	refresher Refresher
	coord     *Coordinator
	navigator Navigator

	loginRoute     string
	jar            http.CookieJar
	refreshURL     *url.URL
	refreshCookie  string
	refreshTimeout time.Duration
	onToken        func(string)
}

var _ http.RoundTripper = (*Gateway)(nil)

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithCoordinator shares a Coordinator between gateways, or injects one for tests.
func WithCoordinator(c *Coordinator) GatewayOption {
	return func(g *Gateway) { g.coord = c }
}

// WithNavigator sets where the application is sent after an unrecoverable refresh failure.
func WithNavigator(n Navigator) GatewayOption {
	return func(g *Gateway) { g.navigator = n }
}

// WithLoginRoute overrides DefaultLoginRoute.
func WithLoginRoute(route string) GatewayOption {
	return func(g *Gateway) { g.loginRoute = route }
}

// WithCookieJar lets the gateway fall back to a refresh cookie held in jar.
func WithCookieJar(jar http.CookieJar) GatewayOption {
	return func(g *Gateway) { g.jar = jar }
}

// WithRefreshURL sets the URL whose cookies are checked for the refresh cookie.
func WithRefreshURL(raw string) GatewayOption {
	return func(g *Gateway) {
		u, err := url.Parse(raw)
		if err != nil {
			log.Warn().Err(err).Str("url", raw).Msg("Ignoring invalid refresh URL")
			return
		}
		g.refreshURL = u
	}
}

// WithRefreshCookie overrides DefaultRefreshCookie.
func WithRefreshCookie(name string) GatewayOption {
	return func(g *Gateway) { g.refreshCookie = name }
}

// WithRefreshTimeout overrides DefaultRefreshTimeout.
func WithRefreshTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.refreshTimeout = d }
}

// WithTokenListener registers a callback invoked with every newly refreshed access token.
func WithTokenListener(fn func(token string)) GatewayOption {
	return func(g *Gateway) { g.onToken = fn }
}

// NewGateway wraps base. A nil base uses http.DefaultTransport.
func NewGateway(base http.RoundTripper, store TokenStore, refresher Refresher, opts ...GatewayOption) *Gateway {
	if base == nil {
		base = http.DefaultTransport
	}
	g := &Gateway{
		base:           base,
		store:          store,
		refresher:      refresher,
		coord:          NewCoordinator(),
		loginRoute:     DefaultLoginRoute,
		refreshCookie:  DefaultRefreshCookie,
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Coordinator exposes the refresh state, mainly for observation.
func (g *Gateway) Coordinator() *Coordinator { return g.coord }

// RoundTrip implements http.RoundTripper.
func (g *Gateway) RoundTrip(req *http.Request) (*http.Response, error) {
	req, err := replayable(req)
	if err != nil {
		return nil, err
	}

	resp, err := g.base.RoundTrip(g.authorize(req))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || IsRetried(req) {
		return resp, nil
	}

	drainAndClose(resp)
	log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("Access token rejected")

	token, err := g.awaitRefresh(req.Context())
	if err != nil {
		return nil, err
	}
	return g.replay(req, token)
}

// Refresh starts a refresh cycle, or joins the one already running.
func (g *Gateway) Refresh(ctx context.Context) error {
	_, err := g.awaitRefresh(ctx)
	return err
}

// authorize is the outbound interceptor: it never fails and never blocks.
func (g *Gateway) authorize(req *http.Request) *http.Request {
	out := req.Clone(req.Context())
	if tok, ok := g.store.AccessToken(); ok {
		out.Header.Set("Authorization", "Bearer "+tok)
	}
	return out
}

// awaitRefresh joins the coordinator and returns the token produced by the cycle.
func (g *Gateway) awaitRefresh(ctx context.Context) (string, error) {
	leader, wait := g.coord.Join()
	if leader {
		out := g.runCycle(ctx)
		n := g.coord.Resolve(out)
		log.Debug().Int("queued", n).Bool("ok", out.Err == nil).Msg("Refresh cycle resolved")
		return out.AccessToken, out.Err
	}

	select {
	case out := <-wait:
		return out.AccessToken, out.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// runCycle performs exactly one refresh call and applies its result to the store.
func (g *Gateway) runCycle(ctx context.Context) Outcome {
	// The refresh must not be cut short by the caller that happened to lead the cycle.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.refreshTimeout)
	defer cancel()

	cred := ResolveCredential(g.store, g.jar, g.refreshURL, g.refreshCookie)
	var (
		token string
		err   error
	)
	if cred.Kind == CredentialNone {
		err = ErrNoRefreshCredential
	} else {
		token, err = g.refresher.Refresh(ctx, cred)
		if err == nil && token == "" {
			err = ErrMissingAccessToken
		}
	}

	if err != nil {
		g.failClosed(err)
		return Outcome{Err: fmt.Errorf("%w: %w", ErrRefreshFailed, err)}
	}

	if perr := g.store.SetAccessToken(token); perr != nil {
		log.Warn().Err(perr).Msg("Refreshed token could not be persisted; using it for this session")
	}
	if g.onToken != nil {
		g.onToken(token)
	}
	log.Info().Stringer("credential", cred.Kind).Msg("Access token refreshed")
	return Outcome{AccessToken: token}
}

// failClosed purges credentials and sends the application to the login route.
func (g *Gateway) failClosed(cause error) {
	log.Error().Err(cause).Msg("Token refresh failed; clearing credentials")
	if err := g.store.ClearAll(); err != nil {
		log.Error().Err(err).Msg("Failed to clear credentials")
	}
	if g.navigator != nil {
		g.navigator.Navigate(g.loginRoute)
	}
}

// replay resends req once with the new token.
func (g *Gateway) replay(req *http.Request, token string) (*http.Response, error) {
	marked := MarkRetried(req)
	out := marked.Clone(marked.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		out.Body = body
	}
	out.Header.Set("Authorization", "Bearer "+token)
	return g.base.RoundTrip(out)
}

// replayable returns req, or a shallow copy with a buffered body when the original body
// cannot be rewound for a replay.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}
	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	out := req.WithContext(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(buf))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	return out, nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
