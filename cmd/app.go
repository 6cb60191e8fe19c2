package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/habedi/tasksctl/auth"
	"github.com/habedi/tasksctl/client"
	"github.com/habedi/tasksctl/config"
	"github.com/habedi/tasksctl/db"
	"github.com/habedi/tasksctl/pkg/clierr"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// app holds the wired components a command needs.
type app struct {
	cfg       *config.Config
	store     *auth.Store
	gateway   *auth.Gateway
	scheduler *auth.Scheduler
	auth      *auth.Service
	api       *client.Client
	tasks     db.TaskRepository
}

// newApp wires storage, the gateway and the API client. Notices for the user go to stderr.
func newApp(cfg *config.Config, conn *gorm.DB, stderr io.Writer) (*app, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	store := auth.NewStore(db.NewTokenRepository(conn))
	refreshURL := cfg.Endpoint(cfg.RefreshPath)
	parsedRefresh, err := url.Parse(refreshURL)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh URL %q: %w", refreshURL, err)
	}
	jar, err := auth.NewCookieJar(store, parsedRefresh, cfg.RefreshCookie)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	refresher := auth.NewHTTPRefresher(refreshURL, base, jar, cfg.RefreshTimeout)

	var gw *auth.Gateway
	sched := auth.NewScheduler(cfg.RefreshLead, func(ctx context.Context) error { return gw.Refresh(ctx) })
	gw = auth.NewGateway(base, store, refresher,
		auth.WithNavigator(loginNavigator{w: stderr}),
		auth.WithLoginRoute(cfg.LoginRoute),
		auth.WithCookieJar(jar),
		auth.WithRefreshURL(refreshURL),
		auth.WithRefreshCookie(cfg.RefreshCookie),
		auth.WithRefreshTimeout(cfg.RefreshTimeout),
		auth.WithTokenListener(sched.Schedule),
	)

	if tok, ok := store.AccessToken(); ok {
		sched.Schedule(tok)
	}

	plain := &http.Client{Transport: base, Jar: jar, Timeout: cfg.Timeout}
	svc := auth.NewService(store, auth.Endpoints{
		Login:  cfg.Endpoint(cfg.LoginPath),
		Logout: cfg.Endpoint(cfg.LogoutPath),
	}, plain)

	api := client.New(cfg.BaseURL, &http.Client{Transport: gw, Jar: jar, Timeout: cfg.Timeout})

	return &app{
		cfg:       cfg,
		store:     store,
		gateway:   gw,
		scheduler: sched,
		auth:      svc,
		api:       api,
		tasks:     db.NewTaskRepository(conn),
	}, nil
}

func (a *app) close() {
	a.scheduler.Stop()
}

// loginNavigator is the CLI's answer to "go to the login route": tell the user to log in.
type loginNavigator struct {
	w io.Writer
}

func (n loginNavigator) Navigate(route string) {
	log.Debug().Str("route", route).Msg("Login required")
	fmt.Fprintln(n.w, "Your credentials were cleared. Run 'tasksctl login' to sign in again.")
}

// classify turns an operation error into a typed CLI error.
func classify(err error, action string) error {
	if err == nil {
		return nil
	}
	var ce *clierr.Error
	if errors.As(err, &ce) {
		return err
	}

	var apiErr *client.APIError
	var urlErr *url.Error
	switch {
	case errors.Is(err, auth.ErrRefreshFailed):
		return clierr.New(clierr.Auth, action+": session expired", err)
	case errors.As(err, &apiErr):
		msg := action + ": " + apiErr.Error()
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return clierr.New(clierr.Auth, msg, err)
		case apiErr.StatusCode == http.StatusNotFound:
			return clierr.New(clierr.NotFound, msg, err)
		case apiErr.StatusCode >= 500:
			return clierr.New(clierr.Network, msg, err)
		default:
			return clierr.New(clierr.Validation, msg, err)
		}
	case errors.Is(err, context.Canceled):
		return clierr.New(clierr.Internal, action+": cancelled", err)
	case errors.As(err, &urlErr):
		return clierr.New(clierr.Network, action+": "+urlErr.Err.Error(), err)
	}
	return clierr.New(clierr.Internal, action+": "+err.Error(), err)
}
