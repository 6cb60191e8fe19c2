package auth

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// CookieStore persists the value of the HTTP-only refresh cookie.
type CookieStore interface {
	RefreshCookie() string
	SetRefreshCookie(value string) error
}

// CookieJar is an http.CookieJar whose refresh cookie lives in a CookieStore, so it
// survives the process and disappears when the store is cleared. Other cookies are kept
// in memory.
type CookieJar struct {
	inner      *cookiejar.Jar
	store      CookieStore
	refreshURL *url.URL
	name       string
	now        func() time.Time
}

var _ http.CookieJar = (*CookieJar)(nil)

// NewCookieJar builds a jar that keeps the cookie called name, as sent to refreshURL, in store.
func NewCookieJar(store CookieStore, refreshURL *url.URL, name string) (*CookieJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &CookieJar{inner: inner, store: store, refreshURL: refreshURL, name: name, now: time.Now}, nil
}

// SetCookies implements http.CookieJar.
func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)
	if j.refreshURL == nil || u.Hostname() != j.refreshURL.Hostname() {
		return
	}
	for _, c := range cookies {
		if c.Name != j.name {
			continue
		}
		value := c.Value
		if c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(j.now())) {
			value = ""
		}
		if value == j.store.RefreshCookie() {
			continue
		}
		if err := j.store.SetRefreshCookie(value); err != nil {
			log.Error().Err(err).Msg("Failed to persist refresh cookie")
			continue
		}
		log.Debug().Bool("cleared", value == "").Msg("Refresh cookie updated")
	}
}

// Cookies implements http.CookieJar. The refresh cookie is taken from the store and is
// only sent to the refresh endpoint.
func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range j.inner.Cookies(u) {
		if c.Name != j.name {
			out = append(out, c)
		}
	}
	if j.refreshURL == nil || u.Hostname() != j.refreshURL.Hostname() || u.Path != j.refreshURL.Path {
		return out
	}
	if v := j.store.RefreshCookie(); v != "" {
		out = append(out, &http.Cookie{Name: j.name, Value: v})
	}
	return out
}
