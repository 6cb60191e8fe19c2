package auth

import (
	"net/http"
	"net/url"
)

// CredentialKind tells how a refresh call authenticates itself.
type CredentialKind int

const (
	// CredentialNone means no refresh credential could be found.
	CredentialNone CredentialKind = iota
	// CredentialExplicit carries a readable refresh token in the request body.
	CredentialExplicit
	// CredentialCookie relies on an HTTP-only cookie attached by the transport's cookie jar.
	CredentialCookie
)

func (k CredentialKind) String() string {
	switch k {
	case CredentialExplicit:
		return "explicit"
	case CredentialCookie:
		return "cookie"
	default:
		return "none"
	}
}

// Credential is the refresh credential used for one refresh call.
type Credential struct {
	Kind  CredentialKind
	Token string // set only for CredentialExplicit
}

// ResolveCredential prefers a readable refresh token and falls back to a refresh cookie
// held by jar for refreshURL. jar and refreshURL may be nil.
func ResolveCredential(store TokenStore, jar http.CookieJar, refreshURL *url.URL, cookieName string) Credential {
	if store != nil {
		if tok, ok := store.RefreshToken(); ok {
			return Credential{Kind: CredentialExplicit, Token: tok}
		}
	}
	if jar == nil || refreshURL == nil {
		return Credential{Kind: CredentialNone}
	}
	for _, c := range jar.Cookies(refreshURL) {
		if c.Name == cookieName && c.Value != "" {
			return Credential{Kind: CredentialCookie}
		}
	}
	return Credential{Kind: CredentialNone}
}
