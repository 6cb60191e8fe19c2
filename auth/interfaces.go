package auth

import "context"

// TokenStore holds the current access and refresh tokens for the gateway.
type TokenStore interface {
	AccessToken() (string, bool)
	RefreshToken() (string, bool)
	SetAccessToken(token string) error
	ClearAll() error
}

// Refresher exchanges a refresh credential for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, cred Credential) (accessToken string, err error)
}

// Navigator sends the application to a route, used to force re-authentication.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }
