package auth

import "errors"

var (
	// ErrRefreshFailed is returned to every request waiting on a refresh cycle that failed.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrNoRefreshCredential means neither a stored refresh token nor a refresh cookie is available.
	ErrNoRefreshCredential = errors.New("no refresh credential available")
	// ErrMissingAccessToken means the server answered without an access token.
	ErrMissingAccessToken = errors.New("response did not contain an access token")
)
