package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// refreshRequest is the body of POST /auth/refresh. An empty body means the refresh cookie
// carries the credential.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Detail      string `json:"detail,omitempty"`
}

// HTTPRefresher implements Refresher against the refresh endpoint.
type HTTPRefresher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRefresher builds a refresher that talks to endpoint through base, never through the
// gateway, so a failing refresh cannot start another refresh. jar may be nil.
func NewHTTPRefresher(endpoint string, base http.RoundTripper, jar http.CookieJar, timeout time.Duration) *HTTPRefresher {
	if base == nil {
		base = http.DefaultTransport
	}
	return &HTTPRefresher{
		endpoint: endpoint,
		client:   &http.Client{Transport: base, Jar: jar, Timeout: timeout},
	}
}

// Refresh sends the refresh call and returns the new access token.
func (r *HTTPRefresher) Refresh(ctx context.Context, cred Credential) (string, error) {
	var payload refreshRequest
	switch cred.Kind {
	case CredentialExplicit:
		payload.RefreshToken = cred.Token
	case CredentialCookie:
	default:
		return "", ErrNoRefreshCredential
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.Debug().Str("url", r.endpoint).Stringer("credential", cred.Kind).Msg("Refreshing access token")
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send refresh request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh response: %w", err)
	}

	var result refreshResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && result.Detail != "" {
			return "", fmt.Errorf("refresh rejected with status %d: %s", resp.StatusCode, result.Detail)
		}
		return "", fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to parse refresh response: %w", decodeErr)
	}
	if result.AccessToken == "" {
		return "", ErrMissingAccessToken
	}
	return result.AccessToken, nil
}
