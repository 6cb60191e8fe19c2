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

// Endpoints groups the absolute URLs of the authentication API.
type Endpoints struct {
	Login  string
	Logout string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	UserID       string `json:"user_id,omitempty"`
	Email        string `json:"email,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

// Status summarises the stored session.
type Status struct {
	Identity         Identity
	HasAccessToken   bool
	HasRefreshToken  bool
	HasRefreshCookie bool
	ExpiresAt        time.Time // zero when the token is absent or not a JWT
}

// Expired reports whether the access token's exp claim is in the past.
func (s Status) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Service handles login, logout and session inspection.
type Service struct {
	Store     *Store
	Endpoints Endpoints
	client    *http.Client
}

// NewService builds a Service. client should share the gateway's cookie jar so a refresh
// cookie set at login is available to later refresh calls, but must not use the gateway
// as its transport.
func NewService(store *Store, endpoints Endpoints, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{Store: store, Endpoints: endpoints, client: client}
}

// Login exchanges username and password for tokens and persists them.
func (s *Service) Login(ctx context.Context, username, password string) (Status, error) {
	if username == "" || password == "" {
		return Status{}, fmt.Errorf("username and password cannot be empty")
	}

	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return Status{}, fmt.Errorf("failed to encode login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoints.Login, bytes.NewReader(body))
	if err != nil {
		return Status{}, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.Info().Str("url", s.Endpoints.Login).Str("username", username).Msg("Logging in")
	resp, err := s.client.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("failed to send login request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read login response: %w", err)
	}
	var result loginResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && result.Detail != "" {
			return Status{}, fmt.Errorf("login rejected with status %d: %s", resp.StatusCode, result.Detail)
		}
		return Status{}, fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return Status{}, fmt.Errorf("failed to parse login response: %w", decodeErr)
	}
	if result.AccessToken == "" {
		return Status{}, ErrMissingAccessToken
	}

	email := result.Email
	if email == "" {
		email = username
	}
	id := Identity{UserID: result.UserID, Email: email}
	if err := s.Store.SetTokens(result.AccessToken, result.RefreshToken, result.TokenType, id); err != nil {
		return Status{}, err
	}
	log.Info().Str("token", tokenPreview(result.AccessToken)).Bool("refresh_cookie", result.RefreshToken == "").Msg("Login successful")
	return s.Status(), nil
}

// Logout notifies the server (best effort) and clears local credentials, including the
// stored refresh cookie.
func (s *Service) Logout(ctx context.Context) error {
	if s.Endpoints.Logout != "" {
		if err := s.notifyLogout(ctx); err != nil {
			log.Warn().Err(err).Msg("Server-side logout failed; clearing local credentials anyway")
		}
	}
	return s.Store.ClearAll()
}

func (s *Service) notifyLogout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoints.Logout, http.NoBody)
	if err != nil {
		return err
	}
	if tok, ok := s.Store.AccessToken(); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("logout returned status %d", resp.StatusCode)
	}
	return nil
}

// Status reports what is currently stored.
func (s *Service) Status() Status {
	st := Status{Identity: s.Store.Identity()}
	access, ok := s.Store.AccessToken()
	st.HasAccessToken = ok
	_, st.HasRefreshToken = s.Store.RefreshToken()
	st.HasRefreshCookie = s.Store.RefreshCookie() != ""
	if ok {
		if exp, err := tokenExpiry(access); err == nil {
			st.ExpiresAt = exp
		} else {
			log.Debug().Err(err).Msg("Access token expiry unknown")
		}
	}
	return st
}
