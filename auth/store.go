package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/habedi/tasksctl/db"
	"github.com/rs/zerolog/log"
)

// Identity is the user the stored tokens belong to.
type Identity struct {
	UserID string
	Email  string
}

// Store is a TokenStore backed by db.TokenRepository with a write-through in-memory copy.
type Store struct {
	mu     sync.RWMutex
	repo   db.TokenRepository
	token  *db.Token
	loaded bool
}

var (
	_ TokenStore  = (*Store)(nil)
	_ CookieStore = (*Store)(nil)
)

// NewStore creates a Store. The repository is read lazily on first access.
func NewStore(repo db.TokenRepository) *Store {
	return &Store{repo: repo}
}

// load reads the persisted row once. A read failure is logged and treated as "no token".
func (s *Store) load() *db.Token {
	s.mu.RLock()
	if s.loaded {
		tok := s.token
		s.mu.RUnlock()
		return tok
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		tok, err := s.repo.Get(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("Failed to read stored tokens")
		}
		s.token = tok
		s.loaded = true
	}
	return s.token
}

func (s *Store) AccessToken() (string, bool) {
	tok := s.load()
	if !tok.HasAccessToken() {
		return "", false
	}
	return tok.AccessToken, true
}

func (s *Store) RefreshToken() (string, bool) {
	tok := s.load()
	if !tok.HasRefreshToken() {
		return "", false
	}
	return tok.RefreshToken, true
}

// RefreshCookie returns the persisted refresh cookie value, or "" when none is stored.
func (s *Store) RefreshCookie() string {
	tok := s.load()
	if tok == nil {
		return ""
	}
	return tok.RefreshCookie
}

// SetRefreshCookie records the refresh cookie value. An empty value forgets it.
func (s *Store) SetRefreshCookie(value string) error {
	s.load()

	s.mu.Lock()
	next := &db.Token{}
	if s.token != nil {
		*next = *s.token
	}
	next.RefreshCookie = value
	next.UpdatedAt = time.Now()
	s.token = next
	s.mu.Unlock()

	if err := s.repo.Upsert(context.Background(), copyToken(next)); err != nil {
		return fmt.Errorf("failed to persist refresh cookie: %w", err)
	}
	return nil
}

// Identity returns the user the tokens were issued to.
func (s *Store) Identity() Identity {
	tok := s.load()
	if tok == nil {
		return Identity{}
	}
	return Identity{UserID: tok.UserID, Email: tok.Email}
}

// SetAccessToken replaces the access token, keeping the refresh token and identity.
// The in-memory copy is updated even if persisting fails.
func (s *Store) SetAccessToken(token string) error {
	s.load()

	s.mu.Lock()
	next := &db.Token{}
	if s.token != nil {
		*next = *s.token
	}
	next.AccessToken = token
	next.UpdatedAt = time.Now()
	s.token = next
	s.mu.Unlock()

	if err := s.repo.Upsert(context.Background(), copyToken(next)); err != nil {
		return fmt.Errorf("failed to persist access token: %w", err)
	}
	log.Debug().Str("token", tokenPreview(token)).Msg("Access token stored")
	return nil
}

// SetTokens installs a full login result. An empty refresh token means the server keeps
// it in an HTTP-only cookie instead; a cookie recorded during the login call is kept.
func (s *Store) SetTokens(access, refresh, tokenType string, id Identity) error {
	s.load()

	s.mu.Lock()
	next := &db.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenType,
		UserID:       id.UserID,
		Email:        id.Email,
		UpdatedAt:    time.Now(),
	}
	if s.token != nil {
		next.RefreshCookie = s.token.RefreshCookie
	}
	s.token = next
	s.loaded = true
	s.mu.Unlock()

	if err := s.repo.Upsert(context.Background(), copyToken(next)); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}
	return nil
}

func (s *Store) ClearAll() error {
	s.mu.Lock()
	s.token = nil
	s.loaded = true
	s.mu.Unlock()

	if err := s.repo.Clear(context.Background()); err != nil {
		return fmt.Errorf("failed to clear stored tokens: %w", err)
	}
	log.Info().Msg("Stored credentials cleared")
	return nil
}

// copyToken hands the repository its own value, since Upsert mutates the ID.
func copyToken(t *db.Token) *db.Token {
	c := *t
	return &c
}
