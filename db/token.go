package db

import "time"

// Token is the single persisted credential row. ID is always 1.
type Token struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	// RefreshCookie is the value of the server's HTTP-only refresh cookie, if it uses one.
	RefreshCookie string    `json:"-"`
	TokenType     string    `json:"token_type,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	Email         string    `json:"email,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasAccessToken reports whether an access token is stored.
func (t *Token) HasAccessToken() bool { return t != nil && t.AccessToken != "" }

// HasRefreshToken reports whether a readable refresh token is stored.
func (t *Token) HasRefreshToken() bool { return t != nil && t.RefreshToken != "" }

// HasRefreshCookie reports whether a refresh cookie value is stored.
func (t *Token) HasRefreshCookie() bool { return t != nil && t.RefreshCookie != "" }
