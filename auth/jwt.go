package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry reads the exp claim without verifying the signature; the gateway treats
// the token as opaque and only needs the timestamp for scheduling.
func tokenExpiry(raw string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("access token has no exp claim")
	}
	return exp.Time, nil
}

// tokenPreview returns a log-safe prefix of a token.
func tokenPreview(tok string) string {
	if len(tok) <= 8 {
		return "***"
	}
	return tok[:8] + "..."
}
