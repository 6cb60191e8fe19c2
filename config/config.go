// Package config loads tasksctl settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds the client settings.
type Config struct {
	BaseURL        string        `env:"TASKSCTL_BASE_URL" envDefault:"http://localhost:8000/api"`
	RefreshPath    string        `env:"TASKSCTL_REFRESH_PATH" envDefault:"/auth/refresh"`
	LoginPath      string        `env:"TASKSCTL_LOGIN_PATH" envDefault:"/auth/login"`
	LogoutPath     string        `env:"TASKSCTL_LOGOUT_PATH" envDefault:"/auth/logout"`
	LoginRoute     string        `env:"TASKSCTL_LOGIN_ROUTE" envDefault:"/login"`
	RefreshCookie  string        `env:"TASKSCTL_REFRESH_COOKIE" envDefault:"refresh_token"`
	Timeout        time.Duration `env:"TASKSCTL_TIMEOUT" envDefault:"30s"`
	RefreshTimeout time.Duration `env:"TASKSCTL_REFRESH_TIMEOUT" envDefault:"15s"`
	RefreshLead    time.Duration `env:"TASKSCTL_REFRESH_LEAD" envDefault:"60s"`
}

// Load reads .env (if present) and the process environment into a validated Config.
func Load() (*Config, error) {
	// A missing .env file is normal; real environment variables take precedence anyway.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that URLs are absolute and durations are positive.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q: must be absolute (e.g. https://erp.example.com/api)", c.BaseURL)
	}
	for name, p := range map[string]string{"refresh": c.RefreshPath, "login": c.LoginPath, "logout": c.LogoutPath} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s path %q must start with '/'", name, p)
		}
	}
	if c.Timeout <= 0 || c.RefreshTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.RefreshLead <= 0 {
		return fmt.Errorf("refresh lead must be positive, got %s", c.RefreshLead)
	}
	return nil
}

// Endpoint joins the base URL and an API path.
func (c *Config) Endpoint(path string) string {
	return c.BaseURL + path
}
