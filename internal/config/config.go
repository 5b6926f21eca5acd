// Package config loads runtime configuration from environment variables.
//
// Defaults point at the public Unsplash API, so only the client credentials
// (ACCESS_KEY, SECRET_KEY) are strictly required to talk to it. A .env file
// in the working directory is loaded by cmd/server before Load runs.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// OAuth client registration.
	AccessKey   string   // client_id
	SecretKey   string   // client_secret
	RedirectURI string   // registered redirect URI
	Scopes      []string // requested scopes

	// Endpoints.
	BaseURL            string // API root, e.g. https://api.unsplash.com
	AuthorizeURL       string
	TokenURL           string
	NativeRedirectPath string // path of the URL the login page lands on with ?code=

	PerPage     int           // feed page size
	HTTPTimeout time.Duration // applied to every upstream call

	// Companion server.
	Port      int
	DBPath    string
	JWTSecret string // empty disables the session cookie check

	// CredentialPassphrase encrypts the stored bearer token. Empty means the
	// token is kept in memory only and lost on restart.
	CredentialPassphrase string

	LogLevel slog.Level
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		AccessKey:            os.Getenv("ACCESS_KEY"),
		SecretKey:            os.Getenv("SECRET_KEY"),
		RedirectURI:          getEnv("REDIRECT_URI", "urn:ietf:wg:oauth:2.0:oob"),
		Scopes:               splitScopes(getEnv("ACCESS_SCOPE", "public+read_user+write_likes")),
		BaseURL:              strings.TrimRight(getEnv("API_BASE_URL", "https://api.unsplash.com"), "/"),
		AuthorizeURL:         getEnv("AUTHORIZE_URL", "https://unsplash.com/oauth/authorize"),
		TokenURL:             getEnv("TOKEN_URL", "https://unsplash.com/oauth/token"),
		NativeRedirectPath:   getEnv("NATIVE_REDIRECT_PATH", "/oauth/authorize/native"),
		DBPath:               getEnv("DB_PATH", "data/imagefeed.db"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		CredentialPassphrase: os.Getenv("CREDENTIAL_PASSPHRASE"),
	}

	var err error
	if cfg.PerPage, err = getInt("PER_PAGE", 10); err != nil {
		return nil, err
	}
	if cfg.PerPage <= 0 {
		return nil, fmt.Errorf("config: PER_PAGE must be positive, got %d", cfg.PerPage)
	}
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = getLevel("LOG_LEVEL", slog.LevelDebug); err != nil {
		return nil, err
	}

	for name, raw := range map[string]string{
		"API_BASE_URL":  cfg.BaseURL,
		"AUTHORIZE_URL": cfg.AuthorizeURL,
		"TOKEN_URL":     cfg.TokenURL,
	} {
		if err := requireAbsoluteURL(name, raw); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getLevel(key string, defaultValue slog.Level) (slog.Level, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, raw, err)
	}
	return lvl, nil
}

// splitScopes accepts the registered "+"-joined form as well as spaces.
func splitScopes(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool { return r == '+' || r == ' ' || r == ',' })
}

func requireAbsoluteURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: invalid %s %q: %w", name, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: %s must be an absolute URL, got %q", name, raw)
	}
	return nil
}
