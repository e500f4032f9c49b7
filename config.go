package mdblog

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/eringen/mdblog/publish"
	"github.com/eringen/mdblog/ratelimit"
	"github.com/eringen/mdblog/views"
)

// SiteConfig holds all configuration for an mdblog site.
type SiteConfig struct {
	Name        string `env:"SITE_NAME" envDefault:"Blog"`
	URL         string `env:"SITE_URL" envDefault:"http://localhost:3000"`
	Description string `env:"SITE_DESCRIPTION"`
	Author      string `env:"SITE_AUTHOR" envDefault:"Site Owner"`

	Addr string `env:"ADDR" envDefault:":3000"`

	// Content lives in ContentDir unless an S3 bucket is configured.
	ContentDir      string `env:"CONTENT_DIR" envDefault:"posts"`
	ContentS3Bucket string `env:"CONTENT_S3_BUCKET"`
	ContentS3Prefix string `env:"CONTENT_S3_PREFIX" envDefault:"posts/"`
	AWSRegion       string `env:"AWS_REGION"`

	PublishSecret string `env:"PUBLISH_SECRET"` // empty disables publishing
	PublishMode   string `env:"PUBLISH_MODE" envDefault:"local"`
	AutoCommit    bool   `env:"AUTO_COMMIT"`

	GitHubToken  string `env:"GITHUB_TOKEN"`
	GitHubOwner  string `env:"GITHUB_OWNER"`
	GitHubRepo   string `env:"GITHUB_REPO"`
	GitHubBranch string `env:"GITHUB_BRANCH" envDefault:"master"`
	GitHubAPIURL string `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`

	RateLimitStore string `env:"RATE_LIMIT_STORE" envDefault:"memory"` // memory, sqlite or redis
	RateLimitDB    string `env:"RATE_LIMIT_DB" envDefault:"data/ratelimit.db"`
	RedisURL       string `env:"REDIS_URL"`

	// APIRate throttles GET /api/posts per client, in requests per second.
	APIRate float64 `env:"API_RATE" envDefault:"10"`

	PostCacheTTL time.Duration `env:"POST_CACHE_TTL" envDefault:"30s"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads SiteConfig from the environment.
func LoadConfig() (SiteConfig, error) {
	var cfg SiteConfig
	if err := env.Parse(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Author == "" {
		c.Author = "Site Owner"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ContentDir == "" {
		c.ContentDir = "posts"
	}
	if c.PublishMode == "" {
		c.PublishMode = "local"
	}
	if c.GitHubBranch == "" {
		c.GitHubBranch = "master"
	}
	if c.GitHubAPIURL == "" {
		c.GitHubAPIURL = publish.DefaultGitHubAPI
	}
	if c.RateLimitStore == "" {
		c.RateLimitStore = "memory"
	}
	if c.RateLimitDB == "" {
		c.RateLimitDB = "data/ratelimit.db"
	}
	if c.APIRate <= 0 {
		c.APIRate = 10
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 30 * time.Second
	}
}

func (c *SiteConfig) validate() error {
	switch c.PublishMode {
	case "local", "github":
	default:
		return fmt.Errorf("PUBLISH_MODE must be local or github, got %q", c.PublishMode)
	}
	switch c.RateLimitStore {
	case "memory", "sqlite":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_STORE must be memory, sqlite or redis, got %q", c.RateLimitStore)
	}
	if c.AutoCommit && c.ContentS3Bucket != "" {
		return fmt.Errorf("AUTO_COMMIT requires a local CONTENT_DIR")
	}
	return nil
}

// Site returns the settings passed to views.
func (c SiteConfig) Site() views.Site {
	return views.Site{Name: c.Name, URL: c.URL, Description: c.Description, Author: c.Author}
}

// Level parses LogLevel, defaulting to info.
func (c SiteConfig) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Option configures additional App behavior.
type Option func(*App)

// WithViews replaces the default page components. Nil fields keep the
// defaults.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithLogger sets the logger used by the app and its components.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithPublisher overrides the publisher chosen by PublishMode.
func WithPublisher(p publish.Publisher) Option {
	return func(a *App) {
		a.publisher = p
	}
}

// WithLedger overrides the rate-limit storage chosen by RateLimitStore.
func WithLedger(l ratelimit.Ledger) Option {
	return func(a *App) {
		a.ledger = l
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
