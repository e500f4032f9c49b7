package mdblog

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SITE_NAME", "Notes")
	t.Setenv("SITE_URL", "https://example.com/")
	t.Setenv("PUBLISH_SECRET", "s3cret")
	t.Setenv("POST_CACHE_TTL", "2m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "Notes" {
		t.Errorf("Name = %q, want %q", cfg.Name, "Notes")
	}
	if cfg.URL != "https://example.com" {
		t.Errorf("URL = %q, want trailing slash trimmed", cfg.URL)
	}
	if cfg.PublishSecret != "s3cret" {
		t.Errorf("PublishSecret = %q", cfg.PublishSecret)
	}
	if cfg.PostCacheTTL != 2*time.Minute {
		t.Errorf("PostCacheTTL = %v, want 2m", cfg.PostCacheTTL)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", cfg.Level())
	}
	if cfg.ContentDir != "posts" || cfg.PublishMode != "local" || cfg.RateLimitStore != "memory" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestSetDefaults(t *testing.T) {
	var cfg SiteConfig
	cfg.setDefaults()
	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q, want :3000", cfg.Addr)
	}
	if cfg.Author != "Site Owner" {
		t.Errorf("Author = %q, want Site Owner", cfg.Author)
	}
	if cfg.GitHubBranch != "master" {
		t.Errorf("GitHubBranch = %q, want master", cfg.GitHubBranch)
	}
	if cfg.APIRate != 10 {
		t.Errorf("APIRate = %v, want 10", cfg.APIRate)
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level() = %v, want info for empty LOG_LEVEL", cfg.Level())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SiteConfig)
		wantErr bool
	}{
		{"defaults", func(c *SiteConfig) {}, false},
		{"github mode", func(c *SiteConfig) { c.PublishMode = "github" }, false},
		{"unknown mode", func(c *SiteConfig) { c.PublishMode = "ftp" }, true},
		{"sqlite ledger", func(c *SiteConfig) { c.RateLimitStore = "sqlite" }, false},
		{"redis without url", func(c *SiteConfig) { c.RateLimitStore = "redis" }, true},
		{"redis with url", func(c *SiteConfig) {
			c.RateLimitStore = "redis"
			c.RedisURL = "redis://localhost:6379/0"
		}, false},
		{"unknown ledger", func(c *SiteConfig) { c.RateLimitStore = "etcd" }, true},
		{"auto commit on s3", func(c *SiteConfig) {
			c.AutoCommit = true
			c.ContentS3Bucket = "bucket"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg SiteConfig
			cfg.setDefaults()
			tt.mutate(&cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
