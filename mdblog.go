// Package mdblog is a markdown-file blog engine built with Go, Echo and
// templ. Posts are .md files with YAML front matter; new posts arrive
// through an authenticated publish endpoint.
//
// Sites may replace the default pages through ViewFuncs. mdblog handles
// the handlers, middleware and content storage.
package mdblog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/mdblog/content"
	"github.com/eringen/mdblog/publish"
	"github.com/eringen/mdblog/ratelimit"
	"github.com/eringen/mdblog/views"
)

// ViewFuncs holds the page components the app renders. Fields left nil
// fall back to the views package.
type ViewFuncs struct {
	Home        func(site views.Site, posts []content.Post, activeTag string, tags []string) templ.Component
	Post        func(site views.Site, post content.Post, related []content.Post) templ.Component
	NotFound    func(site views.Site) templ.Component
	ServerError func(site views.Site) templ.Component
}

func (v *ViewFuncs) setDefaults() {
	if v.Home == nil {
		v.Home = views.Home
	}
	if v.Post == nil {
		v.Post = views.Post
	}
	if v.NotFound == nil {
		v.NotFound = views.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = views.ServerError
	}
}

// App is the central mdblog application. It wires together the content
// repository, cache, publish gateway, handlers and middleware.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Repo    *content.Repository
	Cache   *PostCache
	Gateway *publish.Gateway
	Views   ViewFuncs

	logger       *slog.Logger
	publisher    publish.Publisher
	ledger       ratelimit.Ledger
	closers      []io.Closer
	customRoutes []func(*App)
}

// New creates an App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Views.setDefaults()
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	}
	return a
}

// Init opens the content store and rate-limit ledger and registers
// middleware and routes. Start calls it; tests may call it directly and
// serve a.Echo.
func (a *App) Init(ctx context.Context) error {
	store, err := OpenStore(ctx, a.Config)
	if err != nil {
		return fmt.Errorf("mdblog: init content store: %w", err)
	}
	a.Repo = content.NewRepository(store,
		content.WithAuthor(a.Config.Author),
		content.WithLogger(a.logger),
	)
	a.Cache = NewPostCache(a.Repo, a.Config.PostCacheTTL)

	ledger, err := a.openLedger(ctx)
	if err != nil {
		return fmt.Errorf("mdblog: init rate limit store: %w", err)
	}
	publisher, err := a.openPublisher(ctx)
	if err != nil {
		return fmt.Errorf("mdblog: init publisher: %w", err)
	}
	a.Gateway = publish.NewGateway(publish.Config{
		Secret:  a.Config.PublishSecret,
		SiteURL: a.Config.URL,
		Limiter: ratelimit.New(ratelimit.DefaultMax, ratelimit.DefaultWindow, ratelimit.WithLedger(ledger)),
		Logger:  a.logger,
	}, publisher)
	if a.Config.PublishSecret == "" {
		a.logger.Warn("PUBLISH_SECRET is not set; publishing is disabled")
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and serves until the server stops.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	a.logger.Info("listening", "addr", a.Config.Addr, "content", a.contentLocation())
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// OpenStore returns the content store cfg selects: an S3 bucket when
// ContentS3Bucket is set, the ContentDir directory otherwise.
func OpenStore(ctx context.Context, cfg SiteConfig) (content.Store, error) {
	if cfg.ContentS3Bucket != "" {
		return content.NewS3Store(ctx, content.S3Config{
			Bucket: cfg.ContentS3Bucket,
			Prefix: cfg.ContentS3Prefix,
			Region: cfg.AWSRegion,
		})
	}
	return content.NewDirStore(cfg.ContentDir)
}

func (a *App) contentLocation() string {
	if a.Config.ContentS3Bucket != "" {
		return "s3://" + a.Config.ContentS3Bucket + "/" + a.Config.ContentS3Prefix
	}
	return a.Config.ContentDir
}

func (a *App) openLedger(ctx context.Context) (ratelimit.Ledger, error) {
	if a.ledger != nil {
		return a.ledger, nil
	}
	switch a.Config.RateLimitStore {
	case "sqlite":
		l, err := ratelimit.NewSQLiteLedger(a.Config.RateLimitDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, l)
		return l, nil
	case "redis":
		l, err := ratelimit.NewRedisLedger(ctx, a.Config.RedisURL, "")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, l)
		return l, nil
	default:
		return ratelimit.NewMemoryLedger(), nil
	}
}

func (a *App) openPublisher(ctx context.Context) (publish.Publisher, error) {
	if a.publisher != nil {
		return a.publisher, nil
	}
	if a.Config.PublishMode == "github" {
		return publish.NewGitHubPublisher(ctx, a.Repo, publish.GitHubConfig{
			Token:   a.Config.GitHubToken,
			Owner:   a.Config.GitHubOwner,
			Repo:    a.Config.GitHubRepo,
			Branch:  a.Config.GitHubBranch,
			BaseURL: a.Config.GitHubAPIURL,
		})
	}
	p := publish.NewLocalPublisher(a.Repo)
	p.OnPublish = a.Cache.Invalidate
	p.Logger = a.logger
	if a.Config.AutoCommit {
		p.GitDir = a.Config.ContentDir
	}
	return p, nil
}

// Close releases the rate-limit store. Call it when the app shuts down.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
