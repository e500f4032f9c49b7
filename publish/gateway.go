// Package publish is the authenticated write path: it identifies the
// client, applies the publish rate limit, checks the shared secret,
// normalizes and validates the payload and hands the post to a Publisher.
package publish

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eringen/mdblog/content"
	"github.com/eringen/mdblog/ratelimit"
)

// Publisher persists a post and reports the draft that was written.
type Publisher interface {
	Publish(ctx context.Context, in content.NewPost) (content.Draft, error)
}

// Request is one publish attempt.
type Request struct {
	// Client identifies the caller for rate limiting, see ClientKey.
	Client string
	APIKey string
	Body   []byte
	// Oversized marks a body that was cut off at MaxBodyBytes. It fails
	// validation once the caller is rate-checked and authenticated.
	Oversized bool
}

// Result describes a published post.
type Result struct {
	Slug     string
	URL      string
	Filename string
}

// Config configures a Gateway.
type Config struct {
	// Secret is the shared API key. An empty secret rejects every request.
	Secret  string
	SiteURL string
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

// Gateway runs publish requests through rate limiting, authentication,
// normalization and validation before persisting them.
type Gateway struct {
	secret    string
	siteURL   string
	limiter   *ratelimit.Limiter
	publisher Publisher
	logger    *slog.Logger
}

// NewGateway returns a Gateway that stores posts through p.
func NewGateway(cfg Config, p Publisher) *Gateway {
	g := &Gateway{
		secret:    cfg.Secret,
		siteURL:   strings.TrimRight(cfg.SiteURL, "/"),
		limiter:   cfg.Limiter,
		publisher: p,
		logger:    cfg.Logger,
	}
	if g.limiter == nil {
		g.limiter = ratelimit.New(ratelimit.DefaultMax, ratelimit.DefaultWindow)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// ClientKey identifies the caller: the first X-Forwarded-For entry, else
// X-Real-IP, else "unknown".
func ClientKey(h http.Header) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(h.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}

// Publish handles one request. Checks run in order and the first failure
// is returned: ErrRateLimited, ErrUnauthorized, a *ValidationError, or a
// storage error.
func (g *Gateway) Publish(ctx context.Context, req Request) (Result, error) {
	client := req.Client
	if client == "" {
		client = "unknown"
	}
	ok, err := g.limiter.Allow(ctx, client)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		g.logger.Warn("publish rate limited", "client", client)
		return Result{}, ErrRateLimited
	}
	if !g.authorized(req.APIKey) {
		g.logger.Warn("publish unauthorized", "client", client)
		return Result{}, ErrUnauthorized
	}

	if req.Oversized {
		return Result{}, invalid(msgContentTooLong)
	}
	in, err := Normalize(req.Body)
	if err != nil {
		return Result{}, err
	}
	if err := Validate(&in); err != nil {
		return Result{}, err
	}

	draft, err := g.publisher.Publish(ctx, content.NewPost{
		Title:      in.Title,
		Content:    in.Content,
		Excerpt:    in.Excerpt,
		CoverImage: in.CoverImage,
		Tags:       in.Tags,
		Slug:       in.Slug,
		Date:       in.Date,
	})
	if err != nil {
		if errors.Is(err, content.ErrEmptySlug) {
			return Result{}, invalid("Title must contain at least one letter or digit.")
		}
		g.logger.Error("publish failed", "client", client, "error", err)
		return Result{}, err
	}
	g.logger.Info("post published", "slug", draft.Slug, "file", draft.Filename)
	return Result{
		Slug:     draft.Slug,
		URL:      g.siteURL + "/posts/" + draft.Slug,
		Filename: draft.Filename,
	}, nil
}

func (g *Gateway) authorized(key string) bool {
	if g.secret == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(g.secret)) == 1
}
