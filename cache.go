package mdblog

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/eringen/mdblog/content"
)

// PostCache is an in-memory TTL cache of the post list and its tags.
// Single posts are always read from the repository.
type PostCache struct {
	mu      sync.RWMutex
	posts   []content.Post
	tags    []string
	fetched time.Time
	ttl     time.Duration
	repo    *content.Repository
}

// NewPostCache creates a PostCache over repo. A non-positive ttl disables
// caching.
func NewPostCache(repo *content.Repository, ttl time.Duration) *PostCache {
	return &PostCache{repo: repo, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.mu.Unlock()
}

func (c *PostCache) load(ctx context.Context) {
	if c.valid() {
		return
	}
	c.posts = c.repo.ListAll(ctx)
	c.tags = collectTags(c.posts)
	c.fetched = time.Now()
}

// ensureLoaded returns cached posts and tags after ensuring the cache is
// fresh. It tries a read lock first and only takes the write lock to reload.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]content.Post, []string) {
	c.mu.RLock()
	if c.valid() {
		posts, tags := c.posts, c.tags
		c.mu.RUnlock()
		return posts, tags
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)
	return c.posts, c.tags
}

// ListPosts returns posts newest first, optionally filtered by tag.
func (c *PostCache) ListPosts(ctx context.Context, tag string) []content.Post {
	posts, _ := c.ensureLoaded(ctx)
	if tag == "" {
		return posts
	}
	normalized := normalizeTag(tag)
	var filtered []content.Post
	for _, p := range posts {
		for _, t := range p.Tags {
			if normalizeTag(t) == normalized {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered
}

// ListTags returns the distinct tags across all posts, sorted.
func (c *PostCache) ListTags(ctx context.Context) []string {
	_, tags := c.ensureLoaded(ctx)
	return tags
}

func collectTags(posts []content.Post) []string {
	seen := make(map[string]struct{})
	tags := []string{}
	for _, p := range posts {
		for _, t := range p.Tags {
			n := normalizeTag(t)
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			tags = append(tags, strings.TrimSpace(t))
		}
	}
	slices.SortFunc(tags, func(a, b string) int {
		return strings.Compare(normalizeTag(a), normalizeTag(b))
	})
	return tags
}

func normalizeTag(t string) string {
	return content.TagKey(t)
}
