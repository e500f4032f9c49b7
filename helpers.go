package mdblog

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/eringen/mdblog/content"
)

// BuildURL joins a base URL with path segments. With no segments the
// site root is returned with a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) == 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PostURL is the public address of a post: {base}/posts/{slug}.
func PostURL(base, slug string) string {
	return BuildURL(base, "posts", slug)
}

// parseLimit reads the limit query parameter. Missing, invalid and
// non-positive values yield def.
func parseLimit(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func summarize(base string, p content.Post) PostSummary {
	return PostSummary{
		Slug:       p.Slug,
		Title:      p.Title,
		Date:       p.Date,
		Excerpt:    p.Excerpt,
		CoverImage: p.CoverImage,
		Tags:       p.Tags,
		Author:     p.Author,
		URL:        PostURL(base, p.Slug),
	}
}
