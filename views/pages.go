// Package views holds the default page components. They are plain
// templ.ComponentFunc values so a site can swap any of them for its own
// generated templ templates.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/mdblog/content"
	"github.com/eringen/mdblog/markdown"
)

func esc(s string) string { return templ.EscapeString(s) }

// page buffers the output of a component so a failed render writes nothing.
type page struct {
	strings.Builder
}

func (p *page) printf(format string, args ...any) {
	fmt.Fprintf(&p.Builder, format, args...)
}

func layout(site Site, meta PageMeta, jsonLD string, body func(ctx context.Context, p *page) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var p page
		title := site.Name
		if meta.Title != "" && meta.Title != site.Name {
			title = meta.Title + " | " + site.Name
		}
		p.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
		p.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		p.printf("<title>%s</title>\n", esc(title))
		if meta.Description != "" {
			p.printf("<meta name=\"description\" content=\"%s\">\n", esc(meta.Description))
			p.printf("<meta property=\"og:description\" content=\"%s\">\n", esc(meta.Description))
		}
		if meta.Keywords != "" {
			p.printf("<meta name=\"keywords\" content=\"%s\">\n", esc(meta.Keywords))
		}
		if meta.URL != "" {
			p.printf("<link rel=\"canonical\" href=\"%s\">\n", esc(meta.URL))
			p.printf("<meta property=\"og:url\" content=\"%s\">\n", esc(meta.URL))
		}
		p.printf("<meta property=\"og:title\" content=\"%s\">\n", esc(title))
		if meta.OGType != "" {
			p.printf("<meta property=\"og:type\" content=\"%s\">\n", esc(meta.OGType))
		}
		if img := markdown.SafeURL(meta.Image); img != "" {
			p.printf("<meta property=\"og:image\" content=\"%s\">\n", esc(img))
		}
		p.printf("<link rel=\"alternate\" type=\"application/rss+xml\" title=\"%s\" href=\"/feed.xml\">\n", esc(site.Name))
		if jsonLD != "" {
			// JSON from encoding/json escapes <, > and &, so it cannot close the script.
			p.printf("<script type=\"application/ld+json\">%s</script>\n", jsonLD)
		}
		p.WriteString("</head>\n<body>\n<header>")
		p.printf("<a href=\"/\">%s</a>", esc(site.Name))
		p.WriteString("</header>\n<main>\n")
		if err := body(ctx, &p); err != nil {
			return err
		}
		p.WriteString("</main>\n<footer>")
		if site.Author != "" {
			p.printf("<p>%s</p>", esc(site.Author))
		}
		p.WriteString("</footer>\n</body>\n</html>\n")
		_, err := io.WriteString(w, p.String())
		return err
	})
}

func writeTags(p *page, tags []string, active string) {
	if len(tags) == 0 {
		return
	}
	p.WriteString("<ul class=\"tags\">")
	for _, t := range tags {
		class := "tag"
		if content.TagKey(t) == content.TagKey(active) {
			class += " active"
		}
		p.printf("<li><a class=\"%s\" href=\"/?tag=%s\">%s</a></li>", class, esc(PathEscape(t)), esc(t))
	}
	p.WriteString("</ul>")
}

func writeCard(p *page, post content.Post) {
	p.WriteString("<article class=\"post-card\">")
	if img := markdown.SafeURL(post.CoverImage); img != "" {
		p.printf("<img src=\"%s\" alt=\"\" loading=\"lazy\">", esc(img))
	}
	p.printf("<h2><a href=\"/posts/%s\">%s</a></h2>", esc(PathEscape(post.Slug)), esc(post.Title))
	p.printf("<p class=\"meta\"><time datetime=\"%s\">%s</time> &middot; %d min read</p>",
		esc(post.Date), esc(post.Date), post.ReadingTime)
	p.printf("<p>%s</p>", esc(post.Excerpt))
	writeTags(p, post.Tags, "")
	p.WriteString("</article>\n")
}

// Home lists posts newest first, optionally filtered by activeTag.
func Home(site Site, posts []content.Post, activeTag string, tags []string) templ.Component {
	meta := PageMeta{
		Title:       site.Name,
		Description: site.Description,
		URL:         buildURL(site.URL),
		OGType:      "website",
	}
	return layout(site, meta, WebsiteJsonLD(site), func(_ context.Context, p *page) error {
		writeTags(p, tags, activeTag)
		if len(posts) == 0 {
			p.WriteString("<p class=\"empty\">No posts yet.</p>\n")
			return nil
		}
		for _, post := range posts {
			writeCard(p, post)
		}
		return nil
	})
}

// Post renders a single post. post.Content must already be sanitized HTML.
func Post(site Site, post content.Post, related []content.Post) templ.Component {
	meta := PageMeta{
		Title:       post.Title,
		Description: post.Excerpt,
		URL:         PostURL(site, post.Slug),
		OGType:      "article",
		Image:       post.CoverImage,
		Keywords:    JoinTags(post.Tags),
	}
	return layout(site, meta, BlogPostingJsonLD(site, post), func(ctx context.Context, p *page) error {
		p.WriteString("<article class=\"post\">\n")
		p.printf("<h1>%s</h1>\n", esc(post.Title))
		p.printf("<p class=\"meta\">%s &middot; <time datetime=\"%s\">%s</time> &middot; %d min read</p>\n",
			esc(post.Author), esc(post.Date), esc(post.Date), post.ReadingTime)
		if img := markdown.SafeURL(post.CoverImage); img != "" {
			p.printf("<img class=\"cover\" src=\"%s\" alt=\"\">\n", esc(img))
		}
		if err := markdown.HTML(post.Content).Render(ctx, p); err != nil {
			return err
		}
		writeTags(p, post.Tags, "")
		p.WriteString("</article>\n")
		if len(related) > 0 {
			p.WriteString("<section class=\"related\"><h2>Related</h2>\n")
			for _, r := range related {
				writeCard(p, r)
			}
			p.WriteString("</section>\n")
		}
		return nil
	})
}

// NotFound is the 404 page.
func NotFound(site Site) templ.Component {
	return layout(site, PageMeta{Title: "Not found"}, "", func(_ context.Context, p *page) error {
		p.WriteString("<h1>Not found</h1>\n<p>The page you are looking for does not exist. <a href=\"/\">Back to all posts</a>.</p>\n")
		return nil
	})
}

// ServerError is the 5xx page.
func ServerError(site Site) templ.Component {
	return layout(site, PageMeta{Title: "Something went wrong"}, "", func(_ context.Context, p *page) error {
		p.WriteString("<h1>Something went wrong</h1>\n<p>Please try again later.</p>\n")
		return nil
	})
}
