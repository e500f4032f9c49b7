package mdblog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "topsecret"

func setupTestApp(t *testing.T, posts map[string]string, opts ...Option) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range posts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}
	cfg := SiteConfig{
		Name:          "Test Blog",
		URL:           "https://blog.example.com/",
		ContentDir:    dir,
		PublishSecret: testSecret,
		PostCacheTTL:  time.Minute,
	}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	a := New(cfg, opts...)
	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, dir
}

func post(date, title string) string {
	return fmt.Sprintf("---\ntitle: %q\ndate: %q\ntags: [\"go\"]\n---\n\nBody of %s.", title, date, title)
}

func serve(a *App, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func sevenPosts() map[string]string {
	files := map[string]string{}
	for i := 1; i <= 7; i++ {
		date := fmt.Sprintf("2026-01-%02d", i)
		files[fmt.Sprintf("%s-post-%d.md", date, i)] = post(date, fmt.Sprintf("Post %d", i))
	}
	return files
}

func TestAPIPostsLimit(t *testing.T) {
	a, _ := setupTestApp(t, sevenPosts())

	tests := []struct {
		query string
		want  int
	}{
		{"", 5},
		{"?limit=2", 2},
		{"?limit=100", 7},
		{"?limit=abc", 5},
		{"?limit=0", 5},
		{"?limit=-3", 5},
	}
	for _, tt := range tests {
		rec := serve(a, http.MethodGet, "/api/posts"+tt.query, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET /api/posts%s status = %d", tt.query, rec.Code)
		}
		res := decode[postsResponse](t, rec)
		if len(res.Posts) != tt.want || res.Total != tt.want {
			t.Errorf("GET /api/posts%s returned %d posts (total %d), want %d", tt.query, len(res.Posts), res.Total, tt.want)
		}
		if res.Timestamp == "" {
			t.Error("timestamp missing")
		}
	}
}

func TestAPIPostsSummary(t *testing.T) {
	a, _ := setupTestApp(t, sevenPosts())
	rec := serve(a, http.MethodGet, "/api/posts?limit=1", nil, nil)
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	res := decode[postsResponse](t, rec)
	p := res.Posts[0]
	if p.Slug != "post-7" || p.Title != "Post 7" || p.Date != "2026-01-07" {
		t.Errorf("newest post = %+v", p)
	}
	if p.URL != "https://blog.example.com/posts/post-7" {
		t.Errorf("URL = %q", p.URL)
	}
	if p.Author != "Site Owner" {
		t.Errorf("Author = %q, want default", p.Author)
	}
	if p.Excerpt != "Body of Post 7...." {
		t.Errorf("Excerpt = %q", p.Excerpt)
	}
	if strings.Contains(rec.Body.String(), "coverImage") {
		t.Error("empty coverImage should be omitted")
	}
}

func TestPublishEndpoint(t *testing.T) {
	a, dir := setupTestApp(t, sevenPosts())

	// Prime the cache so the publish must invalidate it.
	serve(a, http.MethodGet, "/api/posts", nil, nil)

	body := `{"title":"Fresh Post","content":"New **content**","date":"2026-02-01"}`
	rec := serve(a, http.MethodPost, "/api/publish", strings.NewReader(body), map[string]string{
		"Content-Type": "application/json",
		"x-api-key":    testSecret,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("publish status = %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[publishResponse](t, rec)
	if !res.Success || res.Slug != "fresh-post" || res.URL != "https://blog.example.com/posts/fresh-post" {
		t.Errorf("publish response = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "2026-02-01-fresh-post.md")); err != nil {
		t.Errorf("post file not written: %v", err)
	}

	list := decode[postsResponse](t, serve(a, http.MethodGet, "/api/posts?limit=1", nil, nil))
	if len(list.Posts) != 1 || list.Posts[0].Slug != "fresh-post" {
		t.Errorf("new post not listed first: %+v", list.Posts)
	}

	page := serve(a, http.MethodGet, "/posts/fresh-post", nil, nil)
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), "<strong>content</strong>") {
		t.Errorf("post page status %d body %s", page.Code, page.Body.String())
	}
}

func TestPublishEndpointErrors(t *testing.T) {
	a, _ := setupTestApp(t, nil)

	tests := []struct {
		name   string
		key    string
		body   string
		status int
	}{
		{"wrong key", "nope", `{"title":"t","content":"c"}`, http.StatusUnauthorized},
		{"missing key", "", `{"title":"t","content":"c"}`, http.StatusUnauthorized},
		{"missing content", testSecret, `{"title":"t"}`, http.StatusBadRequest},
		{"bad json", testSecret, `{`, http.StatusBadRequest},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(a, http.MethodPost, "/api/publish", strings.NewReader(tt.body), map[string]string{
				"x-api-key":       tt.key,
				"X-Forwarded-For": fmt.Sprintf("10.0.0.%d", i+1),
			})
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if res := decode[errorResponse](t, rec); res.Error == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestPublishEndpointOversizedContent(t *testing.T) {
	a, dir := setupTestApp(t, nil)
	body := `{"title":"Big","content":"` + strings.Repeat("a", 1_100_000) + `"}`

	rec := serve(a, http.MethodPost, "/api/publish", strings.NewReader(body), map[string]string{
		"X-Forwarded-For": "10.1.0.1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("without key: status = %d, want 401 (%s)", rec.Code, rec.Body.String())
	}

	rec = serve(a, http.MethodPost, "/api/publish", strings.NewReader(body), map[string]string{
		"x-api-key":       testSecret,
		"X-Forwarded-For": "10.1.0.2",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("with key: status = %d, want 400 (%s)", rec.Code, rec.Body.String())
	}
	if res := decode[errorResponse](t, rec); res.Error != "Content too long. Maximum 100,000 characters." {
		t.Errorf("error = %q", res.Error)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("oversized post was written: %v", entries)
	}
}

func TestPublishEndpointRateLimit(t *testing.T) {
	a, _ := setupTestApp(t, nil)
	headers := map[string]string{"x-api-key": "wrong", "X-Forwarded-For": "203.0.113.9, 10.0.0.1"}
	for i := 0; i < 10; i++ {
		rec := serve(a, http.MethodPost, "/api/publish", strings.NewReader(`{}`), headers)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("request %d status = %d, want 401", i+1, rec.Code)
		}
	}
	rec := serve(a, http.MethodPost, "/api/publish", strings.NewReader(`{}`), headers)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("11th request status = %d, want 429", rec.Code)
	}
	res := decode[errorResponse](t, rec)
	if res.Error != "Rate limit exceeded. Maximum 10 posts per hour." {
		t.Errorf("error = %q", res.Error)
	}
}

func TestPublishStatus(t *testing.T) {
	a, _ := setupTestApp(t, nil)
	rec := serve(a, http.MethodGet, "/api/publish", nil, nil)
	res := decode[statusResponse](t, rec)
	if rec.Code != http.StatusOK || res.Status != "ok" {
		t.Errorf("GET /api/publish = %d %+v", rec.Code, res)
	}
}

func TestPages(t *testing.T) {
	a, _ := setupTestApp(t, map[string]string{
		"2026-01-05-hello.md": post("2026-01-05", "Hello"),
		"plain.md":            post("2026-01-04", "Plain"),
	})

	home := serve(a, http.MethodGet, "/", nil, nil)
	if home.Code != http.StatusOK || !strings.Contains(home.Body.String(), `href="/posts/hello"`) {
		t.Errorf("home status %d body %s", home.Code, home.Body.String())
	}

	postPage := serve(a, http.MethodGet, "/posts/hello", nil, nil)
	if postPage.Code != http.StatusOK || !strings.Contains(postPage.Body.String(), "<p>Body of Hello.</p>") {
		t.Errorf("post page status %d", postPage.Code)
	}
	if !strings.Contains(postPage.Body.String(), "Plain") {
		t.Error("related post sharing a tag not shown")
	}

	missing := serve(a, http.MethodGet, "/posts/no-such-post", nil, nil)
	if missing.Code != http.StatusNotFound || !strings.Contains(missing.Body.String(), "Not found") {
		t.Errorf("missing post status %d", missing.Code)
	}

	apiMissing := serve(a, http.MethodGet, "/api/nope", nil, nil)
	if apiMissing.Code != http.StatusNotFound || !strings.Contains(apiMissing.Body.String(), `"error"`) {
		t.Errorf("api 404 = %d %s", apiMissing.Code, apiMissing.Body.String())
	}

	redirect := serve(a, http.MethodGet, "/posts/hello/", nil, nil)
	if redirect.Code != http.StatusMovedPermanently {
		t.Errorf("trailing slash status = %d, want 301", redirect.Code)
	}
}

func TestFeedAndSitemap(t *testing.T) {
	a, _ := setupTestApp(t, map[string]string{
		"2026-01-05-hello.md": post("2026-01-05", "Hello"),
	})

	feed := serve(a, http.MethodGet, "/feed.xml", nil, nil)
	if !strings.Contains(feed.Header().Get("Content-Type"), "application/rss+xml") {
		t.Errorf("feed content type = %q", feed.Header().Get("Content-Type"))
	}
	if !strings.Contains(feed.Body.String(), "<link>https://blog.example.com/posts/hello</link>") {
		t.Errorf("feed missing post link: %s", feed.Body.String())
	}
	if !strings.Contains(feed.Body.String(), "<pubDate>Mon, 05 Jan 2026 00:00:00 +0000</pubDate>") {
		t.Errorf("feed pubDate wrong: %s", feed.Body.String())
	}

	sm := serve(a, http.MethodGet, "/sitemap.xml", nil, nil)
	body := sm.Body.String()
	if !strings.Contains(body, "<loc>https://blog.example.com/</loc>") ||
		!strings.Contains(body, "<loc>https://blog.example.com/posts/hello</loc>") ||
		!strings.Contains(body, "<lastmod>2026-01-05</lastmod>") {
		t.Errorf("sitemap = %s", body)
	}
}

func TestHomeTagFilter(t *testing.T) {
	a, _ := setupTestApp(t, map[string]string{
		"a.md": "---\ntitle: \"Alpha\"\ndate: \"2026-01-01\"\ntags: [\"Go\"]\n---\n\na",
		"b.md": "---\ntitle: \"Beta\"\ndate: \"2026-01-02\"\ntags: [\"rust\"]\n---\n\nb",
	})
	rec := serve(a, http.MethodGet, "/?tag=go", nil, nil)
	body := rec.Body.String()
	if !strings.Contains(body, "Alpha") || strings.Contains(body, `href="/posts/b"`) {
		t.Errorf("tag filter not applied: %s", body)
	}
}
