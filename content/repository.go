package content

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/eringen/mdblog/frontmatter"
	"github.com/eringen/mdblog/markdown"
)

// Repository reads and writes posts in a Store.
type Repository struct {
	store  Store
	author string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithAuthor sets the author used for posts that do not name one.
func WithAuthor(name string) Option {
	return func(r *Repository) {
		if name != "" {
			r.author = name
		}
	}
}

// WithLogger sets the logger read failures are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock replaces time.Now for default dates.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository returns a Repository over store.
func NewRepository(store Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		author: DefaultAuthor,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying content store.
func (r *Repository) Store() Store {
	return r.store
}

// ListAll returns every post, newest first. Failures are logged and yield
// an empty list so pages can always render.
func (r *Repository) ListAll(ctx context.Context) []Post {
	posts, err := r.Posts(ctx)
	if err != nil {
		r.logger.Error("list posts", "error", err)
		return []Post{}
	}
	return posts
}

// Posts is ListAll with the error reported. Bodies are markdown.
func (r *Repository) Posts(ctx context.Context) ([]Post, error) {
	names, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("content: list: %w", err)
	}
	posts := make([]Post, 0, len(names))
	for _, name := range names {
		if !strings.HasSuffix(name, fileExt) {
			continue
		}
		data, err := r.store.Read(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("content: read %s: %w", name, err)
		}
		post, err := r.parse(name, data)
		if err != nil {
			return nil, fmt.Errorf("content: parse %s: %w", name, err)
		}
		posts = append(posts, post)
	}
	SortPosts(posts)
	return posts, nil
}

// SortPosts orders posts by date descending, then date-prefixed files
// first, then slug descending.
func SortPosts(posts []Post) {
	slices.SortStableFunc(posts, func(a, b Post) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		if a.HasDatePrefix != b.HasDatePrefix {
			if a.HasDatePrefix {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.Slug, a.Slug)
	})
}

// GetBySlug returns the post stored under slug with its body rendered to
// sanitized HTML. Any failure is logged and reported as ErrNotFound.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (Post, error) {
	name, err := FindFile(ctx, r.store, slug)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Error("resolve post", "slug", slug, "error", err)
		}
		return Post{}, ErrNotFound
	}
	data, err := r.store.Read(ctx, name)
	if err != nil {
		r.logger.Error("read post", "file", name, "error", err)
		return Post{}, ErrNotFound
	}
	post, err := r.parse(name, data)
	if err != nil {
		r.logger.Error("parse post", "file", name, "error", err)
		return Post{}, ErrNotFound
	}
	rendered, err := markdown.ToHTML(post.Content)
	if err != nil {
		r.logger.Error("render post", "file", name, "error", err)
		return Post{}, ErrNotFound
	}
	post.Slug = slug
	post.Content = rendered
	return post, nil
}

func (r *Repository) parse(name string, data []byte) (Post, error) {
	meta, body, err := frontmatter.Parse(data)
	if err != nil {
		return Post{}, err
	}
	slug, hasPrefix := StripDatePrefix(strings.TrimSuffix(name, fileExt))
	post := Post{
		Slug:          slug,
		Title:         stringValue(meta["title"]),
		Excerpt:       stringValue(meta["excerpt"]),
		Content:       body,
		CoverImage:    stringValue(meta["coverImage"]),
		Tags:          stringList(meta["tags"]),
		Author:        stringValue(meta["author"]),
		ReadingTime:   ReadingTime(body),
		Filename:      name,
		HasDatePrefix: hasPrefix,
	}
	if post.Title == "" {
		post.Title = DefaultTitle
	}
	if d, ok := DateOf(meta["date"]); ok {
		post.Date = d
	} else {
		post.Date = Today(r.now())
	}
	if post.Excerpt == "" {
		post.Excerpt = Excerpt(body)
	}
	if post.Author == "" {
		post.Author = r.author
	}
	return post, nil
}

// Prepare derives slug, date, excerpt and file name for in and renders
// the document that would be stored.
func (r *Repository) Prepare(in NewPost) (Draft, error) {
	slug := CreateSlug(in.Slug)
	if slug == "" {
		slug = CreateSlug(in.Title)
	}
	if slug == "" {
		return Draft{}, ErrEmptySlug
	}
	date, ok := DateOf(in.Date)
	if !ok {
		date = Today(r.now())
	}
	excerpt := in.Excerpt
	if excerpt == "" {
		excerpt = Excerpt(in.Content)
	}
	author := in.Author
	if author == "" {
		author = r.author
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	doc, err := frontmatter.Serialize(frontmatter.Metadata{
		"title":      in.Title,
		"date":       date,
		"excerpt":    excerpt,
		"coverImage": in.CoverImage,
		"tags":       tags,
		"author":     author,
	}, in.Content)
	if err != nil {
		return Draft{}, err
	}
	return Draft{
		Slug:     slug,
		Date:     date,
		Filename: date + "-" + slug + fileExt,
		Document: doc,
	}, nil
}

// CreatePost writes a new post file and returns the prepared draft. A file
// with the same name is replaced.
func (r *Repository) CreatePost(ctx context.Context, in NewPost) (Draft, error) {
	d, err := r.Prepare(in)
	if err != nil {
		return Draft{}, err
	}
	if err := r.store.Write(ctx, d.Filename, d.Document); err != nil {
		return Draft{}, fmt.Errorf("content: write %s: %w", d.Filename, err)
	}
	return d, nil
}

// Problem describes a post file that fails validation.
type Problem struct {
	File   string
	Reason string
}

// Check reports files that cannot be parsed or lack a title, date or excerpt.
func (r *Repository) Check(ctx context.Context) (checked int, problems []Problem, err error) {
	names, err := r.store.List(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("content: list: %w", err)
	}
	for _, name := range names {
		if !strings.HasSuffix(name, fileExt) {
			continue
		}
		checked++
		data, err := r.store.Read(ctx, name)
		if err != nil {
			problems = append(problems, Problem{File: name, Reason: err.Error()})
			continue
		}
		meta, _, err := frontmatter.Parse(data)
		if err != nil {
			problems = append(problems, Problem{File: name, Reason: "parse error: " + err.Error()})
			continue
		}
		var missing []string
		for _, key := range []string{"title", "date", "excerpt"} {
			if v, ok := meta[key]; !ok || v == nil || v == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			problems = append(problems, Problem{File: name, Reason: "missing front matter: " + strings.Join(missing, ", ")})
		}
	}
	return checked, problems, nil
}

func stringValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	case time.Time:
		return x.Format(dateLayout)
	default:
		return fmt.Sprint(x)
	}
}

func stringList(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if x == "" {
			return []string{}
		}
		return []string{x}
	default:
		return []string{}
	}
}
