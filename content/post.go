// Package content is the post repository: it discovers markdown files in a
// content store, resolves slugs to files, parses front matter into posts and
// writes new posts back with a date-prefixed filename.
package content

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/eringen/mdblog/markdown"
)

const (
	// DefaultTitle is used when a post has no title in its front matter.
	DefaultTitle = "Untitled"
	// DefaultAuthor is used when neither the post nor the repository names one.
	DefaultAuthor = "Site Owner"

	dateLayout    = "2006-01-02"
	excerptLength = 160
	ellipsis      = "..."
	wordsPerMin   = 200
	fileExt       = ".md"
)

var (
	// ErrNotFound is returned when no content file resolves for a slug.
	ErrNotFound = errors.New("content: post not found")
	// ErrEmptySlug is returned when a title or slug reduces to nothing.
	ErrEmptySlug = errors.New("content: slug is empty after normalization")

	reDatePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)
	reDate       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// Post is a blog post as read from the content store.
type Post struct {
	Slug        string
	Title       string
	Date        string
	Excerpt     string
	Content     string // markdown from ListAll, sanitized HTML from GetBySlug
	CoverImage  string
	Tags        []string
	Author      string
	ReadingTime int

	Filename      string
	HasDatePrefix bool
}

// NewPost is the input to the write path. Only Title (or Slug) and Content
// are needed; everything else is derived when empty.
type NewPost struct {
	Title      string
	Content    string
	Excerpt    string
	CoverImage string
	Tags       []string
	Slug       string
	Date       string
	Author     string
}

// Draft is a fully prepared post file, ready to be written to a store.
type Draft struct {
	Slug     string
	Date     string
	Filename string
	Document []byte
}

// CreateSlug lowercases s, replaces every run of characters outside
// [a-z0-9] with a single hyphen and trims hyphens from both ends. Letters
// outside ASCII are dropped, not transliterated.
func CreateSlug(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// TagKey is the comparison form of a tag: trimmed and Unicode case-folded,
// so "Go", "GO " and "go" match, as do "Straße" and "STRASSE".
func TagKey(tag string) string {
	return cases.Fold().String(strings.TrimSpace(tag))
}

// Excerpt strips markup from body and truncates it to 160 characters
// followed by an ellipsis.
func Excerpt(body string) string {
	text := markdown.StripHTML(body)
	if utf8.RuneCountInString(text) > excerptLength {
		text = string([]rune(text)[:excerptLength])
	}
	return text + ellipsis
}

// ReadingTime estimates minutes to read body at 200 words per minute,
// rounded up, never less than one.
func ReadingTime(body string) int {
	words := len(strings.Fields(body))
	minutes := int(math.Ceil(float64(words) / wordsPerMin))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// DateOf extracts a YYYY-MM-DD date from a front-matter value or an ISO
// timestamp. It reports false when v holds no valid calendar date.
func DateOf(v any) (string, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.Format(dateLayout), true
	case string:
		d := reDate.FindString(strings.TrimSpace(x))
		if d == "" {
			return "", false
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return "", false
		}
		return d, true
	default:
		return "", false
	}
}

// Today formats t as a date-only string.
func Today(t time.Time) string {
	return t.Format(dateLayout)
}
