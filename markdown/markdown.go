// Package markdown converts between markdown and HTML for post bodies.
package markdown

import (
	"bytes"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	// Raw HTML is let through goldmark and cleaned by the sanitizer afterwards.
	renderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	sanitizer = newSanitizer()
	stripper  = bluemonday.StrictPolicy()

	reHTMLTag = regexp.MustCompile(`(?i)</?(p|div|span|br|hr|h[1-6]|ul|ol|li|strong|em|b|i|a|img|blockquote|pre|code|table|figure)(\s[^>]*)?/?>`)
)

func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+-]+$`)).OnElements("code")
	return p
}

// ToHTML renders md as sanitized HTML.
func ToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return sanitizer.Sanitize(buf.String()), nil
}

// HTML returns a component writing already sanitized HTML verbatim.
func HTML(sanitized string) templ.Component {
	return templ.Raw(sanitized)
}

// StripHTML removes all markup from s and collapses whitespace.
func StripHTML(s string) string {
	text := html.UnescapeString(stripper.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

// LooksLikeHTML reports whether s contains common block or inline tags.
// It is a heuristic: markdown with incidental tags is classified as HTML.
func LooksLikeHTML(s string) bool {
	return reHTMLTag.MatchString(s)
}

// SafeURL returns raw trimmed if it is relative or uses an allowed scheme,
// and "" otherwise.
func SafeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return val
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return val
	default:
		return ""
	}
}
