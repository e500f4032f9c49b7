package publish

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/eringen/mdblog/markdown"
)

// Input is the canonical publish payload after normalization.
type Input struct {
	Title      string
	Content    string
	Excerpt    string
	CoverImage string
	Tags       []string
	Slug       string
	Date       string
}

// shape recognizes one payload layout and extracts an Input from it.
type shape struct {
	name    string
	match   func(root gjson.Result) (gjson.Result, bool)
	extract func(obj gjson.Result) Input
}

// shapes are tried in order; the first match wins.
var shapes = []shape{
	{
		name: "flat",
		match: func(root gjson.Result) (gjson.Result, bool) {
			return root, root.Get("title").Exists() || root.Get("content").Exists()
		},
		extract: flatInput,
	},
	{
		name: "wrapped",
		match: func(root gjson.Result) (gjson.Result, bool) {
			cur := root.Get("post.current")
			return cur, cur.IsObject()
		},
		extract: cmsInput,
	},
	{
		name: "nested",
		match: func(root gjson.Result) (gjson.Result, bool) {
			if p := root.Get("post"); p.IsObject() {
				return p, true
			}
			first := root.Get("posts.0")
			return first, first.IsObject()
		},
		extract: cmsInput,
	},
}

// Normalize decodes a publish request body in any supported layout: a flat
// object, a {"post":{"current":{...}}} webhook wrapper, or a CMS post under
// "post" or as the first element of "posts". HTML bodies are converted to
// markdown.
func Normalize(body []byte) (Input, error) {
	if !gjson.ValidBytes(body) {
		return Input{}, invalid("Invalid JSON body.")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Input{}, invalid("Request body must be a JSON object.")
	}
	for _, s := range shapes {
		obj, ok := s.match(root)
		if !ok {
			continue
		}
		in := s.extract(obj)
		if markdown.LooksLikeHTML(in.Content) {
			md, err := markdown.FromHTML(in.Content)
			if err != nil {
				return Input{}, invalid(fmt.Sprintf("Could not convert HTML content: %v", err))
			}
			in.Content = md
		}
		return in, nil
	}
	return Input{}, invalid("Unrecognized payload: expected {title, content} or a CMS post object.")
}

func flatInput(obj gjson.Result) Input {
	return Input{
		Title:      str(obj, "title"),
		Content:    str(obj, "content"),
		Excerpt:    str(obj, "excerpt"),
		CoverImage: str(obj, "coverImage"),
		Tags:       tagList(obj.Get("tags"), false),
		Slug:       str(obj, "slug"),
		Date:       str(obj, "date"),
	}
}

func cmsInput(obj gjson.Result) Input {
	return Input{
		Title:      str(obj, "title"),
		Content:    first(obj, "markdown", "html", "content"),
		Excerpt:    first(obj, "custom_excerpt", "excerpt"),
		CoverImage: first(obj, "feature_image", "coverImage"),
		Tags:       tagList(obj.Get("tags"), true),
		Slug:       str(obj, "slug"),
		Date:       first(obj, "published_at", "date"),
	}
}

// str returns the field at path when it is a JSON string.
func str(obj gjson.Result, path string) string {
	v := obj.Get(path)
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}

func first(obj gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := str(obj, p); s != "" {
			return s
		}
	}
	return ""
}

// tagList keeps string entries of v. With named set, {"name": "..."}
// objects are accepted too.
func tagList(v gjson.Result, named bool) []string {
	if !v.IsArray() {
		return nil
	}
	var tags []string
	v.ForEach(func(_, item gjson.Result) bool {
		switch {
		case item.Type == gjson.String:
			tags = append(tags, item.Str)
		case named && item.IsObject():
			if n := item.Get("name"); n.Type == gjson.String {
				tags = append(tags, n.Str)
			}
		}
		return true
	})
	return tags
}
