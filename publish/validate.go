package publish

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 100_000
	MaxTags          = 10

	// MaxBodyBytes caps a publish request body. It leaves room for
	// MaxContentLength characters written as JSON \u escapes.
	MaxBodyBytes = 1 << 20
)

const msgContentTooLong = "Content too long. Maximum 100,000 characters."

// Validate checks the required fields and limits of in and truncates the
// tag list. Lengths are counted in characters.
func Validate(in *Input) error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return invalid("Missing required fields: title and content are required.")
	}
	if !validUTF8(in) {
		return invalid("Invalid text encoding. Fields must be valid UTF-8.")
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return invalid("Title too long. Maximum 200 characters.")
	}
	if utf8.RuneCountInString(in.Content) > MaxContentLength {
		return invalid(msgContentTooLong)
	}
	if len(in.Tags) > MaxTags {
		in.Tags = in.Tags[:MaxTags]
	}
	return nil
}

func validUTF8(in *Input) bool {
	for _, s := range []string{in.Title, in.Content, in.Excerpt, in.CoverImage, in.Slug, in.Date} {
		if !utf8.ValidString(s) {
			return false
		}
	}
	for _, t := range in.Tags {
		if !utf8.ValidString(t) {
			return false
		}
	}
	return true
}
