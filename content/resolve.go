package content

import (
	"context"
	"strings"
)

// StripDatePrefix removes a leading "YYYY-MM-DD-" from a file base name.
// The match is purely lexical: any four, two and two digits qualify.
func StripDatePrefix(base string) (slug string, hadPrefix bool) {
	if m := reDatePrefix.FindStringSubmatch(base); m != nil {
		return m[2], true
	}
	return base, false
}

// FindFile resolves slug to a file name in store. An exact "{slug}.md"
// wins; otherwise the first markdown file whose date-stripped base name
// equals slug is returned. The scan is linear in the number of files.
func FindFile(ctx context.Context, store Store, slug string) (string, error) {
	names, err := store.List(ctx)
	if err != nil {
		return "", err
	}
	exact := slug + fileExt
	for _, name := range names {
		if name == exact {
			return name, nil
		}
	}
	for _, name := range names {
		base, ok := strings.CutSuffix(name, fileExt)
		if !ok {
			continue
		}
		if stripped, _ := StripDatePrefix(base); stripped == slug {
			return name, nil
		}
	}
	return "", ErrNotFound
}
