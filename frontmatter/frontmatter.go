// Package frontmatter splits and joins markdown documents that carry a
// YAML metadata header delimited by "---" lines.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// ErrUnterminated is returned when a header is opened but never closed.
var ErrUnterminated = errors.New("frontmatter: missing closing ---")

// Metadata maps front-matter keys to strings, numbers, booleans or string
// lists. YAML timestamps are returned as strings: "2006-01-02" for a bare
// date, RFC 3339 otherwise.
type Metadata map[string]any

// keyOrder is the order post keys are written in. Unknown keys follow, sorted.
var keyOrder = []string{"title", "date", "excerpt", "coverImage", "tags", "author"}

// Parse splits doc into its metadata and body. A document without a header
// is returned whole as body with empty metadata.
func Parse(doc []byte) (Metadata, string, error) {
	text := string(doc)
	first, rest, found := strings.Cut(text, "\n")
	if strings.TrimRight(first, "\r") != delimiter {
		return Metadata{}, text, nil
	}
	if !found {
		return nil, "", ErrUnterminated
	}

	var header []string
	closed := false
	for {
		line, tail, more := strings.Cut(rest, "\n")
		if strings.TrimRight(line, "\r") == delimiter {
			closed = true
			rest = tail
			if !more {
				rest = ""
			}
			break
		}
		header = append(header, line)
		if !more {
			break
		}
		rest = tail
	}
	if !closed {
		return nil, "", ErrUnterminated
	}

	meta := Metadata{}
	if err := yaml.Unmarshal([]byte(strings.Join(header, "\n")), &meta); err != nil {
		return nil, "", fmt.Errorf("frontmatter: decode header: %w", err)
	}
	for k, v := range meta {
		meta[k] = normalize(v)
	}

	// The blank line between header and body belongs to the format.
	switch {
	case strings.HasPrefix(rest, "\r\n"):
		rest = rest[2:]
	case strings.HasPrefix(rest, "\n"):
		rest = rest[1:]
	}
	return meta, rest, nil
}

// normalize turns sequences of strings into []string and timestamps into
// strings so callers get the same shape they serialized.
func normalize(v any) any {
	if t, ok := v.(time.Time); ok {
		if t.Location() == time.UTC && t.Equal(t.Truncate(24*time.Hour)) {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	}
	seq, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]string, 0, len(seq))
	for _, item := range seq {
		s, ok := item.(string)
		if !ok {
			return v
		}
		out = append(out, s)
	}
	return out
}

// Serialize writes meta as a front-matter header followed by a blank line and body.
func Serialize(meta Metadata, body string) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range orderedKeys(meta) {
		val, err := valueNode(meta[k])
		if err != nil {
			return nil, fmt.Errorf("frontmatter: key %q: %w", k, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			val,
		)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	if len(root.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return nil, fmt.Errorf("frontmatter: encode header: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("frontmatter: encode header: %w", err)
		}
	}
	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func orderedKeys(meta Metadata) []string {
	keys := make([]string, 0, len(meta))
	seen := make(map[string]bool, len(keyOrder))
	for _, k := range keyOrder {
		if _, ok := meta[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range meta {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func quoted(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: s}
}

func valueNode(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		return quoted(x), nil
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, s := range x {
			seq.Content = append(seq.Content, quoted(s))
		}
		return seq, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, item := range x {
			n, err := valueNode(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(x)}, nil
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(x)}, nil
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(x, 10)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(x)}, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return n, nil
	}
}

// formatFloat keeps a decimal point so whole floats decode as floats again.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
