package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestToHTMLBasic(t *testing.T) {
	tests := []struct {
		input    string
		contains string
	}{
		{"# Title", "<h1>Title</h1>"},
		{"**bold**", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"- one\n- two", "<li>one</li>"},
		{"[link](https://example.com)", `href="https://example.com"`},
		{"```go\nfmt.Println()\n```", `class="language-go"`},
	}
	for _, tt := range tests {
		got, err := ToHTML(tt.input)
		if err != nil {
			t.Fatalf("ToHTML(%q) error: %v", tt.input, err)
		}
		if !strings.Contains(got, tt.contains) {
			t.Errorf("ToHTML(%q) = %q, want it to contain %q", tt.input, got, tt.contains)
		}
	}
}

func TestToHTMLSanitizes(t *testing.T) {
	tests := []struct {
		input     string
		forbidden string
	}{
		{"<script>alert(1)</script>", "<script"},
		{`<a href="javascript:alert(1)">x</a>`, "javascript:"},
		{`<img src="x" onerror="alert(1)">`, "onerror"},
		{"[x](javascript:alert(1))", "javascript:"},
	}
	for _, tt := range tests {
		got, err := ToHTML(tt.input)
		if err != nil {
			t.Fatalf("ToHTML(%q) error: %v", tt.input, err)
		}
		if strings.Contains(got, tt.forbidden) {
			t.Errorf("ToHTML(%q) = %q, must not contain %q", tt.input, got, tt.forbidden)
		}
	}
}

func TestHTMLComponent(t *testing.T) {
	out, err := ToHTML("## Hi")
	if err != nil {
		t.Fatalf("ToHTML error: %v", err)
	}
	var buf bytes.Buffer
	if err := HTML(out).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !strings.Contains(buf.String(), "<h2>Hi</h2>") {
		t.Errorf("rendered %q, want <h2>Hi</h2>", buf.String())
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"<p>Hello <strong>world</strong></p>", "Hello world"},
		{"plain   text\n\nwith breaks", "plain text with breaks"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<script>x()</script>visible", "visible"},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.input); got != tt.expected {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"<p>Hello</p>", true},
		{"Line<br>break", true},
		{"<h2 class=\"x\">Title</h2>", true},
		{"<a href=\"/x\">x</a>", true},
		{"# Markdown title\n\nSome *text*.", false},
		{"a < b and c > d", false},
		{"<bold-ish> not a tag", false},
		{"generic List<String> type", false},
	}
	for _, tt := range tests {
		if got := LooksLikeHTML(tt.input); got != tt.expected {
			t.Errorf("LooksLikeHTML(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestFromHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"paragraphs and inline",
			`<h2>Title</h2><p>Hello <strong>bold</strong> and <a href="https://x.com">link</a>.</p><ul><li>One</li><li>Two</li></ul>`,
			"## Title\n\nHello **bold** and [link](https://x.com).\n\n- One\n- Two",
		},
		{
			"ordered list",
			"<ol><li>first</li><li>second</li></ol>",
			"1. first\n2. second",
		},
		{
			"nested list",
			"<ul><li>parent<ul><li>child</li></ul></li></ul>",
			"- parent\n  - child",
		},
		{
			"code block",
			"<pre><code class=\"language-go\">x := 1\n</code></pre>",
			"```go\nx := 1\n```",
		},
		{
			"inline code and emphasis",
			"<p>Use <code>go test</code> <em>often</em></p>",
			"Use `go test` *often*",
		},
		{
			"blockquote",
			"<blockquote><p>quoted</p></blockquote>",
			"> quoted",
		},
		{
			"unsafe link dropped",
			`<p><a href="javascript:alert(1)">click</a></p>`,
			"click",
		},
		{
			"image",
			`<img src="https://x.com/a.png" alt="pic">`,
			"![pic](https://x.com/a.png)",
		},
		{
			"script removed",
			"<p>keep</p><script>drop()</script>",
			"keep",
		},
		{
			"whitespace collapsed",
			"<p>\n  spaced\n   out  </p>",
			"spaced out",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromHTML(tt.input)
			if err != nil {
				t.Fatalf("FromHTML error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("FromHTML(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com", "https://example.com"},
		{"/relative/path", "/relative/path"},
		{"#anchor", "#anchor"},
		{"mailto:a@b.c", "mailto:a@b.c"},
		{"javascript:alert(1)", ""},
		{"data:text/html;base64,xx", ""},
		{"", ""},
		{"no-scheme", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.input); got != tt.expected {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
