package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	reSpaces         = regexp.MustCompile(`[ \t\r\n\f]+`)
	reTrailingSpaces = regexp.MustCompile(`[ \t]+\n`)
	reBlankRuns      = regexp.MustCompile(`\n{3,}`)
	reItemBreaks     = regexp.MustCompile(`\n{2,}`)
)

// FromHTML converts an HTML fragment to markdown. Unknown elements are
// unwrapped to their text; scripts and styles are dropped.
func FromHTML(src string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return "", err
	}
	c := &converter{}
	var b strings.Builder
	for _, n := range nodes {
		c.node(&b, n)
	}
	out := reTrailingSpaces.ReplaceAllString(b.String(), "\n")
	out = reBlankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out), nil
}

type converter struct {
	depth int // list nesting
}

func (c *converter) children(b *strings.Builder, n *html.Node) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.node(b, ch)
	}
}

func (c *converter) inline(n *html.Node) string {
	var b strings.Builder
	c.children(&b, n)
	return strings.TrimSpace(b.String())
}

func (c *converter) node(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		c.text(b, n.Data)
		return
	case html.ElementNode:
	default:
		c.children(b, n)
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Noscript:
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		blank(b)
		b.WriteString(strings.Repeat("#", level) + " " + c.inline(n))
		blank(b)
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Main, atom.Figure:
		blank(b)
		c.children(b, n)
		blank(b)
	case atom.Br:
		b.WriteString("\n")
	case atom.Hr:
		blank(b)
		b.WriteString("---")
		blank(b)
	case atom.Strong, atom.B:
		c.wrap(b, n, "**")
	case atom.Em, atom.I:
		c.wrap(b, n, "*")
	case atom.Del, atom.S:
		c.wrap(b, n, "~~")
	case atom.Code:
		if t := textContent(n); t != "" {
			b.WriteString("`" + t + "`")
		}
	case atom.A:
		text := c.inline(n)
		href := SafeURL(attr(n, "href"))
		if href == "" {
			b.WriteString(text)
			return
		}
		if text == "" {
			text = href
		}
		b.WriteString("[" + text + "](" + href + ")")
	case atom.Img:
		src := SafeURL(attr(n, "src"))
		if src != "" {
			b.WriteString("![" + attr(n, "alt") + "](" + src + ")")
		}
	case atom.Ul, atom.Ol:
		blank(b)
		c.list(b, n, n.DataAtom == atom.Ol)
		blank(b)
	case atom.Blockquote:
		inner := &converter{depth: c.depth}
		var q strings.Builder
		inner.children(&q, n)
		text := reBlankRuns.ReplaceAllString(strings.TrimSpace(q.String()), "\n\n")
		blank(b)
		for i, line := range strings.Split(text, "\n") {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(strings.TrimRight("> "+line, " "))
		}
		blank(b)
	case atom.Pre:
		blank(b)
		b.WriteString("```" + codeLanguage(n) + "\n")
		b.WriteString(strings.TrimRight(textContent(n), "\n"))
		b.WriteString("\n```")
		blank(b)
	default:
		c.children(b, n)
	}
}

func (c *converter) text(b *strings.Builder, data string) {
	t := reSpaces.ReplaceAllString(data, " ")
	if s := b.String(); s == "" || strings.HasSuffix(s, "\n") || strings.HasSuffix(s, " ") {
		t = strings.TrimLeft(t, " ")
	}
	b.WriteString(t)
}

func (c *converter) wrap(b *strings.Builder, n *html.Node, marker string) {
	if t := c.inline(n); t != "" {
		b.WriteString(marker + t + marker)
	}
}

func (c *converter) list(b *strings.Builder, n *html.Node, ordered bool) {
	indent := strings.Repeat("  ", c.depth)
	i := 1
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		marker := "- "
		if ordered {
			marker = strconv.Itoa(i) + ". "
		}
		i++

		c.depth++
		var item strings.Builder
		c.children(&item, li)
		c.depth--

		text := reItemBreaks.ReplaceAllString(strings.TrimSpace(item.String()), "\n")
		if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(indent + marker + text + "\n")
	}
}

// blank ends the current block with an empty line.
func blank(b *strings.Builder) {
	s := b.String()
	switch {
	case s == "", strings.HasSuffix(s, "\n\n"):
	case strings.HasSuffix(s, "\n"):
		b.WriteString("\n")
	default:
		b.WriteString("\n\n")
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return b.String()
}

func codeLanguage(pre *html.Node) string {
	for ch := pre.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type != html.ElementNode || ch.DataAtom != atom.Code {
			continue
		}
		for _, class := range strings.Fields(attr(ch, "class")) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok {
				return lang
			}
		}
	}
	return ""
}
