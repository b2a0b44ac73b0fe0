// Package notebook assembles generated markdown into the final note form:
// fixed attribution around the body, and title extraction for the journal.
package notebook

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Badge is the fixed line prepended to every generated note.
const Badge = "> 🤖 *AI-generated note. Drafted by a language model from a captured prompt.*"

// Footer is the fixed disclaimer appended to every generated note.
const Footer = `---

*This note was produced by an automated pipeline and has not been reviewed
by a human. Verify model names, commands, and benchmark numbers against
primary sources before relying on them.*`

// Attribute wraps a generated markdown body with the badge and footer.
// Deterministic, no failure mode.
func Attribute(body string) string {
	return Badge + "\n\n" + strings.TrimSpace(body) + "\n\n" + Footer + "\n"
}

var md = goldmark.New()

// Title returns the text of the first heading in body, or "" when the body
// has no heading.
func Title(body string) string {
	src := []byte(body)
	doc := md.Parser().Parse(text.NewReader(src))

	title := ""
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title = headingText(h, src)
		return ast.WalkStop, nil
	})
	return strings.TrimSpace(title)
}

// headingText concatenates the literal text children of a heading.
func headingText(h *ast.Heading, src []byte) string {
	var b strings.Builder
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
		case *ast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if tt, ok := cc.(*ast.Text); ok {
					b.Write(tt.Segment.Value(src))
				}
			}
		}
	}
	return b.String()
}

// TitleOrSlug falls back to a humanized slug when the body has no heading.
func TitleOrSlug(body, slug string) string {
	if t := Title(body); t != "" {
		return t
	}
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
