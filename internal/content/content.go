// Package content turns story bodies into something a template can show.
package content

import (
	"html/template"
	"strings"
	"unicode"
	"unicode/utf8"

	"gitlab.com/golang-commonmark/markdown"
	"golang.org/x/net/html"
)

// Raw HTML in a story body is escaped, never passed through.
var md = markdown.New(markdown.HTML(false), markdown.Linkify(true), markdown.Typographer(true), markdown.MaxNesting(10))

// Markdown renders a story body as CommonMark.
func Markdown(body string) template.HTML {
	return template.HTML(md.RenderToString([]byte(body)))
}

// StripTags returns the text content of an HTML fragment with runs of
// whitespace collapsed to a single space.
func StripTags(input string) string {
	tokenizer := html.NewTokenizerFragment(strings.NewReader(input), "body")

	var b strings.Builder
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break // io.EOF or malformed input; keep what we have
		}
		switch tt {
		case html.TextToken:
			b.Write(tokenizer.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Tags separate words: "a<br>b" is two words.
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Truncate shortens s to at most n runes, appending "..." when anything was
// cut. It backs up to the last word boundary when one is close.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := runes[:n]
	for i := len(cut) - 1; i > n/2; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + "..."
}

// Excerpt is the plain-text teaser shown in listings.
func Excerpt(body string, n int) string {
	return Truncate(StripTags(string(Markdown(body))), n)
}
