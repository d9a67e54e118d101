package render

import (
	"errors"
	htmltemplate "html/template"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/kailas-cloud/entrydex/internal/domain/entry"
)

// mergeTag matches {Label:key}; the label part is informational.
var mergeTag = regexp.MustCompile(`\{([^{}:]*):([^{}:]+)\}`)

// mergeTags replaces {Label:key} with entry values. HTML output escapes
// the substituted values; content around them is view-authored and kept.
func mergeTags(content string, en entry.Entry, escape bool) string {
	return mergeTag.ReplaceAllStringFunc(content, func(tag string) string {
		m := mergeTag.FindStringSubmatch(tag)
		v, ok := en.Value(strings.TrimSpace(m[2]))
		if !ok {
			return ""
		}
		if escape {
			return htmltemplate.HTMLEscapeString(v)
		}
		return v
	})
}

var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true,
	"tr": true, "td": true, "th": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// stripMarkup returns the text content of an HTML fragment with runs of
// whitespace collapsed. Block-level tag boundaries become spaces.
func stripMarkup(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return strings.Join(strings.Fields(fragment), " ")
			}
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteByte(' ')
			}
		}
	}
}
