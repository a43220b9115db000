package story

import (
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// PreviewSeparator sits between nodes in the rendered preview.
const PreviewSeparator = "<br><br>"

// ExportSeparator sits between nodes in a plain-text export.
const ExportSeparator = "\n\n"

// EmptyPreviewMessage is shown when the preview has nothing to render.
const EmptyPreviewMessage = "Your story preview will appear here"

var emptyPreview = `<div class="empty-state"><p>` + html.EscapeString(EmptyPreviewMessage) + `</p></div>`

var previewPolicy = bluemonday.UGCPolicy()

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Fieldset: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Tr: true, atom.Ul: true,
}

var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Template: true, atom.Head: true, atom.Title: true,
}

// PlainText renders node HTML as the text a reader sees: entities are
// decoded, <br> becomes a newline and block elements begin on a new line.
func PlainText(fragment string) string {
	var (
		out       strings.Builder
		needBreak bool
		skipDepth int
	)
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return norm.NFC.String(strings.TrimRight(out.String(), "\n"))
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := string(tokenizer.Text())
			if text == "" {
				continue
			}
			if needBreak && out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
				out.WriteByte('\n')
			}
			needBreak = false
			out.WriteString(text)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Br:
				out.WriteByte('\n')
				needBreak = false
			case skippedElements[a] && tt == html.StartTagToken:
				skipDepth++
			case blockElements[a]:
				needBreak = true
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			a := atom.Lookup(name)
			switch {
			case skippedElements[a]:
				if skipDepth > 0 {
					skipDepth--
				}
			case blockElements[a]:
				needBreak = true
			}
		}
	}
}

// JoinPlainText renders each fragment as plain text and joins them with a
// blank line.
func JoinPlainText(fragments []string) string {
	parts := make([]string, len(fragments))
	for i, fragment := range fragments {
		parts[i] = PlainText(fragment)
	}
	return strings.Join(parts, ExportSeparator)
}

// Preview renders node HTML for display. Each fragment is sanitized and the
// results are joined with PreviewSeparator. When the joined markup is empty
// the empty-state placeholder is returned instead.
func Preview(fragments []string) string {
	parts := make([]string, len(fragments))
	for i, fragment := range fragments {
		parts[i] = previewPolicy.Sanitize(fragment)
	}
	joined := strings.Join(parts, PreviewSeparator)
	if joined == "" {
		return emptyPreview
	}
	return joined
}

// ExportFilename names an export produced at t, using t's UTC date.
func ExportFilename(t time.Time) string {
	return "story_" + t.UTC().Format("2006-01-02") + ".txt"
}
