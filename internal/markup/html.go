package markup

import (
	"strings"

	"github.com/russross/blackfriday/v2"
)

var mathEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// HTML renders Markdown to an HTML fragment. Raw HTML in the input is
// dropped and links with untrusted schemes render as plain text. Math spans are only entity-escaped and wrapped in
// span.math.inline or div.math.display.
type HTML struct{}

func (HTML) Render(markdown string) string {
	if markdown == "" {
		return ""
	}

	protected, spans := protectMath(markdown)

	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags | blackfriday.SkipHTML |
			blackfriday.Safelink | blackfriday.NofollowLinks | blackfriday.NoreferrerLinks,
	})
	out := string(blackfriday.Run([]byte(protected),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(renderer),
	))

	// A display block alone in its paragraph replaces the paragraph.
	for _, sp := range spans {
		if sp.display {
			out = strings.ReplaceAll(out, "<p>"+sp.token+"</p>", sp.token)
		}
	}

	return restoreMath(out, spans, func(sp mathSpan) string {
		if sp.display {
			return `<div class="math display">` + mathEscaper.Replace(sp.source) + `</div>`
		}
		return `<span class="math inline">` + mathEscaper.Replace(sp.source) + `</span>`
	})
}
