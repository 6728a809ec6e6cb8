package markup

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
)

const defaultWidth = 80

// Terminal renders Markdown with ANSI styling for a terminal of the given
// width. Math spans come back verbatim. If glamour cannot render, the raw
// text is word-wrapped instead.
type Terminal struct {
	width int
	style string

	once     sync.Once
	mu       sync.Mutex
	renderer *glamour.TermRenderer
	initErr  error
}

// NewTerminal returns a Terminal renderer using the dark style.
// A width of zero or less means 80 columns.
func NewTerminal(width int) *Terminal {
	return NewTerminalWithStyle(width, "dark")
}

// NewTerminalWithStyle is NewTerminal with a named glamour style
// ("dark", "light", "notty", ...).
func NewTerminalWithStyle(width int, style string) *Terminal {
	if width <= 0 {
		width = defaultWidth
	}
	return &Terminal{width: width, style: style}
}

// Width returns the wrap width.
func (t *Terminal) Width() int { return t.width }

func (t *Terminal) Render(markdown string) string {
	if markdown == "" {
		return ""
	}

	// Glamour expands tabs to 8 columns.
	markdown = strings.ReplaceAll(markdown, "\t", "  ")

	t.once.Do(func() {
		t.renderer, t.initErr = glamour.NewTermRenderer(
			glamour.WithStandardStyle(t.style),
			glamour.WithWordWrap(t.width),
		)
	})
	if t.initErr != nil {
		return wordwrap.String(markdown, t.width)
	}

	protected, spans := protectMath(markdown)

	t.mu.Lock()
	out, err := t.renderer.Render(protected)
	t.mu.Unlock()
	if err != nil {
		return wordwrap.String(markdown, t.width)
	}

	out = strings.Trim(out, "\n")
	return restoreMath(out, spans, func(sp mathSpan) string { return sp.source })
}
