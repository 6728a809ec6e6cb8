// Package markup turns streamed Markdown solutions into displayable text.
// LaTeX delimiters ($...$ and $$...$$) pass through every renderer verbatim
// so a downstream math typesetter can pick them up.
package markup

// Renderer converts Markdown to displayable output. Implementations are
// pure: the same input always yields the same output.
type Renderer interface {
	Render(markdown string) string
}

// Plain returns the Markdown unchanged.
type Plain struct{}

func (Plain) Render(markdown string) string { return markdown }

// ForFormat returns the renderer for a CLI output format name:
// "markdown", "term" or "html". width applies to "term" only.
func ForFormat(format string, width int) (Renderer, bool) {
	switch format {
	case "markdown", "md", "":
		return Plain{}, true
	case "term", "terminal":
		return NewTerminal(width), true
	case "html":
		return HTML{}, true
	}
	return nil, false
}
