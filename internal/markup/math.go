package markup

import (
	"fmt"
	"strings"
)

// mathSpan is a LaTeX fragment lifted out of the Markdown source.
type mathSpan struct {
	token   string
	source  string // including delimiters
	display bool
}

// protectMath replaces every $$...$$ and $...$ span outside code with an
// opaque alphanumeric token, so Markdown processing cannot touch LaTeX.
// An escaped \$ never opens or closes a span. Inline spans follow the usual
// TeX convention: the opening $ is not followed by a space, the closing $ is
// not preceded by one, and a blank line ends the search.
func protectMath(src string) (string, []mathSpan) {
	if !strings.Contains(src, "$") {
		return src, nil
	}

	prefix := "mathspan"
	for strings.Contains(src, prefix) {
		prefix += "q"
	}

	var (
		out   strings.Builder
		spans []mathSpan
	)
	lift := func(source string, display bool) {
		token := fmt.Sprintf("%s%dz", prefix, len(spans))
		spans = append(spans, mathSpan{token: token, source: source, display: display})
		out.WriteString(token)
	}

	i := 0
	for i < len(src) {
		switch {
		case strings.HasPrefix(src[i:], "```") && atLineStart(src, i):
			end := fenceEnd(src, i)
			out.WriteString(src[i:end])
			i = end

		case src[i] == '`':
			end := codeSpanEnd(src, i)
			out.WriteString(src[i:end])
			i = end

		case src[i] == '\\' && i+1 < len(src):
			out.WriteString(src[i : i+2])
			i += 2

		case strings.HasPrefix(src[i:], "$$"):
			if end := closingDelim(src, i+2, "$$", false); end >= 0 {
				lift(src[i:end+2], true)
				i = end + 2
				continue
			}
			out.WriteString("$$")
			i += 2

		case src[i] == '$':
			if i+1 < len(src) && !isSpace(src[i+1]) {
				if end := closingDelim(src, i+1, "$", true); end >= 0 && !isSpace(src[end-1]) {
					lift(src[i:end+1], false)
					i = end + 1
					continue
				}
			}
			out.WriteByte('$')
			i++

		default:
			out.WriteByte(src[i])
			i++
		}
	}
	return out.String(), spans
}

// closingDelim returns the index of the next unescaped delim at or after
// from, or -1. With inline set, a blank line stops the search.
func closingDelim(src string, from int, delim string, inline bool) int {
	for j := from; j < len(src); j++ {
		switch {
		case src[j] == '\\':
			j++
		case inline && strings.HasPrefix(src[j:], "\n\n"):
			return -1
		case strings.HasPrefix(src[j:], delim):
			if j == from {
				return -1
			}
			return j
		}
	}
	return -1
}

func codeSpanEnd(src string, i int) int {
	n := 0
	for i+n < len(src) && src[i+n] == '`' {
		n++
	}
	ticks := src[i : i+n]
	if end := strings.Index(src[i+n:], ticks); end >= 0 {
		return i + n + end + n
	}
	return i + n
}

func fenceEnd(src string, i int) int {
	nl := strings.IndexByte(src[i:], '\n')
	if nl < 0 {
		return len(src)
	}
	body := i + nl + 1
	for j := body; j < len(src); {
		if strings.HasPrefix(src[j:], "```") {
			if k := strings.IndexByte(src[j:], '\n'); k >= 0 {
				return j + k + 1
			}
			return len(src)
		}
		k := strings.IndexByte(src[j:], '\n')
		if k < 0 {
			break
		}
		j += k + 1
	}
	return len(src)
}

func atLineStart(src string, i int) bool {
	return i == 0 || src[i-1] == '\n'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// restoreMath puts spans back, passing each through wrap.
func restoreMath(s string, spans []mathSpan, wrap func(mathSpan) string) string {
	if len(spans) == 0 {
		return s
	}
	pairs := make([]string, 0, 2*len(spans))
	for _, sp := range spans {
		pairs = append(pairs, sp.token, wrap(sp))
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
