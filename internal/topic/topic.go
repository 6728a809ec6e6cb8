package topic

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnknownTopic is returned when a name does not match any topic.
var ErrUnknownTopic = errors.New("unknown topic")

// Topic is one of the fixed mathematics themes a problem can be filed under.
type Topic string

const (
	Arithmetique  Topic = "Arithmétique"
	Complexes     Topic = "Nombres Complexes"
	Trigonometrie Topic = "Trigonométrie"
	Analyse       Topic = "Analyse 1"
	Geometrie3D   Topic = "Géométrie Analytique 3D"
)

// topics is the display order. Index 0 is the default selection.
var topics = [...]Topic{
	Arithmetique,
	Complexes,
	Trigonometrie,
	Analyse,
	Geometrie3D,
}

// All returns every topic in display order.
func All() []Topic {
	out := make([]Topic, len(topics))
	copy(out, topics[:])
	return out
}

// Default returns the topic selected when a session starts.
func Default() Topic {
	return topics[0]
}

// Index returns the position of t in display order, or -1.
func Index(t Topic) int {
	for i, x := range topics {
		if x == t {
			return i
		}
	}
	return -1
}

// At returns the topic at position i in display order.
func At(i int) (Topic, bool) {
	if i < 0 || i >= len(topics) {
		return "", false
	}
	return topics[i], true
}

// Valid reports whether t is a member of the fixed topic set.
func (t Topic) Valid() bool {
	return Index(t) >= 0
}

// String returns the display name.
func (t Topic) String() string {
	return string(t)
}

// Slug returns an ASCII, lower-case, dash-separated form of the name,
// e.g. "geometrie-analytique-3d".
func (t Topic) Slug() string {
	return slugify(string(t))
}

// Parse resolves a display name or a slug to a Topic. Matching on slugs
// ignores case and accents, so "trigonometrie" and "Trigonométrie" both work.
func Parse(name string) (Topic, error) {
	name = strings.TrimSpace(name)
	for _, t := range topics {
		if string(t) == name {
			return t, nil
		}
	}
	want := slugify(name)
	for _, t := range topics {
		if t.Slug() == want {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTopic, name)
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func slugify(s string) string {
	plain, _, err := transform.String(stripMarks, s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
