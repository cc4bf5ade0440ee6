// Package template matches literal text templates with {} positional
// capture placeholders against document text.
package template

import (
	"regexp"
	"strings"
)

// Template is a compiled {} template. Everything outside placeholders is
// matched literally; each {} captures the shortest possible run, across
// newlines.
type Template struct {
	re *regexp.Regexp
}

// Compile builds a Template. The syntax has no invalid inputs: a lone "{"
// is literal text.
func Compile(pattern string) *Template {
	var b strings.Builder
	b.WriteString("(?s)")
	for {
		i := strings.Index(pattern, "{}")
		if i < 0 {
			b.WriteString(regexp.QuoteMeta(pattern))
			break
		}
		b.WriteString(regexp.QuoteMeta(pattern[:i]))
		b.WriteString("(.*?)")
		pattern = pattern[i+2:]
	}
	return &Template{re: regexp.MustCompile(b.String())}
}

// Search returns the captures of the leftmost match. A template without
// placeholders yields zero captures and ok reports whether the literal
// occurs at all.
func (t *Template) Search(text string) (captures []string, ok bool) {
	m := t.re.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

// FindAll returns the captures of every non-overlapping match, in order.
func (t *Template) FindAll(text string) [][]string {
	var out [][]string
	for _, m := range t.re.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1:])
	}
	return out
}
