// Package selector translates a restricted CSS selector syntax into
// relative XPath expressions. Support is best-effort: bare tags, *, #id,
// .class, [attr], [attr=val], compounds, descendant and child combinators,
// and comma grouping.
package selector

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported reports selector syntax outside the translated subset.
var ErrUnsupported = errors.New("unsupported selector syntax")

// Translate converts a selector into an XPath expression relative to the
// context node.
func Translate(sel string) (string, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return "", fmt.Errorf("%w: empty selector", ErrUnsupported)
	}
	var exprs []string
	for _, part := range strings.Split(sel, ",") {
		expr, err := translateOne(strings.TrimSpace(part))
		if err != nil {
			return "", err
		}
		exprs = append(exprs, expr)
	}
	return strings.Join(exprs, " | "), nil
}

func translateOne(sel string) (string, error) {
	tokens, err := tokenize(sel)
	if err != nil {
		return "", err
	}
	expr := "."
	axis := "//"
	for _, tok := range tokens {
		if tok == ">" {
			axis = "/"
			continue
		}
		step, err := translateCompound(tok)
		if err != nil {
			return "", err
		}
		expr += axis + step
		axis = "//"
	}
	return expr, nil
}

// tokenize splits on whitespace and child combinators, keeping ">" as its
// own token. Two combinators in a row, or a leading/trailing one, fail.
func tokenize(sel string) ([]string, error) {
	fields := strings.Fields(strings.ReplaceAll(sel, ">", " > "))
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty selector", ErrUnsupported)
	}
	prevCombinator := true
	for _, f := range fields {
		if f == ">" {
			if prevCombinator {
				return nil, fmt.Errorf("%w: misplaced combinator", ErrUnsupported)
			}
			prevCombinator = true
		} else {
			prevCombinator = false
		}
	}
	if fields[len(fields)-1] == ">" {
		return nil, fmt.Errorf("%w: trailing combinator", ErrUnsupported)
	}
	return fields, nil
}

// translateCompound handles one simple selector sequence, e.g.
// item.featured[type=rss].
func translateCompound(c string) (string, error) {
	tag := "*"
	i := 0
	if c != "" && c[0] != '#' && c[0] != '.' && c[0] != '[' {
		j := strings.IndexAny(c, "#.[")
		if j < 0 {
			j = len(c)
		}
		tag = c[:j]
		if !validName(tag) {
			return "", fmt.Errorf("%w: bad element name %q", ErrUnsupported, tag)
		}
		i = j
	}
	var conds []string
	for i < len(c) {
		switch c[i] {
		case '#':
			val, next, err := readName(c, i+1)
			if err != nil {
				return "", err
			}
			conds = append(conds, fmt.Sprintf("@id=%s", xpathString(val)))
			i = next
		case '.':
			val, next, err := readName(c, i+1)
			if err != nil {
				return "", err
			}
			conds = append(conds, fmt.Sprintf(
				"contains(concat(' ', normalize-space(@class), ' '), %s)",
				xpathString(" "+val+" ")))
			i = next
		case '[':
			end := strings.IndexByte(c[i:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed attribute selector", ErrUnsupported)
			}
			body := c[i+1 : i+end]
			cond, err := attrCondition(body)
			if err != nil {
				return "", err
			}
			conds = append(conds, cond)
			i += end + 1
		default:
			return "", fmt.Errorf("%w: unexpected %q", ErrUnsupported, c[i])
		}
	}
	return tag + strings.Join(mapBrackets(conds), ""), nil
}

func attrCondition(body string) (string, error) {
	if eq := strings.IndexByte(body, '='); eq >= 0 {
		name, val := body[:eq], body[eq+1:]
		if !validName(name) {
			return "", fmt.Errorf("%w: bad attribute name %q", ErrUnsupported, name)
		}
		val = strings.Trim(val, `"'`)
		return fmt.Sprintf("@%s=%s", name, xpathString(val)), nil
	}
	if !validName(body) {
		return "", fmt.Errorf("%w: bad attribute name %q", ErrUnsupported, body)
	}
	return "@" + body, nil
}

func mapBrackets(conds []string) []string {
	out := make([]string, len(conds))
	for i, c := range conds {
		out[i] = "[" + c + "]"
	}
	return out
}

func readName(s string, start int) (string, int, error) {
	end := start
	for end < len(s) && !strings.ContainsRune("#.[", rune(s[end])) {
		end++
	}
	name := s[start:end]
	if !validName(name) {
		return "", 0, fmt.Errorf("%w: bad name %q", ErrUnsupported, name)
	}
	return name, end, nil
}

func validName(s string) bool {
	if s == "*" {
		return true
	}
	if s == "" {
		return false
	}
	colons := 0
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9', r == '-', r == '.':
			if i == 0 {
				return false
			}
		case r == ':':
			colons++
			if i == 0 || i == len(s)-1 || colons > 1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// xpathString quotes a literal for use inside an XPath expression.
func xpathString(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	// Mixed quotes need concat().
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
