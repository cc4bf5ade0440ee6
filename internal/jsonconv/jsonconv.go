// Package jsonconv converts parsed XML trees into JSON-like nested
// structures under a fixed set of named conventions.
package jsonconv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// ErrUnknownConvention reports a convention name outside the fixed set.
var ErrUnknownConvention = errors.New("unknown json convention")

// Convention names.
const (
	Badgerfish = "badgerfish"
	Abdera     = "abdera"
	Cobra      = "cobra"
	GData      = "gdata"
	Parker     = "parker"
	Yahoo      = "yahoo"
)

// Conventions lists every recognized convention name.
var Conventions = []string{Badgerfish, Abdera, Cobra, GData, Parker, Yahoo}

// Convert maps the tree under doc (a document or element node) to a nested
// structure. An empty convention name selects badgerfish.
func Convert(convention string, doc *xmlquery.Node) (any, error) {
	if convention == "" {
		convention = Badgerfish
	}
	root := rootElement(doc)
	if root == nil {
		return nil, errors.New("no root element")
	}
	switch convention {
	case Badgerfish:
		return map[string]any{name(root): badgerfish(root)}, nil
	case GData:
		return map[string]any{name(root): gdata(root)}, nil
	case Yahoo:
		return map[string]any{name(root): yahoo(root)}, nil
	case Parker:
		return parker(root), nil
	case Abdera:
		return map[string]any{name(root): abdera(root)}, nil
	case Cobra:
		return map[string]any{name(root): cobra(root)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownConvention, convention)
}

// badgerfish: attributes become "@name" keys, text "$", repeated sibling
// elements collapse into arrays.
func badgerfish(n *xmlquery.Node) any {
	m := map[string]any{}
	for _, a := range n.Attr {
		m["@"+attrName(a)] = a.Value
	}
	if t := textOf(n); t != "" {
		m["$"] = t
	}
	groupChildren(n, m, badgerfish)
	return m
}

// gdata: like badgerfish with text under "$t" and attributes dropped.
func gdata(n *xmlquery.Node) any {
	m := map[string]any{}
	if t := textOf(n); t != "" {
		m["$t"] = t
	}
	groupChildren(n, m, gdata)
	return m
}

// yahoo: attributes merge in as plain keys, text goes under "content"; an
// element with neither attributes nor children is just its text.
func yahoo(n *xmlquery.Node) any {
	if len(n.Attr) == 0 && firstChildElement(n) == nil {
		return textOf(n)
	}
	m := map[string]any{}
	for _, a := range n.Attr {
		m[attrName(a)] = a.Value
	}
	if t := textOf(n); t != "" {
		m["content"] = t
	}
	groupChildren(n, m, yahoo)
	return m
}

// parker: attributes and the root element name are discarded; a leaf is its
// text (nil when empty), repeated siblings become lists.
func parker(n *xmlquery.Node) any {
	if firstChildElement(n) == nil {
		if t := textOf(n); t != "" {
			return t
		}
		return nil
	}
	m := map[string]any{}
	groupChildren(n, m, parker)
	return m
}

// abdera: attributes grouped under "attributes", child elements listed under
// "children"; a plain element is just its text.
func abdera(n *xmlquery.Node) any {
	if len(n.Attr) == 0 && firstChildElement(n) == nil {
		return textOf(n)
	}
	m := map[string]any{}
	if len(n.Attr) > 0 {
		m["attributes"] = attrMap(n)
	}
	if firstChildElement(n) != nil {
		m["children"] = childList(n, abdera)
	} else if t := textOf(n); t != "" {
		m["children"] = t
	}
	return m
}

// cobra: the abdera layout with "attributes" always present.
func cobra(n *xmlquery.Node) any {
	m := map[string]any{"attributes": attrMap(n)}
	if firstChildElement(n) != nil {
		m["children"] = childList(n, cobra)
	} else {
		m["children"] = textOf(n)
	}
	return m
}

func groupChildren(n *xmlquery.Node, into map[string]any, conv func(*xmlquery.Node) any) {
	var order []string
	grouped := map[string][]any{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		key := name(c)
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], conv(c))
	}
	for _, key := range order {
		if vals := grouped[key]; len(vals) == 1 {
			into[key] = vals[0]
		} else {
			into[key] = vals
		}
	}
}

func childList(n *xmlquery.Node, conv func(*xmlquery.Node) any) []any {
	var list []any
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			list = append(list, map[string]any{name(c): conv(c)})
		}
	}
	return list
}

func attrMap(n *xmlquery.Node) map[string]any {
	m := make(map[string]any, len(n.Attr))
	for _, a := range n.Attr {
		m[attrName(a)] = a.Value
	}
	return m
}

// textOf concatenates the direct text children of n, trimmed. Whitespace
// between child elements of pretty-printed XML does not count as content.
func textOf(n *xmlquery.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

func rootElement(n *xmlquery.Node) *xmlquery.Node {
	if n == nil {
		return nil
	}
	if n.Type == xmlquery.ElementNode {
		return n
	}
	return firstChildElement(n)
}

func firstChildElement(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

func name(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}

func attrName(a xmlquery.Attr) string {
	if a.Name.Space != "" {
		return a.Name.Space + ":" + a.Name.Local
	}
	return a.Name.Local
}
