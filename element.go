package requestsxml

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/erinxocon/requests-xml/internal/jsonconv"
	"github.com/erinxocon/requests-xml/internal/selector"
	"github.com/erinxocon/requests-xml/internal/template"
)

// Element wraps a single node of a parsed tree. It does not own the node;
// its lifetime is tied to the Document the tree came from.
type Element struct {
	node  *xmlquery.Node
	attrs map[string]string
}

func newElement(n *xmlquery.Node) *Element {
	return &Element{node: n}
}

// Node exposes the underlying tree node.
func (e *Element) Node() *xmlquery.Node {
	return e.node
}

// Tag returns the element name, prefix-qualified where applicable.
func (e *Element) Tag() string {
	return qualifiedName(e.node)
}

// Attrs returns the attributes of this node only, keyed by their qualified
// name. The map is built once and cached.
func (e *Element) Attrs() map[string]string {
	if e.attrs == nil {
		e.attrs = make(map[string]string, len(e.node.Attr))
		for _, a := range e.node.Attr {
			key := a.Name.Local
			if a.Name.Space != "" {
				key = a.Name.Space + ":" + a.Name.Local
			}
			e.attrs[key] = a.Value
		}
	}
	return e.attrs
}

// Text returns the concatenated text content of the node and its
// descendants.
func (e *Element) Text() string {
	return e.node.InnerText()
}

// XML serializes the subtree rooted at this element. Namespace declarations
// made on ancestors are carried onto the fragment root so it stands alone.
func (e *Element) XML() string {
	s := e.node.OutputXML(true)
	decls := inheritedNamespaces(e.node)
	if len(decls) == 0 {
		return s
	}
	at := startTagNameEnd(s)
	if at < 0 {
		return s
	}
	var b strings.Builder
	b.WriteString(s[:at])
	for _, d := range decls {
		fmt.Fprintf(&b, " %s=%q", d.name, d.value)
	}
	b.WriteString(s[at:])
	return b.String()
}

// XPath evaluates an expression relative to this element. Absolute paths
// (//x) still address the whole tree, matching the engine's semantics.
func (e *Element) XPath(expr string) ([]*Element, error) {
	return queryAll(e.node, expr)
}

// XPathFirst returns the first match in document order, or nil when none.
func (e *Element) XPathFirst(expr string) (*Element, error) {
	return queryFirst(e.node, expr)
}

// Find mirrors Document.Find, scoped to this subtree.
func (e *Element) Find(sel string, containing ...string) ([]*Element, error) {
	return findAll(e.node, sel, containing)
}

// FindFirst returns the first Find result, or nil when nothing matches.
func (e *Element) FindFirst(sel string, containing ...string) (*Element, error) {
	els, err := e.Find(sel, containing...)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

// Links returns the text of every <link> element in this subtree, in
// document order.
func (e *Element) Links() []string {
	return linksOf(e.node)
}

// JSON converts the subtree rooted at this element under a named convention
// ("badgerfish" when empty), mirroring Document.JSON.
func (e *Element) JSON(convention string) (any, error) {
	return jsonconv.Convert(convention, e.node)
}

// Search matches a {} template against the serialized subtree.
func (e *Element) Search(tmpl string) (captures []string, ok bool) {
	return template.Compile(tmpl).Search(e.XML())
}

// SearchAll returns the captures of every template match in the subtree.
func (e *Element) SearchAll(tmpl string) [][]string {
	return template.Compile(tmpl).FindAll(e.XML())
}

func (e *Element) String() string {
	attrs := e.Attrs()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	fmt.Fprintf(&b, "<Element %q", e.Tag())
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%q", k, attrs[k])
	}
	b.WriteString(">")
	return b.String()
}

func queryAll(n *xmlquery.Node, expr string) ([]*Element, error) {
	nodes, err := xmlquery.QueryAll(n, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath %q: %w", expr, err)
	}
	els := make([]*Element, 0, len(nodes))
	for _, node := range nodes {
		els = append(els, newElement(node))
	}
	return els, nil
}

func queryFirst(n *xmlquery.Node, expr string) (*Element, error) {
	node, err := xmlquery.Query(n, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath %q: %w", expr, err)
	}
	if node == nil {
		return nil, nil
	}
	return newElement(node), nil
}

func findAll(n *xmlquery.Node, sel string, containing []string) ([]*Element, error) {
	expr, err := selector.Translate(sel)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", sel, err)
	}
	els, err := queryAll(n, expr)
	if err != nil {
		return nil, err
	}
	if len(containing) == 0 {
		return els, nil
	}
	kept := els[:0]
	for _, el := range els {
		text := strings.ToLower(el.Text())
		for _, c := range containing {
			if strings.Contains(text, strings.ToLower(c)) {
				kept = append(kept, el)
				break
			}
		}
	}
	return kept, nil
}

func linksOf(n *xmlquery.Node) []string {
	nodes := xmlquery.Find(n, ".//link")
	links := make([]string, 0, len(nodes))
	for _, node := range nodes {
		links = append(links, node.InnerText())
	}
	return links
}

type nsDecl struct {
	name  string
	value string
}

// inheritedNamespaces collects xmlns declarations made on ancestors that are
// not redeclared on the node itself. The nearest ancestor wins.
func inheritedNamespaces(n *xmlquery.Node) []nsDecl {
	seen := map[string]bool{}
	for _, a := range n.Attr {
		if key, ok := xmlnsKey(a); ok {
			seen[key] = true
		}
	}
	var decls []nsDecl
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != xmlquery.ElementNode {
			continue
		}
		for _, a := range p.Attr {
			key, ok := xmlnsKey(a)
			if !ok || seen[key] {
				continue
			}
			seen[key] = true
			decls = append(decls, nsDecl{name: key, value: a.Value})
		}
	}
	return decls
}

func xmlnsKey(a xmlquery.Attr) (string, bool) {
	switch {
	case a.Name.Space == "xmlns":
		return "xmlns:" + a.Name.Local, true
	case a.Name.Space == "" && a.Name.Local == "xmlns":
		return "xmlns", true
	}
	return "", false
}

// startTagNameEnd returns the offset just past the tag name of a serialized
// start tag, or -1 when the input does not begin with one.
func startTagNameEnd(s string) int {
	if len(s) == 0 || s[0] != '<' {
		return -1
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n', '/', '>':
			return i
		}
	}
	return -1
}
