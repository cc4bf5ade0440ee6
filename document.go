// Package requestsxml makes XML retrieval and querying ergonomic: it layers
// XPath and tag-based search, lazy response parsing, link extraction and
// XML-to-JSON conversion over an HTTP session and an XML/XPath engine.
package requestsxml

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/xmlquery"
	"github.com/clbanning/mxj/v2"
	"golang.org/x/net/html/charset"

	"github.com/erinxocon/requests-xml/internal/jsonconv"
	"github.com/erinxocon/requests-xml/internal/template"
)

// Document holds raw XML source and a lazily-built parsed tree. The tree is
// computed at most once on first access and never invalidated; a Document is
// meant to be used from a single logical flow and adds no locking.
type Document struct {
	raw         []byte
	contentType string

	encoding string
	source   string
	decoded  bool

	root     *xmlquery.Node
	parsed   bool
	parseErr error
}

// Parse wraps raw XML text in a Document. The text is not parsed until a
// tree-dependent accessor is first used.
func Parse(xml string) *Document {
	return &Document{raw: []byte(xml)}
}

// ParseBytes wraps raw XML bytes in a Document.
func ParseBytes(xml []byte) *Document {
	return &Document{raw: append([]byte(nil), xml...)}
}

// newResponseDocument builds a Document from a response body. The
// Content-Type header feeds character-set detection.
func newResponseDocument(body []byte, contentType string) *Document {
	return &Document{raw: body, contentType: contentType}
}

// Root parses the source on first call and returns the document node of the
// tree. Malformed XML returns the engine's parse error unchanged; both the
// tree and the error are cached.
func (d *Document) Root() (*xmlquery.Node, error) {
	if !d.parsed {
		d.root, d.parseErr = xmlquery.Parse(bytes.NewReader(d.raw))
		if d.parseErr != nil {
			d.parseErr = fmt.Errorf("parse xml: %w", d.parseErr)
		}
		d.parsed = true
	}
	return d.root, d.parseErr
}

// XML returns the source text, decoded to UTF-8 when the document came from
// an HTTP response with a non-UTF-8 charset.
func (d *Document) XML() string {
	return d.sourceText()
}

// Encoding reports the detected character set of the source: a BOM or a
// Content-Type charset wins, then the XML declaration's encoding
// pseudo-attribute, then utf-8 for plain UTF-8 content.
func (d *Document) Encoding() string {
	if d.encoding == "" {
		_, name, certain := charset.DetermineEncoding(d.raw, d.contentType)
		if !certain {
			if decl := xmlDeclEncoding(d.raw); decl != "" {
				name = decl
			} else if name == "windows-1252" && utf8.Valid(d.raw) {
				// The HTML sniff never reads XML declarations and calls
				// undeclared ASCII windows-1252; for XML it is utf-8.
				name = "utf-8"
			}
		}
		d.encoding = name
	}
	return d.encoding
}

// Version reports the version from the XML declaration, or "" when the
// declaration is absent or the document does not parse.
func (d *Document) Version() string {
	root, err := d.Root()
	if err != nil {
		return ""
	}
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.DeclarationNode {
			return n.SelectAttr("version")
		}
	}
	return ""
}

// RootTag reports the name of the root element, or "" when the document does
// not parse.
func (d *Document) RootTag() string {
	root, err := d.Root()
	if err != nil {
		return ""
	}
	if el := firstElementChild(root); el != nil {
		return qualifiedName(el)
	}
	return ""
}

// Text returns the concatenated text content of the whole document, using
// the engine's text-extraction rule.
func (d *Document) Text() (string, error) {
	root, err := d.Root()
	if err != nil {
		return "", err
	}
	return root.InnerText(), nil
}

// XPath evaluates an XPath expression against the root and returns every
// match in document order.
func (d *Document) XPath(expr string) ([]*Element, error) {
	root, err := d.Root()
	if err != nil {
		return nil, err
	}
	return queryAll(root, expr)
}

// XPathFirst returns the first match in document order, or nil (and no
// error) when nothing matches.
func (d *Document) XPathFirst(expr string) (*Element, error) {
	root, err := d.Root()
	if err != nil {
		return nil, err
	}
	return queryFirst(root, expr)
}

// Find locates elements by tag name, or by a best-effort CSS selector.
// Optional containing arguments keep only elements whose text contains at
// least one of the given substrings, case-insensitively. Results are in
// document order.
func (d *Document) Find(selector string, containing ...string) ([]*Element, error) {
	root, err := d.Root()
	if err != nil {
		return nil, err
	}
	return findAll(root, selector, containing)
}

// FindFirst returns the first Find result, or nil when nothing matches.
func (d *Document) FindFirst(selector string, containing ...string) (*Element, error) {
	els, err := d.Find(selector, containing...)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

// Links returns the text of every <link> element in the tree, in document
// order, duplicates included.
func (d *Document) Links() ([]string, error) {
	root, err := d.Root()
	if err != nil {
		return nil, err
	}
	return linksOf(root), nil
}

// Search matches a literal template with {} placeholders against the
// serialized document text and returns the captured substrings of the first
// match. ok is false when the template does not occur.
func (d *Document) Search(tmpl string) (captures []string, ok bool) {
	return template.Compile(tmpl).Search(d.sourceText())
}

// SearchAll returns the captures of every non-overlapping template match.
func (d *Document) SearchAll(tmpl string) [][]string {
	return template.Compile(tmpl).FindAll(d.sourceText())
}

// JSON converts the document to a JSON-like structure under a named
// convention ("badgerfish" when empty). An unrecognized name fails with
// jsonconv.ErrUnknownConvention.
func (d *Document) JSON(convention string) (any, error) {
	root, err := d.Root()
	if err != nil {
		return nil, err
	}
	return jsonconv.Convert(convention, root)
}

// Map returns a generic map form of the document, attributes prefixed per
// the mxj defaults.
func (d *Document) Map() (map[string]any, error) {
	m, err := mxj.NewMapXml([]byte(d.sourceText()))
	if err != nil {
		return nil, fmt.Errorf("map xml: %w", err)
	}
	return map[string]any(m), nil
}

func (d *Document) sourceText() string {
	if !d.decoded {
		r, err := charset.NewReaderLabel(d.Encoding(), bytes.NewReader(d.raw))
		if err != nil {
			d.source = string(d.raw)
		} else if b, err := io.ReadAll(r); err == nil {
			d.source = string(b)
		} else {
			d.source = string(d.raw)
		}
		d.source = strings.TrimSpace(d.source)
		d.decoded = true
	}
	return d.source
}

var declEncodingRe = regexp.MustCompile(`encoding=["']([A-Za-z][A-Za-z0-9._-]*)["']`)

// xmlDeclEncoding reads the encoding pseudo-attribute of an XML declaration
// without parsing the document, lowercased. "" when absent.
func xmlDeclEncoding(raw []byte) string {
	s := bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	s = bytes.TrimLeft(s, " \t\r\n")
	if !bytes.HasPrefix(s, []byte("<?xml")) {
		return ""
	}
	end := bytes.Index(s, []byte("?>"))
	if end < 0 {
		return ""
	}
	m := declEncodingRe.FindSubmatch(s[:end])
	if m == nil {
		return ""
	}
	return strings.ToLower(string(m[1]))
}

func firstElementChild(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

func qualifiedName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}
