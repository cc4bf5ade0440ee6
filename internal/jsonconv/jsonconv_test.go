package jsonconv

import (
	"errors"
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
)

func parse(t *testing.T, src string) *xmlquery.Node {
	t.Helper()
	doc, err := xmlquery.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

const employees = `<employees><person><name value="Alice"/></person><person><name value="Bob"/></person></employees>`

func TestUnknownConvention(t *testing.T) {
	_, err := Convert("msgpack", parse(t, "<a/>"))
	if !errors.Is(err, ErrUnknownConvention) {
		t.Fatalf("expected ErrUnknownConvention, got %v", err)
	}
}

func TestEmptyNameIsBadgerfish(t *testing.T) {
	a, err := Convert("", parse(t, `<a b="c"/>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Convert(Badgerfish, parse(t, `<a b="c"/>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	am := a.(map[string]any)["a"].(map[string]any)
	bm := b.(map[string]any)["a"].(map[string]any)
	if am["@b"] != "c" || bm["@b"] != "c" {
		t.Errorf("expected identical badgerfish output, got %v and %v", a, b)
	}
}

func TestBadgerfishAttributesAndText(t *testing.T) {
	v, err := Convert(Badgerfish, parse(t, `<note lang="en">hi</note>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	note := v.(map[string]any)["note"].(map[string]any)
	if note["@lang"] != "en" {
		t.Errorf("expected @lang=en, got %v", note)
	}
	if note["$"] != "hi" {
		t.Errorf("expected $=hi, got %v", note)
	}
}

func TestBadgerfishRepeatedSiblings(t *testing.T) {
	v, err := Convert(Badgerfish, parse(t, employees))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := v.(map[string]any)["employees"].(map[string]any)
	persons, ok := root["person"].([]any)
	if !ok {
		t.Fatalf("expected person list, got %T", root["person"])
	}
	if len(persons) != 2 {
		t.Fatalf("expected 2 persons, got %d", len(persons))
	}
	name := persons[1].(map[string]any)["name"].(map[string]any)
	if name["@value"] != "Bob" {
		t.Errorf("expected Bob, got %v", name)
	}
}

func TestBadgerfishSingleChildIsNotAList(t *testing.T) {
	v, err := Convert(Badgerfish, parse(t, `<a><b>x</b></a>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := v.(map[string]any)["a"].(map[string]any)
	b, ok := a["b"].(map[string]any)
	if !ok {
		t.Fatalf("expected single map, got %T", a["b"])
	}
	if b["$"] != "x" {
		t.Errorf("expected $=x, got %v", b)
	}
}

func TestGDataDropsAttributes(t *testing.T) {
	v, err := Convert(GData, parse(t, `<note lang="en">hi</note>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	note := v.(map[string]any)["note"].(map[string]any)
	if _, ok := note["@lang"]; ok {
		t.Errorf("gdata must drop attributes, got %v", note)
	}
	if note["$t"] != "hi" {
		t.Errorf("expected $t=hi, got %v", note)
	}
}

func TestYahoo(t *testing.T) {
	v, err := Convert(Yahoo, parse(t, `<note lang="en">hi</note>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	note := v.(map[string]any)["note"].(map[string]any)
	if note["lang"] != "en" || note["content"] != "hi" {
		t.Errorf("expected plain lang and content keys, got %v", note)
	}

	// A bare leaf is just its text.
	v, err = Convert(Yahoo, parse(t, `<a><b>x</b></a>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := v.(map[string]any)["a"].(map[string]any)
	if a["b"] != "x" {
		t.Errorf("expected leaf string, got %v", a["b"])
	}
}

func TestParker(t *testing.T) {
	v, err := Convert(Parker, parse(t, `<root attr="dropped"><a>1</a><a>2</a><b>x</b><c/></root>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("parker discards the root name; expected map, got %T", v)
	}
	if _, ok := m["root"]; ok {
		t.Errorf("parker must not keep the root key, got %v", m)
	}
	a, ok := m["a"].([]any)
	if !ok || len(a) != 2 || a[0] != "1" || a[1] != "2" {
		t.Errorf("expected repeated a as [1 2], got %v", m["a"])
	}
	if m["b"] != "x" {
		t.Errorf("expected b=x, got %v", m["b"])
	}
	if m["c"] != nil {
		t.Errorf("expected empty c to be nil, got %v", m["c"])
	}
}

func TestAbdera(t *testing.T) {
	v, err := Convert(Abdera, parse(t, `<a id="1"><b>x</b></a>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := v.(map[string]any)["a"].(map[string]any)
	attrs := a["attributes"].(map[string]any)
	if attrs["id"] != "1" {
		t.Errorf("expected id attribute, got %v", attrs)
	}
	children := a["children"].([]any)
	if len(children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(children))
	}
	if children[0].(map[string]any)["b"] != "x" {
		t.Errorf("expected plain leaf child, got %v", children[0])
	}
}

func TestCobraAttributesAlwaysPresent(t *testing.T) {
	v, err := Convert(Cobra, parse(t, `<a><b>x</b></a>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := v.(map[string]any)["a"].(map[string]any)
	attrs, ok := a["attributes"].(map[string]any)
	if !ok {
		t.Fatalf("expected attributes map, got %T", a["attributes"])
	}
	if len(attrs) != 0 {
		t.Errorf("expected empty attributes, got %v", attrs)
	}
}

func TestWhitespaceBetweenElementsIsNotText(t *testing.T) {
	v, err := Convert(Badgerfish, parse(t, "<a>\n  <b>x</b>\n</a>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := v.(map[string]any)["a"].(map[string]any)
	if _, ok := a["$"]; ok {
		t.Errorf("indentation must not become text content, got %v", a)
	}
}

func TestNamespacedNames(t *testing.T) {
	src := `<r xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:creator>NASA</dc:creator></r>`
	v, err := Convert(Badgerfish, parse(t, src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := v.(map[string]any)["r"].(map[string]any)
	creator, ok := r["dc:creator"].(map[string]any)
	if !ok {
		t.Fatalf("expected prefixed dc:creator key, got %v", r)
	}
	if creator["$"] != "NASA" {
		t.Errorf("expected NASA, got %v", creator)
	}
}
