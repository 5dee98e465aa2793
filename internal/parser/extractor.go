package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Document is a parsed detail panel that both CSS and XPath extractors can query.
type Document struct {
	doc  *goquery.Document
	root *html.Node
}

func NewDocument(content string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var root *html.Node
	if len(doc.Nodes) > 0 {
		root = doc.Nodes[0]
	}

	return &Document{doc: doc, root: root}, nil
}

// FieldExtractor pulls a single field out of a document. ok is false when the
// field is not present.
type FieldExtractor interface {
	Extract(d *Document) (value string, ok bool)
}

// CSS selects the first element matching Selector and returns its trimmed text.
type CSS struct {
	Selector string
}

func (c CSS) Extract(d *Document) (string, bool) {
	sel := d.doc.Find(c.Selector).First()
	if sel.Length() == 0 {
		return "", false
	}

	text := normalizeSpace(sel.Text())
	return text, text != ""
}

// XPath evaluates Expr and returns the first non-empty node text. Expressions
// ending in text() return the direct text node only.
type XPath struct {
	Expr string
}

func (x XPath) Extract(d *Document) (string, bool) {
	if d.root == nil {
		return "", false
	}

	nodes, err := htmlquery.QueryAll(d.root, x.Expr)
	if err != nil {
		return "", false
	}

	for _, n := range nodes {
		if text := normalizeSpace(htmlquery.InnerText(n)); text != "" {
			return text, true
		}
	}

	return "", false
}

// Attr returns an attribute of the first element matching Selector.
type Attr struct {
	Selector string
	Name     string
}

func (a Attr) Extract(d *Document) (string, bool) {
	val, exists := d.doc.Find(a.Selector).First().Attr(a.Name)
	if !exists {
		return "", false
	}

	val = normalizeSpace(val)
	return val, val != ""
}

// FirstOf tries each extractor in order and returns the first hit.
type FirstOf []FieldExtractor

func (f FirstOf) Extract(d *Document) (string, bool) {
	for _, ex := range f {
		if v, ok := ex.Extract(d); ok {
			return v, true
		}
	}
	return "", false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
