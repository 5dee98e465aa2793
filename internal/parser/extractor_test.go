package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractors(t *testing.T) {
	doc, err := NewDocument(`<html><body>
		<div class="card"><h1 class="title">  Curug
			Cimahi </h1><a class="link" href="https://example.com/curug">open</a></div>
		<div class="card"><h1 class="title">Second</h1></div>
		<p class="empty">   </p>
	</body></html>`)
	require.NoError(t, err)

	tests := []struct {
		name      string
		extractor FieldExtractor
		value     string
		ok        bool
	}{
		{"css first match with collapsed whitespace", CSS{Selector: "h1.title"}, "Curug Cimahi", true},
		{"css miss", CSS{Selector: "h2"}, "", false},
		{"css whitespace only", CSS{Selector: "p.empty"}, "", false},
		{"xpath text node", XPath{Expr: "(//h1[@class='title'])[2]/text()"}, "Second", true},
		{"xpath miss", XPath{Expr: "//table"}, "", false},
		{"xpath invalid expression", XPath{Expr: "//h1[@class="}, "", false},
		{"attribute", Attr{Selector: "a.link", Name: "href"}, "https://example.com/curug", true},
		{"attribute missing", Attr{Selector: "a.link", Name: "title"}, "", false},
		{"first of falls through", FirstOf{CSS{Selector: "h3"}, XPath{Expr: "//a/text()"}}, "open", true},
		{"first of all miss", FirstOf{CSS{Selector: "h3"}, CSS{Selector: "h4"}}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := tt.extractor.Extract(doc)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.value, v)
		})
	}
}
