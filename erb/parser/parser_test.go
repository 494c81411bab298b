package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, input string) *Document {
	t.Helper()
	doc, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}
	return doc
}

func TestParseEmptyDocument(t *testing.T) {
	for _, input := range []string{"", "\n", "\n\n\n", "   \n"} {
		doc := mustParse(t, input)
		if len(doc.Elements) != 0 {
			t.Errorf("Parse(%q) produced %d elements, want 0", input, len(doc.Elements))
		}
		if _, ok := doc.Location(); ok {
			t.Errorf("Parse(%q) reported a location for an empty document", input)
		}
	}
}

func TestParseElement(t *testing.T) {
	doc := mustParse(t, `<a href="x">y</a>`)
	if len(doc.Elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(doc.Elements))
	}
	el, ok := doc.Elements[0].(*Element)
	if !ok {
		t.Fatalf("expected *Element, got %T", doc.Elements[0])
	}
	if el.Open.Name.Literal != "a" {
		t.Errorf("element name = %q, want %q", el.Open.Name.Literal, "a")
	}
	if el.Void() {
		t.Error("anchor element should not be void")
	}
	if el.Close == nil || el.Close.Name.Literal != "a" {
		t.Error("closing tag missing or misnamed")
	}
	if len(el.Elements) != 1 {
		t.Fatalf("expected 1 child, got %d", len(el.Elements))
	}
	text, ok := el.Elements[0].(*Text)
	if !ok {
		t.Fatalf("expected *Text child, got %T", el.Elements[0])
	}
	if got := text.Token.Literal; got != "y" {
		t.Errorf("text literal = %q, want %q", got, "y")
	}

	attr, ok := el.Open.Attributes[0].(*Attribute)
	if !ok {
		t.Fatalf("expected *Attribute, got %T", el.Open.Attributes[0])
	}
	if attr.Key.Literal != "href" {
		t.Errorf("attribute key = %q, want %q", attr.Key.Literal, "href")
	}
}

func TestParseVoidElement(t *testing.T) {
	doc := mustParse(t, `<meta name="x">`)
	el := doc.Elements[0].(*Element)
	if !el.Void() {
		t.Error("meta should be void")
	}
	if el.Close != nil {
		t.Error("void element must not carry a closing tag")
	}

	doc = mustParse(t, `<custom-thing />`)
	el = doc.Elements[0].(*Element)
	if !el.Open.SelfClosing() {
		t.Error("explicitly self-closed element should report SelfClosing")
	}
}

func TestParseExplicitlyClosedVoidElement(t *testing.T) {
	doc := mustParse(t, "<br></br>")
	el := doc.Elements[0].(*Element)
	if !el.Void() {
		t.Error("br should be void")
	}
	if el.Close != nil {
		t.Error("void element must drop its explicit closing tag")
	}

	doc = mustParse(t, "<br></br>\nnext")
	el = doc.Elements[0].(*Element)
	if Trailing(el) == nil {
		t.Error("line break after the dropped closing tag should stay on the element")
	}

	// The closing tag after the void element belongs to the paragraph.
	doc = mustParse(t, "<p><br></p>after")
	if len(doc.Elements) != 2 {
		t.Fatalf("expected 2 top-level elements, got %d", len(doc.Elements))
	}
	para := doc.Elements[0].(*Element)
	if para.Close == nil || para.Close.Name.Literal != "p" {
		t.Error("paragraph lost its closing tag")
	}
	if len(para.Elements) != 1 {
		t.Fatalf("paragraph has %d children, want 1", len(para.Elements))
	}
	if _, ok := doc.Elements[1].(*Text); !ok {
		t.Errorf("expected trailing text sibling, got %T", doc.Elements[1])
	}
}

func TestParseTrailingNewLines(t *testing.T) {
	doc := mustParse(t, "Hello\n\n\n\nGoodbye!\n")
	if len(doc.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(doc.Elements))
	}
	first := doc.Elements[0].(*Text)
	if first.Trailing == nil || !first.Trailing.Blank() {
		t.Error("first text should record a blank line")
	}
	if first.Trailing.Count != 4 {
		t.Errorf("trailing count = %d, want 4", first.Trailing.Count)
	}
	second := doc.Elements[1].(*Text)
	if second.Trailing == nil || second.Trailing.Blank() {
		t.Error("second text should record a single line break")
	}
}

func TestParseRootSpan(t *testing.T) {
	doc := mustParse(t, "<ul>\n<li>A</li>\n</ul>\n")
	el := doc.Elements[0].(*Element)
	want := Span{
		Start: Position{Offset: 0, Line: 1, Column: 0},
		End:   Position{Offset: 21, Line: 3, Column: 5},
	}
	if diff := cmp.Diff(want, el.Span()); diff != "" {
		t.Errorf("root element span (-want +got):\n%s", diff)
	}
}

func TestParseConditionalChain(t *testing.T) {
	doc := mustParse(t, "<% if a %>\n1\n<% elsif b %>\n2\n<% else %>\n3\n<% end %>\n")
	chain, ok := doc.Elements[0].(*ErbIf)
	if !ok {
		t.Fatalf("expected *ErbIf, got %T", doc.Elements[0])
	}
	if chain.Opening.KeywordText() != "if" {
		t.Errorf("opening keyword = %q, want if", chain.Opening.KeywordText())
	}
	if len(chain.Elements) != 1 {
		t.Errorf("if branch has %d elements, want 1", len(chain.Elements))
	}

	elsif, ok := chain.Closing.(*ErbIf)
	if !ok {
		t.Fatalf("expected elsif as *ErbIf, got %T", chain.Closing)
	}
	if elsif.Opening.KeywordText() != "elsif" {
		t.Errorf("elsif keyword = %q", elsif.Opening.KeywordText())
	}

	fallback, ok := elsif.Closing.(*ErbElse)
	if !ok {
		t.Fatalf("expected *ErbElse, got %T", elsif.Closing)
	}
	if fallback.Closing == nil {
		t.Fatal("else branch lost its end tag")
	}
}

func TestParseCaseChain(t *testing.T) {
	doc := mustParse(t, "<% case x %>\n<% when 1 %>\none\n<% when 2 %>\ntwo\n<% else %>\nmany\n<% end %>\n")
	chain, ok := doc.Elements[0].(*ErbCase)
	if !ok {
		t.Fatalf("expected *ErbCase, got %T", doc.Elements[0])
	}
	if len(chain.Elements) != 0 {
		t.Errorf("case head has %d elements, want 0", len(chain.Elements))
	}
	first, ok := chain.Closing.(*ErbCaseWhen)
	if !ok {
		t.Fatalf("expected first when, got %T", chain.Closing)
	}
	second, ok := first.Closing.(*ErbCaseWhen)
	if !ok {
		t.Fatalf("expected second when, got %T", first.Closing)
	}
	if _, ok := second.Closing.(*ErbElse); !ok {
		t.Fatalf("expected else branch, got %T", second.Closing)
	}
}

func TestParseDoBlock(t *testing.T) {
	doc := mustParse(t, "<%= items.each do |item| %>\n<%= item %>\n<% end %>\n")
	block, ok := doc.Elements[0].(*ErbBlock)
	if !ok {
		t.Fatalf("expected *ErbBlock, got %T", doc.Elements[0])
	}
	if !block.Opening.DoBlock() {
		t.Error("block opening should report DoBlock")
	}
	if got := block.Opening.ContentText(); got != "items.each" {
		t.Errorf("block content = %q, want %q", got, "items.each")
	}
	if len(block.Elements) != 1 {
		t.Errorf("block body has %d elements, want 1", len(block.Elements))
	}
}

func TestParseErbInAttribute(t *testing.T) {
	doc := mustParse(t, `<div class="x <%= cls %>">y</div>`)
	el := doc.Elements[0].(*Element)
	attr := el.Open.Attributes[0].(*Attribute)
	if len(attr.Value.Contents) != 2 {
		t.Fatalf("attribute value has %d parts, want 2", len(attr.Value.Contents))
	}
	if _, ok := attr.Value.Contents[0].(*Text); !ok {
		t.Errorf("first part should be text, got %T", attr.Value.Contents[0])
	}
	if _, ok := attr.Value.Contents[1].(*ErbNode); !ok {
		t.Errorf("second part should be an embedded tag, got %T", attr.Value.Contents[1])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		code   ParseErrorCode
		line   int
		column int
	}{
		{
			name:   "closing tag without opening",
			input:  "</div>",
			code:   ErrUnexpectedToken,
			line:   1,
			column: 0,
		},
		{
			name:   "stray closing tag after void element",
			input:  "<br></div>",
			code:   ErrUnexpectedToken,
			line:   1,
			column: 4,
		},
		{
			name:   "mismatched closing tag",
			input:  "<div><p></div>",
			code:   ErrMismatchedClosingTag,
			line:   1,
			column: 8,
		},
		{
			name:   "missing closing tag",
			input:  "<div>",
			code:   ErrMissingClosingTag,
			line:   1,
			column: 0,
		},
		{
			name:   "duplicate doctype",
			input:  "<!DOCTYPE html>\n<!DOCTYPE html>\n",
			code:   ErrDuplicateDoctype,
			line:   2,
			column: 0,
		},
		{
			name:   "invalid element name",
			input:  "<@foo>",
			code:   ErrInvalidElementName,
			line:   1,
			column: 1,
		},
		{
			name:   "unterminated quoted string",
			input:  "<p class=\"a\n",
			code:   ErrUnterminatedQuotedString,
			line:   1,
			column: 11,
		},
		{
			name:   "end without opening",
			input:  "<% end %>\n",
			code:   ErrUnmatchedControlKeyword,
			line:   1,
			column: 0,
		},
		{
			name:   "else without opening",
			input:  "<% else %>\n",
			code:   ErrUnmatchedControlKeyword,
			line:   1,
			column: 0,
		},
		{
			name:   "if without end",
			input:  "<% if x %>\nbody\n",
			code:   ErrUnmatchedControlKeyword,
			line:   1,
			column: 0,
		},
		{
			name:   "unterminated embedded statement",
			input:  "<%= foo",
			code:   ErrUnparseableEmbeddedStatement,
			line:   1,
			column: 0,
		},
		{
			name:   "continuation inside unclosed element",
			input:  "<div><% end %></div>",
			code:   ErrMissingClosingTag,
			line:   1,
			column: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.input)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if perr.Code != tt.code {
				t.Errorf("code = %s, want %s", perr.Code, tt.code)
			}
			if perr.Line != tt.line || perr.Column != tt.column {
				t.Errorf("location = %d:%d, want %d:%d", perr.Line, perr.Column, tt.line, tt.column)
			}
		})
	}
}

func TestParseLexError(t *testing.T) {
	_, err := Parse([]byte("<div $></div>"))
	var lerr *LexError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *LexError, got %T: %v", err, err)
	}
	if lerr.Char != '$' {
		t.Errorf("offending char = %q, want '$'", lerr.Char)
	}
}

func TestContentTextJoinsLines(t *testing.T) {
	doc := mustParse(t, "<% foo(1,\n  2) %>\n")
	erb := doc.Elements[0].(*ErbNode)
	if got := erb.ContentText(); got != "foo(1,\n2)" {
		t.Errorf("ContentText = %q, want %q", got, "foo(1,\n2)")
	}
}
