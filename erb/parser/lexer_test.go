package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type lexed struct {
	Kind TokenKind
	Lit  string
}

// lexAll drains the lexer, dropping whitespace tokens the way the
// parser does.
func lexAll(t *testing.T, input string) []lexed {
	t.Helper()
	lx := NewLexer([]byte(input))
	var out []lexed
	for {
		tok := lx.NextToken()
		if tok.Kind == TokenEOF {
			return out
		}
		if tok.Kind == TokenWhitespace {
			continue
		}
		out = append(out, lexed{Kind: tok.Kind, Lit: tok.Literal})
	}
}

func TestLexMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []lexed
	}{
		{
			name:  "simple element",
			input: "<p>Hi</p>",
			want: []lexed{
				{TokenOpen, "<"},
				{TokenName, "p"},
				{TokenClose, ">"},
				{TokenText, "Hi"},
				{TokenSlashOpen, "</"},
				{TokenName, "p"},
				{TokenClose, ">"},
			},
		},
		{
			name:  "single line break",
			input: "a\nb",
			want: []lexed{
				{TokenText, "a"},
				{TokenNewLine, "\n"},
				{TokenText, "b"},
			},
		},
		{
			name:  "blank line folding",
			input: "Hello\n\n\n\nGoodbye!",
			want: []lexed{
				{TokenText, "Hello"},
				{TokenBlankLine, "\n\n\n\n"},
				{TokenText, "Goodbye!"},
			},
		},
		{
			name:  "crlf line breaks",
			input: "a\r\n\r\nb",
			want: []lexed{
				{TokenText, "a"},
				{TokenBlankLine, "\r\n\r\n"},
				{TokenText, "b"},
			},
		},
		{
			name:  "doctype is case-insensitive",
			input: "<!doctype html>",
			want: []lexed{
				{TokenDoctype, "<!doctype"},
				{TokenName, "html"},
				{TokenClose, ">"},
			},
		},
		{
			name:  "html comment",
			input: "<!-- note -->",
			want: []lexed{
				{TokenHtmlComment, "<!-- note -->"},
			},
		},
		{
			name:  "text keeps leading space after a tag",
			input: "<b>x</b> world",
			want: []lexed{
				{TokenOpen, "<"},
				{TokenName, "b"},
				{TokenClose, ">"},
				{TokenText, "x"},
				{TokenSlashOpen, "</"},
				{TokenName, "b"},
				{TokenClose, ">"},
				{TokenText, " world"},
			},
		},
		{
			name:  "void element with attribute",
			input: `<input value='a b'>`,
			want: []lexed{
				{TokenOpen, "<"},
				{TokenName, "input"},
				{TokenName, "value"},
				{TokenEquals, "="},
				{TokenQuote, "'"},
				{TokenText, "a b"},
				{TokenQuote, "'"},
				{TokenClose, ">"},
			},
		},
		{
			name:  "self-closing tag",
			input: "<br />",
			want: []lexed{
				{TokenOpen, "<"},
				{TokenName, "br"},
				{TokenSlashClose, "/>"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexAll(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("token mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLexEmbedded(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []lexed
	}{
		{
			name:  "output tag",
			input: "<%= user.name %>",
			want: []lexed{
				{TokenErbOpen, "<%="},
				{TokenCode, "user.name"},
				{TokenErbClose, "%>"},
			},
		},
		{
			name:  "leading control keyword",
			input: "<% if signed_in? %>",
			want: []lexed{
				{TokenErbOpen, "<%"},
				{TokenKeyword, "if"},
				{TokenCode, "signed_in?"},
				{TokenErbClose, "%>"},
			},
		},
		{
			name:  "keyword prefix is not a keyword",
			input: "<% ended = true %>",
			want: []lexed{
				{TokenErbOpen, "<%"},
				{TokenCode, "ended = true"},
				{TokenErbClose, "%>"},
			},
		},
		{
			name:  "do block terminator",
			input: "<%= list.each do |item| %>",
			want: []lexed{
				{TokenErbOpen, "<%="},
				{TokenCode, "list.each"},
				{TokenErbDoClose, "do |item| %>"},
			},
		},
		{
			name:  "do without close delimiter is code",
			input: "<% x = y.do_thing %>",
			want: []lexed{
				{TokenErbOpen, "<%"},
				{TokenCode, "x = y.do_thing"},
				{TokenErbClose, "%>"},
			},
		},
		{
			name:  "trim delimiters",
			input: "<%- x -%>",
			want: []lexed{
				{TokenErbOpen, "<%-"},
				{TokenCode, "x"},
				{TokenErbClose, "-%>"},
			},
		},
		{
			name:  "raw output delimiter",
			input: "<%== raw %>",
			want: []lexed{
				{TokenErbOpen, "<%=="},
				{TokenCode, "raw"},
				{TokenErbClose, "%>"},
			},
		},
		{
			name:  "yield",
			input: "<%= yield %>",
			want: []lexed{
				{TokenErbOpen, "<%="},
				{TokenYield, "yield"},
				{TokenErbClose, "%>"},
			},
		},
		{
			name:  "embedded comment",
			input: "<%# hidden %>",
			want: []lexed{
				{TokenErbComment, "<%# hidden %>"},
			},
		},
		{
			name:  "multi-line statement lexes per line",
			input: "<% foo(1,\n  2) %>",
			want: []lexed{
				{TokenErbOpen, "<%"},
				{TokenCode, "foo(1,"},
				{TokenCode, "2)"},
				{TokenErbClose, "%>"},
			},
		},
		{
			name:  "embedded tag inside quoted attribute",
			input: `<div class="x <%= y %>">`,
			want: []lexed{
				{TokenOpen, "<"},
				{TokenName, "div"},
				{TokenName, "class"},
				{TokenEquals, "="},
				{TokenQuote, `"`},
				{TokenText, "x "},
				{TokenErbOpen, "<%="},
				{TokenCode, "y"},
				{TokenErbClose, "%>"},
				{TokenQuote, `"`},
				{TokenClose, ">"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexAll(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("token mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLexPositions(t *testing.T) {
	lx := NewLexer([]byte("ab\ncd"))

	tok := lx.NextToken()
	want := Span{
		Start: Position{Offset: 0, Line: 1, Column: 0},
		End:   Position{Offset: 2, Line: 1, Column: 2},
	}
	if diff := cmp.Diff(want, tok.Span); diff != "" {
		t.Errorf("first token span (-want +got):\n%s", diff)
	}

	tok = lx.NextToken()
	if tok.Kind != TokenNewLine {
		t.Fatalf("expected new_line token, got %s", tok.Kind)
	}
	if tok.Span.End.Line != 2 || tok.Span.End.Column != 0 {
		t.Errorf("line break should end at 2:0, got %d:%d", tok.Span.End.Line, tok.Span.End.Column)
	}

	tok = lx.NextToken()
	want = Span{
		Start: Position{Offset: 3, Line: 2, Column: 0},
		End:   Position{Offset: 5, Line: 2, Column: 2},
	}
	if diff := cmp.Diff(want, tok.Span); diff != "" {
		t.Errorf("second text span (-want +got):\n%s", diff)
	}
}

func TestLexCodeTokenSpan(t *testing.T) {
	lx := NewLexer([]byte("<%= ab %>"))
	var code Token
	for {
		tok := lx.NextToken()
		if tok.Kind == TokenEOF {
			break
		}
		if tok.Kind == TokenCode {
			code = tok
		}
	}
	if code.Literal != "ab" {
		t.Fatalf("code literal = %q, want %q", code.Literal, "ab")
	}
	want := Span{
		Start: Position{Offset: 4, Line: 1, Column: 4},
		End:   Position{Offset: 6, Line: 1, Column: 6},
	}
	if diff := cmp.Diff(want, code.Span); diff != "" {
		t.Errorf("code span excludes trailing space (-want +got):\n%s", diff)
	}
}

func TestVoidElements(t *testing.T) {
	for _, name := range []string{"br", "BR", "meta", "Input", "hr"} {
		if !IsVoidElement(name) {
			t.Errorf("IsVoidElement(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"div", "p", "span", "brr"} {
		if IsVoidElement(name) {
			t.Errorf("IsVoidElement(%q) = true, want false", name)
		}
	}
}
