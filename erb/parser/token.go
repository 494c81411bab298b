package parser

import "strings"

// Position is a point in the source buffer. Offsets and columns are
// 0-based, lines are 1-based.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Span covers a contiguous region of source text.
type Span struct {
	Start Position
	End   Position
}

// To returns the union span from the earlier start to the later end.
func (s Span) To(other Span) Span {
	union := s
	if other.Start.Offset < union.Start.Offset {
		union.Start = other.Start
	}
	if other.End.Offset > union.End.Offset {
		union.End = other.End
	}
	return union
}

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenError

	// Markup
	TokenText
	TokenWhitespace
	TokenNewLine
	TokenBlankLine
	TokenDoctype
	TokenHtmlComment
	TokenOpen
	TokenSlashOpen
	TokenClose
	TokenSlashClose
	TokenName
	TokenEquals
	TokenQuote

	// Embedded ruby
	TokenErbComment
	TokenErbOpen
	TokenErbClose
	TokenErbDoClose
	TokenKeyword
	TokenCode
	TokenYield
)

var tokenKindNames = map[TokenKind]string{
	TokenEOF:         "EOF",
	TokenError:       "Error",
	TokenText:        "Text",
	TokenWhitespace:  "Whitespace",
	TokenNewLine:     "NewLine",
	TokenBlankLine:   "BlankLine",
	TokenDoctype:     "Doctype",
	TokenHtmlComment: "HtmlComment",
	TokenOpen:        "<",
	TokenSlashOpen:   "</",
	TokenClose:       ">",
	TokenSlashClose:  "/>",
	TokenName:        "Name",
	TokenEquals:      "=",
	TokenQuote:       "Quote",
	TokenErbComment:  "ErbComment",
	TokenErbOpen:     "ErbOpen",
	TokenErbClose:    "ErbClose",
	TokenErbDoClose:  "ErbDoClose",
	TokenKeyword:     "Keyword",
	TokenCode:        "Code",
	TokenYield:       "yield",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Token is a single lexeme with its source span. Immutable once
// produced by the lexer.
type Token struct {
	Kind    TokenKind
	Span    Span
	Literal string
}

// controlKeywords is the whitelist of leading keywords recognized at
// the start of an embedded tag. Anything else is plain code.
var controlKeywords = map[string]bool{
	"if":     true,
	"unless": true,
	"elsif":  true,
	"else":   true,
	"case":   true,
	"when":   true,
	"end":    true,
}

// IsControlKeyword reports whether word opens or continues a
// control-flow chain when it appears first in an embedded tag.
func IsControlKeyword(word string) bool {
	return controlKeywords[word]
}

// voidElements can never have content and always render
// self-closing.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement reports whether name is a void element. The check is
// case-insensitive, matching how browsers treat tag names.
func IsVoidElement(name string) bool {
	return voidElements[strings.ToLower(name)]
}
