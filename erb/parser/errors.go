package parser

import "fmt"

// LexError reports an unmatched character. Always fatal, never
// recovered.
type LexError struct {
	Char   byte
	Line   int
	Column int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("unexpected character %q at line %d column %d", e.Char, e.Line, e.Column)
}

type ParseErrorCode int

const (
	ErrUnexpectedToken ParseErrorCode = iota
	ErrDuplicateDoctype
	ErrInvalidElementName
	ErrMissingClosingTag
	ErrMismatchedClosingTag
	ErrUnterminatedQuotedString
	ErrUnmatchedControlKeyword
	ErrUnparseableEmbeddedStatement
)

var parseErrorCodeNames = map[ParseErrorCode]string{
	ErrUnexpectedToken:              "UnexpectedToken",
	ErrDuplicateDoctype:             "DuplicateDoctype",
	ErrInvalidElementName:           "InvalidElementName",
	ErrMissingClosingTag:            "MissingClosingTag",
	ErrMismatchedClosingTag:         "MismatchedClosingTag",
	ErrUnterminatedQuotedString:     "UnterminatedQuotedString",
	ErrUnmatchedControlKeyword:      "UnmatchedControlKeyword",
	ErrUnparseableEmbeddedStatement: "UnparseableEmbeddedStatement",
}

func (c ParseErrorCode) String() string {
	if name, ok := parseErrorCodeNames[c]; ok {
		return name
	}
	return "Unknown"
}

// ParseError is a structural error. The first one aborts the whole
// parse; there is no resynchronization.
type ParseError struct {
	Code    ParseErrorCode
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at line %d column %d", e.Message, e.Line, e.Column)
}
