// Package parser turns HTML templates with embedded Ruby into a
// typed syntax tree.
//
// # Overview
//
// Parsing is a two-stage pipeline. A mode-stack lexer produces
// tokens on demand; a recursive-descent parser with a single token
// of lookahead assembles them into a Document.
//
//	┌─────────────┐     ┌─────────────┐     ┌─────────────┐
//	│   Input     │────▶│   Lexer     │────▶│   Parser    │
//	│  (bytes)    │     │  (tokens)   │     │ (Document)  │
//	└─────────────┘     └─────────────┘     └─────────────┘
//
// The lexer keeps a stack of modes so the same byte reads
// differently in markup, inside a tag, inside a quoted attribute
// value, and inside an embedded code tag. Entering `<tag`, `"`, or
// `<%` pushes a mode; the matching terminator pops it.
//
// # Positions
//
// Every token and node carries a half-open Span of two Positions.
// Offsets and columns are 0-based byte counts; lines are 1-based:
//
//	type Position struct {
//	    Offset int // byte offset from start of input
//	    Line   int // 1-based line number
//	    Column int // 0-based column (in bytes, not runes)
//	}
//
// # Layout records
//
// Raw whitespace between tokens is discarded. What the tree keeps is
// the structural residue the formatter needs: a node that was
// followed by a line break carries a NewLine record, and a run of
// two or more breaks is recorded as a single blank line. Text nodes
// remember whether they started or ended at a word boundary.
//
// # Control flow
//
// Embedded `if`, `case`, and `do`-block tags are folded into
// composite nodes during the parse. An `elsif`, `else`, `when`, or
// `end` tag encountered with no enclosing opener is reported as an
// unmatched control keyword at its own location.
//
// # Errors
//
// The first error aborts the parse; there is no recovery. Lexical
// failures surface as *LexError, structural failures as *ParseError
// with a stable Code and the position of the offending construct.
//
// A Parser instance is not safe for concurrent use. Create separate
// instances for concurrent parsing of different files.
package parser
