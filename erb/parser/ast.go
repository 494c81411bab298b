package parser

import (
	"fmt"
	"strings"
)

// Node is the closed set of syntax-tree variants. Nodes are built
// once by the parser and never mutated afterwards.
type Node interface {
	Span() Span
}

// NewLine records that a node ended its source line, and how many
// consecutive line breaks followed. A count of 2 or more renders as
// exactly one blank line; the magnitude is otherwise ignored.
type NewLine struct {
	Loc   Span
	Count int
}

func (n *NewLine) Span() Span { return n.Loc }

// Blank reports whether the run of line breaks leaves a blank line.
func (n *NewLine) Blank() bool { return n != nil && n.Count >= 2 }

// Document is the root node. Its location is absent when the
// document has no elements.
type Document struct {
	Elements []Node
}

func (d *Document) Span() Span {
	span, _ := d.Location()
	return span
}

func (d *Document) Location() (Span, bool) {
	if len(d.Elements) == 0 {
		return Span{}, false
	}
	span := d.Elements[0].Span()
	for _, el := range d.Elements[1:] {
		span = span.To(el.Span())
	}
	return span, true
}

type Doctype struct {
	Opening  Token
	Name     *Token
	Closing  Token
	Trailing *NewLine
}

func (d *Doctype) Span() Span { return d.Opening.Span.To(d.Closing.Span) }

type HtmlComment struct {
	Token    Token
	Trailing *NewLine
}

func (c *HtmlComment) Span() Span { return c.Token.Span }

type ErbComment struct {
	Token    Token
	Trailing *NewLine
}

func (c *ErbComment) Span() Span { return c.Token.Span }

// Text is a run of character data. The literal keeps interior
// spacing; the formatter reflows it word by word.
type Text struct {
	Token    Token
	Trailing *NewLine
}

func (t *Text) Span() Span { return t.Token.Span }

// Words splits the text into whitespace-separated words.
func (t *Text) Words() []string { return strings.Fields(t.Token.Literal) }

// LeadingSpace and TrailingSpace report whether the run touched its
// neighbor directly or across whitespace in the source.
func (t *Text) LeadingSpace() bool {
	s := t.Token.Literal
	return len(s) > 0 && (s[0] == ' ' || s[0] == '\t')
}

func (t *Text) TrailingSpace() bool {
	s := t.Token.Literal
	return len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t')
}

// AttrString is a quoted (or bare) attribute value. Contents holds
// *Text pieces and embedded tags, in source order.
type AttrString struct {
	OpeningQuote *Token
	Contents     []Node
	ClosingQuote *Token
}

func (s *AttrString) Span() Span {
	if s.OpeningQuote != nil && s.ClosingQuote != nil {
		return s.OpeningQuote.Span.To(s.ClosingQuote.Span)
	}
	span := Span{}
	for i, n := range s.Contents {
		if i == 0 {
			span = n.Span()
		} else {
			span = span.To(n.Span())
		}
	}
	return span
}

type Attribute struct {
	Key    Token
	Equals *Token
	Value  *AttrString
}

func (a *Attribute) Span() Span {
	span := a.Key.Span
	if a.Value != nil {
		span = span.To(a.Value.Span())
	}
	return span
}

// OpeningTag is `<name attrs…>` or `<name attrs… />`. Attributes
// holds *Attribute nodes plus any embedded tags standing in
// attribute position.
type OpeningTag struct {
	Opening    Token
	Name       Token
	Attributes []Node
	Closing    Token
	Trailing   *NewLine
}

func (t *OpeningTag) Span() Span { return t.Opening.Span.To(t.Closing.Span) }

func (t *OpeningTag) SelfClosing() bool { return t.Closing.Kind == TokenSlashClose }

type ClosingTag struct {
	Opening  Token
	Name     Token
	Closing  Token
	Trailing *NewLine
}

func (t *ClosingTag) Span() Span { return t.Opening.Span.To(t.Closing.Span) }

// Element is a markup element. Close is nil for void and
// self-closing elements.
type Element struct {
	Open     *OpeningTag
	Elements []Node
	Close    *ClosingTag
}

func (e *Element) Span() Span {
	span := e.Open.Span()
	for _, el := range e.Elements {
		span = span.To(el.Span())
	}
	if e.Close != nil {
		span = span.To(e.Close.Span())
	}
	return span
}

func (e *Element) Void() bool {
	return e.Open.SelfClosing() || IsVoidElement(e.Open.Name.Literal)
}

// ErbNode is the atomic embedded-code unit before control-flow
// folding: opening delimiter, optional leading keyword, code tokens,
// and a terminator.
type ErbNode struct {
	Opening  Token
	Keyword  *Token
	Content  []Token
	Closing  Token
	Trailing *NewLine
}

func (e *ErbNode) Span() Span { return e.Opening.Span.To(e.Closing.Span) }

func (e *ErbNode) DoBlock() bool { return e.Closing.Kind == TokenErbDoClose }

func (e *ErbNode) KeywordText() string {
	if e.Keyword == nil {
		return ""
	}
	return e.Keyword.Literal
}

// ContentText reassembles the statement from its code tokens. Tokens
// from the same source line join with a single space, line breaks
// are kept so multi-line statements survive delegation intact.
func (e *ErbNode) ContentText() string {
	var b strings.Builder
	prevLine := 0
	for i, tok := range e.Content {
		if i > 0 {
			if tok.Span.Start.Line != prevLine {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(strings.TrimSpace(tok.Literal))
		prevLine = tok.Span.End.Line
	}
	return b.String()
}

// ErbEnd terminates a control-flow chain. It is always consumed by
// its matching opener and never appears as a sibling.
type ErbEnd struct {
	Node *ErbNode
}

func (e *ErbEnd) Span() Span { return e.Node.Span() }

// ErbIf covers if, unless and (when nested as a closing) elsif
// chains. Closing is *ErbIf for elsif, *ErbElse or *ErbEnd.
type ErbIf struct {
	Opening  *ErbNode
	Elements []Node
	Closing  Node
}

func (e *ErbIf) Span() Span { return e.Opening.Span().To(e.Closing.Span()) }

// ErbElse is the dependent else branch of an if or case chain.
type ErbElse struct {
	Opening  *ErbNode
	Elements []Node
	Closing  *ErbEnd
}

func (e *ErbElse) Span() Span { return e.Opening.Span().To(e.Closing.Span()) }

// ErbCase is a case chain. Closing is *ErbCaseWhen, *ErbElse or
// *ErbEnd.
type ErbCase struct {
	Opening  *ErbNode
	Elements []Node
	Closing  Node
}

func (e *ErbCase) Span() Span { return e.Opening.Span().To(e.Closing.Span()) }

// ErbCaseWhen is a dependent when branch. Closing is *ErbCaseWhen,
// *ErbElse or *ErbEnd.
type ErbCaseWhen struct {
	Opening  *ErbNode
	Elements []Node
	Closing  Node
}

func (e *ErbCaseWhen) Span() Span { return e.Opening.Span().To(e.Closing.Span()) }

// ErbBlock is a keywordless `… do … end` block.
type ErbBlock struct {
	Opening  *ErbNode
	Elements []Node
	Closing  *ErbEnd
}

func (e *ErbBlock) Span() Span { return e.Opening.Span().To(e.Closing.Span()) }

// Trailing returns the newline record attached to the node, for
// composites the one carried by their terminator.
func Trailing(n Node) *NewLine {
	switch t := n.(type) {
	case *Doctype:
		return t.Trailing
	case *HtmlComment:
		return t.Trailing
	case *ErbComment:
		return t.Trailing
	case *Text:
		return t.Trailing
	case *Element:
		if t.Close != nil {
			return t.Close.Trailing
		}
		return t.Open.Trailing
	case *ErbNode:
		return t.Trailing
	case *ErbEnd:
		return t.Node.Trailing
	case *ErbIf:
		return Trailing(t.Closing)
	case *ErbElse:
		return Trailing(t.Closing)
	case *ErbCase:
		return Trailing(t.Closing)
	case *ErbCaseWhen:
		return Trailing(t.Closing)
	case *ErbBlock:
		return Trailing(t.Closing)
	}
	return nil
}

// Dump renders the tree one node per line with source spans, for the
// parse command and debugging.
func Dump(n Node) string {
	var sb strings.Builder
	dumpNode(&sb, n, 0)
	return sb.String()
}

func dumpNode(sb *strings.Builder, n Node, indent int) {
	prefix := strings.Repeat("  ", indent)
	span := n.Span()
	head := func(name, detail string) {
		sb.WriteString(prefix)
		sb.WriteString(name)
		if detail != "" {
			sb.WriteString(" ")
			sb.WriteString(detail)
		}
		fmt.Fprintf(sb, " [%d:%d-%d:%d]\n",
			span.Start.Line, span.Start.Column, span.End.Line, span.End.Column)
	}

	switch t := n.(type) {
	case *Document:
		sb.WriteString(prefix + "Document\n")
		for _, el := range t.Elements {
			dumpNode(sb, el, indent+1)
		}
	case *Doctype:
		head("Doctype", "")
	case *HtmlComment:
		head("HtmlComment", fmt.Sprintf("%q", t.Token.Literal))
	case *ErbComment:
		head("ErbComment", fmt.Sprintf("%q", t.Token.Literal))
	case *Text:
		head("Text", fmt.Sprintf("%q", t.Token.Literal))
	case *Element:
		head("Element", t.Open.Name.Literal)
		for _, attr := range t.Open.Attributes {
			dumpNode(sb, attr, indent+1)
		}
		for _, el := range t.Elements {
			dumpNode(sb, el, indent+1)
		}
	case *Attribute:
		head("Attribute", t.Key.Literal)
		if t.Value != nil {
			for _, c := range t.Value.Contents {
				dumpNode(sb, c, indent+1)
			}
		}
	case *ErbNode:
		detail := t.ContentText()
		if kw := t.KeywordText(); kw != "" {
			detail = kw + " " + detail
		}
		head("Erb", fmt.Sprintf("%q", strings.TrimSpace(detail)))
	case *ErbIf:
		head("ErbIf", t.Opening.KeywordText())
		dumpChain(sb, t.Elements, t.Closing, indent)
	case *ErbElse:
		head("ErbElse", "")
		dumpChain(sb, t.Elements, t.Closing, indent)
	case *ErbCase:
		head("ErbCase", "")
		dumpChain(sb, t.Elements, t.Closing, indent)
	case *ErbCaseWhen:
		head("ErbCaseWhen", "")
		dumpChain(sb, t.Elements, t.Closing, indent)
	case *ErbBlock:
		head("ErbBlock", "")
		dumpChain(sb, t.Elements, t.Closing, indent)
	case *ErbEnd:
		head("ErbEnd", "")
	case *AttrString:
		head("AttrString", "")
		for _, c := range t.Contents {
			dumpNode(sb, c, indent+1)
		}
	case *NewLine:
		head("NewLine", fmt.Sprintf("count=%d", t.Count))
	default:
		head("Unknown", "")
	}
}

func dumpChain(sb *strings.Builder, elements []Node, closing Node, indent int) {
	for _, el := range elements {
		dumpNode(sb, el, indent+1)
	}
	if _, isEnd := closing.(*ErbEnd); !isEnd && closing != nil {
		dumpNode(sb, closing, indent+1)
	}
}
