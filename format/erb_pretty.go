package format

import (
	"strings"

	"github.com/davidwessman/syntax-tree-erb/erb/parser"
)

const DefaultMaxWidth = 80

// Printer walks a parsed document and emits its canonical form.
// Formatting is a single pass over an immutable tree; output
// re-parses to the same tree and re-formats to the same bytes.
type Printer struct {
	maxWidth int
	stmt     StatementFormatter
	err      error
}

type Option func(*Printer)

// WithMaxWidth sets the line width the renderer aims for.
func WithMaxWidth(width int) Option {
	return func(p *Printer) {
		p.maxWidth = width
	}
}

// WithStatementFormatter installs the collaborator that formats the
// code inside embedded tags.
func WithStatementFormatter(f StatementFormatter) Option {
	return func(p *Printer) {
		p.stmt = f
	}
}

func NewPrinter(opts ...Option) *Printer {
	p := &Printer{
		maxWidth: DefaultMaxWidth,
		stmt:     DefaultStatementFormatter,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format parses src and returns its canonical form, terminated by a
// single line break. The first lex or parse error aborts with no
// output.
func Format(src []byte, opts ...Option) ([]byte, error) {
	doc, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return NewPrinter(opts...).Print(doc)
}

func (p *Printer) Print(doc *parser.Document) ([]byte, error) {
	p.err = nil
	if len(doc.Elements) == 0 {
		return []byte("\n"), nil
	}
	d := Group(p.siblings(doc.Elements))
	if p.err != nil {
		return nil, p.err
	}
	out := Render(d, p.maxWidth)
	return []byte(strings.TrimRight(out, " \n") + "\n"), nil
}

func (p *Printer) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *Printer) node(n parser.Node) Doc {
	switch t := n.(type) {
	case *parser.Doctype:
		return p.doctype(t)
	case *parser.HtmlComment:
		return Text(t.Token.Literal)
	case *parser.ErbComment:
		return Text(t.Token.Literal)
	case *parser.Text:
		return Text(strings.Join(t.Words(), " "))
	case *parser.Element:
		return p.element(t)
	case *parser.ErbNode:
		return p.erbTag(t)
	case *parser.ErbIf:
		return p.chain(t.Opening, t.Elements, t.Closing)
	case *parser.ErbCase:
		return p.chain(t.Opening, t.Elements, t.Closing)
	case *parser.ErbBlock:
		return p.chain(t.Opening, t.Elements, t.Closing)
	}
	return Text("")
}

// siblings lays out a run of sibling nodes, deriving each separator
// from the recorded trailing newline and word boundaries; incidental
// source spacing never reaches this decision.
func (p *Printer) siblings(nodes []parser.Node) Doc {
	var docs []Doc
	for i, n := range nodes {
		docs = append(docs, p.node(n))
		if i < len(nodes)-1 {
			docs = append(docs, p.separator(n, nodes[i+1]))
		}
	}
	return Concat(docs...)
}

func (p *Printer) separator(prev, next parser.Node) Doc {
	if tr := parser.Trailing(prev); tr != nil {
		if tr.Blank() {
			return BlankLine()
		}
		return HardLine()
	}
	if t, ok := prev.(*parser.Text); ok {
		if t.TrailingSpace() {
			return Line()
		}
		return SoftLine()
	}
	if t, ok := next.(*parser.Text); ok {
		if t.LeadingSpace() {
			return Line()
		}
		return SoftLine()
	}
	return Line()
}

func (p *Printer) doctype(d *parser.Doctype) Doc {
	name := "html"
	if d.Name != nil {
		name = d.Name.Literal
	}
	return Text("<!DOCTYPE " + name + ">")
}

func (p *Printer) element(e *parser.Element) Doc {
	open := p.openingTag(e.Open, e.Void())
	if e.Void() || e.Close == nil {
		return open
	}
	closing := Text("</" + e.Close.Name.Literal + ">")
	if len(e.Elements) == 0 {
		return Concat(open, closing)
	}
	lead := func() Doc { return SoftLine() }
	if e.Open.Trailing != nil || hasBlockChild(e.Elements) {
		lead = func() Doc { return HardLine() }
	}
	return Group(
		open,
		Indent(lead(), p.siblings(e.Elements)),
		lead(),
		closing,
	)
}

// hasBlockChild reports whether any child is block-level markup.
// Elements with such children always break onto their own lines.
func hasBlockChild(nodes []parser.Node) bool {
	for _, n := range nodes {
		switch n.(type) {
		case *parser.Element, *parser.ErbIf, *parser.ErbCase, *parser.ErbBlock:
			return true
		}
	}
	return false
}

func (p *Printer) openingTag(t *parser.OpeningTag, selfClose bool) Doc {
	head := Text("<" + t.Name.Literal)
	var closing Doc
	if selfClose {
		closing = Concat(Line(), Text("/>"))
	} else {
		closing = Concat(SoftLine(), Text(">"))
	}
	if len(t.Attributes) == 0 {
		return Group(head, closing)
	}
	var attrs []Doc
	for _, a := range t.Attributes {
		attrs = append(attrs, Line(), p.attrItem(a))
	}
	return Group(head, Indent(attrs...), closing)
}

func (p *Printer) attrItem(n parser.Node) Doc {
	if attr, ok := n.(*parser.Attribute); ok {
		return p.attribute(attr)
	}
	return p.node(n)
}

// attribute renders `key` or `key="value"`. Values normalize to
// double quotes; a value whose text contains a double quote keeps
// single quotes, otherwise the output would not re-parse.
func (p *Printer) attribute(a *parser.Attribute) Doc {
	if a.Value == nil {
		return Text(a.Key.Literal)
	}
	quote := `"`
	for _, c := range a.Value.Contents {
		if t, ok := c.(*parser.Text); ok && strings.Contains(t.Token.Literal, `"`) {
			quote = "'"
			break
		}
	}
	var contents []Doc
	for _, c := range a.Value.Contents {
		if t, ok := c.(*parser.Text); ok {
			contents = append(contents, Text(t.Token.Literal))
		} else {
			contents = append(contents, p.node(c))
		}
	}
	return Concat(
		Text(a.Key.Literal+"="+quote),
		Concat(contents...),
		Text(quote),
	)
}

// erbTag renders one flat embedded tag, delegating the statement
// text to the statement formatter with its keyword stripped and
// re-attaching the keyword afterwards. A do-block terminator stays
// in the same group as the statement.
func (p *Printer) erbTag(e *parser.ErbNode) Doc {
	opening := e.Opening.Literal
	closing := normalizeSpacing(e.Closing.Literal)
	keyword := e.KeywordText()

	content := e.ContentText()
	if content != "" {
		formatted, err := p.stmt(content, p.maxWidth, keyword)
		if err != nil {
			p.fail(err)
			return Text("")
		}
		content = formatted
	}

	if !strings.Contains(content, "\n") {
		var pieces []string
		for _, piece := range []string{opening, keyword, content, closing} {
			if piece != "" {
				pieces = append(pieces, piece)
			}
		}
		return Text(strings.Join(pieces, " "))
	}

	head := opening
	if keyword != "" {
		head += " " + keyword
	}
	var body []Doc
	for i, line := range strings.Split(content, "\n") {
		if i > 0 {
			body = append(body, HardLine())
		}
		body = append(body, Text(line))
	}
	return Group(
		Text(head),
		Indent(HardLine(), Concat(body...)),
		HardLine(),
		Text(closing),
	)
}

// chain renders a control-flow composite as one continuous block:
// the opener forces the break, each dependent continuation rides on
// the parent group's break state without opening a group of its own.
func (p *Printer) chain(opening *parser.ErbNode, body []parser.Node, closing parser.Node) Doc {
	return Group(p.chainParts(opening, body, closing)...)
}

func (p *Printer) chainParts(opening *parser.ErbNode, body []parser.Node, closing parser.Node) []Doc {
	docs := []Doc{p.erbTag(opening)}
	if len(body) > 0 {
		docs = append(docs, Indent(HardLine(), p.siblings(body)))
	}
	docs = append(docs, HardLine(), p.chainClosing(closing))
	return docs
}

func (p *Printer) chainClosing(n parser.Node) Doc {
	switch t := n.(type) {
	case *parser.ErbEnd:
		return p.erbTag(t.Node)
	case *parser.ErbIf:
		return Concat(p.chainParts(t.Opening, t.Elements, t.Closing)...)
	case *parser.ErbElse:
		return Concat(p.chainParts(t.Opening, t.Elements, t.Closing)...)
	case *parser.ErbCaseWhen:
		return Concat(p.chainParts(t.Opening, t.Elements, t.Closing)...)
	}
	return Text("")
}

// normalizeSpacing collapses interior whitespace in a terminator
// such as `do |item|   %>`.
func normalizeSpacing(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
