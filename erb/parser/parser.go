package parser

import (
	"errors"
	"fmt"
	"strings"
)

// errMissingToken is the internal backtracking signal between the
// combinators. It never escapes Parse: every rule that cannot offer
// an alternative escalates it to a ParseError.
var errMissingToken = errors.New("missing token")

// Parser consumes the token stream lazily with a single token of
// lookahead. peek is distinct from advance, and consume never moves
// the cursor on a failed match; that no-advance-on-failure property
// is what makes maybe/many retries safe.
type Parser struct {
	lexer       *Lexer
	tok         Token
	fetched     bool
	doctypeSeen bool

	// pendingClose holds a closing tag consumed past a void element
	// that belongs to an enclosing context. It blocks parseAnyTag
	// until parseClosingTag claims it.
	pendingClose *ClosingTag
}

// Parse builds the document tree for src, or returns the first
// *LexError or *ParseError encountered. No partial tree is returned
// on failure.
func Parse(src []byte) (*Document, error) {
	p := &Parser{lexer: NewLexer(src)}
	return p.parseDocument()
}

// peek returns the next significant token without consuming it.
// Whitespace tokens never reach the grammar.
func (p *Parser) peek() Token {
	for !p.fetched {
		tok := p.lexer.NextToken()
		if tok.Kind == TokenWhitespace {
			continue
		}
		p.tok = tok
		p.fetched = true
	}
	return p.tok
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Kind != TokenEOF {
		p.fetched = false
	}
	return tok
}

// consume advances over a token of the given kind, or fails without
// advancing.
func (p *Parser) consume(kind TokenKind) (Token, error) {
	tok := p.peek()
	if tok.Kind == TokenError {
		return Token{}, p.lexError(tok)
	}
	if tok.Kind != kind {
		return Token{}, errMissingToken
	}
	return p.advance(), nil
}

// maybeConsume is consume with the failure absorbed.
func (p *Parser) maybeConsume(kind TokenKind) (Token, bool) {
	tok, err := p.consume(kind)
	return tok, err == nil
}

func (p *Parser) lexError(tok Token) error {
	var ch byte
	if len(tok.Literal) > 0 {
		ch = tok.Literal[0]
	}
	return &LexError{Char: ch, Line: tok.Span.Start.Line, Column: tok.Span.Start.Column}
}

func (p *Parser) errorAt(code ParseErrorCode, pos Position, format string, args ...any) error {
	return &ParseError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    pos.Line,
		Column:  pos.Column,
	}
}

// maybeNewLine absorbs a single new_line or blank_line token as the
// trailing-newline record of the node just parsed.
func (p *Parser) maybeNewLine() *NewLine {
	tok := p.peek()
	switch tok.Kind {
	case TokenNewLine:
		p.advance()
		return &NewLine{Loc: tok.Span, Count: 1}
	case TokenBlankLine:
		p.advance()
		return &NewLine{Loc: tok.Span, Count: strings.Count(tok.Literal, "\n")}
	}
	return nil
}

func (p *Parser) parseDocument() (*Document, error) {
	elements, err := p.parseSiblings()
	if err != nil {
		return nil, err
	}
	if pending := p.pendingClose; pending != nil {
		return nil, p.errorAt(ErrUnexpectedToken, pending.Span().Start, "closing tag without opening tag")
	}
	tok := p.peek()
	switch tok.Kind {
	case TokenEOF:
		return &Document{Elements: elements}, nil
	case TokenError:
		return nil, p.lexError(tok)
	case TokenSlashOpen:
		return nil, p.errorAt(ErrUnexpectedToken, tok.Span.Start, "closing tag without opening tag")
	default:
		return nil, p.errorAt(ErrUnexpectedToken, tok.Span.Start, "unexpected %s", tok.Kind)
	}
}

// parseSiblings collects tags until none matches. A control-flow
// continuation with no opener in scope is a structural error here.
func (p *Parser) parseSiblings() ([]Node, error) {
	var elements []Node
	for {
		node, err := p.parseAnyTag()
		if err != nil {
			if errors.Is(err, errMissingToken) {
				return elements, nil
			}
			return nil, err
		}
		if cont := continuation(node); cont != nil {
			return nil, p.errorAt(ErrUnmatchedControlKeyword, cont.Span().Start,
				"%q without a matching opening", cont.KeywordText())
		}
		elements = append(elements, node)
	}
}

// continuation returns the flat embedded tag when node is a chain
// continuation (elsif, else, when, end) that bubbled up to a context
// with no opener consuming it.
func continuation(node Node) *ErbNode {
	erb, ok := node.(*ErbNode)
	if !ok || erb.Keyword == nil {
		return nil
	}
	switch erb.Keyword.Literal {
	case "elsif", "else", "when", "end":
		return erb
	}
	return nil
}

// parseAnyTag parses one document-level construct. Leading line
// breaks are consumed and skipped; trailing ones are recorded on the
// node they follow.
func (p *Parser) parseAnyTag() (Node, error) {
	if p.pendingClose != nil {
		return nil, errMissingToken
	}
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenNewLine, TokenBlankLine:
			p.advance()
		case TokenDoctype:
			return p.parseDoctype()
		case TokenHtmlComment:
			p.advance()
			return &HtmlComment{Token: tok, Trailing: p.maybeNewLine()}, nil
		case TokenErbComment:
			p.advance()
			return &ErbComment{Token: tok, Trailing: p.maybeNewLine()}, nil
		case TokenErbOpen:
			return p.parseErb()
		case TokenOpen:
			return p.parseElement()
		case TokenText:
			return p.parseCharData()
		case TokenError:
			return nil, p.lexError(tok)
		default:
			return nil, errMissingToken
		}
	}
}

func (p *Parser) parseDoctype() (*Doctype, error) {
	opening := p.advance()
	if p.doctypeSeen {
		return nil, p.errorAt(ErrDuplicateDoctype, opening.Span.Start, "duplicate doctype")
	}
	p.doctypeSeen = true

	node := &Doctype{Opening: opening}
	if name, ok := p.maybeConsume(TokenName); ok {
		node.Name = &name
	}
	closing, err := p.consume(TokenClose)
	if err != nil {
		if errors.Is(err, errMissingToken) {
			return nil, p.errorAt(ErrUnexpectedToken, p.peek().Span.Start, "expected > to close doctype")
		}
		return nil, err
	}
	node.Closing = closing
	node.Trailing = p.maybeNewLine()
	return node, nil
}

func (p *Parser) parseCharData() (*Text, error) {
	first := p.advance()
	last := first
	literal := first.Literal
	for {
		tok, ok := p.maybeConsume(TokenText)
		if !ok {
			break
		}
		literal += tok.Literal
		last = tok
	}
	synth := Token{
		Kind:    TokenText,
		Span:    first.Span.To(last.Span),
		Literal: literal,
	}
	return &Text{Token: synth, Trailing: p.maybeNewLine()}, nil
}

func (p *Parser) parseElement() (*Element, error) {
	open, err := p.parseOpeningTag()
	if err != nil {
		return nil, err
	}
	if open.SelfClosing() || IsVoidElement(open.Name.Literal) {
		el := &Element{Open: open}
		if IsVoidElement(open.Name.Literal) && p.peek().Kind == TokenSlashOpen {
			if err := p.consumeVoidClosing(el); err != nil {
				return nil, err
			}
		}
		return el, nil
	}

	var body []Node
	for {
		node, err := p.parseAnyTag()
		if err != nil {
			if errors.Is(err, errMissingToken) {
				break
			}
			return nil, err
		}
		if continuation(node) != nil {
			return nil, p.errorAt(ErrMissingClosingTag, open.Span().Start,
				"missing closing tag for <%s>", open.Name.Literal)
		}
		body = append(body, node)
	}

	closing, err := p.parseClosingTag()
	if err != nil {
		if errors.Is(err, errMissingToken) {
			return nil, p.errorAt(ErrMissingClosingTag, open.Span().Start,
				"missing closing tag for <%s>", open.Name.Literal)
		}
		return nil, err
	}
	if closing.Name.Literal != open.Name.Literal {
		return nil, p.errorAt(ErrMismatchedClosingTag, closing.Span().Start,
			"expected closing tag </%s>, got </%s>", open.Name.Literal, closing.Name.Literal)
	}
	return &Element{Open: open, Elements: body, Close: closing}, nil
}

func (p *Parser) parseOpeningTag() (*OpeningTag, error) {
	opening, err := p.consume(TokenOpen)
	if err != nil {
		return nil, err
	}
	name, err := p.consume(TokenName)
	if err != nil {
		if errors.Is(err, errMissingToken) {
			return nil, p.errorAt(ErrUnexpectedToken, p.peek().Span.Start, "expected element name")
		}
		return nil, err
	}
	if isSigil(name.Literal[0]) {
		return nil, p.errorAt(ErrInvalidElementName, name.Span.Start,
			"invalid element name %q", name.Literal)
	}

	tag := &OpeningTag{Opening: opening, Name: name}
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenNewLine, TokenBlankLine:
			p.advance()
		case TokenName:
			attr, err := p.parseAttribute()
			if err != nil {
				return nil, err
			}
			tag.Attributes = append(tag.Attributes, attr)
		case TokenErbOpen:
			node, err := p.parseErb()
			if err != nil {
				return nil, err
			}
			if cont := continuation(node); cont != nil {
				return nil, p.errorAt(ErrUnmatchedControlKeyword, cont.Span().Start,
					"%q without a matching opening", cont.KeywordText())
			}
			tag.Attributes = append(tag.Attributes, node)
		case TokenErbComment:
			p.advance()
			tag.Attributes = append(tag.Attributes, &ErbComment{Token: tok})
		case TokenClose, TokenSlashClose:
			tag.Closing = p.advance()
			tag.Trailing = p.maybeNewLine()
			return tag, nil
		case TokenError:
			return nil, p.lexError(tok)
		case TokenEOF:
			return nil, p.errorAt(ErrUnexpectedToken, tok.Span.Start,
				"unexpected end of input in <%s>", name.Literal)
		default:
			return nil, p.errorAt(ErrUnexpectedToken, tok.Span.Start,
				"unexpected %s in <%s>", tok.Kind, name.Literal)
		}
	}
}

// consumeVoidClosing handles a void element written in explicitly
// closed form: its own closing tag is consumed and discarded, the
// element still renders self-closing. A closing tag for a different
// element is held back for the enclosing context to claim.
func (p *Parser) consumeVoidClosing(el *Element) error {
	closing, err := p.parseClosingTag()
	if err != nil {
		return err
	}
	if closing.Name.Literal == el.Open.Name.Literal {
		if el.Open.Trailing == nil {
			el.Open.Trailing = closing.Trailing
		}
		return nil
	}
	p.pendingClose = closing
	return nil
}

func (p *Parser) parseClosingTag() (*ClosingTag, error) {
	if pending := p.pendingClose; pending != nil {
		p.pendingClose = nil
		return pending, nil
	}
	opening, err := p.consume(TokenSlashOpen)
	if err != nil {
		return nil, err
	}
	name, err := p.consume(TokenName)
	if err != nil {
		if errors.Is(err, errMissingToken) {
			return nil, p.errorAt(ErrUnexpectedToken, p.peek().Span.Start, "expected element name")
		}
		return nil, err
	}
	closing, err := p.consume(TokenClose)
	if err != nil {
		if errors.Is(err, errMissingToken) {
			return nil, p.errorAt(ErrUnexpectedToken, p.peek().Span.Start,
				"expected > to close </%s>", name.Literal)
		}
		return nil, err
	}
	return &ClosingTag{
		Opening:  opening,
		Name:     name,
		Closing:  closing,
		Trailing: p.maybeNewLine(),
	}, nil
}

func (p *Parser) parseAttribute() (*Attribute, error) {
	key := p.advance()
	attr := &Attribute{Key: key}
	if eq, ok := p.maybeConsume(TokenEquals); ok {
		attr.Equals = &eq
		value, err := p.parseAttrString()
		if err != nil {
			return nil, err
		}
		attr.Value = value
	}
	return attr, nil
}

func (p *Parser) parseAttrString() (*AttrString, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenQuote:
		return p.parseQuotedAttrString()
	case TokenName:
		bare := p.advance()
		text := Token{Kind: TokenText, Span: bare.Span, Literal: bare.Literal}
		return &AttrString{Contents: []Node{&Text{Token: text}}}, nil
	case TokenError:
		return nil, p.lexError(tok)
	default:
		return nil, p.errorAt(ErrUnexpectedToken, tok.Span.Start, "expected attribute value")
	}
}

func (p *Parser) parseQuotedAttrString() (*AttrString, error) {
	opening := p.advance()
	value := &AttrString{OpeningQuote: &opening}
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenText:
			p.advance()
			value.Contents = append(value.Contents, &Text{Token: tok})
		case TokenErbOpen:
			node, err := p.parseErb()
			if err != nil {
				return nil, err
			}
			if cont := continuation(node); cont != nil {
				return nil, p.errorAt(ErrUnmatchedControlKeyword, cont.Span().Start,
					"%q without a matching opening", cont.KeywordText())
			}
			value.Contents = append(value.Contents, node)
		case TokenErbComment:
			p.advance()
			value.Contents = append(value.Contents, &ErbComment{Token: tok})
		case TokenQuote:
			closing := p.advance()
			value.ClosingQuote = &closing
			return value, nil
		case TokenError:
			return nil, p.lexError(tok)
		default:
			return nil, p.errorAt(ErrUnterminatedQuotedString, tok.Span.Start,
				"unterminated quoted string")
		}
	}
}

// parseErb parses one embedded tag and folds it into a control-flow
// composite when its keyword or terminator demands it. Continuation
// tags (elsif, else, when, end) are returned flat for the enclosing
// fold to consume.
func (p *Parser) parseErb() (Node, error) {
	erb, err := p.parseErbNode()
	if err != nil {
		return nil, err
	}
	switch erb.KeywordText() {
	case "if", "unless":
		return p.foldConditional(erb)
	case "case":
		node, err := p.foldCaseBody(erb)
		if err != nil {
			return nil, err
		}
		return &ErbCase{Opening: erb, Elements: node.elements, Closing: node.closing}, nil
	case "elsif", "else", "when", "end":
		return erb, nil
	default:
		if erb.DoBlock() {
			return p.foldBlock(erb)
		}
		return erb, nil
	}
}

func (p *Parser) parseErbNode() (*ErbNode, error) {
	opening, err := p.consume(TokenErbOpen)
	if err != nil {
		return nil, err
	}
	node := &ErbNode{Opening: opening}
	if keyword, ok := p.maybeConsume(TokenKeyword); ok {
		node.Keyword = &keyword
	}
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenCode, TokenYield:
			p.advance()
			node.Content = append(node.Content, tok)
		case TokenErbClose, TokenErbDoClose:
			node.Closing = p.advance()
			node.Trailing = p.maybeNewLine()
			return node, nil
		case TokenError:
			return nil, p.lexError(tok)
		default:
			return nil, p.errorAt(ErrUnparseableEmbeddedStatement, opening.Span.Start,
				"unterminated embedded statement")
		}
	}
}

// foldConditional builds the if/unless/elsif chain opened by erb,
// collecting body tags until elsif, else or end terminates it.
func (p *Parser) foldConditional(opening *ErbNode) (*ErbIf, error) {
	var body []Node
	for {
		term, node, err := p.nextChainItem(opening)
		if err != nil {
			return nil, err
		}
		if term == nil {
			body = append(body, node)
			continue
		}
		switch term.Keyword.Literal {
		case "elsif":
			closing, err := p.foldConditional(term)
			if err != nil {
				return nil, err
			}
			return &ErbIf{Opening: opening, Elements: body, Closing: closing}, nil
		case "else":
			closing, err := p.foldElse(term)
			if err != nil {
				return nil, err
			}
			return &ErbIf{Opening: opening, Elements: body, Closing: closing}, nil
		case "end":
			return &ErbIf{Opening: opening, Elements: body, Closing: &ErbEnd{Node: term}}, nil
		default:
			return nil, p.errorAt(ErrUnparseableEmbeddedStatement, term.Span().Start,
				"unexpected %q in %q chain", term.Keyword.Literal, opening.KeywordText())
		}
	}
}

// chainBody is the collected body and terminator of a case or when
// branch.
type chainBody struct {
	elements []Node
	closing  Node
}

func (p *Parser) foldCaseBody(opening *ErbNode) (chainBody, error) {
	var body []Node
	for {
		term, node, err := p.nextChainItem(opening)
		if err != nil {
			return chainBody{}, err
		}
		if term == nil {
			body = append(body, node)
			continue
		}
		switch term.Keyword.Literal {
		case "when":
			inner, err := p.foldCaseBody(term)
			if err != nil {
				return chainBody{}, err
			}
			when := &ErbCaseWhen{Opening: term, Elements: inner.elements, Closing: inner.closing}
			return chainBody{elements: body, closing: when}, nil
		case "else":
			closing, err := p.foldElse(term)
			if err != nil {
				return chainBody{}, err
			}
			return chainBody{elements: body, closing: closing}, nil
		case "end":
			return chainBody{elements: body, closing: &ErbEnd{Node: term}}, nil
		default:
			return chainBody{}, p.errorAt(ErrUnparseableEmbeddedStatement, term.Span().Start,
				"unexpected %q in case chain", term.Keyword.Literal)
		}
	}
}

func (p *Parser) foldElse(opening *ErbNode) (*ErbElse, error) {
	var body []Node
	for {
		term, node, err := p.nextChainItem(opening)
		if err != nil {
			return nil, err
		}
		if term == nil {
			body = append(body, node)
			continue
		}
		if term.Keyword.Literal != "end" {
			return nil, p.errorAt(ErrUnparseableEmbeddedStatement, term.Span().Start,
				"unexpected %q after else", term.Keyword.Literal)
		}
		return &ErbElse{Opening: opening, Elements: body, Closing: &ErbEnd{Node: term}}, nil
	}
}

func (p *Parser) foldBlock(opening *ErbNode) (*ErbBlock, error) {
	var body []Node
	for {
		term, node, err := p.nextChainItem(opening)
		if err != nil {
			return nil, err
		}
		if term == nil {
			body = append(body, node)
			continue
		}
		if term.Keyword.Literal != "end" {
			return nil, p.errorAt(ErrUnmatchedControlKeyword, term.Span().Start,
				"expected end for do-block, got %q", term.Keyword.Literal)
		}
		return &ErbBlock{Opening: opening, Elements: body, Closing: &ErbEnd{Node: term}}, nil
	}
}

// nextChainItem parses the next tag inside a control chain. It
// returns either a chain terminator or a body node; running out of
// input before the chain closes is an error located at the opener.
func (p *Parser) nextChainItem(opening *ErbNode) (*ErbNode, Node, error) {
	node, err := p.parseAnyTag()
	if err != nil {
		if errors.Is(err, errMissingToken) {
			what := opening.KeywordText()
			if what == "" {
				what = "do-block"
			}
			return nil, nil, p.errorAt(ErrUnmatchedControlKeyword, opening.Span().Start,
				"no matching end for %q", what)
		}
		return nil, nil, err
	}
	if cont := continuation(node); cont != nil {
		return cont, nil, nil
	}
	return nil, node, nil
}

func isSigil(ch byte) bool {
	return ch == '@' || ch == ':' || ch == '#'
}
