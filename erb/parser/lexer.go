package parser

// lexMode selects which rule set applies at the current cursor
// position. Modes form a stack so an embedded tag opened inside an
// attribute string returns to the enclosing mode when it closes.
type lexMode int

const (
	modeOutside lexMode = iota
	modeTagInterior
	modeEmbeddedStart
	modeEmbeddedCode
	modeSingleQuote
	modeDoubleQuote
)

type Lexer struct {
	input  []byte
	pos    int
	line   int
	column int
	modes  []lexMode
}

func NewLexer(input []byte) *Lexer {
	return &Lexer{
		input:  input,
		line:   1,
		column: 0,
		modes:  []lexMode{modeOutside},
	}
}

func (l *Lexer) Position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.column,
	}
}

func (l *Lexer) mode() lexMode {
	return l.modes[len(l.modes)-1]
}

func (l *Lexer) pushMode(m lexMode) {
	l.modes = append(l.modes, m)
}

func (l *Lexer) popMode() {
	if len(l.modes) > 1 {
		l.modes = l.modes[:len(l.modes)-1]
	}
}

func (l *Lexer) replaceMode(m lexMode) {
	l.modes[len(l.modes)-1] = m
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekN(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

// hasPrefix reports whether the remaining input starts with s.
func (l *Lexer) hasPrefix(s string) bool {
	return l.hasPrefixAt(l.pos, s)
}

func (l *Lexer) hasPrefixAt(at int, s string) bool {
	if at+len(s) > len(l.input) {
		return false
	}
	return string(l.input[at:at+len(s)]) == s
}

// hasPrefixFold is hasPrefix ignoring ASCII case.
func (l *Lexer) hasPrefixFold(s string) bool {
	if l.pos+len(s) > len(l.input) {
		return false
	}
	for i := 0; i < len(s); i++ {
		a := l.input[l.pos+i]
		b := s[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// NextToken returns the next token in the current mode. No rule
// matches zero-length input; the only zero-width action is the
// keywordless transition from embeddedStart to embeddedCode, which
// re-scans the same position under the new mode.
func (l *Lexer) NextToken() Token {
	for {
		start := l.Position()
		if l.pos >= len(l.input) {
			return Token{Kind: TokenEOF, Span: Span{Start: start, End: start}}
		}

		switch l.mode() {
		case modeOutside:
			return l.scanOutside(start)
		case modeTagInterior:
			return l.scanTagInterior(start)
		case modeEmbeddedStart:
			if tok, ok := l.scanEmbeddedStart(start); ok {
				return tok
			}
			l.replaceMode(modeEmbeddedCode)
		case modeEmbeddedCode:
			return l.scanEmbeddedCode(start)
		case modeSingleQuote:
			return l.scanString(start, '\'')
		case modeDoubleQuote:
			return l.scanString(start, '"')
		}
	}
}

func (l *Lexer) scanOutside(start Position) Token {
	ch := l.peek()

	if l.atLineBreak() {
		return l.scanLineBreaks(start)
	}

	if ch == '<' {
		switch {
		case l.hasPrefixFold("<!doctype"):
			l.advanceN(len("<!doctype"))
			l.pushMode(modeTagInterior)
			return l.token(TokenDoctype, start)
		case l.hasPrefix("<!--"):
			return l.scanHtmlComment(start)
		case l.hasPrefix("<%#"):
			return l.scanErbComment(start)
		case l.hasPrefix("<%"):
			return l.scanErbOpen(start)
		case l.peekN(1) == '/':
			l.advanceN(2)
			l.pushMode(modeTagInterior)
			return l.token(TokenSlashOpen, start)
		default:
			l.advance()
			l.pushMode(modeTagInterior)
			return l.token(TokenOpen, start)
		}
	}

	if ch == ' ' || ch == '\t' {
		// Indentation before a tag or line break is insignificant;
		// spaces running into character data are part of the text, so
		// the word boundary against the previous node survives.
		i := l.pos
		for i < len(l.input) && (l.input[i] == ' ' || l.input[i] == '\t') {
			i++
		}
		if i >= len(l.input) || l.input[i] == '<' || l.input[i] == '\n' || l.input[i] == '\r' {
			return l.scanHorizontalWhitespace(start)
		}
	}

	// Plain character data, up to the next tag opener or line break.
	for l.pos < len(l.input) {
		ch = l.peek()
		if ch == '<' || ch == '\n' || l.atLineBreak() {
			break
		}
		l.advance()
	}
	return l.token(TokenText, start)
}

func (l *Lexer) scanTagInterior(start Position) Token {
	ch := l.peek()

	if l.atLineBreak() {
		return l.scanLineBreaks(start)
	}
	if ch == ' ' || ch == '\t' {
		return l.scanHorizontalWhitespace(start)
	}

	switch {
	case l.hasPrefix("/>"):
		l.advanceN(2)
		l.popMode()
		return l.token(TokenSlashClose, start)
	case ch == '>':
		l.advance()
		l.popMode()
		return l.token(TokenClose, start)
	case ch == '=':
		l.advance()
		return l.token(TokenEquals, start)
	case ch == '"':
		l.advance()
		l.pushMode(modeDoubleQuote)
		return l.token(TokenQuote, start)
	case ch == '\'':
		l.advance()
		l.pushMode(modeSingleQuote)
		return l.token(TokenQuote, start)
	case l.hasPrefix("<%#"):
		return l.scanErbComment(start)
	case l.hasPrefix("<%"):
		return l.scanErbOpen(start)
	case isNameStart(ch):
		for isNameChar(l.peek()) {
			l.advance()
		}
		return l.token(TokenName, start)
	}

	l.advance()
	return l.token(TokenError, start)
}

// scanEmbeddedStart recognizes a leading control keyword right after
// an embedded-tag opener. Reports ok=false without consuming input
// when no keyword matches, so the caller can re-scan as code.
func (l *Lexer) scanEmbeddedStart(start Position) (Token, bool) {
	ch := l.peek()
	if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
		return l.scanCodeWhitespace(start), true
	}

	word := l.peekWord()
	if IsControlKeyword(word) {
		l.advanceN(len(word))
		l.replaceMode(modeEmbeddedCode)
		return l.token(TokenKeyword, start), true
	}
	return Token{}, false
}

func (l *Lexer) scanEmbeddedCode(start Position) Token {
	ch := l.peek()
	if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
		return l.scanCodeWhitespace(start)
	}

	if n := l.closeDelimiterLen(l.pos); n > 0 {
		l.advanceN(n)
		l.popMode()
		return l.token(TokenErbClose, start)
	}
	if n := l.doCloseLen(l.pos); n > 0 {
		l.advanceN(n)
		l.popMode()
		return l.token(TokenErbDoClose, start)
	}

	if l.peekWord() == "yield" {
		l.advanceN(len("yield"))
		return l.token(TokenYield, start)
	}

	// A code fragment: the rest of the line up to a terminator. The
	// fragment end is settled before the cursor moves, so trailing
	// spaces are never consumed; the cursor only advances.
	end := l.pos
	for end < len(l.input) {
		c := l.input[end]
		if c == '\n' || c == '\r' {
			break
		}
		if l.closeDelimiterLen(end) > 0 || l.doCloseLen(end) > 0 {
			break
		}
		end++
	}
	for end > l.pos {
		c := l.input[end-1]
		if c != ' ' && c != '\t' {
			break
		}
		end--
	}
	l.advanceN(end - l.pos)
	return l.token(TokenCode, start)
}

func (l *Lexer) scanString(start Position, quote byte) Token {
	ch := l.peek()

	if ch == quote {
		l.advance()
		l.popMode()
		return l.token(TokenQuote, start)
	}
	if l.atLineBreak() {
		return l.scanLineBreaks(start)
	}
	if l.hasPrefix("<%") {
		return l.scanErbOpen(start)
	}

	for l.pos < len(l.input) {
		ch = l.peek()
		if ch == quote || ch == '\n' || ch == '\r' || l.hasPrefix("<%") {
			break
		}
		l.advance()
	}
	return l.token(TokenText, start)
}

func (l *Lexer) scanErbOpen(start Position) Token {
	l.advanceN(2)
	switch l.peek() {
	case '=':
		l.advance()
		if l.peek() == '=' {
			l.advance()
		}
	case '-':
		l.advance()
	}
	l.pushMode(modeEmbeddedStart)
	return l.token(TokenErbOpen, start)
}

func (l *Lexer) scanHtmlComment(start Position) Token {
	l.advanceN(4)
	for l.pos < len(l.input) && !l.hasPrefix("-->") {
		l.advance()
	}
	if l.hasPrefix("-->") {
		l.advanceN(3)
	}
	return l.token(TokenHtmlComment, start)
}

func (l *Lexer) scanErbComment(start Position) Token {
	l.advanceN(3)
	for l.pos < len(l.input) && !l.hasPrefix("%>") {
		l.advance()
	}
	if l.hasPrefix("%>") {
		l.advanceN(2)
	}
	return l.token(TokenErbComment, start)
}

func (l *Lexer) scanHorizontalWhitespace(start Position) Token {
	for {
		ch := l.peek()
		if ch != ' ' && ch != '\t' {
			break
		}
		l.advance()
	}
	return l.token(TokenWhitespace, start)
}

// scanCodeWhitespace covers whitespace inside embedded code, where
// line breaks carry no layout meaning.
func (l *Lexer) scanCodeWhitespace(start Position) Token {
	for {
		ch := l.peek()
		if ch != ' ' && ch != '\t' && ch != '\r' && ch != '\n' {
			break
		}
		l.advance()
	}
	return l.token(TokenWhitespace, start)
}

func (l *Lexer) atLineBreak() bool {
	ch := l.peek()
	return ch == '\n' || (ch == '\r' && l.peekN(1) == '\n')
}

// scanLineBreaks folds two or more consecutive line breaks into a
// single blank_line token; a single break is its own new_line token.
func (l *Lexer) scanLineBreaks(start Position) Token {
	count := 0
	for l.atLineBreak() {
		if l.peek() == '\r' {
			l.advance()
		}
		l.advance()
		count++
	}
	if count >= 2 {
		return l.token(TokenBlankLine, start)
	}
	return l.token(TokenNewLine, start)
}

// peekWord returns the identifier starting at the cursor, without
// consuming it.
func (l *Lexer) peekWord() string {
	return l.wordAt(l.pos)
}

func (l *Lexer) wordAt(at int) string {
	i := at
	for i < len(l.input) && isWordChar(l.input[i]) {
		i++
	}
	return string(l.input[at:i])
}

// closeDelimiterLen returns the length of a plain close delimiter at
// the given offset (`%>` or `-%>`), or 0.
func (l *Lexer) closeDelimiterLen(at int) int {
	if l.hasPrefixAt(at, "%>") {
		return 2
	}
	if l.hasPrefixAt(at, "-%>") {
		return 3
	}
	return 0
}

// doCloseLen returns the length of a do-block terminator at the
// given offset: `do`, optional block parameters, then a close
// delimiter. Returns 0 when the offset is not at such a sequence, in
// which case `do` is ordinary code.
func (l *Lexer) doCloseLen(at int) int {
	if l.wordAt(at) != "do" {
		return 0
	}
	i := at + 2
	for i < len(l.input) && (l.input[i] == ' ' || l.input[i] == '\t') {
		i++
	}
	if i < len(l.input) && l.input[i] == '|' {
		i++
		for i < len(l.input) && l.input[i] != '|' && l.input[i] != '\n' {
			i++
		}
		if i >= len(l.input) || l.input[i] != '|' {
			return 0
		}
		i++
		for i < len(l.input) && (l.input[i] == ' ' || l.input[i] == '\t') {
			i++
		}
	}
	if l.hasPrefixAt(i, "%>") {
		return i + 2 - at
	}
	if l.hasPrefixAt(i, "-%>") {
		return i + 3 - at
	}
	return 0
}

func (l *Lexer) token(kind TokenKind, start Position) Token {
	end := l.Position()
	return Token{
		Kind:    kind,
		Span:    Span{Start: start, End: end},
		Literal: string(l.input[start.Offset:end.Offset]),
	}
}

func isNameStart(ch byte) bool {
	return isWordChar(ch) || ch == '@' || ch == ':' || ch == '#'
}

func isNameChar(ch byte) bool {
	return isWordChar(ch) || ch == '-' || ch == '.' || ch == ':' || ch == '@'
}

func isWordChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') || ch == '_'
}
