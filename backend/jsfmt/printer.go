package jsfmt

import "strings"

// keywords which read as prefixes rather than operands
var keywords = map[string]bool{
	"async": true, "await": true, "case": true, "catch": true, "class": true,
	"const": true, "default": true, "delete": true, "do": true, "else": true,
	"export": true, "extends": true, "finally": true, "for": true,
	"from": true, "function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "let": true, "new": true, "of": true, "return": true,
	"switch": true, "throw": true, "typeof": true, "var": true, "void": true,
	"while": true, "yield": true,
}

// binary continuations: a newline before one of these never ends a statement
var continuations = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "=": true,
	"==": true, "===": true, "!=": true, "!==": true, "<": true, ">": true,
	"<=": true, ">=": true, "&&": true, "||": true, "??": true, "?": true,
	":": true, ",": true, ".": true, "?.": true, "=>": true, ")": true,
	"]": true, "+=": true, "-=": true, "*=": true, "/=": true,
}

// tokens an object literal may directly follow
var objectStarters = map[string]bool{
	"=": true, "(": true, "[": true, ",": true, ":": true, "return": true,
	"in": true, "of": true, "??": true, "||": true, "&&": true,
}

type printer struct {
	style style

	lines []string
	line  strings.Builder

	indent int
	paren  int
	braces []bool // true entries are object literals

	last      token
	lastSet   bool
	lastUnary bool

	objClose   bool // last emitted token closed an object literal
	blockClose bool // last emitted token closed a block, line not yet flushed
}

func print(tokens []token, st style) string {
	p := &printer{style: st}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		switch tok.kind {
		case tokNewline, tokBlank:
			next, ok := peek(tokens, i+1)
			p.newline(tok, next, ok)

		case tokLineComment:
			p.breakAfterBlock(tok)
			p.emit(tok, p.line.Len() > 0)
			p.flushLine()
			p.lastSet = false

		case tokStr:
			p.breakAfterBlock(tok)
			p.emit(token{kind: tokStr, text: requote(tok.text, st.quote)}, p.spaceBefore(tok))

		case tokPunct:
			p.punct(tok)

		default:
			p.breakAfterBlock(tok)
			p.emit(tok, p.spaceBefore(tok))
		}
	}

	p.terminate()
	p.flushLine()

	out := strings.Join(p.lines, st.ending)
	out = strings.TrimRight(out, " \t\r\n")

	if out == "" {
		return ""
	}

	return out + st.ending
}

// peek returns tokens[i] when i is in range.
func peek(tokens []token, i int) (token, bool) {
	if i < 0 || i >= len(tokens) {
		return token{}, false
	}

	return tokens[i], true
}

func (p *printer) inObject() bool {
	return len(p.braces) > 0 && p.braces[len(p.braces)-1]
}

// newline handles a layout token from the source. Inside parentheses or an
// object literal it is insignificant; at statement level it ends the current
// statement unless the previous or the pending content clearly continues it.
func (p *printer) newline(tok token, next token, nextOK bool) {
	if p.paren > 0 || p.inObject() {
		return
	}

	if p.blockClose {
		// the '}' line is held back in case an else/catch/while follows
		return
	}

	if !p.canEndStatement() {
		return
	}

	// a pending binary continuation keeps the statement open
	if nextOK && next.kind == tokPunct && continuations[next.text] {
		return
	}

	p.terminate()
	p.flushLine()

	if tok.kind == tokBlank && len(p.lines) > 0 && p.lines[len(p.lines)-1] != "" {
		p.lines = append(p.lines, "")
	}
}

func (p *printer) punct(tok token) {
	switch tok.text {
	case ";":
		if p.paren > 0 {
			// for-loop clause separator
			p.emit(tok, false)

			return
		}

		p.terminate()
		p.flushLine()

	case "{":
		if p.isObjectStart() {
			p.braces = append(p.braces, true)
			p.emit(tok, p.spaceBefore(tok))

			return
		}

		p.breakAfterBlock(tok)
		p.braces = append(p.braces, false)
		p.emit(tok, p.line.Len() > 0)
		p.flushLine()
		p.indent++
		p.lastSet = false

	case "}":
		if p.inObject() {
			p.braces = p.braces[:len(p.braces)-1]

			space := p.style.spacing && p.lastSet && p.last.text != "{"
			p.emit(tok, space)
			p.objClose = true

			return
		}

		if len(p.braces) > 0 {
			p.braces = p.braces[:len(p.braces)-1]
		}

		p.terminate()
		p.flushLine()

		if p.indent > 0 {
			p.indent--
		}

		p.emit(tok, false)
		p.blockClose = true

	case "(", "[":
		p.breakAfterBlock(tok)
		p.paren++
		p.emit(tok, p.spaceBefore(tok))

	case ")", "]":
		if p.paren > 0 {
			p.paren--
		}

		p.emit(tok, false)

	default:
		p.breakAfterBlock(tok)
		p.emit(tok, p.spaceBefore(tok))
	}
}

// breakAfterBlock flushes a held-back block-closing '}' line unless tok is
// allowed to continue it (else, catch, finally, while).
func (p *printer) breakAfterBlock(tok token) {
	if !p.blockClose {
		return
	}

	p.blockClose = false

	if tok.kind == tokWord {
		switch tok.text {
		case "else", "catch", "finally", "while":
			return
		}
	}

	p.flushLine()
	p.lastSet = false
}

func (p *printer) isObjectStart() bool {
	if !p.lastSet || p.line.Len() == 0 {
		// a '{' at statement start is a block
		return false
	}

	return objectStarters[p.last.text]
}

// canEndStatement reports whether the last emitted token may legally end a
// statement, so a source newline becomes a statement boundary.
func (p *printer) canEndStatement() bool {
	if !p.lastSet || p.line.Len() == 0 {
		return false
	}

	switch p.last.kind {
	case tokStr, tokTemplate:
		return true
	case tokWord:
		return !keywords[p.last.text] || p.last.text == "return"
	case tokPunct:
		switch p.last.text {
		case ")", "]", "++", "--":
			return true
		case "}":
			return p.objClose
		}
	}

	return false
}

// terminate ends the current statement, appending a semicolon when the policy
// requires one and the line can take it.
func (p *printer) terminate() {
	if p.line.Len() == 0 {
		return
	}

	if p.style.semicolons && p.canEndStatement() {
		p.line.WriteByte(';')
		p.last = token{kind: tokPunct, text: ";"}
	}
}

func (p *printer) flushLine() {
	if p.line.Len() == 0 {
		return
	}

	p.lines = append(p.lines, p.line.String())
	p.line.Reset()
}

func (p *printer) emit(tok token, space bool) {
	if p.line.Len() == 0 {
		p.line.WriteString(strings.Repeat(p.style.indent, p.indent))
	} else if space {
		p.line.WriteByte(' ')
	}

	p.line.WriteString(tok.text)

	p.lastUnary = p.isUnary(tok)
	p.objClose = false
	p.last = tok
	p.lastSet = true
}

// isUnary reports whether tok, in the position it was just emitted, reads as
// a prefix operator.
func (p *printer) isUnary(tok token) bool {
	if tok.kind != tokPunct {
		return false
	}

	switch tok.text {
	case "!", "~":
		return true
	case "+", "-", "++", "--":
		return !p.operandBefore()
	}

	return false
}

// operandBefore reports whether the token before the one being emitted is an
// operand (something a binary operator could apply to).
func (p *printer) operandBefore() bool {
	if !p.lastSet || p.line.Len() == 0 {
		return false
	}

	switch p.last.kind {
	case tokStr, tokTemplate:
		return true
	case tokWord:
		return !keywords[p.last.text]
	case tokPunct:
		switch p.last.text {
		case ")", "]":
			return true
		case "}":
			return p.objClose
		}
	}

	return false
}

// spaceBefore decides whether a space separates tok from the previous token.
func (p *printer) spaceBefore(tok token) bool {
	if !p.lastSet || p.line.Len() == 0 {
		return false
	}

	// inner spacing after an object-literal '{'
	if p.last.kind == tokPunct && p.last.text == "{" && p.inObject() {
		return p.style.spacing
	}

	if tok.kind == tokPunct {
		switch tok.text {
		case ",", ";", ":", ".", "?.":
			return false
		case "++", "--":
			// postfix attaches to its operand, prefix stands apart
			return !p.operandBefore()
		case "(", "[":
			if p.last.kind == tokWord && keywords[p.last.text] {
				return true
			}

			return !p.operandBefore()
		case "!", "~":
			return true
		}
	}

	if p.last.kind == tokPunct {
		switch p.last.text {
		case "(", "[", ".", "?.", "!", "~":
			return false
		}

		if p.lastUnary {
			return false
		}
	}

	return true
}

// requote rewrites a string literal to use the configured quote character,
// adjusting escapes as needed. Template literals pass through untouched.
func requote(lit string, quote byte) string {
	if len(lit) < 2 || lit[0] == '`' {
		return lit
	}

	old := lit[0]
	if old == quote {
		return lit
	}

	body := lit[1 : len(lit)-1]

	var sb strings.Builder

	sb.Grow(len(lit))
	sb.WriteByte(quote)

	for i := 0; i < len(body); i++ {
		c := body[i]

		if c == '\\' && i+1 < len(body) {
			next := body[i+1]
			i++

			if next == old {
				// the old quote no longer needs escaping
				sb.WriteByte(next)
			} else {
				sb.WriteByte('\\')
				sb.WriteByte(next)
			}

			continue
		}

		if c == quote {
			sb.WriteByte('\\')
		}

		sb.WriteByte(c)
	}

	sb.WriteByte(quote)

	return sb.String()
}
