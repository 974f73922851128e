package extract

import (
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokTemplate
	tokNumber
	tokRegex
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) is(punct string) bool {
	return t.kind == tokPunct && t.text == punct
}

// regexKeywords are identifiers after which a slash starts a regex literal.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

// lexer splits JavaScript source into the tokens the pattern strategy needs.
// Comments and whitespace are dropped; string, template and regex literals
// are kept whole so their contents never look like code.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
	toks []token
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	if len(src) > 1 && src[0] == '#' && src[1] == '!' {
		lx.skipLine()
	}
	if err := lx.run(0); err != nil {
		return nil, err
	}
	return lx.toks, nil
}

func (lx *lexer) errorf(line, col int, msg string) error {
	return &ParseError{Line: line, Column: col, Message: msg}
}

// advance moves past n bytes, tracking line and column.
func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.pos < len(lx.src); i++ {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.col = 1
		} else if utf8.RuneStart(lx.src[lx.pos]) {
			lx.col++
		}
		lx.pos++
	}
}

func (lx *lexer) peek(off int) byte {
	if lx.pos+off >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+off]
}

func (lx *lexer) skipLine() {
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
		lx.advance(1)
	}
}

func (lx *lexer) emit(kind tokenKind, start, line, col int) {
	lx.toks = append(lx.toks, token{kind: kind, text: lx.src[start:lx.pos], line: line, col: col})
}

// run lexes until EOF, or until the closing brace of a template
// substitution when depth > 0.
func (lx *lexer) run(depth int) error {
	braces := 0
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		start, line, col := lx.pos, lx.line, lx.col

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f':
			lx.advance(1)

		case c == '/' && lx.peek(1) == '/':
			lx.skipLine()

		case c == '/' && lx.peek(1) == '*':
			lx.advance(2)
			closed := false
			for lx.pos < len(lx.src) {
				if lx.src[lx.pos] == '*' && lx.peek(1) == '/' {
					lx.advance(2)
					closed = true
					break
				}
				lx.advance(1)
			}
			if !closed {
				return lx.errorf(line, col, "unterminated comment")
			}

		case c == '\'' || c == '"':
			if err := lx.lexString(c); err != nil {
				return err
			}
			lx.emit(tokString, start, line, col)

		case c == '`':
			if err := lx.lexTemplate(); err != nil {
				return err
			}
			lx.emit(tokTemplate, start, line, col)

		case c == '/' && lx.regexAllowed():
			if err := lx.lexRegex(); err != nil {
				return err
			}
			lx.emit(tokRegex, start, line, col)

		case isDigit(c) || (c == '.' && isDigit(lx.peek(1))):
			lx.lexNumber()
			lx.emit(tokNumber, start, line, col)

		case c == '#' || c == '$' || c == '_' || c == '\\' || isLetter(c) || c >= utf8.RuneSelf:
			lx.lexIdent()
			if lx.pos == start {
				// A lone non-identifier rune; treat it as punctuation.
				_, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
				lx.advance(size)
				lx.emit(tokPunct, start, line, col)
				continue
			}
			lx.emit(tokIdent, start, line, col)

		case c == '.' && lx.peek(1) == '.' && lx.peek(2) == '.':
			lx.advance(3)
			lx.emit(tokPunct, start, line, col)

		case c == '=' && lx.peek(1) == '>':
			lx.advance(2)
			lx.emit(tokPunct, start, line, col)

		case (c == '+' || c == '-') && lx.peek(1) == c:
			lx.advance(2)
			lx.emit(tokPunct, start, line, col)

		default:
			if depth > 0 {
				if c == '{' {
					braces++
				} else if c == '}' {
					if braces == 0 {
						lx.advance(1)
						return nil
					}
					braces--
				}
			}
			lx.advance(1)
			lx.emit(tokPunct, start, line, col)
		}
	}
	if depth > 0 {
		return lx.errorf(lx.line, lx.col, "unterminated template substitution")
	}
	return nil
}

func (lx *lexer) lexString(quote byte) error {
	line, col := lx.line, lx.col
	lx.advance(1)
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\\':
			lx.advance(2)
		case quote:
			lx.advance(1)
			return nil
		case '\n':
			return lx.errorf(line, col, "unterminated string literal")
		default:
			lx.advance(1)
		}
	}
	return lx.errorf(line, col, "unterminated string literal")
}

// lexTemplate consumes a template literal, lexing substitutions in a nested
// run so braces inside them stay balanced. Substitution tokens are
// discarded: a template is never a class name.
func (lx *lexer) lexTemplate() error {
	line, col := lx.line, lx.col
	lx.advance(1)
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\\':
			lx.advance(2)
		case '`':
			lx.advance(1)
			return nil
		case '$':
			if lx.peek(1) != '{' {
				lx.advance(1)
				continue
			}
			lx.advance(2)
			mark := len(lx.toks)
			if err := lx.run(1); err != nil {
				return err
			}
			lx.toks = lx.toks[:mark]
		default:
			lx.advance(1)
		}
	}
	return lx.errorf(line, col, "unterminated template literal")
}

func (lx *lexer) lexRegex() error {
	line, col := lx.line, lx.col
	lx.advance(1)
	inClass := false
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			return lx.errorf(line, col, "unterminated regular expression")
		case c == '\\':
			lx.advance(2)
		case c == '[':
			inClass = true
			lx.advance(1)
		case c == ']':
			inClass = false
			lx.advance(1)
		case c == '/' && !inClass:
			lx.advance(1)
			for lx.pos < len(lx.src) && isLetter(lx.src[lx.pos]) {
				lx.advance(1)
			}
			return nil
		default:
			lx.advance(1)
		}
	}
	return lx.errorf(line, col, "unterminated regular expression")
}

func (lx *lexer) lexNumber() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if isDigit(c) || isLetter(c) || c == '.' || c == '_' {
			prev := c
			lx.advance(1)
			if (prev == 'e' || prev == 'E') && (lx.peek(0) == '+' || lx.peek(0) == '-') {
				lx.advance(1)
			}
			continue
		}
		return
	}
}

func (lx *lexer) lexIdent() {
	if lx.peek(0) == '#' {
		lx.advance(1)
	}
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == '\\' && lx.peek(1) == 'u' {
			lx.advance(2)
			continue
		}
		if c < utf8.RuneSelf {
			if c == '$' || c == '_' || isLetter(c) || isDigit(c) {
				lx.advance(1)
				continue
			}
			return
		}
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r) {
			return
		}
		lx.advance(size)
	}
}

// regexAllowed reports whether a slash at the current position begins a
// regular expression rather than a division.
func (lx *lexer) regexAllowed() bool {
	if len(lx.toks) == 0 {
		return true
	}
	prev := lx.toks[len(lx.toks)-1]
	switch prev.kind {
	case tokPunct:
		// Postfix ++ and -- end an operand. A closing brace usually ends a
		// block, after which a slash starts a regular expression.
		return prev.text != ")" && prev.text != "]" && prev.text != "++" && prev.text != "--"
	case tokIdent:
		return regexKeywords[prev.text]
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
