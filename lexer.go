package clbench

import (
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokPunct
	tokString
	tokDirective // a whole preprocessor line, without the '#'
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) is(text string) bool {
	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == text
}

// Longest punctuators first so greedy matching works.
var punctuators = []string{
	"<<=", ">>=",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"{", "}", "[", "]", "(", ")", ";", ",", ".", "<", ">", "+", "-",
	"*", "/", "%", "&", "|", "^", "!", "~", "?", ":", "=",
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
	bol  bool // only whitespace seen since the last newline

	toks  []token
	diags []diagnostic
}

// lex splits kernel source into tokens. Lexical errors are reported as
// diagnostics; lexing continues past them.
func lex(src string) ([]token, []diagnostic) {
	lx := &lexer{src: src, line: 1, col: 1, bol: true}
	lx.run()
	lx.toks = append(lx.toks, token{kind: tokEOF, line: lx.line, col: lx.col})
	return lx.toks, lx.diags
}

func (lx *lexer) peek(off int) byte {
	if lx.pos+off < len(lx.src) {
		return lx.src[lx.pos+off]
	}
	return 0
}

func (lx *lexer) advance() {
	if lx.src[lx.pos] == '\n' {
		lx.line++
		lx.col = 1
		lx.bol = true
	} else {
		lx.col++
	}
	lx.pos++
}

func (lx *lexer) errorf(line, col int, msg string) {
	lx.diags = append(lx.diags, diagnostic{line: line, col: col, severity: sevError, msg: msg})
}

func (lx *lexer) run() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		line, col := lx.line, lx.col

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v':
			lx.advance()

		case c == '/' && lx.peek(1) == '/':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.advance()
			}

		case c == '/' && lx.peek(1) == '*':
			lx.advance()
			lx.advance()
			closed := false
			for lx.pos < len(lx.src) {
				if lx.src[lx.pos] == '*' && lx.peek(1) == '/' {
					lx.advance()
					lx.advance()
					closed = true
					break
				}
				lx.advance()
			}
			if !closed {
				lx.errorf(line, col, "unterminated /* comment")
			}

		case c == '#' && lx.bol:
			lx.directive(line, col)

		case isIdentStart(c):
			start := lx.pos
			for lx.pos < len(lx.src) && isIdentChar(lx.src[lx.pos]) {
				lx.advance()
			}
			lx.emit(tokIdent, lx.src[start:lx.pos], line, col)

		case isDigit(c) || (c == '.' && isDigit(lx.peek(1))):
			start := lx.pos
			for lx.pos < len(lx.src) {
				ch := lx.src[lx.pos]
				if isIdentChar(ch) || ch == '.' {
					lx.advance()
					continue
				}
				// exponent sign
				if (ch == '+' || ch == '-') && (lx.src[lx.pos-1] == 'e' || lx.src[lx.pos-1] == 'E') {
					lx.advance()
					continue
				}
				break
			}
			lx.emit(tokNumber, lx.src[start:lx.pos], line, col)

		case c == '"' || c == '\'':
			lx.quoted(c, line, col)

		default:
			matched := false
			for _, p := range punctuators {
				if strings.HasPrefix(lx.src[lx.pos:], p) {
					for range len(p) {
						lx.advance()
					}
					lx.emit(tokPunct, p, line, col)
					matched = true
					break
				}
			}
			if !matched {
				lx.errorf(line, col, "invalid character '"+string(c)+"' in source")
				lx.advance()
			}
		}
	}
}

func (lx *lexer) emit(kind tokenKind, text string, line, col int) {
	lx.toks = append(lx.toks, token{kind: kind, text: text, line: line, col: col})
	lx.bol = false
}

// directive consumes a preprocessor line, honouring backslash continuations.
func (lx *lexer) directive(line, col int) {
	lx.advance() // '#'
	var sb strings.Builder
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
		if lx.src[lx.pos] == '\\' && lx.peek(1) == '\n' {
			lx.advance()
			lx.advance()
			sb.WriteByte(' ')
			continue
		}
		if lx.src[lx.pos] == '/' && lx.peek(1) == '/' {
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.advance()
			}
			break
		}
		sb.WriteByte(lx.src[lx.pos])
		lx.advance()
	}
	lx.toks = append(lx.toks, token{kind: tokDirective, text: strings.TrimSpace(sb.String()), line: line, col: col})
	lx.bol = true
}

func (lx *lexer) quoted(q byte, line, col int) {
	start := lx.pos
	lx.advance()
	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]
		if ch == '\n' {
			break
		}
		if ch == '\\' && lx.pos+1 < len(lx.src) {
			lx.advance()
			lx.advance()
			continue
		}
		lx.advance()
		if ch == q {
			lx.emit(tokString, lx.src[start:lx.pos], line, col)
			return
		}
	}
	lx.errorf(line, col, "missing terminating "+string(q)+" character")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
