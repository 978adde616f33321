package clbench

import "fmt"

// syntax checks the statement and expression structure of one kernel body.
// Checking stops at the first error so a single slip does not cascade.
type syntax struct {
	toks []token
	pos  int
	end  token // closing brace of the body
	err  *diagnostic
}

// checkSyntax reports the first grammar error in body, which excludes the
// outer braces; closing is the brace that ends it.
func (b *builder) checkSyntax(body []token, closing token) {
	s := &syntax{toks: body, end: closing}
	for s.err == nil && s.pos < len(s.toks) {
		s.statement()
	}
	if s.err != nil {
		b.errorf(s.err.line, s.err.col, "%s", s.err.msg)
	}
}

func (s *syntax) peek() token { return s.peekAt(0) }

func (s *syntax) peekAt(off int) token {
	if s.pos+off < len(s.toks) {
		return s.toks[s.pos+off]
	}
	return token{kind: tokEOF, text: s.end.text, line: s.end.line, col: s.end.col}
}

func (s *syntax) fail(at token, format string, args ...any) {
	if s.err == nil {
		s.err = &diagnostic{line: at.line, col: at.col, severity: sevError, msg: fmt.Sprintf(format, args...)}
	}
}

// expect consumes text or reports it missing. A missing terminator is
// reported just past the previous token.
func (s *syntax) expect(text, where string) bool {
	if s.err != nil {
		return false
	}
	if s.peek().is(text) {
		s.pos++
		return true
	}
	msg := "expected '" + text + "'"
	if where != "" {
		msg += " " + where
	}
	at := s.peek()
	if (text == ";" || text == ")") && s.pos > 0 {
		prev := s.toks[s.pos-1]
		at = token{line: prev.line, col: prev.col + len(prev.text)}
	}
	s.fail(at, "%s", msg)
	return false
}

func isDeclStart(t token) bool {
	return t.kind == tokIdent && (typeNames[t.text] > 0 || qualifiers[t.text] ||
		addrSpaces[t.text] != "" || t.text == "static" || t.text == "void")
}

func (s *syntax) statement() {
	if s.err != nil {
		return
	}
	t := s.peek()
	switch {
	case t.is("{"):
		s.pos++
		for s.err == nil && !s.peek().is("}") {
			if s.peek().kind == tokEOF {
				s.fail(t, "'{' is never closed")
				return
			}
			s.statement()
		}
		s.pos++
	case t.is(";"):
		s.pos++
	case t.is("if"), t.is("while"), t.is("switch"):
		s.pos++
		s.condition(t.text)
		s.statement()
		if t.is("if") && s.err == nil && s.peek().is("else") {
			s.pos++
			s.statement()
		}
	case t.is("for"):
		s.forStatement()
	case t.is("do"):
		s.pos++
		s.statement()
		if s.err == nil && !s.peek().is("while") {
			s.fail(s.peek(), "expected 'while' in do/while loop")
			return
		}
		s.pos++
		s.condition("while")
		s.expect(";", "after do/while statement")
	case t.is("return"):
		s.pos++
		if !s.peek().is(";") {
			s.expression()
		}
		s.expect(";", "after return statement")
	case t.is("break"), t.is("continue"):
		s.pos++
		s.expect(";", "after '"+t.text+"'")
	case t.is("case"):
		s.pos++
		s.conditional()
		s.expect(":", "after 'case'")
	case t.is("default"):
		s.pos++
		s.expect(":", "after 'default'")
	case isDeclStart(t):
		s.declaration()
		s.expect(";", "at end of declaration")
	default:
		s.expression()
		s.expect(";", "after expression")
	}
}

func (s *syntax) condition(keyword string) {
	if !s.expect("(", "after '"+keyword+"'") {
		return
	}
	s.expression()
	s.expect(")", "")
}

func (s *syntax) forStatement() {
	s.pos++
	if !s.expect("(", "after 'for'") {
		return
	}
	switch {
	case s.peek().is(";"):
	case isDeclStart(s.peek()):
		s.declaration()
	default:
		s.expression()
	}
	s.expect(";", "in 'for' statement specifier")
	if s.err == nil && !s.peek().is(";") {
		s.expression()
	}
	s.expect(";", "in 'for' statement specifier")
	if s.err == nil && !s.peek().is(")") {
		s.expression()
	}
	s.expect(")", "")
	s.statement()
}

func (s *syntax) declaration() {
	for isDeclStart(s.peek()) {
		s.pos++
	}
	for s.err == nil {
		s.declarator()
		if s.err != nil || !s.peek().is(",") {
			return
		}
		s.pos++
	}
}

func (s *syntax) declarator() {
	for s.peek().is("*") || (s.peek().kind == tokIdent && qualifiers[s.peek().text]) {
		s.pos++
	}
	t := s.peek()
	if t.kind != tokIdent || keywords[t.text] || isDeclStart(t) {
		s.fail(t, "expected identifier")
		return
	}
	s.pos++
	for s.err == nil && s.peek().is("[") {
		s.pos++
		if !s.peek().is("]") {
			s.conditional()
		}
		s.expect("]", "")
	}
	if s.err == nil && s.peek().is("=") {
		s.pos++
		s.initializer()
	}
}

func (s *syntax) initializer() {
	if !s.peek().is("{") {
		s.assignment()
		return
	}
	open := s.peek()
	s.pos++
	for s.err == nil && !s.peek().is("}") {
		s.initializer()
		switch {
		case s.err != nil:
		case s.peek().is(","):
			s.pos++
		case !s.peek().is("}"):
			s.fail(s.peek(), "expected '}' to match '{' at %d:%d", open.line, open.col)
		}
	}
	s.pos++
}

func (s *syntax) expression() {
	s.assignment()
	for s.err == nil && s.peek().is(",") {
		s.pos++
		s.assignment()
	}
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
}

func (s *syntax) assignment() {
	s.conditional()
	if t := s.peek(); s.err == nil && t.kind == tokPunct && assignOps[t.text] {
		s.pos++
		s.assignment()
	}
}

func (s *syntax) conditional() {
	s.binary(1)
	if s.err == nil && s.peek().is("?") {
		s.pos++
		s.expression()
		s.expect(":", "in conditional expression")
		s.conditional()
	}
}

var binaryPrec = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6, "<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8, "+": 9, "-": 9, "*": 10, "/": 10, "%": 10,
}

// binary parses operators binding at least as tightly as minPrec.
func (s *syntax) binary(minPrec int) {
	s.unary()
	for s.err == nil {
		t := s.peek()
		prec := binaryPrec[t.text]
		if t.kind != tokPunct || prec == 0 || prec < minPrec {
			return
		}
		s.pos++
		s.binary(prec + 1)
	}
}

var unaryOps = map[string]bool{
	"++": true, "--": true, "+": true, "-": true, "!": true, "~": true, "*": true, "&": true,
}

func (s *syntax) unary() {
	if s.err != nil {
		return
	}
	t := s.peek()
	switch {
	case t.kind == tokPunct && unaryOps[t.text]:
		s.pos++
		s.unary()
	case t.is("sizeof"):
		s.pos++
		if s.peek().is("(") && isDeclStart(s.peekAt(1)) {
			s.pos++
			s.typeName()
			s.expect(")", "")
			return
		}
		s.unary()
	case t.is("(") && isDeclStart(s.peekAt(1)):
		// cast
		s.pos++
		s.typeName()
		s.expect(")", "")
		s.unary()
	default:
		s.postfix()
	}
}

func (s *syntax) typeName() {
	for isDeclStart(s.peek()) {
		s.pos++
	}
	for s.peek().is("*") {
		s.pos++
	}
}

func (s *syntax) postfix() {
	s.primary()
	for s.err == nil {
		t := s.peek()
		switch {
		case t.is("["):
			s.pos++
			s.expression()
			s.expect("]", "")
		case t.is("("):
			s.pos++
			if !s.peek().is(")") {
				s.assignment()
				for s.err == nil && s.peek().is(",") {
					s.pos++
					s.assignment()
				}
			}
			s.expect(")", "")
		case t.is(".") || t.is("->"):
			s.pos++
			if s.peek().kind != tokIdent {
				s.fail(s.peek(), "expected member name after '%s'", t.text)
				return
			}
			s.pos++
		case t.is("++") || t.is("--"):
			s.pos++
		default:
			return
		}
	}
}

func (s *syntax) primary() {
	t := s.peek()
	switch {
	case t.kind == tokNumber || t.kind == tokString:
		s.pos++
	case t.kind == tokIdent && !keywords[t.text] && !isDeclStart(t):
		s.pos++
	case t.is("("):
		s.pos++
		s.expression()
		s.expect(")", "")
	default:
		s.fail(t, "expected expression")
	}
}
