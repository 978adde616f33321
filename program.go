package clbench

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// BuildStatus is the state of a program build.
type BuildStatus int

const (
	BuildNone BuildStatus = iota
	BuildSuccess
	BuildFailed
)

func (s BuildStatus) String() string {
	switch s {
	case BuildNone:
		return "none"
	case BuildSuccess:
		return "success"
	case BuildFailed:
		return "error"
	default:
		return "unknown"
	}
}

// sourceName labels program source in build diagnostics.
const sourceName = "<source>"

// Program is kernel source text plus the result of building it for the
// context's device. Building checks the source and binds each kernel entry
// point to the device's implementation of it.
type Program struct {
	ctx    *Context
	source string

	mu        sync.Mutex
	status    BuildStatus
	options   string
	log       string
	constants map[string]int
	kernels   map[string]*kernelInfo
	order     []string

	released atomic.Bool
}

type kernelParam struct {
	addrSpace string // "global", "constant", "local", "private"
	baseType  string
	pointer   bool
	name      string
	line, col int
}

func (p kernelParam) typeString() string {
	var sb strings.Builder
	if p.pointer {
		sb.WriteString("__" + p.addrSpace + " ")
	}
	sb.WriteString(p.baseType)
	if p.pointer {
		sb.WriteByte('*')
	}
	return sb.String()
}

type kernelInfo struct {
	name        string
	line, col   int
	params      []kernelParam
	usesBarrier bool
	localBytes  int
	native      *nativeKernel
}

// CreateProgramWithSource creates an unbuilt program from source text.
func (c *Context) CreateProgramWithSource(source string) (*Program, error) {
	if err := c.checkLive("CreateProgramWithSource"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		return nil, NewInvalidArgError("CreateProgramWithSource", "empty program source")
	}
	c.retain()
	return &Program{ctx: c, source: source}, nil
}

// Build compiles the program with the given options. Supported options are
// "-D NAME[=VALUE]", "-DNAME[=VALUE]", "-Werror", "-w" and the "-cl-*"
// optimisation flags, which are accepted and ignored. On failure the
// returned error wraps a *BuildError holding the full log, which is also
// available from BuildLog.
func (p *Program) Build(options string) error {
	if p.released.Load() {
		return ErrReleased
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	b := newBuilder(p.ctx.device)
	b.parseOptions(options)
	kernels, order := b.compile(p.source)

	p.options = options
	p.log = b.finish()
	if b.errors > 0 {
		p.status = BuildFailed
		p.kernels = nil
		p.order = nil
		return NewCompileError("BuildProgram", fmt.Sprintf("%d error(s) generated", b.errors),
			&BuildError{Options: options, Log: p.log})
	}
	p.status = BuildSuccess
	p.kernels = kernels
	p.order = order
	p.constants = b.constants()
	return nil
}

// BuildLog returns the log of the most recent build.
func (p *Program) BuildLog() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log
}

// BuildStatus returns the state of the most recent build.
func (p *Program) BuildStatus() BuildStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// KernelNames returns the kernel entry points in source order.
func (p *Program) KernelNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.order)
}

// Constant returns the integer value of a macro defined for the build.
func (p *Program) Constant(name string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.constants[name]
	return v, ok
}

// Release destroys the program.
func (p *Program) Release() error {
	if !p.released.CompareAndSwap(false, true) {
		return ErrReleased
	}
	p.ctx.drop()
	return nil
}

// Diagnostics

type severity int

const (
	sevWarning severity = iota
	sevError
	sevNote
)

type diagnostic struct {
	line, col int
	severity  severity
	msg       string
}

func (d diagnostic) String() string {
	sev := "warning"
	switch d.severity {
	case sevError:
		sev = "error"
	case sevNote:
		sev = "note"
	}
	if d.line == 0 {
		return sev + ": " + d.msg
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", sourceName, d.line, d.col, sev, d.msg)
}

// builder holds the state of one build.
type builder struct {
	dev     *Device
	defines map[string]string
	cmdline map[string]bool // macros defined by -D
	werror  bool
	quiet   bool

	diags    []diagnostic
	errors   int
	warnings int
}

func newBuilder(dev *Device) *builder {
	return &builder{
		dev:     dev,
		defines: make(map[string]string),
		cmdline: make(map[string]bool),
	}
}

func (b *builder) errorf(line, col int, format string, args ...any) {
	b.diags = append(b.diags, diagnostic{line: line, col: col, severity: sevError, msg: fmt.Sprintf(format, args...)})
	b.errors++
}

func (b *builder) warnf(line, col int, format string, args ...any) {
	if b.werror {
		b.errorf(line, col, format, args...)
		return
	}
	if b.quiet {
		return
	}
	b.diags = append(b.diags, diagnostic{line: line, col: col, severity: sevWarning, msg: fmt.Sprintf(format, args...)})
	b.warnings++
}

// notef records a remark that counts as neither warning nor error.
func (b *builder) notef(line, col int, format string, args ...any) {
	if b.quiet {
		return
	}
	b.diags = append(b.diags, diagnostic{line: line, col: col, severity: sevNote, msg: fmt.Sprintf(format, args...)})
}

func (b *builder) add(ds []diagnostic) {
	for _, d := range ds {
		if d.severity == sevError {
			b.errorf(d.line, d.col, "%s", d.msg)
		} else {
			b.warnf(d.line, d.col, "%s", d.msg)
		}
	}
}

// finish renders the build log.
func (b *builder) finish() string {
	var sb strings.Builder
	for _, d := range b.diags {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	switch {
	case b.errors > 0:
		fmt.Fprintf(&sb, "%d error(s) generated.\n", b.errors)
	case b.warnings > 0:
		fmt.Fprintf(&sb, "%d warning(s) generated.\n", b.warnings)
	}
	return sb.String()
}

func (b *builder) parseOptions(options string) {
	fields := strings.Fields(options)
	for i := 0; i < len(fields); i++ {
		opt := fields[i]
		switch {
		case opt == "-D":
			if i+1 >= len(fields) {
				b.errorf(0, 0, "macro name missing after '-D'")
				continue
			}
			i++
			b.defineFromOption(fields[i])
		case strings.HasPrefix(opt, "-D"):
			b.defineFromOption(opt[2:])
		case opt == "-Werror":
			b.werror = true
		case opt == "-w":
			b.quiet = true
		case strings.HasPrefix(opt, "-cl-"):
		default:
			b.errorf(0, 0, "unrecognized build option '%s'", opt)
		}
	}
}

func (b *builder) defineFromOption(def string) {
	name, value, hasValue := strings.Cut(def, "=")
	if !isIdentifier(name) {
		b.errorf(0, 0, "macro name '%s' must be an identifier", name)
		return
	}
	if !hasValue {
		value = "1"
	}
	b.defines[name] = value
	b.cmdline[name] = true
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// compile runs every front-end pass over src.
func (b *builder) compile(src string) (map[string]*kernelInfo, []string) {
	toks, ds := lex(src)
	b.add(ds)
	toks = b.preprocess(toks)
	b.checkBrackets(toks)
	if b.errors > 0 {
		return nil, nil
	}

	kernels, order := b.parseKernels(toks)
	if b.errors == 0 && len(order) == 0 {
		b.errorf(0, 0, "no kernel functions found in program")
	}
	for _, name := range order {
		b.bind(kernels[name])
	}
	return kernels, order
}

type condFrame struct {
	active   bool // this branch is taken
	outer    bool // enclosing region is active
	seenElse bool
	line     int
}

// preprocess applies conditional directives and #define/#undef, returning
// the tokens of the active regions without directives.
func (b *builder) preprocess(toks []token) []token {
	var (
		out   []token
		stack []condFrame
	)
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}

	for _, t := range toks {
		if t.kind != tokDirective {
			if active() || t.kind == tokEOF {
				out = append(out, t)
			}
			continue
		}

		name, rest, _ := strings.Cut(t.text, " ")
		rest = strings.TrimSpace(rest)
		switch name {
		case "ifdef", "ifndef":
			_, defined := b.defines[rest]
			taken := defined == (name == "ifdef")
			outer := active()
			stack = append(stack, condFrame{active: outer && taken, outer: outer, line: t.line})
		case "else":
			if len(stack) == 0 {
				b.errorf(t.line, t.col, "#else without #if")
				continue
			}
			top := &stack[len(stack)-1]
			if top.seenElse {
				b.errorf(t.line, t.col, "#else after #else")
				continue
			}
			top.seenElse = true
			top.active = top.outer && !top.active
		case "endif":
			if len(stack) == 0 {
				b.errorf(t.line, t.col, "#endif without #if")
				continue
			}
			stack = stack[:len(stack)-1]
		default:
			if !active() {
				continue
			}
			b.directive(t, name, rest)
		}
	}
	for _, f := range stack {
		b.errorf(f.line, 1, "unterminated conditional directive")
	}
	return out
}

func (b *builder) directive(t token, name, rest string) {
	switch name {
	case "define":
		macro := rest
		value := ""
		if i := strings.IndexAny(rest, " \t("); i >= 0 {
			macro, value = rest[:i], strings.TrimSpace(rest[i:])
		}
		if !isIdentifier(macro) {
			b.errorf(t.line, t.col, "macro name must be an identifier")
			return
		}
		if b.cmdline[macro] {
			b.warnf(t.line, t.col, "'%s' macro redefined", macro)
			b.cmdline[macro] = false
		}
		b.defines[macro] = value
	case "undef":
		delete(b.defines, rest)
		delete(b.cmdline, rest)
	case "pragma":
	case "error":
		b.errorf(t.line, t.col, "#error %s", rest)
	case "include":
		b.errorf(t.line, t.col, "%s file not found", rest)
	case "":
		// null directive
	default:
		b.errorf(t.line, t.col, "unsupported preprocessing directive '#%s'", name)
	}
}

var closers = map[string]string{"(": ")", "[": "]", "{": "}"}

func (b *builder) checkBrackets(toks []token) {
	var stack []token
	for _, t := range toks {
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			stack = append(stack, t)
		case ")", "]", "}":
			if len(stack) == 0 {
				b.errorf(t.line, t.col, "extraneous closing '%s'", t.text)
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if want := closers[open.text]; want != t.text {
				b.errorf(t.line, t.col, "expected '%s' to match '%s' at %d:%d", want, open.text, open.line, open.col)
				return
			}
		}
	}
	for _, open := range stack {
		b.errorf(open.line, open.col, "'%s' is never closed; expected '%s' at end of input", open.text, closers[open.text])
	}
}

// matching returns the index of the bracket closing toks[i].
func matching(toks []token, i int) int {
	open := toks[i].text
	closeText := closers[open]
	depth := 0
	for j := i; j < len(toks); j++ {
		switch {
		case toks[j].kind != tokPunct:
		case toks[j].text == open:
			depth++
		case toks[j].text == closeText:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(toks) - 1
}

// parseKernels finds every "__kernel void name(params) { body }" at file
// scope.
func (b *builder) parseKernels(toks []token) (map[string]*kernelInfo, []string) {
	kernels := make(map[string]*kernelInfo)
	var order []string
	at := func(k int) token {
		if k < len(toks) {
			return toks[k]
		}
		return toks[len(toks)-1]
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.is("{") {
			i = matching(toks, i)
			continue
		}
		if !t.is("__kernel") && !t.is("kernel") {
			continue
		}

		j := i + 1
		for at(j).is("__attribute__") {
			if at(j + 1).is("(") {
				j = matching(toks, j+1) + 1
			} else {
				j++
			}
		}
		if !at(j).is("void") {
			b.errorf(at(j).line, at(j).col, "kernel functions must have void return type")
			i = j
			continue
		}
		nameTok := at(j + 1)
		if nameTok.kind != tokIdent || !at(j + 2).is("(") {
			b.errorf(nameTok.line, nameTok.col, "expected kernel function name")
			i = j
			continue
		}
		paramsEnd := matching(toks, j+2)
		params := b.parseParams(nameTok.text, toks[j+3:paramsEnd])

		next := at(paramsEnd + 1)
		if next.is(";") {
			i = paramsEnd + 1
			continue
		}
		if !next.is("{") {
			b.errorf(next.line, next.col, "expected function body after kernel '%s' declarator", nameTok.text)
			i = paramsEnd
			continue
		}
		bodyEnd := matching(toks, paramsEnd+1)

		if _, dup := kernels[nameTok.text]; dup {
			b.errorf(nameTok.line, nameTok.col, "redefinition of '%s'", nameTok.text)
		} else {
			info := &kernelInfo{name: nameTok.text, line: nameTok.line, col: nameTok.col, params: params}
			b.analyzeBody(info, toks[paramsEnd+2:bodyEnd])
			b.checkSyntax(toks[paramsEnd+2:bodyEnd], toks[bodyEnd])
			kernels[info.name] = info
			order = append(order, info.name)
		}
		i = bodyEnd
	}
	return kernels, order
}

var (
	addrSpaces = map[string]string{
		"__global": "global", "global": "global",
		"__constant": "constant", "constant": "constant",
		"__local": "local", "local": "local",
		"__private": "private", "private": "private",
	}
	qualifiers = map[string]bool{
		"const": true, "restrict": true, "__restrict": true, "volatile": true,
		"unsigned": true, "signed": true,
	}
	typeNames = map[string]int{ // element size in bytes
		"bool": 1, "char": 1, "uchar": 1, "short": 2, "ushort": 2,
		"int": 4, "uint": 4, "long": 8, "ulong": 8, "size_t": 8,
		"half": 2, "float": 4, "double": 8,
		"float2": 8, "float4": 16, "float8": 32, "float16": 64,
		"int2": 8, "int4": 16,
	}
)

func (b *builder) parseParams(kernel string, toks []token) []kernelParam {
	if len(toks) == 0 || (len(toks) == 1 && toks[0].is("void")) {
		return nil
	}
	var params []kernelParam
	start := 0
	depth := 0
	for i := 0; i <= len(toks); i++ {
		if i < len(toks) {
			switch {
			case toks[i].is("(") || toks[i].is("["):
				depth++
				continue
			case toks[i].is(")") || toks[i].is("]"):
				depth--
				continue
			case !toks[i].is(",") || depth > 0:
				continue
			}
		}
		if p, ok := b.parseParam(kernel, toks[start:i]); ok {
			params = append(params, p)
		}
		start = i + 1
	}
	return params
}

func (b *builder) parseParam(kernel string, toks []token) (kernelParam, bool) {
	if len(toks) == 0 {
		b.errorf(0, 0, "kernel '%s': empty parameter declaration", kernel)
		return kernelParam{}, false
	}
	p := kernelParam{addrSpace: "private", line: toks[0].line, col: toks[0].col}
	for i, t := range toks {
		switch {
		case t.is("*"):
			p.pointer = true
		case t.kind != tokIdent:
			b.errorf(t.line, t.col, "unexpected '%s' in parameter declaration", t.text)
			return p, false
		case addrSpaces[t.text] != "":
			p.addrSpace = addrSpaces[t.text]
		case qualifiers[t.text]:
		case typeNames[t.text] > 0 && p.baseType == "":
			p.baseType = t.text
		case i == len(toks)-1 && p.baseType != "":
			p.name = t.text
		default:
			b.errorf(t.line, t.col, "unknown type name '%s'", t.text)
			return p, false
		}
	}
	if p.baseType == "" {
		b.errorf(p.line, p.col, "kernel '%s': parameter is missing a type", kernel)
		return p, false
	}
	if p.pointer && p.addrSpace == "private" {
		b.errorf(p.line, p.col, "kernel '%s': pointer parameter '%s' must be declared __global, __constant or __local", kernel, p.name)
		return p, false
	}
	return p, true
}

var builtins = map[string]bool{
	"get_global_id": true, "get_local_id": true, "get_group_id": true,
	"get_global_size": true, "get_local_size": true, "get_num_groups": true,
	"get_work_dim": true, "get_global_offset": true,
	"barrier": true, "work_group_barrier": true, "mem_fence": true,
	"CLK_LOCAL_MEM_FENCE": true, "CLK_GLOBAL_MEM_FENCE": true,
	"mad": true, "fma": true, "min": true, "max": true, "clamp": true,
	"fabs": true, "sqrt": true, "exp": true, "log": true,
	"native_exp": true, "native_sqrt": true, "printf": true,
	"true": true, "false": true, "NULL": true,
}

var keywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"return": true, "break": true, "continue": true, "switch": true,
	"case": true, "default": true, "sizeof": true, "goto": true,
	"struct": true, "void": true, "static": true, "inline": true,
	"__attribute__": true,
}

// analyzeBody records barrier use and local memory, checks that every
// identifier is declared and that array sizes are integer constants.
func (b *builder) analyzeBody(info *kernelInfo, body []token) {
	declared := make(map[string]bool)
	for _, p := range info.params {
		declared[p.name] = true
	}

	// Pass 1: declarations
	inDecl := false
	parenDepth, declDepth := 0, 0
	for i, t := range body {
		switch {
		case t.is("("):
			parenDepth++
		case t.is(")"):
			parenDepth--
			if parenDepth < declDepth {
				inDecl = false
			}
		case t.is(";") || t.is("{") || t.is("}"):
			inDecl = false
		case t.kind == tokIdent && typeNames[t.text] > 0:
			inDecl = true
			declDepth = parenDepth
			if i+1 < len(body) && body[i+1].kind == tokIdent {
				declared[body[i+1].text] = true
			}
		case t.is("*") && inDecl && i > 0 && body[i-1].kind == tokIdent && typeNames[body[i-1].text] > 0:
			if i+1 < len(body) && body[i+1].kind == tokIdent {
				declared[body[i+1].text] = true
			}
		case t.is(",") && inDecl && parenDepth == declDepth:
			if i+1 < len(body) && body[i+1].kind == tokIdent {
				declared[body[i+1].text] = true
			}
		}
	}

	// Pass 2: uses, arrays, barriers
	for i, t := range body {
		if t.kind != tokIdent {
			continue
		}
		if i > 0 && (body[i-1].is(".") || body[i-1].is("->")) {
			continue
		}
		name := t.text
		next := token{}
		if i+1 < len(body) {
			next = body[i+1]
		}

		if (name == "barrier" || name == "work_group_barrier") && next.is("(") {
			info.usesBarrier = true
		}

		if size := typeNames[name]; size > 0 && next.kind == tokIdent && i+2 < len(body) && body[i+2].is("[") {
			elems, ok := b.arrayElems(info.name, body[i+2:])
			if ok && b.isLocalDecl(body, i) {
				info.localBytes += elems * size
			}
			continue
		}

		if declared[name] || builtins[name] || keywords[name] || typeNames[name] > 0 ||
			addrSpaces[name] != "" || qualifiers[name] {
			continue
		}
		if _, ok := b.defines[name]; ok {
			continue
		}
		b.errorf(t.line, t.col, "use of undeclared identifier '%s'", name)
		declared[name] = true // report once
	}
}

// isLocalDecl reports whether the declaration whose type keyword is at i
// carries a __local qualifier.
func (b *builder) isLocalDecl(body []token, i int) bool {
	for j := i - 1; j >= 0; j-- {
		t := body[j]
		if t.kind != tokIdent {
			return false
		}
		if addrSpaces[t.text] == "local" {
			return true
		}
		if !qualifiers[t.text] && addrSpaces[t.text] == "" {
			return false
		}
	}
	return false
}

// arrayElems evaluates the bracketed dimensions starting at toks[0] and
// returns the total element count.
func (b *builder) arrayElems(kernel string, toks []token) (int, bool) {
	total := 1
	ok := true
	for i := 0; i < len(toks) && toks[i].is("["); {
		end := matching(toks, i)
		n, err := b.evalConst(toks[i+1:end], 0)
		if err != nil {
			b.errorf(toks[i].line, toks[i].col, "kernel '%s': array size %s", kernel, err)
			ok = false
		} else if n <= 0 {
			b.errorf(toks[i].line, toks[i].col, "kernel '%s': array size must be positive, got %d", kernel, n)
			ok = false
		} else {
			total *= n
		}
		i = end + 1
	}
	return total, ok
}

const maxMacroDepth = 16

// evalConst evaluates an integer constant expression over literals and
// macros with + - * / % and parentheses.
func (b *builder) evalConst(toks []token, depth int) (int, error) {
	if depth > maxMacroDepth {
		return 0, fmt.Errorf("is not an integer constant: macro expansion too deep")
	}
	e := &constExpr{b: b, toks: toks, depth: depth}
	v, err := e.expr()
	if err != nil {
		return 0, err
	}
	if e.pos != len(e.toks) {
		return 0, fmt.Errorf("is not an integer constant: unexpected '%s'", e.toks[e.pos].text)
	}
	return v, nil
}

type constExpr struct {
	b     *builder
	toks  []token
	pos   int
	depth int
}

func (e *constExpr) expr() (int, error) {
	v, err := e.term()
	if err != nil {
		return 0, err
	}
	for e.pos < len(e.toks) && (e.toks[e.pos].is("+") || e.toks[e.pos].is("-")) {
		op := e.toks[e.pos].text
		e.pos++
		r, err := e.term()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			v += r
		} else {
			v -= r
		}
	}
	return v, nil
}

func (e *constExpr) term() (int, error) {
	v, err := e.factor()
	if err != nil {
		return 0, err
	}
	for e.pos < len(e.toks) && (e.toks[e.pos].is("*") || e.toks[e.pos].is("/") || e.toks[e.pos].is("%")) {
		op := e.toks[e.pos].text
		e.pos++
		r, err := e.factor()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*":
			v *= r
		case "/", "%":
			if r == 0 {
				return 0, fmt.Errorf("divides by zero")
			}
			if op == "/" {
				v /= r
			} else {
				v %= r
			}
		}
	}
	return v, nil
}

func (e *constExpr) factor() (int, error) {
	if e.pos >= len(e.toks) {
		return 0, fmt.Errorf("is not an integer constant: expression is empty")
	}
	t := e.toks[e.pos]
	e.pos++
	switch {
	case t.is("("):
		v, err := e.expr()
		if err != nil {
			return 0, err
		}
		if e.pos >= len(e.toks) || !e.toks[e.pos].is(")") {
			return 0, fmt.Errorf("is not an integer constant: expected ')'")
		}
		e.pos++
		return v, nil
	case t.is("-"):
		v, err := e.factor()
		return -v, err
	case t.kind == tokNumber:
		v, err := strconv.ParseInt(strings.TrimRight(t.text, "uUlL"), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("is not an integer constant: '%s'", t.text)
		}
		return int(v), nil
	case t.kind == tokIdent:
		value, ok := e.b.defines[t.text]
		if !ok {
			return 0, fmt.Errorf("uses undeclared identifier '%s'", t.text)
		}
		mt, ds := lex(value)
		if len(ds) > 0 {
			return 0, fmt.Errorf("is not an integer constant: macro '%s' is malformed", t.text)
		}
		return e.b.evalConst(mt[:len(mt)-1], e.depth+1)
	}
	return 0, fmt.Errorf("is not an integer constant: unexpected '%s'", t.text)
}

// bind attaches the device implementation to a kernel and checks that the
// source declaration and build constants fit it.
func (b *builder) bind(info *kernelInfo) {
	nk, ok := nativeKernels[info.name]
	if !ok {
		b.warnf(info.line, info.col, "kernel '%s' has no implementation on device '%s' and cannot be enqueued",
			info.name, b.dev.Name)
		return
	}

	if len(info.params) != len(nk.params) {
		b.errorf(info.line, info.col, "kernel '%s' declares %d parameters, the device implementation takes %d",
			info.name, len(info.params), len(nk.params))
		return
	}
	for i, want := range nk.params {
		got := info.params[i]
		if got.pointer != want.pointer || got.baseType != want.baseType ||
			(want.pointer && got.addrSpace != want.addrSpace) {
			b.errorf(got.line, got.col, "kernel '%s': parameter %d ('%s') has type '%s', expected '%s'",
				info.name, i, got.name, got.typeString(), want.typeString())
		}
	}

	consts := make(map[string]int, len(nk.constants))
	for _, name := range nk.constants {
		v, err := b.constant(name)
		if err != nil {
			b.errorf(info.line, info.col, "kernel '%s' requires compile-time constant %s (pass -D %s=<n>): %v",
				info.name, name, name, err)
			continue
		}
		consts[name] = v
	}
	if ts, wpt := consts["TS"], consts["WPT"]; ts > 0 && wpt > 0 && ts%wpt != 0 {
		b.errorf(info.line, info.col, "kernel '%s': TS (%d) must be a multiple of WPT (%d)", info.name, ts, wpt)
	}
	if ts := consts["TS"]; ts > 0 && nk.localFloats != nil && nk.localFloats(ts)*4 > b.dev.LocalMemSize {
		b.errorf(info.line, info.col, "kernel '%s': TS=%d needs %d bytes of local memory, device has %d",
			info.name, ts, nk.localFloats(ts)*4, b.dev.LocalMemSize)
	}

	if info.localBytes > b.dev.LocalMemSize {
		b.errorf(info.line, info.col, "kernel '%s' uses %d bytes of local memory, device limit is %d",
			info.name, info.localBytes, b.dev.LocalMemSize)
	}
	if info.localBytes > 0 && !info.usesBarrier {
		b.warnf(info.line, info.col, "kernel '%s' uses local memory but never calls barrier()", info.name)
	}
	info.native = nk
	b.notef(info.line, info.col, "kernel '%s' runs the built-in implementation of device '%s'; its body is checked but not executed",
		info.name, b.dev.Name)
}

// constant evaluates macro name as a positive integer.
func (b *builder) constant(name string) (int, error) {
	value, ok := b.defines[name]
	if !ok {
		return 0, fmt.Errorf("not defined")
	}
	toks, ds := lex(value)
	if len(ds) > 0 {
		return 0, fmt.Errorf("malformed value %q", value)
	}
	v, err := b.evalConst(toks[:len(toks)-1], 0)
	if err != nil {
		return 0, fmt.Errorf("value %q %v", value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("value %d is not positive", v)
	}
	return v, nil
}

// constants returns every macro that evaluates to a positive integer.
func (b *builder) constants() map[string]int {
	out := make(map[string]int)
	for name := range b.defines {
		if v, err := b.constant(name); err == nil {
			out[name] = v
		}
	}
	return out
}
