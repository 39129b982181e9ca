// Copyright (c) 2026, the sh authors
// See LICENSE for licensing information

// Package syntax implements parsing of POSIX and Bash shell scripts
// into a typed syntax tree.
//
// The parser assigns structure to text; it never executes, expands or
// evaluates anything. The produced tree carries no source positions.
package syntax

import (
	"fmt"
	"strconv"
	"strings"
)

// LangVariant describes a shell language variant.
type LangVariant int

const (
	// LangBash is the GNU Bash language, the default.
	LangBash LangVariant = iota
	// LangPOSIX is the POSIX Shell Command Language.
	LangPOSIX
	// LangMirBSDKorn is the MirBSD Korn Shell language.
	LangMirBSDKorn
	// LangZsh is the Z Shell language.
	LangZsh
)

func (l LangVariant) String() string {
	switch l {
	case LangBash:
		return "bash"
	case LangPOSIX:
		return "posix"
	case LangMirBSDKorn:
		return "mksh"
	case LangZsh:
		return "zsh"
	}
	return "unknown shell language variant"
}

// ParserOption is a function which can be passed to NewParser to alter
// its behaviour.
type ParserOption func(*Parser)

// KeepComments makes the parser retain comments in the program's
// comment list, in encounter order.
func KeepComments(enabled bool) ParserOption {
	return func(p *Parser) { p.keepComments = enabled }
}

// Variant records the shell language variant to parse. It is accepted
// and stored, reserved for dialect switching; the parser currently
// implements a Bash-leaning superset regardless of the variant.
func Variant(l LangVariant) ParserOption {
	return func(p *Parser) { p.lang = l }
}

// Parser holds the parsing configuration. A Parser carries no state
// across calls, so a single Parser may be used concurrently for
// independent inputs.
type Parser struct {
	lang         LangVariant
	keepComments bool
}

// NewParser allocates a new Parser with the given options.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads and parses a whole shell program. It returns the parsed
// program if no issues were encountered; otherwise a *ParseError. The
// first error found aborts the parse; there is no recovery and no
// partial tree.
func (p *Parser) Parse(src string) (*File, error) {
	toks, err := tokenize(src, p.keepComments)
	if err != nil {
		return nil, err
	}
	pr := &parser{lang: p.lang}
	pr.toks = pr.takeComments(toks)
	stmts, err := pr.stmtList(nil)
	if err != nil {
		return nil, err
	}
	f := &File{Stmts: stmts}
	if p.keepComments && len(pr.comments) > 0 {
		f.Comments = pr.comments
	}
	return f, nil
}

// Parse is a convenience shortcut for NewParser().Parse(src).
func Parse(src string) (*File, error) {
	return NewParser().Parse(src)
}

// ParseError represents an error found when parsing a source file. All
// errors are fatal; the parser surfaces the first one in source order.
type ParseError struct {
	Text string
}

func (e *ParseError) Error() string { return e.Text }

type parser struct {
	toks []token
	pos  int
	lang LangVariant

	comments []Comment

	// redirects whose heredoc bodies have not arrived yet, in the
	// order the heredocs were introduced
	pendingHdocs []*Redirect
}

// takeComments strips comment tokens out of the stream, recording them
// in encounter order. Comments carry no structural role, so removing
// them up front lets them appear between statements, between clause
// arguments and within array expressions alike.
func (p *parser) takeComments(toks []token) []token {
	kept := toks[:0]
	for _, t := range toks {
		if t.kind == _Comment {
			p.comments = append(p.comments, Comment{Text: t.val})
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func (p *parser) eof() bool { return p.pos >= len(p.toks) }

func (p *parser) peek(n int) *token {
	if i := p.pos + n; i < len(p.toks) {
		return &p.toks[i]
	}
	return nil
}

func (p *parser) peekOp(val string) bool {
	t := p.peek(0)
	return t != nil && t.kind == _Op && t.val == val
}

func (p *parser) peekOpAt(n int, val string) bool {
	t := p.peek(n)
	return t != nil && t.kind == _Op && t.val == val
}

func (p *parser) gotOp(val string) bool {
	if p.peekOp(val) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) peekSym(val string) bool {
	t := p.peek(0)
	return t != nil && t.kind == _Symbol && t.val == val
}

func (p *parser) gotSym(val string) bool {
	if p.peekSym(val) {
		p.pos++
		return true
	}
	return false
}

// kwText returns the token's literal text when the token could be a
// keyword: a word with a single unquoted literal part. Quoted versions
// of keywords are ordinary words.
func kwText(t *token) string {
	if t == nil || t.kind != _Word || len(t.parts) != 1 {
		return ""
	}
	lit, ok := t.parts[0].(*Lit)
	if !ok {
		return ""
	}
	return lit.Value
}

func (p *parser) peekKw(vals ...string) string {
	got := kwText(p.peek(0))
	for _, v := range vals {
		if got == v {
			return v
		}
	}
	return ""
}

func (p *parser) gotKw(val string) bool {
	if p.peekKw(val) != "" {
		p.pos++
		return true
	}
	return false
}

func (p *parser) kwEnd(vals ...string) func() bool {
	return func() bool { return p.peekKw(vals...) != "" }
}

func (p *parser) symEnd(val string) func() bool {
	return func() bool { return p.peekSym(val) }
}

func joinOr(xs []string) string {
	switch len(xs) {
	case 0:
		return ""
	case 1:
		return xs[0]
	}
	return strings.Join(xs[:len(xs)-1], ", ") + " or " + xs[len(xs)-1]
}

func (p *parser) unexpectedEOF(wants ...string) error {
	qs := make([]string, len(wants))
	for i, w := range wants {
		qs[i] = strconv.Quote(w)
	}
	return &ParseError{Text: "unexpected end of input, expected " + joinOr(qs)}
}

func (p *parser) unexpectedTok() error {
	t := p.peek(0)
	if t == nil {
		return &ParseError{Text: "unexpected end of input"}
	}
	return &ParseError{Text: fmt.Sprintf("unexpected token: %s", t.text())}
}

func (p *parser) errExpectedCommand() error {
	return &ParseError{Text: "expected a command"}
}

func (p *parser) expectKw(val string) error {
	if p.gotKw(val) {
		return nil
	}
	if p.eof() {
		return p.unexpectedEOF(val)
	}
	return &ParseError{Text: fmt.Sprintf("expected %q", val)}
}

func (p *parser) expectSym(val string) error {
	if p.gotSym(val) {
		return nil
	}
	if p.eof() {
		return p.unexpectedEOF(val)
	}
	return &ParseError{Text: fmt.Sprintf("expected %q", val)}
}

// attachHdoc pairs a heredoc body token with the oldest redirect still
// waiting for one.
func (p *parser) attachHdoc(t *token) error {
	if len(p.pendingHdocs) == 0 {
		return p.unexpectedTok()
	}
	r := p.pendingHdocs[0]
	p.pendingHdocs = p.pendingHdocs[1:]
	r.Hdoc = &Word{Parts: []WordPart{&Lit{Value: t.val}}}
	return nil
}

// seps consumes statement separators and any heredoc bodies delivered
// alongside them.
func (p *parser) seps() error {
	for !p.eof() {
		t := p.peek(0)
		switch {
		case t.kind == _Op && t.val == ";":
			p.pos++
		case t.kind == _HdocBody:
			if err := p.attachHdoc(t); err != nil {
				return err
			}
			p.pos++
		default:
			return nil
		}
	}
	return nil
}

// caseSeps is like seps, but leaves a ";;" pair alone so that a case
// item body can see its terminator.
func (p *parser) caseSeps() error {
	for !p.eof() {
		t := p.peek(0)
		switch {
		case t.kind == _Op && t.val == ";" && !p.peekOpAt(1, ";"):
			p.pos++
		case t.kind == _HdocBody:
			if err := p.attachHdoc(t); err != nil {
				return err
			}
			p.pos++
		default:
			return nil
		}
	}
	return nil
}

// stmtList parses statements until isEnd reports the list's
// terminator. A nil isEnd parses until the end of input; any other
// leftover token is an error. The wants name the expected terminators
// for the unexpected-end-of-input message.
func (p *parser) stmtList(isEnd func() bool, wants ...string) ([]*Stmt, error) {
	var stmts []*Stmt
	for {
		if err := p.seps(); err != nil {
			return nil, err
		}
		if p.eof() {
			if isEnd == nil {
				return stmts, nil
			}
			return nil, p.unexpectedEOF(wants...)
		}
		if isEnd != nil && isEnd() {
			return stmts, nil
		}
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
		switch {
		case p.eof(), s.Background, p.peekOp(";"):
		case p.peek(0).kind == _HdocBody:
		case isEnd != nil && isEnd():
		default:
			return nil, p.unexpectedTok()
		}
	}
}

// stmtListNonEmpty is stmtList for the branch lists that must contain
// at least one statement, such as an if condition or a subshell.
func (p *parser) stmtListNonEmpty(isEnd func() bool, wants ...string) ([]*Stmt, error) {
	stmts, err := p.stmtList(isEnd, wants...)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return nil, p.errExpectedCommand()
	}
	return stmts, nil
}

func (p *parser) stmt() (*Stmt, error) {
	s := &Stmt{}
	if p.gotOp("!") {
		s.Negated = true
	}
	cmd, err := p.andOr()
	if err != nil {
		return nil, err
	}
	s.Cmd = cmd
	if p.gotOp("&") {
		s.Background = true
	}
	return s, nil
}

// nestedStmt parses the single statement owned by time and coproc
// clauses. Negation is allowed; background and logical chaining belong
// to the enclosing statement.
func (p *parser) nestedStmt() (*Stmt, error) {
	s := &Stmt{}
	if p.gotOp("!") {
		s.Negated = true
	}
	cmd, err := p.pipeline()
	if err != nil {
		return nil, err
	}
	s.Cmd = cmd
	return s, nil
}

func (p *parser) andOr() (Command, error) {
	cmd, err := p.pipeline()
	if err != nil {
		return nil, err
	}
	for {
		var op BinCmdOperator
		switch {
		case p.gotOp("&&"):
			op = AndStmt
		case p.gotOp("||"):
			op = OrStmt
		default:
			return cmd, nil
		}
		// newlines may follow the operator
		if err := p.seps(); err != nil {
			return nil, err
		}
		right, err := p.pipeline()
		if err != nil {
			return nil, err
		}
		cmd = &BinaryCmd{Op: op, X: &Stmt{Cmd: cmd}, Y: &Stmt{Cmd: right}}
	}
}

func (p *parser) pipeline() (Command, error) {
	cmd, err := p.command()
	if err != nil {
		return nil, err
	}
	if !p.peekOp("|") {
		return cmd, nil
	}
	stmts := []*Stmt{{Cmd: cmd}}
	for p.gotOp("|") {
		if err := p.seps(); err != nil {
			return nil, err
		}
		c, err := p.command()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, &Stmt{Cmd: c})
	}
	return &Pipeline{Stmts: stmts}, nil
}

func (p *parser) command() (Command, error) {
	t := p.peek(0)
	if t == nil {
		return nil, p.errExpectedCommand()
	}
	switch t.kind {
	case _ArithCmd:
		p.pos++
		return &ArithmCmd{Expr: t.val}, nil
	case _Symbol:
		switch t.val {
		case "(":
			return p.subshell()
		case "{":
			return p.block()
		}
		return nil, p.unexpectedTok()
	case _Op, _HdocBody:
		return nil, p.unexpectedTok()
	case _Redir:
		return p.callExpr()
	}
	switch kwText(t) {
	case "if":
		return p.ifClause()
	case "while":
		return p.whileClause(false)
	case "until":
		return p.whileClause(true)
	case "for":
		return p.forClause()
	case "select":
		return p.selectClause()
	case "case":
		return p.caseClause()
	case "time":
		return p.timeClause()
	case "coproc":
		return p.coprocClause()
	case "function":
		return p.funcDecl()
	case "let":
		return p.letClause()
	case "[[":
		return p.testClause()
	case "declare", "local", "export", "readonly", "typeset", "nameref":
		return p.declClause()
	case "then", "elif", "else", "fi", "do", "done", "esac", "]]":
		return nil, p.unexpectedTok()
	}
	if p.isShortFuncDecl() {
		return p.shortFuncDecl()
	}
	return p.callExpr()
}

// ifClause parses from an "if" or "elif" keyword through the shared
// "fi". Each elif materializes as an else branch holding a single
// nested if statement.
func (p *parser) ifClause() (Command, error) {
	p.pos++
	ic := &IfClause{}
	cond, err := p.stmtListNonEmpty(p.kwEnd("then"), "then")
	if err != nil {
		return nil, err
	}
	ic.Cond = cond
	if err := p.expectKw("then"); err != nil {
		return nil, err
	}
	then, err := p.stmtListNonEmpty(p.kwEnd("elif", "else", "fi"), "elif", "else", "fi")
	if err != nil {
		return nil, err
	}
	ic.Then = then
	switch {
	case p.peekKw("elif") != "":
		inner, err := p.ifClause()
		if err != nil {
			return nil, err
		}
		ic.Else = []*Stmt{{Cmd: inner}}
	case p.gotKw("else"):
		els, err := p.stmtListNonEmpty(p.kwEnd("fi"), "fi")
		if err != nil {
			return nil, err
		}
		ic.Else = els
		if err := p.expectKw("fi"); err != nil {
			return nil, err
		}
	default:
		if err := p.expectKw("fi"); err != nil {
			return nil, err
		}
	}
	return ic, nil
}

func (p *parser) whileClause(until bool) (Command, error) {
	p.pos++
	wc := &WhileClause{Until: until}
	cond, err := p.stmtListNonEmpty(p.kwEnd("do"), "do")
	if err != nil {
		return nil, err
	}
	wc.Cond = cond
	if err := p.expectKw("do"); err != nil {
		return nil, err
	}
	body, err := p.stmtListNonEmpty(p.kwEnd("done"), "done")
	if err != nil {
		return nil, err
	}
	wc.Do = body
	if err := p.expectKw("done"); err != nil {
		return nil, err
	}
	return wc, nil
}

func (p *parser) loopName() (*Lit, error) {
	t := p.peek(0)
	if t == nil {
		return nil, p.unexpectedEOF("do")
	}
	name := kwText(t)
	if !ValidName(name) {
		return nil, &ParseError{Text: "expected a name"}
	}
	p.pos++
	return &Lit{Value: name}, nil
}

// wordList consumes the word tokens of a for/select "in" list. The
// list runs until a separator; like the shells, that makes words such
// as "do" legal items.
func (p *parser) wordList() ([]*Word, error) {
	var items []*Word
	for !p.eof() && p.peek(0).kind == _Word {
		w, err := p.word()
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, nil
}

func (p *parser) forClause() (Command, error) {
	p.pos++
	if t := p.peek(0); t != nil && t.kind == _ArithCmd {
		p.pos++
		cl := &CStyleLoop{}
		exprs := strings.SplitN(t.val, ";", 3)
		if len(exprs) > 0 {
			cl.Init = strings.TrimSpace(exprs[0])
		}
		if len(exprs) > 1 {
			cl.Cond = strings.TrimSpace(exprs[1])
		}
		if len(exprs) > 2 {
			cl.Post = strings.TrimSpace(exprs[2])
		}
		body, err := p.loopBody()
		if err != nil {
			return nil, err
		}
		cl.Do = body
		return cl, nil
	}
	fc := &ForClause{}
	name, err := p.loopName()
	if err != nil {
		return nil, err
	}
	fc.Name = name
	if p.gotKw("in") {
		items, err := p.wordList()
		if err != nil {
			return nil, err
		}
		fc.Items = items
	}
	body, err := p.loopBody()
	if err != nil {
		return nil, err
	}
	fc.Do = body
	return fc, nil
}

func (p *parser) selectClause() (Command, error) {
	p.pos++
	sc := &SelectClause{}
	name, err := p.loopName()
	if err != nil {
		return nil, err
	}
	sc.Name = name
	if p.gotKw("in") {
		items, err := p.wordList()
		if err != nil {
			return nil, err
		}
		sc.Items = items
	}
	body, err := p.loopBody()
	if err != nil {
		return nil, err
	}
	sc.Do = body
	return sc, nil
}

func (p *parser) loopBody() ([]*Stmt, error) {
	if err := p.seps(); err != nil {
		return nil, err
	}
	if err := p.expectKw("do"); err != nil {
		return nil, err
	}
	body, err := p.stmtListNonEmpty(p.kwEnd("done"), "done")
	if err != nil {
		return nil, err
	}
	if err := p.expectKw("done"); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *parser) caseClause() (Command, error) {
	p.pos++
	t := p.peek(0)
	if t == nil {
		return nil, p.unexpectedEOF("in")
	}
	if t.kind != _Word {
		return nil, &ParseError{Text: "expected a word"}
	}
	w, err := p.word()
	if err != nil {
		return nil, err
	}
	cc := &CaseClause{Word: w}
	if err := p.seps(); err != nil {
		return nil, err
	}
	if err := p.expectKw("in"); err != nil {
		return nil, err
	}
	for {
		if err := p.seps(); err != nil {
			return nil, err
		}
		if p.eof() {
			return nil, p.unexpectedEOF("esac")
		}
		if p.gotKw("esac") {
			return cc, nil
		}
		ci := &CaseItem{}
		for {
			pt := p.peek(0)
			if pt == nil {
				return nil, p.unexpectedEOF("esac")
			}
			if pt.kind != _Word {
				return nil, &ParseError{Text: "expected a word"}
			}
			pw, err := p.word()
			if err != nil {
				return nil, err
			}
			ci.Patterns = append(ci.Patterns, pw)
			if !p.gotOp("|") {
				break
			}
		}
		if err := p.expectSym(")"); err != nil {
			return nil, err
		}
		body, err := p.caseBody()
		if err != nil {
			return nil, err
		}
		if len(body) > 0 {
			ci.Stmts = body
		}
		cc.Items = append(cc.Items, ci)
	}
}

// caseBody parses a case item body, which ends at a ";;" pair or
// directly at "esac". The terminating keyword is left for the caller.
func (p *parser) caseBody() ([]*Stmt, error) {
	var stmts []*Stmt
	for {
		if err := p.caseSeps(); err != nil {
			return nil, err
		}
		if p.eof() {
			return nil, p.unexpectedEOF("esac")
		}
		if p.peekOp(";") && p.peekOpAt(1, ";") {
			p.pos += 2
			return stmts, nil
		}
		if p.peekKw("esac") != "" {
			return stmts, nil
		}
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
		switch {
		case p.eof(), s.Background, p.peekOp(";"):
		case p.peek(0).kind == _HdocBody:
		case p.peekKw("esac") != "":
		default:
			return nil, p.unexpectedTok()
		}
	}
}

// testClause collects the words between [[ and ]]. Operator, redirect
// and symbol tokens scanned inside the brackets are taken back as
// literal words, since no operator tree is built.
func (p *parser) testClause() (Command, error) {
	p.pos++
	tc := &TestClause{}
	for {
		if p.eof() {
			return nil, p.unexpectedEOF("]]")
		}
		t := p.peek(0)
		switch t.kind {
		case _Word:
			if kwText(t) == "]]" {
				p.pos++
				if len(tc.Exprs) == 0 {
					return nil, &ParseError{Text: "test clause requires at least one expression"}
				}
				return tc, nil
			}
			w, err := p.word()
			if err != nil {
				return nil, err
			}
			tc.Exprs = append(tc.Exprs, w)
		case _Op:
			if t.val == ";" {
				p.pos++
				continue
			}
			p.pos++
			tc.Exprs = append(tc.Exprs, &Word{Parts: []WordPart{&Lit{Value: t.val}}})
		case _HdocBody:
			if err := p.attachHdoc(t); err != nil {
				return nil, err
			}
			p.pos++
		default:
			p.pos++
			tc.Exprs = append(tc.Exprs, &Word{Parts: []WordPart{&Lit{Value: t.text()}}})
		}
	}
}

func (p *parser) timeClause() (Command, error) {
	p.pos++
	if p.eof() {
		return nil, p.errExpectedCommand()
	}
	s, err := p.nestedStmt()
	if err != nil {
		return nil, err
	}
	return &TimeClause{Stmt: s}, nil
}

func (p *parser) coprocClause() (Command, error) {
	p.pos++
	cc := &CoprocClause{}
	if t := p.peek(0); t != nil && t.kind == _Word {
		if nt := p.peek(1); nt != nil && nt.kind == _Symbol && nt.val == "{" {
			cc.Name = &Lit{Value: partsText(t.parts)}
			p.pos++
		}
	}
	if p.eof() {
		return nil, p.errExpectedCommand()
	}
	s, err := p.nestedStmt()
	if err != nil {
		return nil, err
	}
	cc.Stmt = s
	return cc, nil
}

// funcDecl parses the "function name [()] { body }" form.
func (p *parser) funcDecl() (Command, error) {
	p.pos++
	t := p.peek(0)
	if t == nil || t.kind != _Word {
		return nil, &ParseError{Text: "expected a name"}
	}
	name := partsText(t.parts)
	p.pos++
	if p.gotSym("(") {
		if err := p.expectSym(")"); err != nil {
			return nil, err
		}
	}
	body, err := p.blockStmts()
	if err != nil {
		return nil, err
	}
	return &FuncDecl{Name: &Lit{Value: name}, Body: body}, nil
}

// isShortFuncDecl detects "name () {" by three-token lookahead.
func (p *parser) isShortFuncDecl() bool {
	for i, val := range [...]string{"(", ")", "{"} {
		t := p.peek(i + 1)
		if t == nil || t.kind != _Symbol || t.val != val {
			return false
		}
	}
	return true
}

func (p *parser) shortFuncDecl() (Command, error) {
	name := partsText(p.peek(0).parts)
	p.pos += 3
	body, err := p.blockStmts()
	if err != nil {
		return nil, err
	}
	return &FuncDecl{Name: &Lit{Value: name}, Body: body}, nil
}

func (p *parser) subshell() (Command, error) {
	p.pos++
	stmts, err := p.stmtListNonEmpty(p.symEnd(")"), ")")
	if err != nil {
		return nil, err
	}
	if err := p.expectSym(")"); err != nil {
		return nil, err
	}
	return &Subshell{Stmts: stmts}, nil
}

func (p *parser) block() (Command, error) {
	stmts, err := p.blockStmts()
	if err != nil {
		return nil, err
	}
	return &Block{Stmts: stmts}, nil
}

func (p *parser) blockStmts() ([]*Stmt, error) {
	if err := p.expectSym("{"); err != nil {
		return nil, err
	}
	stmts, err := p.stmtListNonEmpty(p.symEnd("}"), "}")
	if err != nil {
		return nil, err
	}
	if err := p.expectSym("}"); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *parser) declClause() (Command, error) {
	d := &DeclClause{Variant: kwText(p.peek(0))}
	p.pos++
	for !p.eof() {
		t := p.peek(0)
		switch t.kind {
		case _Word:
			a, ok, err := p.tryAssign(t)
			if err != nil {
				return nil, err
			}
			if ok {
				d.Assigns = append(d.Assigns, a)
				continue
			}
			w, err := p.word()
			if err != nil {
				return nil, err
			}
			d.Opts = append(d.Opts, w)
		case _Redir:
			r, err := p.redirect()
			if err != nil {
				return nil, err
			}
			d.Redirs = append(d.Redirs, r)
		default:
			return d, nil
		}
	}
	return d, nil
}

func (p *parser) letClause() (Command, error) {
	p.pos++
	lc := &LetClause{}
loop:
	for !p.eof() {
		t := p.peek(0)
		switch t.kind {
		case _Word:
			w, err := p.word()
			if err != nil {
				return nil, err
			}
			lc.Exprs = append(lc.Exprs, w)
		case _Redir:
			r, err := p.redirect()
			if err != nil {
				return nil, err
			}
			lc.Redirs = append(lc.Redirs, r)
		default:
			break loop
		}
	}
	if len(lc.Exprs) == 0 {
		return nil, &ParseError{Text: "let clause requires at least one expression"}
	}
	return lc, nil
}

func (p *parser) callExpr() (Command, error) {
	ce := &CallExpr{}
	for !p.eof() {
		t := p.peek(0)
		switch t.kind {
		case _Word:
			if len(ce.Args) == 0 {
				a, ok, err := p.tryAssign(t)
				if err != nil {
					return nil, err
				}
				if ok {
					ce.Assigns = append(ce.Assigns, a)
					continue
				}
			}
			w, err := p.word()
			if err != nil {
				return nil, err
			}
			ce.Args = append(ce.Args, w)
		case _Redir:
			r, err := p.redirect()
			if err != nil {
				return nil, err
			}
			ce.Redirs = append(ce.Redirs, r)
		default:
			if ce.Args == nil && ce.Assigns == nil && ce.Redirs == nil {
				return nil, p.errExpectedCommand()
			}
			return ce, nil
		}
	}
	if ce.Args == nil && ce.Assigns == nil && ce.Redirs == nil {
		return nil, p.errExpectedCommand()
	}
	return ce, nil
}

// tryAssign interprets the current word token as an assignment,
// consuming it on success. The token must start with a literal of the
// NAME=  or NAME+= shape; what follows the equals sign becomes the
// value word, or an array expression when the token ends at the equals
// sign and an opening parenthesis follows.
func (p *parser) tryAssign(t *token) (*Assign, bool, error) {
	first, ok := t.parts[0].(*Lit)
	if !ok {
		return nil, false, nil
	}
	raw := first.Value
	i := strings.IndexByte(raw, '=')
	if i < 0 {
		return nil, false, nil
	}
	appnd := i > 0 && raw[i-1] == '+'
	nameEnd := i
	if appnd {
		nameEnd--
	}
	name := raw[:nameEnd]
	if !ValidName(name) {
		return nil, false, nil
	}
	p.pos++
	a := &Assign{Name: &Lit{Value: name}, Append: appnd}
	var valParts []WordPart
	if rest := raw[i+1:]; rest != "" {
		valParts = append(valParts, &Lit{Value: rest})
	}
	trailing, err := p.resolveParts(t.parts[1:])
	if err != nil {
		return nil, false, err
	}
	valParts = append(valParts, trailing...)
	switch {
	case len(valParts) > 0:
		a.Value = &Word{Parts: valParts}
	case p.peekSym("("):
		arr, err := p.arrayExpr()
		if err != nil {
			return nil, false, err
		}
		a.Array = arr
	}
	return a, true, nil
}

func (p *parser) arrayExpr() (*ArrayExpr, error) {
	p.pos++ // the "("
	ae := &ArrayExpr{}
	for {
		if p.eof() {
			return nil, &ParseError{Text: "unclosed array expression"}
		}
		t := p.peek(0)
		switch {
		case t.kind == _Symbol && t.val == ")":
			p.pos++
			return ae, nil
		case t.kind == _Op && t.val == ";":
			p.pos++
		case t.kind == _HdocBody:
			if err := p.attachHdoc(t); err != nil {
				return nil, err
			}
			p.pos++
		case t.kind == _Word:
			elem, err := p.arrayElem(t)
			if err != nil {
				return nil, err
			}
			ae.Elems = append(ae.Elems, elem)
		default:
			return nil, p.unexpectedTok()
		}
	}
}

// arrayElem builds one array element, recognizing the [index]=value
// shape on the element's leading literal.
func (p *parser) arrayElem(t *token) (*ArrayElem, error) {
	p.pos++
	if first, ok := t.parts[0].(*Lit); ok && strings.HasPrefix(first.Value, "[") {
		if j := strings.Index(first.Value, "]="); j > 1 {
			elem := &ArrayElem{
				Index: &Word{Parts: []WordPart{&Lit{Value: first.Value[1:j]}}},
			}
			var valParts []WordPart
			if rest := first.Value[j+2:]; rest != "" {
				valParts = append(valParts, &Lit{Value: rest})
			}
			trailing, err := p.resolveParts(t.parts[1:])
			if err != nil {
				return nil, err
			}
			valParts = append(valParts, trailing...)
			if len(valParts) > 0 {
				elem.Value = &Word{Parts: valParts}
			}
			return elem, nil
		}
	}
	parts, err := p.resolveParts(t.parts)
	if err != nil {
		return nil, err
	}
	return &ArrayElem{Value: &Word{Parts: parts}}, nil
}

func (p *parser) redirect() (*Redirect, error) {
	t := p.peek(0)
	p.pos++
	r := &Redirect{Op: t.redir}
	if t.fd != "" {
		r.N = &Lit{Value: t.fd}
	}
	nt := p.peek(0)
	if nt == nil || nt.kind != _Word {
		return nil, &ParseError{Text: fmt.Sprintf("%s must be followed by a word", t.redir)}
	}
	w, err := p.word()
	if err != nil {
		return nil, err
	}
	r.Word = w
	if t.redir == Hdoc || t.redir == DashHdoc {
		p.pendingHdocs = append(p.pendingHdocs, r)
	}
	return r, nil
}

// word consumes the current word token, re-parsing any embedded
// sublanguage slices it carries.
func (p *parser) word() (*Word, error) {
	t := p.peek(0)
	p.pos++
	parts, err := p.resolveParts(t.parts)
	if err != nil {
		return nil, err
	}
	return &Word{Parts: parts}, nil
}

// resolveParts turns lexer word parts into their final form: raw
// command, backtick and process substitution slices are tokenized and
// parsed as programs of their own.
func (p *parser) resolveParts(parts []WordPart) ([]WordPart, error) {
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]WordPart, 0, len(parts))
	for _, part := range parts {
		switch x := part.(type) {
		case *DblQuoted:
			inner, err := p.resolveParts(x.Parts)
			if err != nil {
				return nil, err
			}
			out = append(out, &DblQuoted{Parts: inner})
		case *ParamExp:
			if x.Value == nil {
				out = append(out, x)
				continue
			}
			val, err := p.resolveParts(x.Value.Parts)
			if err != nil {
				return nil, err
			}
			out = append(out, &ParamExp{
				Short: x.Short,
				Param: x.Param,
				Op:    x.Op,
				Value: &Word{Parts: val},
			})
		case *cmdSubstRaw:
			stmts, err := p.subParse(x.src)
			if err != nil {
				return nil, err
			}
			out = append(out, &CmdSubst{Stmts: stmts})
		case *procSubstRaw:
			stmts, err := p.subParse(x.src)
			if err != nil {
				return nil, err
			}
			out = append(out, &ProcSubst{Op: x.op, Stmts: stmts})
		default:
			out = append(out, part)
		}
	}
	return out, nil
}

// subParse re-enters the lexer and parser on the raw slice of an
// embedded sublanguage. Comments inside it are always discarded.
func (p *parser) subParse(src string) ([]*Stmt, error) {
	toks, err := tokenize(src, false)
	if err != nil {
		return nil, err
	}
	sub := &parser{toks: toks, lang: p.lang}
	return sub.stmtList(nil)
}
