package jsast

// parser is a hand-rolled recursive-descent parser with Pratt-style
// precedence climbing for expressions. It favors permissiveness over strict
// spec conformance: ASI is approximated (a statement ends at ';' or is simply
// left unterminated) since the renaming engine's inputs are machine-generated
// JS that is syntactically valid to begin with. The goal is a faithful scope
// tree, not a full conforming ECMAScript grammar.
type parser struct {
	l *lexer
}

// Tree is the parsed result handed to the scope builder and renamer.
type Tree struct {
	Program *SProgram
	Source  string
	// Scopes is populated by ParseSource (nil if the tree was produced via
	// the lower-level Parse, before scope resolution).
	Scopes *ScopeTree
}

// Parse lexes and parses src into a Tree. Any lexer or parser failure is
// returned as a *ParseError; the parser never panics across this boundary.
func Parse(src string) (tree *Tree, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()

	p := &parser{l: newLexer(src)}
	prog := p.parseProgram()
	return &Tree{Program: prog, Source: src}, nil
}

func (p *parser) tok() Token { return p.l.tok }

func (p *parser) isPunct(s string) bool {
	t := p.l.tok
	return t.Kind == KindPunctuator && t.Text == s
}

func (p *parser) isIdent(s string) bool {
	t := p.l.tok
	return t.Kind == KindIdentifier && t.Text == s
}

func (p *parser) isIdentLike() bool {
	return p.l.tok.Kind == KindIdentifier
}

func (p *parser) fail(format string, args ...any) {
	panic(p.l.errorf(p.l.tok.Start, format, args...))
}

func (p *parser) expectPunct(s string) {
	if !p.isPunct(s) {
		p.fail("expected %q, got %q", s, p.l.tok.Text)
	}
	p.l.next()
}

// expectPunctExpr is expectPunct but re-enters lexing in "expression
// expected next" mode, so a following '/' reads as regex rather than divide.
func (p *parser) expectPunctExpr(s string) {
	if !p.isPunct(s) {
		p.fail("expected %q, got %q", s, p.l.tok.Text)
	}
	p.l.nextExpectingExpr()
}

func (p *parser) consumeSemicolon() {
	if p.isPunct(";") {
		p.l.nextExpectingExpr()
	}
	// Otherwise rely on ASI: a following '}', EOF, or newline-separated token
	// is accepted without complaint. Inputs to this engine are machine
	// generated and essentially always semicolon-terminated already.
}

// ---- Program / statements ----

func (p *parser) parseProgram() *SProgram {
	start := p.l.tok.Start
	var body []Stmt
	for p.l.tok.Kind != KindEOF {
		body = append(body, p.parseStmt())
	}
	return &SProgram{Node: Node{Start: start, End: len(p.l.src)}, Body: body}
}

func (p *parser) parseStmt() Stmt {
	t := p.l.tok

	if t.Kind == KindPunctuator {
		switch t.Text {
		case "{":
			return p.parseBlock()
		case ";":
			start := t.Start
			p.l.nextExpectingExpr()
			return &SEmpty{Node: Node{Start: start, End: p.l.prevEnd}}
		}
	}

	if t.Kind == KindIdentifier {
		switch t.Text {
		case "var", "let", "const":
			if t.Text == "let" && !p.letStartsDeclaration() {
				break
			}
			return p.parseVarDeclStmt()
		case "function":
			return p.parseFunctionDeclStmt(false)
		case "async":
			if p.peekIsFunctionKeyword() {
				p.l.next()
				return p.parseFunctionDeclStmt(true)
			}
		case "class":
			return p.parseClassDeclStmt()
		case "if":
			return p.parseIf()
		case "for":
			return p.parseFor()
		case "while":
			return p.parseWhile()
		case "do":
			return p.parseDoWhile()
		case "return":
			return p.parseReturn()
		case "throw":
			return p.parseThrow()
		case "break":
			return p.parseBreakContinue(true)
		case "continue":
			return p.parseBreakContinue(false)
		case "try":
			return p.parseTry()
		case "switch":
			return p.parseSwitch()
		case "debugger":
			start := t.Start
			p.l.next()
			p.consumeSemicolon()
			return &SDebugger{Node: Node{Start: start, End: p.l.prevEnd}}
		}

		// Labeled statement: IDENT ':'
		save := p.l.save()
		label := t.Text
		p.l.next()
		if p.isPunct(":") {
			p.l.nextExpectingExpr()
			body := p.parseStmt()
			return &SLabeled{Node: Node{Start: t.Start, End: p.l.prevEnd}, Label: label, Body: body}
		}
		p.l.restore(save)
	}

	return p.parseExprStmt()
}

// letStartsDeclaration peeks past "let" to see whether it begins a binding
// (identifier, '[', or '{') as opposed to being used as a plain identifier.
func (p *parser) letStartsDeclaration() bool {
	save := p.l.save()
	p.l.next()
	ok := p.l.tok.Kind == KindIdentifier || p.isPunct("[") || p.isPunct("{")
	p.l.restore(save)
	return ok
}

func (p *parser) peekIsFunctionKeyword() bool {
	save := p.l.save()
	p.l.next()
	ok := p.isIdent("function")
	p.l.restore(save)
	return ok
}

func (p *parser) parseBlock() *SBlock {
	start := p.l.tok.Start
	p.expectPunctExpr("{")
	var body []Stmt
	for !p.isPunct("}") && p.l.tok.Kind != KindEOF {
		body = append(body, p.parseStmt())
	}
	p.expectPunct("}")
	return &SBlock{Node: Node{Start: start, End: p.l.prevEnd}, Body: body}
}

func (p *parser) declKindFromText(s string) DeclKind {
	switch s {
	case "let":
		return DeclLet
	case "const":
		return DeclConst
	default:
		return DeclVar
	}
}

func (p *parser) parseVarDeclStmt() Stmt {
	decl := p.parseVarDecl()
	p.consumeSemicolon()
	return decl
}

// parseVarDecl parses "var|let|const binding (= init)? (, binding (= init)?)*"
// without consuming the trailing semicolon (shared by statement and for-init
// forms).
func (p *parser) parseVarDecl() *SVarDecl {
	start := p.l.tok.Start
	kind := p.declKindFromText(p.l.tok.Text)
	p.l.nextExpectingExpr()

	var decls []Declarator
	for {
		dstart := p.l.tok.Start
		target := p.parseBindingTarget()
		var init Expr
		if p.isPunct("=") {
			p.l.nextExpectingExpr()
			init = p.parseAssign()
		}
		decls = append(decls, Declarator{Node: Node{Start: dstart, End: p.l.prevEnd}, Target: target, Init: init})
		if p.isPunct(",") {
			p.l.nextExpectingExpr()
			continue
		}
		break
	}
	return &SVarDecl{Node: Node{Start: start, End: p.l.prevEnd}, Kind: kind, Decls: decls}
}

// parseBindingTarget parses an identifier or a destructuring pattern
// (reusing array/object literal expression grammar; see ast.go doc comments
// on EArray/EObject/EAssign for why this reuse is sound).
func (p *parser) parseBindingTarget() Expr {
	if p.isPunct("[") || p.isPunct("{") {
		return p.parseAssign()
	}
	return p.parseIdentifierExpr()
}

func (p *parser) parseIdentifierExpr() Expr {
	t := p.l.tok
	if t.Kind != KindIdentifier {
		p.fail("expected identifier, got %q", t.Text)
	}
	p.l.next()
	return &EIdentifier{Node: Node{Start: t.Start, End: t.End}, Name: t.Text}
}

func (p *parser) parseFunctionDeclStmt(isAsync bool) Stmt {
	start := p.l.tok.Start
	if isAsync {
		// "function" is already the current token: the caller advanced past
		// "async", so the statement's span starts at "function" and does not
		// include the "async" keyword.
	}
	fn := p.parseFunctionRest(isAsync, true)
	return &SFunctionDecl{Node: Node{Start: start, End: p.l.prevEnd}, Fn: fn}
}

// parseFunctionRest parses from the "function" keyword (already current)
// through the closing '}' of the body. requireName controls whether a name
// is mandatory (declarations) or optional (expressions).
func (p *parser) parseFunctionRest(isAsync, requireName bool) *FunctionNode {
	p.expectIdentKeyword("function")
	isGenerator := false
	if p.isPunct("*") {
		isGenerator = true
		p.l.nextExpectingExpr()
	}
	var name *EIdentifier
	if p.l.tok.Kind == KindIdentifier && !p.isPunct("(") {
		nt := p.l.tok
		p.l.next()
		name = &EIdentifier{Node: Node{Start: nt.Start, End: nt.End}, Name: nt.Text}
	} else if requireName {
		p.fail("expected function name")
	}
	scopeStart := p.l.tok.Start
	params := p.parseParamList()
	body := p.parseBlock()
	return &FunctionNode{
		Name: name, Params: params, Body: body,
		IsAsync: isAsync, IsGenerator: isGenerator,
		ScopeStart: scopeStart, ScopeEnd: body.End,
	}
}

func (p *parser) expectIdentKeyword(s string) {
	if !p.isIdent(s) {
		p.fail("expected %q, got %q", s, p.l.tok.Text)
	}
	p.l.nextExpectingExpr()
}

func (p *parser) parseParamList() []Expr {
	p.expectPunctExpr("(")
	var params []Expr
	for !p.isPunct(")") {
		if p.isPunct("...") {
			start := p.l.tok.Start
			p.l.nextExpectingExpr()
			target := p.parseBindingTarget()
			params = append(params, &ESpread{Node: Node{Start: start, End: p.l.prevEnd}, Value: target})
		} else {
			pstart := p.l.tok.Start
			target := p.parseBindingTarget()
			if p.isPunct("=") {
				p.l.nextExpectingExpr()
				val := p.parseAssign()
				target = &EAssign{Node: Node{Start: pstart, End: p.l.prevEnd}, Op: "=", Target: target, Value: val}
			}
			params = append(params, target)
		}
		if p.isPunct(",") {
			p.l.nextExpectingExpr()
			continue
		}
		break
	}
	p.expectPunct(")")
	return params
}

func (p *parser) parseClassDeclStmt() Stmt {
	start := p.l.tok.Start
	class := p.parseClassRest()
	return &SClassDecl{Node: Node{Start: start, End: p.l.prevEnd}, Class: class}
}

func (p *parser) parseClassRest() *ClassNode {
	start := p.l.tok.Start
	p.expectIdentKeyword("class")
	var name *EIdentifier
	if p.l.tok.Kind == KindIdentifier && !p.isIdent("extends") && !p.isPunct("{") {
		nt := p.l.tok
		p.l.next()
		name = &EIdentifier{Node: Node{Start: nt.Start, End: nt.End}, Name: nt.Text}
	}
	var super Expr
	if p.isIdent("extends") {
		p.l.nextExpectingExpr()
		super = p.parseLeftHandSideExpr()
	}
	members := p.parseClassBody()
	return &ClassNode{Node: Node{Start: start, End: p.l.prevEnd}, Name: name, SuperClass: super, Members: members}
}

func (p *parser) parseClassBody() []ClassMember {
	p.expectPunctExpr("{")
	var members []ClassMember
	for !p.isPunct("}") && p.l.tok.Kind != KindEOF {
		if p.isPunct(";") {
			p.l.nextExpectingExpr()
			continue
		}
		members = append(members, p.parseClassMember())
	}
	p.expectPunct("}")
	return members
}

func (p *parser) parseClassMember() ClassMember {
	start := p.l.tok.Start

	static := false
	if p.isIdent("static") && !p.peekStartsMemberValue() {
		static = true
		p.l.next()
		if p.isPunct("{") {
			body := p.parseBlock()
			return ClassMember{Node: Node{Start: start, End: p.l.prevEnd}, Kind: ClassStaticBlock, Static: true, Body: body}
		}
	}

	isAsync, isGenerator, accessor := false, false, ClassMethod
	if p.isIdent("async") && !p.peekStartsMemberValue() {
		isAsync = true
		p.l.next()
	}
	if p.isPunct("*") {
		isGenerator = true
		p.l.nextExpectingExpr()
	}
	if p.isIdent("get") && !p.peekStartsMemberValue() {
		accessor = ClassGetter
		p.l.next()
	} else if p.isIdent("set") && !p.peekStartsMemberValue() {
		accessor = ClassSetter
		p.l.next()
	}

	key, computed := p.parsePropertyKey()

	if p.isPunct("(") {
		scopeStart := p.l.tok.Start
		params := p.parseParamList()
		body := p.parseBlock()
		fn := &FunctionNode{Params: params, Body: body, IsAsync: isAsync, IsGenerator: isGenerator, ScopeStart: scopeStart, ScopeEnd: body.End}
		kind := accessor
		if kind == ClassMethod {
			kind = ClassMethod
		}
		return ClassMember{Node: Node{Start: start, End: p.l.prevEnd}, Kind: kind, Key: key, Computed: computed, Static: static, Fn: fn}
	}

	// Field declaration.
	var val Expr
	if p.isPunct("=") {
		p.l.nextExpectingExpr()
		val = p.parseAssign()
	}
	p.consumeSemicolon()
	return ClassMember{Node: Node{Start: start, End: p.l.prevEnd}, Kind: ClassField, Key: key, Computed: computed, Static: static, Value: val}
}

// peekStartsMemberValue reports whether the NEXT token indicates the current
// contextual keyword (static/async/get/set) is actually being used as the
// member's own name (e.g. `{ static() {} }`), not as a modifier.
func (p *parser) peekStartsMemberValue() bool {
	save := p.l.save()
	p.l.next()
	ok := p.isPunct("(") || p.isPunct("=") || p.isPunct(";") || p.isPunct("}")
	p.l.restore(save)
	return ok
}

func (p *parser) parsePropertyKey() (Expr, bool) {
	if p.isPunct("[") {
		p.l.nextExpectingExpr()
		key := p.parseAssign()
		p.expectPunct("]")
		return key, true
	}
	t := p.l.tok
	switch t.Kind {
	case KindStringLiteral:
		p.l.next()
		return &EString{Node: Node{Start: t.Start, End: t.End}, Raw: t.Text}, false
	case KindNumericLiteral:
		p.l.next()
		return &ENumber{Node: Node{Start: t.Start, End: t.End}, Raw: t.Text}, false
	case KindPrivateIdentifier:
		p.l.next()
		return &EPrivateIdentifier{Node: Node{Start: t.Start, End: t.End}, Name: t.Text}, false
	case KindIdentifier:
		p.l.next()
		return &EIdentifier{Node: Node{Start: t.Start, End: t.End}, Name: t.Text}, false
	default:
		p.fail("expected property key, got %q", t.Text)
		return nil, false
	}
}

func (p *parser) parseIf() Stmt {
	start := p.l.tok.Start
	p.l.next()
	p.expectPunctExpr("(")
	test := p.parseExpr()
	p.expectPunctExpr(")")
	yes := p.parseStmt()
	var no Stmt
	if p.isIdent("else") {
		p.l.nextExpectingExpr()
		no = p.parseStmt()
	}
	return &SIf{Node: Node{Start: start, End: p.l.prevEnd}, Test: test, Yes: yes, No: no}
}

func (p *parser) parseWhile() Stmt {
	start := p.l.tok.Start
	p.l.next()
	p.expectPunctExpr("(")
	test := p.parseExpr()
	p.expectPunctExpr(")")
	body := p.parseStmt()
	return &SWhile{Node: Node{Start: start, End: p.l.prevEnd}, Test: test, Body: body}
}

func (p *parser) parseDoWhile() Stmt {
	start := p.l.tok.Start
	p.l.nextExpectingExpr()
	body := p.parseStmt()
	if !p.isIdent("while") {
		p.fail("expected 'while', got %q", p.l.tok.Text)
	}
	p.l.next()
	p.expectPunctExpr("(")
	test := p.parseExpr()
	p.expectPunctExpr(")")
	p.consumeSemicolon()
	return &SDoWhile{Node: Node{Start: start, End: p.l.prevEnd}, Body: body, Test: test}
}

// parseFor handles classic for(;;), for-in, and for-of, disambiguating by
// parsing the init clause then checking for "in"/"of".
func (p *parser) parseFor() Stmt {
	start := p.l.tok.Start
	p.l.next()
	isAwait := false
	if p.isIdent("await") {
		isAwait = true
		p.l.next()
	}
	p.expectPunctExpr("(")

	if p.isPunct(";") {
		return p.finishClassicFor(start, nil)
	}

	if p.isIdent("var") || p.isIdent("let") || p.isIdent("const") {
		declStart := p.l.tok.Start
		kind := p.declKindFromText(p.l.tok.Text)
		p.l.nextExpectingExpr()
		pattern := p.parseBindingTarget()

		if p.isIdent("in") {
			p.l.nextExpectingExpr()
			obj := p.parseExpr()
			p.expectPunctExpr(")")
			body := p.parseStmt()
			return &SForIn{Node: Node{Start: start, End: p.l.prevEnd}, IsDecl: true, Kind: kind, Pattern: pattern, Object: obj, Body: body, ScopeStart: start, ScopeEnd: p.l.prevEnd}
		}
		if p.isIdent("of") {
			p.l.nextExpectingExpr()
			obj := p.parseAssign()
			p.expectPunctExpr(")")
			body := p.parseStmt()
			return &SForOf{Node: Node{Start: start, End: p.l.prevEnd}, IsDecl: true, Kind: kind, Pattern: pattern, IsAwait: isAwait, Object: obj, Body: body, ScopeStart: start, ScopeEnd: p.l.prevEnd}
		}

		// Classic for with a var-decl init; finish parsing remaining declarators.
		var init Expr
		if p.isPunct("=") {
			p.l.nextExpectingExpr()
			init = p.parseAssign()
		}
		decls := []Declarator{{Node: Node{Start: declStart, End: p.l.prevEnd}, Target: pattern, Init: init}}
		for p.isPunct(",") {
			p.l.nextExpectingExpr()
			dstart := p.l.tok.Start
			target := p.parseBindingTarget()
			var dinit Expr
			if p.isPunct("=") {
				p.l.nextExpectingExpr()
				dinit = p.parseAssign()
			}
			decls = append(decls, Declarator{Node: Node{Start: dstart, End: p.l.prevEnd}, Target: target, Init: dinit})
		}
		varDecl := &SVarDecl{Node: Node{Start: declStart, End: p.l.prevEnd}, Kind: kind, Decls: decls}
		return p.finishClassicFor(start, varDecl)
	}

	// Expression-or-pattern init (no var/let/const keyword).
	initExpr := p.parseExprNoIn()
	if bin, ok := initExpr.(*EBinary); ok && bin.Op == "in" && p.isPunct(")") {
		// The init parse consumed the loop's own "in" as a relational
		// operator; split it back into the for-in target and object.
		p.expectPunctExpr(")")
		body := p.parseStmt()
		return &SForIn{Node: Node{Start: start, End: p.l.prevEnd}, IsDecl: false, Target: bin.Left, Object: bin.Right, Body: body, ScopeStart: start, ScopeEnd: p.l.prevEnd}
	}
	if p.isIdent("in") {
		p.l.nextExpectingExpr()
		obj := p.parseExpr()
		p.expectPunctExpr(")")
		body := p.parseStmt()
		return &SForIn{Node: Node{Start: start, End: p.l.prevEnd}, IsDecl: false, Target: initExpr, Object: obj, Body: body, ScopeStart: start, ScopeEnd: p.l.prevEnd}
	}
	if p.isIdent("of") {
		p.l.nextExpectingExpr()
		obj := p.parseAssign()
		p.expectPunctExpr(")")
		body := p.parseStmt()
		return &SForOf{Node: Node{Start: start, End: p.l.prevEnd}, IsDecl: false, Target: initExpr, IsAwait: isAwait, Object: obj, Body: body, ScopeStart: start, ScopeEnd: p.l.prevEnd}
	}
	initStart, initEnd := initExpr.Span()
	initStmt := &SExpr{Node: Node{Start: initStart, End: initEnd}, Value: initExpr}
	return p.finishClassicFor(start, initStmt)
}

func (p *parser) finishClassicFor(start int, init Stmt) Stmt {
	p.expectPunct(";")
	var test Expr
	if !p.isPunct(";") {
		test = p.parseExpr()
	}
	p.expectPunctExpr(";")
	var update Expr
	if !p.isPunct(")") {
		update = p.parseExpr()
	}
	p.expectPunctExpr(")")
	body := p.parseStmt()
	return &SFor{Node: Node{Start: start, End: p.l.prevEnd}, Init: init, Test: test, Update: update, Body: body, ScopeStart: start, ScopeEnd: p.l.prevEnd}
}

func (p *parser) parseExprNoIn() Expr {
	// We don't implement the full "NoIn" grammar variant: a top-level "in"
	// is consumed as a relational operator like any other, and parseFor
	// splits the resulting `target in object` EBinary back apart.
	return p.parseAssignTopLevelForInit()
}

// parseAssignTopLevelForInit parses a single assignment-level expression. It
// stops before a top-level "of" (which is not an operator), but consumes a
// top-level "in" as part of a relational expression.
func (p *parser) parseAssignTopLevelForInit() Expr {
	return p.parseAssignNoIn()
}

func (p *parser) parseReturn() Stmt {
	start := p.l.tok.Start
	p.l.nextExpectingExpr()
	var val Expr
	if !p.isPunct(";") && !p.isPunct("}") && p.l.tok.Kind != KindEOF && !p.l.tok.HadNewlineBefore {
		val = p.parseExpr()
	}
	p.consumeSemicolon()
	return &SReturn{Node: Node{Start: start, End: p.l.prevEnd}, Value: val}
}

func (p *parser) parseThrow() Stmt {
	start := p.l.tok.Start
	p.l.nextExpectingExpr()
	val := p.parseExpr()
	p.consumeSemicolon()
	return &SThrow{Node: Node{Start: start, End: p.l.prevEnd}, Value: val}
}

func (p *parser) parseBreakContinue(isBreak bool) Stmt {
	start := p.l.tok.Start
	p.l.next()
	label := ""
	if p.l.tok.Kind == KindIdentifier && !p.l.tok.HadNewlineBefore {
		label = p.l.tok.Text
		p.l.next()
	}
	p.consumeSemicolon()
	if isBreak {
		return &SBreak{Node: Node{Start: start, End: p.l.prevEnd}, Label: label}
	}
	return &SContinue{Node: Node{Start: start, End: p.l.prevEnd}, Label: label}
}

func (p *parser) parseTry() Stmt {
	start := p.l.tok.Start
	p.l.nextExpectingExpr()
	block := p.parseBlock()
	st := &STry{Node: Node{Start: start}, Block: block}
	if p.isIdent("catch") {
		st.HasCatch = true
		p.l.nextExpectingExpr()
		if p.isPunct("(") {
			p.l.nextExpectingExpr()
			st.CatchParam = p.parseBindingTarget()
			p.expectPunctExpr(")")
		}
		st.CatchBlock = p.parseBlock()
	}
	if p.isIdent("finally") {
		p.l.nextExpectingExpr()
		st.Finally = p.parseBlock()
	}
	st.End = p.l.prevEnd
	return st
}

func (p *parser) parseSwitch() Stmt {
	start := p.l.tok.Start
	p.l.next()
	p.expectPunctExpr("(")
	disc := p.parseExpr()
	p.expectPunctExpr(")")
	p.expectPunctExpr("{")
	scopeStart := p.l.prevEnd - 1
	var cases []SwitchCase
	for !p.isPunct("}") && p.l.tok.Kind != KindEOF {
		cstart := p.l.tok.Start
		var test Expr
		if p.isIdent("case") {
			p.l.nextExpectingExpr()
			test = p.parseExpr()
		} else if p.isIdent("default") {
			p.l.next()
		} else {
			p.fail("expected 'case' or 'default', got %q", p.l.tok.Text)
		}
		p.expectPunctExpr(":")
		var body []Stmt
		for !p.isIdent("case") && !p.isIdent("default") && !p.isPunct("}") && p.l.tok.Kind != KindEOF {
			body = append(body, p.parseStmt())
		}
		cases = append(cases, SwitchCase{Node: Node{Start: cstart, End: p.l.prevEnd}, Test: test, Body: body})
	}
	p.expectPunct("}")
	return &SSwitch{Node: Node{Start: start, End: p.l.prevEnd}, Disc: disc, Cases: cases, ScopeStart: scopeStart, ScopeEnd: p.l.prevEnd}
}

func (p *parser) parseExprStmt() Stmt {
	start := p.l.tok.Start
	val := p.parseExpr()
	p.consumeSemicolon()
	return &SExpr{Node: Node{Start: start, End: p.l.prevEnd}, Value: val}
}

// ---- Expressions ----

func (p *parser) parseExpr() Expr {
	first := p.parseAssign()
	if !p.isPunct(",") {
		return first
	}
	start, _ := first.Span()
	exprs := []Expr{first}
	for p.isPunct(",") {
		p.l.nextExpectingExpr()
		exprs = append(exprs, p.parseAssign())
	}
	return &ESequence{Node: Node{Start: start, End: p.l.prevEnd}, Exprs: exprs}
}

func (p *parser) parseAssign() Expr { return p.parseAssignImpl() }
func (p *parser) parseAssignNoIn() Expr { return p.parseAssignImpl() }

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"**=": true, "<<=": true, ">>=": true, ">>>=": true, "&=": true, "|=": true,
	"^=": true, "&&=": true, "||=": true, "??=": true,
}

func (p *parser) parseAssignImpl() Expr {
	// Arrow function lookahead: "(" ... ")" "=>"  or  IDENT "=>"  or  "async" variants.
	if arrow := p.tryParseArrow(); arrow != nil {
		return arrow
	}

	left := p.parseConditional()
	if p.l.tok.Kind == KindPunctuator && assignOps[p.l.tok.Text] {
		op := p.l.tok.Text
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseAssignImpl()
		return &EAssign{Node: Node{Start: start, End: p.l.prevEnd}, Op: op, Target: left, Value: right}
	}
	return left
}

// tryParseArrow speculatively attempts to parse an arrow function head. It
// returns nil (after rewinding the lexer) if the input does not turn out to
// be an arrow function.
func (p *parser) tryParseArrow() Expr {
	save := p.l.save()

	isAsync := false
	if p.isIdent("async") && !p.l.tok.HadNewlineBefore {
		asave := p.l.save()
		p.l.next()
		if (p.l.tok.Kind == KindIdentifier && !p.l.tok.HadNewlineBefore) || p.isPunct("(") {
			isAsync = true
		} else {
			p.l.restore(asave)
		}
	}

	start := save.tok.Start

	if p.l.tok.Kind == KindIdentifier && !IsReservedWord(p.l.tok.Text) {
		nt := p.l.tok
		p.l.next()
		if p.isPunct("=>") && !p.l.tok.HadNewlineBefore {
			param := &EIdentifier{Node: Node{Start: nt.Start, End: nt.End}, Name: nt.Text}
			return p.finishArrow(start, isAsync, []Expr{param})
		}
		p.l.restore(save)
		return nil
	}

	if p.isPunct("(") {
		ok, params := p.tryParseParenParamList()
		if ok && p.isPunct("=>") && !p.l.tok.HadNewlineBefore {
			return p.finishArrow(start, isAsync, params)
		}
	}

	p.l.restore(save)
	return nil
}

// tryParseParenParamList attempts to parse "(" paramList ")" using the
// recover-on-panic trick, since the contents may turn out to be a plain
// parenthesized expression instead of a parameter list.
func (p *parser) tryParseParenParamList() (ok bool, params []Expr) {
	defer func() {
		if r := recover(); r != nil {
			if _, isPE := r.(*ParseError); isPE {
				ok = false
				return
			}
			panic(r)
		}
	}()
	params = p.parseParamList()
	return true, params
}

func (p *parser) finishArrow(start int, isAsync bool, params []Expr) Expr {
	p.expectPunctExpr("=>")
	fn := &FunctionNode{Params: params, IsArrow: true, IsAsync: isAsync, ScopeStart: start}
	if p.isPunct("{") {
		fn.Body = p.parseBlock()
		fn.ScopeEnd = fn.Body.End
	} else {
		fn.ExprBody = p.parseAssignImpl()
		fn.ScopeEnd = p.l.prevEnd
	}
	return &EArrow{Node: Node{Start: start, End: p.l.prevEnd}, Fn: fn}
}

func (p *parser) parseConditional() Expr {
	test := p.parseNullish()
	if p.isPunct("?") {
		start, _ := test.Span()
		p.l.nextExpectingExpr()
		yes := p.parseAssignImpl()
		p.expectPunctExpr(":")
		no := p.parseAssignImpl()
		return &EConditional{Node: Node{Start: start, End: p.l.prevEnd}, Test: test, Yes: yes, No: no}
	}
	return test
}

func (p *parser) parseNullish() Expr {
	left := p.parseLogicalOr()
	for p.isPunct("??") {
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseLogicalOr()
		left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: "??", Left: left, Right: right}
	}
	return left
}

func (p *parser) parseLogicalOr() Expr {
	left := p.parseLogicalAnd()
	for p.isPunct("||") {
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseLogicalAnd()
		left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: "||", Left: left, Right: right}
	}
	return left
}

func (p *parser) parseLogicalAnd() Expr {
	left := p.parseBitOr()
	for p.isPunct("&&") {
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseBitOr()
		left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: "&&", Left: left, Right: right}
	}
	return left
}

func (p *parser) parseBitOr() Expr {
	left := p.parseBitXor()
	for p.isPunct("|") {
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseBitXor()
		left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: "|", Left: left, Right: right}
	}
	return left
}

func (p *parser) parseBitXor() Expr {
	left := p.parseBitAnd()
	for p.isPunct("^") {
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseBitAnd()
		left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: "^", Left: left, Right: right}
	}
	return left
}

func (p *parser) parseBitAnd() Expr {
	left := p.parseEquality()
	for p.isPunct("&") {
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseEquality()
		left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: "&", Left: left, Right: right}
	}
	return left
}

var equalityOps = map[string]bool{"==": true, "!=": true, "===": true, "!==": true}

func (p *parser) parseEquality() Expr {
	left := p.parseRelational()
	for p.l.tok.Kind == KindPunctuator && equalityOps[p.l.tok.Text] {
		op := p.l.tok.Text
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseRelational()
		left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: op, Left: left, Right: right}
	}
	return left
}

var relationalPunct = map[string]bool{"<": true, ">": true, "<=": true, ">=": true}

func (p *parser) parseRelational() Expr {
	left := p.parseShift()
	for {
		if p.l.tok.Kind == KindPunctuator && relationalPunct[p.l.tok.Text] {
			op := p.l.tok.Text
			start, _ := left.Span()
			p.l.nextExpectingExpr()
			right := p.parseShift()
			left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: op, Left: left, Right: right}
			continue
		}
		if p.isIdent("instanceof") || p.isIdent("in") {
			op := p.l.tok.Text
			start, _ := left.Span()
			p.l.nextExpectingExpr()
			right := p.parseShift()
			left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: op, Left: left, Right: right}
			continue
		}
		break
	}
	return left
}

var shiftOps = map[string]bool{"<<": true, ">>": true, ">>>": true}

func (p *parser) parseShift() Expr {
	left := p.parseAdditive()
	for p.l.tok.Kind == KindPunctuator && shiftOps[p.l.tok.Text] {
		op := p.l.tok.Text
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseAdditive()
		left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for p.isPunct("+") || p.isPunct("-") {
		op := p.l.tok.Text
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseMultiplicative()
		left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseMultiplicative() Expr {
	left := p.parseExponent()
	for p.isPunct("*") || p.isPunct("/") || p.isPunct("%") {
		op := p.l.tok.Text
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseExponent()
		left = &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: op, Left: left, Right: right}
	}
	return left
}

// parseExponent is right-associative.
func (p *parser) parseExponent() Expr {
	left := p.parseUnary()
	if p.isPunct("**") {
		start, _ := left.Span()
		p.l.nextExpectingExpr()
		right := p.parseExponent()
		return &EBinary{Node: Node{Start: start, End: p.l.prevEnd}, Op: "**", Left: left, Right: right}
	}
	return left
}

var unaryPrefixOps = map[string]bool{"+": true, "-": true, "~": true, "!": true}

func (p *parser) parseUnary() Expr {
	t := p.l.tok
	if t.Kind == KindPunctuator && unaryPrefixOps[t.Text] {
		op := t.Text
		start := t.Start
		p.l.nextExpectingExpr()
		val := p.parseUnary()
		return &EUnary{Node: Node{Start: start, End: p.l.prevEnd}, Op: op, Value: val, Prefix: true}
	}
	if t.Kind == KindIdentifier && (t.Text == "typeof" || t.Text == "void" || t.Text == "delete") {
		op := t.Text
		start := t.Start
		p.l.nextExpectingExpr()
		val := p.parseUnary()
		return &EUnary{Node: Node{Start: start, End: p.l.prevEnd}, Op: op, Value: val, Prefix: true}
	}
	if t.Kind == KindIdentifier && t.Text == "await" {
		start := t.Start
		p.l.nextExpectingExpr()
		val := p.parseUnary()
		return &EAwait{Node: Node{Start: start, End: p.l.prevEnd}, Value: val}
	}
	if p.isPunct("++") || p.isPunct("--") {
		op := t.Text
		start := t.Start
		p.l.nextExpectingExpr()
		val := p.parseUnary()
		return &EUnary{Node: Node{Start: start, End: p.l.prevEnd}, Op: op, Value: val, Prefix: true, IsUpdate: true}
	}
	if t.Kind == KindIdentifier && t.Text == "yield" {
		return p.parseYield()
	}
	return p.parsePostfix()
}

func (p *parser) parseYield() Expr {
	start := p.l.tok.Start
	p.l.next()
	delegate := false
	if p.isPunct("*") {
		delegate = true
		p.l.nextExpectingExpr()
	}
	var val Expr
	if !p.l.tok.HadNewlineBefore && !p.isPunct(")") && !p.isPunct("]") && !p.isPunct("}") &&
		!p.isPunct(",") && !p.isPunct(";") && p.l.tok.Kind != KindEOF {
		val = p.parseAssignImpl()
	}
	return &EYield{Node: Node{Start: start, End: p.l.prevEnd}, Value: val, Delegate: delegate}
}

func (p *parser) parsePostfix() Expr {
	e := p.parseLeftHandSideExpr()
	if (p.isPunct("++") || p.isPunct("--")) && !p.l.tok.HadNewlineBefore {
		op := p.l.tok.Text
		start, _ := e.Span()
		p.l.next()
		return &EUnary{Node: Node{Start: start, End: p.l.prevEnd}, Op: op, Value: e, Prefix: false, IsUpdate: true}
	}
	return e
}

// parseLeftHandSideExpr parses new/call/member chains, including optional
// chaining and tagged templates.
func (p *parser) parseLeftHandSideExpr() Expr {
	var e Expr
	if p.isIdent("new") {
		e = p.parseNewExpr()
	} else {
		e = p.parsePrimary()
	}
	return p.parseCallTail(e)
}

func (p *parser) parseNewExpr() Expr {
	start := p.l.tok.Start
	p.l.nextExpectingExpr()
	if p.isPunct(".") {
		// new.target
		p.l.next()
		if !p.isIdent("target") {
			p.fail("expected 'target' after 'new.'")
		}
		p.l.next()
		return &EMember{Node: Node{Start: start, End: p.l.prevEnd}, Object: &EIdentifier{Node: Node{Start: start, End: start + 3}, Name: "new"}, Property: "target"}
	}
	var callee Expr
	if p.isIdent("new") {
		callee = p.parseNewExpr()
	} else {
		callee = p.parsePrimary()
	}
	callee = p.parseMemberTailOnly(callee)
	var args []Expr
	if p.isPunct("(") {
		args = p.parseArgs()
	}
	return &ENew{Node: Node{Start: start, End: p.l.prevEnd}, Callee: callee, Args: args}
}

// parseMemberTailOnly consumes '.'/'[' member accesses but stops before '(' ,
// used while still building a `new` callee (args bind to the outermost new).
func (p *parser) parseMemberTailOnly(e Expr) Expr {
	for {
		if p.isPunct(".") {
			start, _ := e.Span()
			p.l.next()
			name := p.propertyNameToken()
			e = &EMember{Node: Node{Start: start, End: p.l.prevEnd}, Object: e, Property: name}
			continue
		}
		if p.isPunct("[") {
			start, _ := e.Span()
			p.l.nextExpectingExpr()
			idx := p.parseExpr()
			p.expectPunct("]")
			e = &EMember{Node: Node{Start: start, End: p.l.prevEnd}, Object: e, PropertyExpr: idx, Computed: true}
			continue
		}
		break
	}
	return e
}

func (p *parser) propertyNameToken() string {
	t := p.l.tok
	if t.Kind != KindIdentifier && t.Kind != KindPrivateIdentifier {
		p.fail("expected property name, got %q", t.Text)
	}
	p.l.next()
	return t.Text
}

func (p *parser) parseCallTail(e Expr) Expr {
	for {
		switch {
		case p.isPunct("."):
			start, _ := e.Span()
			p.l.next()
			name := p.propertyNameToken()
			e = &EMember{Node: Node{Start: start, End: p.l.prevEnd}, Object: e, Property: name}
		case p.isPunct("?."):
			start, _ := e.Span()
			p.l.next()
			if p.isPunct("(") {
				args := p.parseArgs()
				e = &ECall{Node: Node{Start: start, End: p.l.prevEnd}, Callee: e, Args: args, Optional: true}
			} else if p.isPunct("[") {
				p.l.nextExpectingExpr()
				idx := p.parseExpr()
				p.expectPunct("]")
				e = &EMember{Node: Node{Start: start, End: p.l.prevEnd}, Object: e, PropertyExpr: idx, Computed: true, Optional: true}
			} else {
				name := p.propertyNameToken()
				e = &EMember{Node: Node{Start: start, End: p.l.prevEnd}, Object: e, Property: name, Optional: true}
			}
		case p.isPunct("["):
			start, _ := e.Span()
			p.l.nextExpectingExpr()
			idx := p.parseExpr()
			p.expectPunct("]")
			e = &EMember{Node: Node{Start: start, End: p.l.prevEnd}, Object: e, PropertyExpr: idx, Computed: true}
		case p.isPunct("("):
			start, _ := e.Span()
			args := p.parseArgs()
			e = &ECall{Node: Node{Start: start, End: p.l.prevEnd}, Callee: e, Args: args}
		case p.l.tok.Kind == KindTemplateLiteral:
			start, _ := e.Span()
			tmpl := p.parseTemplateLiteral()
			tmpl.(*ETemplate).Tag = e
			tmpl.(*ETemplate).Start = start
			e = tmpl
		default:
			return e
		}
	}
}

func (p *parser) parseArgs() []Expr {
	p.expectPunctExpr("(")
	var args []Expr
	for !p.isPunct(")") {
		if p.isPunct("...") {
			start := p.l.tok.Start
			p.l.nextExpectingExpr()
			val := p.parseAssignImpl()
			args = append(args, &ESpread{Node: Node{Start: start, End: p.l.prevEnd}, Value: val})
		} else {
			args = append(args, p.parseAssignImpl())
		}
		if p.isPunct(",") {
			p.l.nextExpectingExpr()
			continue
		}
		break
	}
	p.expectPunct(")")
	return args
}

func (p *parser) parsePrimary() Expr {
	t := p.l.tok

	switch t.Kind {
	case KindNumericLiteral:
		p.l.next()
		return &ENumber{Node: Node{Start: t.Start, End: t.End}, Raw: t.Text}
	case KindStringLiteral:
		p.l.next()
		return &EString{Node: Node{Start: t.Start, End: t.End}, Raw: t.Text}
	case KindRegExpLiteral:
		p.l.next()
		return &ERegExp{Node: Node{Start: t.Start, End: t.End}, Raw: t.Text}
	case KindTemplateLiteral:
		return p.parseTemplateLiteral()
	case KindPrivateIdentifier:
		p.l.next()
		return &EPrivateIdentifier{Node: Node{Start: t.Start, End: t.End}, Name: t.Text}
	}

	if t.Kind == KindPunctuator {
		switch t.Text {
		case "(":
			p.l.nextExpectingExpr()
			inner := p.parseExpr()
			p.expectPunct(")")
			return inner
		case "[":
			return p.parseArrayLiteral()
		case "{":
			return p.parseObjectLiteral()
		}
	}

	if t.Kind == KindIdentifier {
		switch t.Text {
		case "this":
			p.l.next()
			return &EThis{Node: Node{Start: t.Start, End: t.End}}
		case "super":
			p.l.next()
			return &ESuper{Node: Node{Start: t.Start, End: t.End}}
		case "true", "false":
			p.l.next()
			return &EBoolean{Node: Node{Start: t.Start, End: t.End}, Value: t.Text == "true"}
		case "null":
			p.l.next()
			return &ENull{Node: Node{Start: t.Start, End: t.End}}
		case "function":
			fn := p.parseFunctionRest(false, false)
			return &EFunction{Node: Node{Start: t.Start, End: p.l.prevEnd}, Fn: fn}
		case "async":
			save := p.l.save()
			p.l.next()
			if p.isIdent("function") && !p.l.tok.HadNewlineBefore {
				fn := p.parseFunctionRest(true, false)
				return &EFunction{Node: Node{Start: t.Start, End: p.l.prevEnd}, Fn: fn}
			}
			p.l.restore(save)
		case "class":
			class := p.parseClassRest()
			return &EClass{Node: Node{Start: t.Start, End: p.l.prevEnd}, Class: class}
		}
		p.l.next()
		return &EIdentifier{Node: Node{Start: t.Start, End: t.End}, Name: t.Text}
	}

	p.fail("unexpected token %q", t.Text)
	return nil
}

func (p *parser) parseArrayLiteral() Expr {
	start := p.l.tok.Start
	p.expectPunctExpr("[")
	var elems []Expr
	for !p.isPunct("]") {
		if p.isPunct(",") {
			elems = append(elems, nil)
			p.l.nextExpectingExpr()
			continue
		}
		if p.isPunct("...") {
			estart := p.l.tok.Start
			p.l.nextExpectingExpr()
			val := p.parseAssignImpl()
			elems = append(elems, &ESpread{Node: Node{Start: estart, End: p.l.prevEnd}, Value: val})
		} else {
			elems = append(elems, p.parseAssignImpl())
		}
		if p.isPunct(",") {
			p.l.nextExpectingExpr()
			continue
		}
		break
	}
	p.expectPunct("]")
	return &EArray{Node: Node{Start: start, End: p.l.prevEnd}, Elements: elems}
}

func (p *parser) parseObjectLiteral() Expr {
	start := p.l.tok.Start
	p.expectPunctExpr("{")
	var props []Property
	for !p.isPunct("}") {
		props = append(props, p.parseObjectProperty())
		if p.isPunct(",") {
			p.l.nextExpectingExpr()
			continue
		}
		break
	}
	p.expectPunct("}")
	return &EObject{Node: Node{Start: start, End: p.l.prevEnd}, Properties: props}
}

func (p *parser) parseObjectProperty() Property {
	pstart := p.l.tok.Start

	if p.isPunct("...") {
		p.l.nextExpectingExpr()
		val := p.parseAssignImpl()
		return Property{Node: Node{Start: pstart, End: p.l.prevEnd}, Kind: PropertySpread, Value: val}
	}

	isAsync, isGenerator, accessor := false, false, PropertyInit
	if p.isIdent("async") && !p.peekStartsMemberValue() {
		isAsync = true
		p.l.next()
	}
	if p.isPunct("*") {
		isGenerator = true
		p.l.nextExpectingExpr()
	}
	if p.isIdent("get") && !p.peekStartsMemberValue() {
		accessor = PropertyGet
		p.l.next()
	} else if p.isIdent("set") && !p.peekStartsMemberValue() {
		accessor = PropertySet
		p.l.next()
	}

	key, computed := p.parsePropertyKey()

	if p.isPunct("(") {
		scopeStart := p.l.tok.Start
		params := p.parseParamList()
		body := p.parseBlock()
		fn := &FunctionNode{Params: params, Body: body, IsAsync: isAsync, IsGenerator: isGenerator, ScopeStart: scopeStart, ScopeEnd: body.End}
		kind := PropertyMethod
		if accessor != PropertyInit {
			kind = accessor
		}
		return Property{Node: Node{Start: pstart, End: p.l.prevEnd}, Kind: kind, Key: key, Computed: computed, Value: &EFunction{Fn: fn}}
	}

	if p.isPunct(":") {
		p.l.nextExpectingExpr()
		val := p.parseAssignImpl()
		return Property{Node: Node{Start: pstart, End: p.l.prevEnd}, Kind: PropertyInit, Key: key, Computed: computed, Value: val}
	}

	// Shorthand, possibly with a default value (pattern context): `{a}` or `{a = 1}`.
	ident, ok := key.(*EIdentifier)
	if !ok {
		p.fail("invalid shorthand property")
	}
	var val Expr = &EIdentifier{Node: ident.Node, Name: ident.Name}
	if p.isPunct("=") {
		astart := ident.Start
		p.l.nextExpectingExpr()
		def := p.parseAssignImpl()
		val = &EAssign{Node: Node{Start: astart, End: p.l.prevEnd}, Op: "=", Target: val, Value: def}
	}
	return Property{Node: Node{Start: pstart, End: p.l.prevEnd}, Kind: PropertyInit, Key: key, Computed: false, Shorthand: true, Value: val}
}

// parseTemplateLiteral parses a whole (possibly tagged-later) template
// literal by alternating scanTemplatePart-produced tokens with parsed
// interpolation expressions, using relexTemplatePart to resume after each
// "${ expr }".
func (p *parser) parseTemplateLiteral() Expr {
	start := p.l.tok.Start
	var quasis []string
	var exprs []Expr

	t := p.l.tok
	text := t.Text
	if text[len(text)-1] == '`' {
		// Whole literal in one token: `literal`
		quasis = append(quasis, text[1:len(text)-1])
		p.l.next()
		return &ETemplate{Node: Node{Start: start, End: p.l.prevEnd}, Quasis: quasis, Exprs: exprs}
	}
	// Head: `literal${
	quasis = append(quasis, text[1:len(text)-2])
	p.l.nextExpectingExpr()

	for {
		exprs = append(exprs, p.parseExpr())
		if !p.isPunct("}") {
			p.fail("expected '}' to close template interpolation")
		}
		p.l.relexTemplatePart()
		mt := p.l.tok
		mtext := mt.Text
		if mtext[len(mtext)-1] == '`' {
			quasis = append(quasis, mtext[1:len(mtext)-1])
			p.l.next()
			break
		}
		quasis = append(quasis, mtext[1:len(mtext)-2])
		p.l.nextExpectingExpr()
	}

	return &ETemplate{Node: Node{Start: start, End: p.l.prevEnd}, Quasis: quasis, Exprs: exprs}
}
