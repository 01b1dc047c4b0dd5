package jsast

// This file defines the node vocabulary the parser produces. The design
// mirrors a common Go JS-AST shape (a small marker interface implemented by
// many concrete, data-only structs; see evanw/esbuild's js_ast.E / js_ast.S
// split) but is pared down to exactly what the renaming engine needs: enough
// structure to find binding identifiers, resolve references to them, and
// patch identifier spans. It is not a general-purpose ECMAScript AST.

// Node is the common embed giving every statement and expression a byte span
// in the original source.
type Node struct {
	Start int
	End   int
}

// Span returns the node's [Start, End) byte range.
func (n Node) Span() (int, int) { return n.Start, n.End }

// Expr is implemented by every expression node.
type Expr interface {
	isExpr()
	Span() (int, int)
}

// Stmt is implemented by every statement node.
type Stmt interface {
	isStmt()
	Span() (int, int)
}

// ---- Expressions ----

// EIdentifier is every bare-name occurrence: a reference, or (contextually,
// as decided by the scope builder) a declaration. The parser does not try to
// decide binding-vs-reference; the scope builder does, by walking decl sites
// explicitly and everything else as a reference.
type EIdentifier struct {
	Node
	Name string
}

func (*EIdentifier) isExpr() {}

type EPrivateIdentifier struct {
	Node
	Name string // includes leading '#'
}

func (*EPrivateIdentifier) isExpr() {}

type ENumber struct {
	Node
	Raw string
}

func (*ENumber) isExpr() {}

type EString struct {
	Node
	Raw string
}

func (*EString) isExpr() {}

type ERegExp struct {
	Node
	Raw string
}

func (*ERegExp) isExpr() {}

type EBoolean struct {
	Node
	Value bool
}

func (*EBoolean) isExpr() {}

type ENull struct{ Node }

func (*ENull) isExpr() {}

type EThis struct{ Node }

func (*EThis) isExpr() {}

type ESuper struct{ Node }

func (*ESuper) isExpr() {}

// ETemplate is a template literal. Quasis holds the raw literal chunks
// (len(Quasis) == len(Exprs)+1); Exprs holds the interpolated expressions.
type ETemplate struct {
	Node
	Quasis []string
	Exprs  []Expr
	Tag    Expr // non-nil for tagged templates
}

func (*ETemplate) isExpr() {}

// EArray covers both array literals and array destructuring patterns.
// Elements may contain nil for elisions ("holes"), ESpread for rest/spread,
// and EAssign for defaulted pattern elements.
type EArray struct {
	Node
	Elements []Expr
}

func (*EArray) isExpr() {}

type PropertyKind uint8

const (
	PropertyInit PropertyKind = iota
	PropertyGet
	PropertySet
	PropertyMethod
	PropertySpread
)

// Property is one entry of an object literal or object destructuring pattern.
type Property struct {
	Node
	Kind      PropertyKind
	Key       Expr // EIdentifier (non-computed) or an arbitrary Expr (computed)
	Computed  bool
	Shorthand bool
	Value     Expr // for PropertySpread, Value is the spread target/source
}

// EObject covers object literals and object destructuring patterns.
type EObject struct {
	Node
	Properties []Property
}

func (*EObject) isExpr() {}

// ESpread is a "...expr" used in call args, array literals, or as a rest
// element in a destructuring pattern / parameter list.
type ESpread struct {
	Node
	Value Expr
}

func (*ESpread) isExpr() {}

// EAssign covers assignment expressions AND defaulted pattern elements
// ("x = defaultValue" inside a parameter list or destructuring pattern);
// disambiguation is purely contextual, matching how real parsers reuse
// expression grammar for patterns.
type EAssign struct {
	Node
	Op     string // "=", "+=", "&&=", ... ("=" for pattern defaults)
	Target Expr
	Value  Expr
}

func (*EAssign) isExpr() {}

type EUnary struct {
	Node
	Op      string
	Value   Expr
	Prefix  bool
	IsUpdate bool // ++/--
}

func (*EUnary) isExpr() {}

type EBinary struct {
	Node
	Op    string
	Left  Expr
	Right Expr
}

func (*EBinary) isExpr() {}

type EConditional struct {
	Node
	Test Expr
	Yes  Expr
	No   Expr
}

func (*EConditional) isExpr() {}

type ESequence struct {
	Node
	Exprs []Expr
}

func (*ESequence) isExpr() {}

type ECall struct {
	Node
	Callee   Expr
	Args     []Expr
	Optional bool
}

func (*ECall) isExpr() {}

type ENew struct {
	Node
	Callee Expr
	Args   []Expr
}

func (*ENew) isExpr() {}

// EMember is "object.property" (Computed=false, Property set) or
// "object[expr]" (Computed=true, PropertyExpr set). The property name of a
// non-computed member expression is NEVER a binding or a reference (§4.1 /
// §8 S3): it is a property name, not a variable.
type EMember struct {
	Node
	Object       Expr
	Property     string
	PropertyExpr Expr // only when Computed
	Computed     bool
	Optional     bool
}

func (*EMember) isExpr() {}

type EArrow struct {
	Node
	Fn *FunctionNode
}

func (*EArrow) isExpr() {}

type EFunction struct {
	Node
	Fn *FunctionNode
}

func (*EFunction) isExpr() {}

type EClass struct {
	Node
	Class *ClassNode
}

func (*EClass) isExpr() {}

type EYield struct {
	Node
	Value    Expr // may be nil
	Delegate bool
}

func (*EYield) isExpr() {}

type EAwait struct {
	Node
	Value Expr
}

func (*EAwait) isExpr() {}

// ---- Shared function/class scaffolding ----

// FunctionNode backs function declarations, function expressions, methods,
// and arrow functions.
type FunctionNode struct {
	Name       *EIdentifier // nil for anonymous function expressions / arrows
	Params     []Expr       // identifier, EAssign (default), ESpread (rest), or a destructuring pattern
	Body       *SBlock      // nil when ExprBody is set (concise arrow body)
	ExprBody   Expr
	IsArrow    bool
	IsAsync    bool
	IsGenerator bool

	// ScopeStart/ScopeEnd is the byte span that owns this function's own
	// scope (params + body), used by the grouper as the binding's owning
	// scope span when the binding is a parameter or function-local.
	ScopeStart int
	ScopeEnd   int
}

type ClassMemberKind uint8

const (
	ClassMethod ClassMemberKind = iota
	ClassGetter
	ClassSetter
	ClassField
	ClassStaticBlock
)

// ClassMember is a method or field. Key is never treated as a binding or
// reference (§4.1 / §8 S3), matching "object member names and class method
// names must never appear as bindings".
type ClassMember struct {
	Node
	Kind     ClassMemberKind
	Key      Expr
	Computed bool
	Static   bool
	Fn       *FunctionNode // for methods/getters/setters
	Value    Expr          // for fields (may be nil)
	Body     *SBlock       // for static blocks
}

type ClassNode struct {
	Node
	Name       *EIdentifier // nil for anonymous class expressions
	SuperClass Expr
	Members    []ClassMember
}

// ---- Statements ----

type SProgram struct {
	Node
	Body []Stmt
}

func (*SProgram) isStmt() {}

type SBlock struct {
	Node
	Body []Stmt
}

func (*SBlock) isStmt() {}

type DeclKind uint8

const (
	DeclVar DeclKind = iota
	DeclLet
	DeclConst
)

func (k DeclKind) String() string {
	switch k {
	case DeclVar:
		return "var"
	case DeclLet:
		return "let"
	case DeclConst:
		return "const"
	}
	return "var"
}

type Declarator struct {
	Node
	Target Expr // identifier or destructuring pattern
	Init   Expr // may be nil
}

type SVarDecl struct {
	Node
	Kind  DeclKind
	Decls []Declarator
}

func (*SVarDecl) isStmt() {}

type SFunctionDecl struct {
	Node
	Fn *FunctionNode // Fn.Name is non-nil except for `export default function() {}`-style nodes, which this subset does not parse
}

func (*SFunctionDecl) isStmt() {}

type SClassDecl struct {
	Node
	Class *ClassNode
}

func (*SClassDecl) isStmt() {}

type SExpr struct {
	Node
	Value Expr
}

func (*SExpr) isStmt() {}

type SReturn struct {
	Node
	Value Expr // may be nil
}

func (*SReturn) isStmt() {}

type SThrow struct {
	Node
	Value Expr
}

func (*SThrow) isStmt() {}

type SIf struct {
	Node
	Test Expr
	Yes  Stmt
	No   Stmt // may be nil
}

func (*SIf) isStmt() {}

type SWhile struct {
	Node
	Test Expr
	Body Stmt
}

func (*SWhile) isStmt() {}

type SDoWhile struct {
	Node
	Body Stmt
	Test Expr
}

func (*SDoWhile) isStmt() {}

// SFor is a classic C-style for loop. Init may be nil, an SVarDecl, or an SExpr.
type SFor struct {
	Node
	Init   Stmt
	Test   Expr
	Update Expr
	Body   Stmt

	// ScopeStart/ScopeEnd span the whole loop (init clause through body),
	// which is the scope that owns any let/const loop variable.
	ScopeStart int
	ScopeEnd   int
}

func (*SFor) isStmt() {}

// SForIn / SForOf share shape: either DeclKind+Pattern (for `for (let x in
// ...)`) or an existing assignment Target (for `for (x in ...)`).
type SForIn struct {
	Node
	IsDecl     bool
	Kind       DeclKind
	Pattern    Expr
	Target     Expr
	Object     Expr
	Body       Stmt
	ScopeStart int
	ScopeEnd   int
}

func (*SForIn) isStmt() {}

type SForOf struct {
	Node
	IsDecl     bool
	Kind       DeclKind
	Pattern    Expr
	Target     Expr
	IsAwait    bool
	Object     Expr
	Body       Stmt
	ScopeStart int
	ScopeEnd   int
}

func (*SForOf) isStmt() {}

type SBreak struct {
	Node
	Label string
}

func (*SBreak) isStmt() {}

type SContinue struct {
	Node
	Label string
}

func (*SContinue) isStmt() {}

type SLabeled struct {
	Node
	Label string
	Body  Stmt
}

func (*SLabeled) isStmt() {}

type SEmpty struct{ Node }

func (*SEmpty) isStmt() {}

type SDebugger struct{ Node }

func (*SDebugger) isStmt() {}

// STry models try/catch/finally. CatchParam is nil for `catch {}` (no
// binding at all) and for `catch(e){}` it holds the identifier or pattern.
type STry struct {
	Node
	Block      *SBlock
	HasCatch   bool
	CatchParam Expr // may be nil even when HasCatch is true
	CatchBlock *SBlock
	Finally    *SBlock // may be nil
}

func (*STry) isStmt() {}

type SwitchCase struct {
	Node
	Test Expr // nil for "default"
	Body []Stmt
}

type SSwitch struct {
	Node
	Disc       Expr
	Cases      []SwitchCase
	ScopeStart int
	ScopeEnd   int
}

func (*SSwitch) isStmt() {}
