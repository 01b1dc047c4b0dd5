package jsast

import "sort"

// ScopeKind classifies why a scope exists, mirroring the handful of JS scope
// shapes relevant to renaming: the whole program, a function/arrow body
// (params+body collapsed into one scope), a bare block, a for-loop head, a
// switch body, a catch clause, and the self-reference scope of a named class
// expression or named function expression (both use ScopeClass).
type ScopeKind uint8

const (
	ScopeProgram ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeFor
	ScopeSwitch
	ScopeCatch
	ScopeClass
)

// Binding is one declared name: a variable, parameter, function, class, or
// catch parameter. Name is mutable storage for the currently-applied name so
// Rename can update every binding and reference in one pass.
type Binding struct {
	Name       string
	Decl       Expr // the EIdentifier node at the declaration site (for function/class declarations, the Name identifier of the FunctionNode/ClassNode)
	DeclIdent  *EIdentifier
	Scope      *Scope
	Refs       []*EIdentifier // every resolved reference, including Decl itself for convenience of iteration order
	IsFunction bool           // true for function/class declarations and function expressions with a name
}

// Scope is one lexical scope: a set of bindings plus its byte span, used by
// the grouper to compute "scope size" and by the small-scope merger to find
// scopes close to their parent.
type Scope struct {
	Kind     ScopeKind
	Start    int
	End      int
	Parent   *Scope
	Children []*Scope
	Bindings map[string]*Binding
	// Order preserves declaration order for deterministic iteration.
	Order []*Binding

	tree *ScopeTree // back-pointer, set once the owning tree is built; needed by Rename

	// CatchBlockEmpty is set on ScopeCatch scopes whose catch block has zero
	// statements, letting the low-signal skip rule (spec §4.7, "empty catch
	// parameter whose body has zero statements") avoid re-deriving it from
	// source text.
	CatchBlockEmpty bool

	// OwnerFn is set on ScopeFunction scopes to the FunctionNode that owns
	// them, letting the context extractor tell an anonymous function
	// expression or arrow (OwnerFn.Name == nil) from a named one without a
	// separate lookup structure.
	OwnerFn *FunctionNode
}

// HasBinding reports whether name is declared directly in this scope (not
// walking up to parents — callers that want shadowing-aware lookup should
// use the scope returned alongside a Binding from BuildScopeTree instead).
func (s *Scope) HasBinding(name string) bool {
	_, ok := s.Bindings[name]
	return ok
}

// GetBinding returns the binding declared directly in this scope, if any.
func (s *Scope) GetBinding(name string) (*Binding, bool) {
	b, ok := s.Bindings[name]
	return b, ok
}

// Rename schedules every occurrence of the binding named oldName in this
// scope (its declaration and every resolved reference) to read newName
// instead, via the owning tree's edit set. It is the scope-aware rename
// primitive the batch renamer applies once a cohort's LLM-proposed names
// have been normalized and collision-resolved.
func (s *Scope) Rename(oldName, newName string) error {
	b, ok := s.Bindings[oldName]
	if !ok {
		return &ParseError{Message: "no such binding: " + oldName}
	}
	if s.tree == nil || s.tree.Edits == nil {
		return &ParseError{Message: "scope not attached to an edit set"}
	}
	s.tree.Edits.RenameBinding(b, newName)
	delete(s.Bindings, oldName)
	b.Name = newName
	s.Bindings[newName] = b
	return nil
}

func newScope(kind ScopeKind, start, end int, parent *Scope) *Scope {
	s := &Scope{Kind: kind, Start: start, End: end, Parent: parent, Bindings: map[string]*Binding{}}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// declare creates or reuses the binding named name in s. ident (if non-nil)
// becomes the declaration site the first time it's seen; asRef additionally
// records ident as a reference (renaming target) right away. Hoisted `var`
// declarations pass asRef=false so the later in-order walk — which sees the
// same identifier node again — is the one that registers it as a reference,
// avoiding a duplicate edit at Print time.
func (s *Scope) declare(name string, ident *EIdentifier, isFunction, asRef bool) *Binding {
	if b, ok := s.Bindings[name]; ok {
		if b.Decl == nil && ident != nil {
			b.Decl = ident
			b.DeclIdent = ident
		}
		if asRef && ident != nil {
			b.Refs = append(b.Refs, ident)
		}
		return b
	}
	b := &Binding{Name: name, Decl: ident, DeclIdent: ident, Scope: s, IsFunction: isFunction}
	if asRef && ident != nil {
		b.Refs = append(b.Refs, ident)
	}
	s.Bindings[name] = b
	s.Order = append(s.Order, b)
	return b
}

// lookup resolves name starting at s and walking up through parents,
// implementing standard lexical shadowing.
func (s *Scope) lookup(name string) *Binding {
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.Bindings[name]; ok {
			return b
		}
	}
	return nil
}

// Globals collects every reference that never resolved to a binding declared
// in the tree (built-ins, ambient globals like `window`, or names the
// program reads without ever declaring — common in loosely-scoped bundles).
type Globals struct {
	// Refs maps a global name to every identifier node that referenced it.
	Refs map[string][]*EIdentifier
}

// ScopeTree is the fully-resolved result: the scope arena rooted at Program,
// plus unresolved global references.
type ScopeTree struct {
	Root    *Scope
	Globals Globals
	// AllScopes in a deterministic, pre-order traversal (Program first).
	AllScopes []*Scope
	// Edits accumulates renames made via (*Scope).Rename; shared by every
	// scope in this tree so Rename calls anywhere compose into one edit set.
	Edits *EditSet
}

func attachTree(s *Scope, st *ScopeTree) {
	s.tree = st
	for _, c := range s.Children {
		attachTree(c, st)
	}
}

// BuildScopeTree walks tree.Program, declaring bindings where JS creates
// them and resolving every identifier reference to the innermost matching
// binding, exactly as the engine's JS parser-adapter contract (§6.1)
// requires: function/class declaration names attribute to the ENCLOSING
// scope (so the function's own name is visible to siblings, not just to
// itself), while function/class EXPRESSION names are visible only inside
// their own body.
func BuildScopeTree(tree *Tree) *ScopeTree {
	b := &scopeBuilder{
		globals: map[string][]*EIdentifier{},
	}
	root := newScope(ScopeProgram, tree.Program.Start, tree.Program.End, nil)
	b.walkStmts(tree.Program.Body, root)

	st := &ScopeTree{Root: root, Globals: Globals{Refs: b.globals}, Edits: NewEditSet()}
	collectScopes(root, &st.AllScopes)
	attachTree(root, st)
	return st
}

// AllBindings returns every binding in the tree, sorted by the byte offset
// of its declaration site (§4.1: "an ordered list of bindings, sorted by
// declaration byte offset"). Bindings with no resolvable declaration
// position (shouldn't occur in practice, since every declare() call is
// reached through an identifier node) sort last.
func AllBindings(st *ScopeTree) []*Binding {
	var all []*Binding
	for _, s := range st.AllScopes {
		all = append(all, s.Order...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		oi, oj := declOffset(all[i]), declOffset(all[j])
		return oi < oj
	})
	return all
}

func declOffset(b *Binding) int {
	if b.DeclIdent != nil {
		return b.DeclIdent.Start
	}
	return 1 << 62
}

func collectScopes(s *Scope, out *[]*Scope) {
	*out = append(*out, s)
	// deterministic order: by start offset
	sort.SliceStable(s.Children, func(i, j int) bool { return s.Children[i].Start < s.Children[j].Start })
	for _, c := range s.Children {
		collectScopes(c, out)
	}
}

type scopeBuilder struct {
	globals map[string][]*EIdentifier
}

func (b *scopeBuilder) reference(name string, ident *EIdentifier, scope *Scope) {
	if bnd := scope.lookup(name); bnd != nil {
		bnd.Refs = append(bnd.Refs, ident)
		return
	}
	b.globals[name] = append(b.globals[name], ident)
}

// hoistVars pre-scans a function/program body for `var` declarations so
// forward references resolve correctly, matching JS hoisting (function
// declarations are declared by walkStmts/walkBlockBody instead). Block-scoped let/const/class are declared in
// document order instead (walkStmts handles those directly) since they are
// not hoisted across block boundaries in a way that matters for renaming:
// TDZ violations aren't something this engine needs to model.
func (b *scopeBuilder) hoistVars(body []Stmt, fnScope *Scope) {
	var walk func(s Stmt)
	walk = func(s Stmt) {
		switch n := s.(type) {
		case *SVarDecl:
			if n.Kind == DeclVar {
				for _, d := range n.Decls {
					b.hoistPatternNames(d.Target, fnScope)
				}
			}
		case *SBlock:
			for _, c := range n.Body {
				walk(c)
			}
		case *SIf:
			walk(n.Yes)
			if n.No != nil {
				walk(n.No)
			}
		case *SWhile:
			walk(n.Body)
		case *SDoWhile:
			walk(n.Body)
		case *SFor:
			if n.Init != nil {
				walk(n.Init)
			}
			walk(n.Body)
		case *SForIn:
			if n.IsDecl && n.Kind == DeclVar {
				b.hoistPatternNames(n.Pattern, fnScope)
			}
			walk(n.Body)
		case *SForOf:
			if n.IsDecl && n.Kind == DeclVar {
				b.hoistPatternNames(n.Pattern, fnScope)
			}
			walk(n.Body)
		case *SLabeled:
			walk(n.Body)
		case *STry:
			walk(n.Block)
			if n.CatchBlock != nil {
				walk(n.CatchBlock)
			}
			if n.Finally != nil {
				walk(n.Finally)
			}
		case *SSwitch:
			for _, c := range n.Cases {
				for _, st := range c.Body {
					walk(st)
				}
			}
		}
	}
	for _, s := range body {
		walk(s)
	}
}

// hoistPatternNames pre-declares every name in a `var` pattern WITHOUT
// registering the declaration site as a reference yet; the later in-order
// walk (walkStmt's *SVarDecl case, via resolvePatternRefs) supplies that
// single reference. This keeps a `var`-declared binding's Refs list free of
// the duplicate entry that would otherwise appear if both the hoisting pass
// and the in-order pass recorded the same declaration-site identifier.
func (b *scopeBuilder) hoistPatternNames(target Expr, scope *Scope) {
	switch n := target.(type) {
	case *EIdentifier:
		scope.declare(n.Name, n, false, false)
	case *EArray:
		for _, el := range n.Elements {
			if el != nil {
				b.hoistPatternNames(el, scope)
			}
		}
	case *EObject:
		for _, prop := range n.Properties {
			b.hoistPatternNames(prop.Value, scope)
		}
	case *ESpread:
		b.hoistPatternNames(n.Value, scope)
	case *EAssign:
		b.hoistPatternNames(n.Target, scope)
	}
}

// declarePatternNames declares every identifier appearing in a (possibly
// nested) binding pattern - identifier, array pattern, object pattern, rest,
// or defaulted element - in scope. The pattern is built from ordinary
// expression nodes (see ast.go), so this walk doubles as the single place
// that knows how to find "the identifiers that are actually bindings" inside
// one.
func (b *scopeBuilder) declarePatternNames(target Expr, scope *Scope, isFunction bool) {
	switch n := target.(type) {
	case *EIdentifier:
		scope.declare(n.Name, n, isFunction, true)
	case *EArray:
		for _, el := range n.Elements {
			if el == nil {
				continue
			}
			b.declarePatternNames(el, scope, false)
		}
	case *EObject:
		for _, prop := range n.Properties {
			if prop.Kind == PropertySpread {
				b.declarePatternNames(prop.Value, scope, false)
				continue
			}
			b.declarePatternNames(prop.Value, scope, false)
		}
	case *ESpread:
		b.declarePatternNames(n.Value, scope, false)
	case *EAssign:
		b.declarePatternNames(n.Target, scope, false)
		b.walkExpr(n.Value, scope)
	case *EMember:
		// Assignment target like `({a: obj.x} = y)`: obj.x is not a new
		// binding, it's a reference + property access.
		b.walkExpr(n, scope)
	default:
		// Fallback: treat as a plain expression target (e.g. a bare
		// assignment-expression target that isn't actually a declaration).
		b.walkExpr(target, scope)
	}
}

func (b *scopeBuilder) walkStmts(stmts []Stmt, scope *Scope) {
	// First pass: hoist var + function declarations within this scope's
	// immediate statement list (and nested non-function-boundary statements).
	for _, s := range stmts {
		if fd, ok := s.(*SFunctionDecl); ok && fd.Fn.Name != nil {
			scope.declare(fd.Fn.Name.Name, fd.Fn.Name, true, true)
		}
	}
	b.hoistVars(stmts, scope)

	for _, s := range stmts {
		b.walkStmt(s, scope)
	}
}

func (b *scopeBuilder) walkStmt(s Stmt, scope *Scope) {
	switch n := s.(type) {
	case *SBlock:
		blockScope := newScope(ScopeBlock, n.Start, n.End, scope)
		b.walkBlockBody(n.Body, blockScope)

	case *SVarDecl:
		for i := range n.Decls {
			d := &n.Decls[i]
			if n.Kind != DeclVar {
				b.declarePatternNames(d.Target, scope, false)
			}
			if d.Init != nil {
				b.walkExpr(d.Init, scope)
			}
			if n.Kind == DeclVar {
				// Already hoisted; still must resolve the target identifiers
				// as references to the hoisted binding so their Refs include
				// this occurrence (needed so renaming rewrites it).
				b.resolvePatternRefs(d.Target, scope)
			}
		}

	case *SFunctionDecl:
		// Name already declared in enclosing scope by walkStmts/hoistVars;
		// still need to build the function's own scope.
		b.walkFunction(n.Fn, scope)

	case *SClassDecl:
		b.walkClass(n.Class, scope, true)

	case *SExpr:
		b.walkExpr(n.Value, scope)

	case *SReturn:
		if n.Value != nil {
			b.walkExpr(n.Value, scope)
		}

	case *SThrow:
		b.walkExpr(n.Value, scope)

	case *SIf:
		b.walkExpr(n.Test, scope)
		b.walkStmt(n.Yes, scope)
		if n.No != nil {
			b.walkStmt(n.No, scope)
		}

	case *SWhile:
		b.walkExpr(n.Test, scope)
		b.walkStmt(n.Body, scope)

	case *SDoWhile:
		b.walkStmt(n.Body, scope)
		b.walkExpr(n.Test, scope)

	case *SFor:
		forScope := newScope(ScopeFor, n.ScopeStart, n.ScopeEnd, scope)
		if n.Init != nil {
			b.walkStmtInForHead(n.Init, forScope)
		}
		if n.Test != nil {
			b.walkExpr(n.Test, forScope)
		}
		if n.Update != nil {
			b.walkExpr(n.Update, forScope)
		}
		b.walkStmt(n.Body, forScope)

	case *SForIn:
		forScope := newScope(ScopeFor, n.ScopeStart, n.ScopeEnd, scope)
		b.walkExpr(n.Object, forScope)
		if n.IsDecl {
			if n.Kind != DeclVar {
				b.declarePatternNames(n.Pattern, forScope, false)
			} else {
				b.resolvePatternRefs(n.Pattern, forScope)
			}
		} else {
			b.walkExpr(n.Target, forScope)
		}
		b.walkStmt(n.Body, forScope)

	case *SForOf:
		forScope := newScope(ScopeFor, n.ScopeStart, n.ScopeEnd, scope)
		b.walkExpr(n.Object, forScope)
		if n.IsDecl {
			if n.Kind != DeclVar {
				b.declarePatternNames(n.Pattern, forScope, false)
			} else {
				b.resolvePatternRefs(n.Pattern, forScope)
			}
		} else {
			b.walkExpr(n.Target, forScope)
		}
		b.walkStmt(n.Body, forScope)

	case *SLabeled:
		b.walkStmt(n.Body, scope)

	case *STry:
		tryScope := newScope(ScopeBlock, n.Block.Start, n.Block.End, scope)
		b.walkBlockBody(n.Block.Body, tryScope)
		if n.HasCatch {
			end := n.End
			if n.CatchBlock != nil {
				end = n.CatchBlock.End
			}
			start := n.Block.End
			catchScope := newScope(ScopeCatch, start, end, scope)
			catchScope.CatchBlockEmpty = n.CatchBlock != nil && len(n.CatchBlock.Body) == 0
			if n.CatchParam != nil {
				b.declarePatternNames(n.CatchParam, catchScope, false)
			}
			if n.CatchBlock != nil {
				b.walkBlockBody(n.CatchBlock.Body, catchScope)
			}
		}
		if n.Finally != nil {
			finScope := newScope(ScopeBlock, n.Finally.Start, n.Finally.End, scope)
			b.walkBlockBody(n.Finally.Body, finScope)
		}

	case *SSwitch:
		b.walkExpr(n.Disc, scope)
		swScope := newScope(ScopeSwitch, n.ScopeStart, n.ScopeEnd, scope)
		for _, c := range n.Cases {
			if c.Test != nil {
				b.walkExpr(c.Test, swScope)
			}
		}
		// Hoist lexical decls across all cases (they share one scope), then
		// walk each case's statements in order.
		for _, c := range n.Cases {
			for _, cs := range c.Body {
				if fd, ok := cs.(*SFunctionDecl); ok && fd.Fn.Name != nil {
					swScope.declare(fd.Fn.Name.Name, fd.Fn.Name, true, true)
				}
			}
		}
		for _, c := range n.Cases {
			for _, cs := range c.Body {
				b.walkStmt(cs, swScope)
			}
		}

	case *SBreak, *SContinue, *SEmpty, *SDebugger:
		// no identifiers

	}
}

// walkBlockBody is walkStmts but for a scope that has already been created
// by the caller (block/try/finally bodies).
func (b *scopeBuilder) walkBlockBody(stmts []Stmt, scope *Scope) {
	for _, s := range stmts {
		if fd, ok := s.(*SFunctionDecl); ok && fd.Fn.Name != nil {
			scope.declare(fd.Fn.Name.Name, fd.Fn.Name, true, true)
		}
	}
	for _, s := range stmts {
		b.walkStmt(s, scope)
	}
}

// walkStmtInForHead handles the classic for(init;;) init clause, which is
// either a var-decl statement or an expression statement, both scoped to the
// loop's own ScopeFor.
func (b *scopeBuilder) walkStmtInForHead(s Stmt, forScope *Scope) {
	switch n := s.(type) {
	case *SVarDecl:
		for i := range n.Decls {
			d := &n.Decls[i]
			if n.Kind != DeclVar {
				b.declarePatternNames(d.Target, forScope, false)
			} else {
				b.resolvePatternRefs(d.Target, forScope)
			}
			if d.Init != nil {
				b.walkExpr(d.Init, forScope)
			}
		}
	case *SExpr:
		b.walkExpr(n.Value, forScope)
	}
}

// resolvePatternRefs walks a pattern whose names were already hoisted
// elsewhere (plain `var`), resolving each identifier occurrence as a
// reference rather than declaring it again.
func (b *scopeBuilder) resolvePatternRefs(target Expr, scope *Scope) {
	switch n := target.(type) {
	case *EIdentifier:
		b.reference(n.Name, n, scope)
	case *EArray:
		for _, el := range n.Elements {
			if el != nil {
				b.resolvePatternRefs(el, scope)
			}
		}
	case *EObject:
		for _, prop := range n.Properties {
			b.resolvePatternRefs(prop.Value, scope)
		}
	case *ESpread:
		b.resolvePatternRefs(n.Value, scope)
	case *EAssign:
		b.resolvePatternRefs(n.Target, scope)
		b.walkExpr(n.Value, scope)
	default:
		b.walkExpr(target, scope)
	}
}

func (b *scopeBuilder) walkFunction(fn *FunctionNode, outer *Scope) {
	fnScope := newScope(ScopeFunction, fn.ScopeStart, fn.ScopeEnd, outer)
	fnScope.OwnerFn = fn
	for _, param := range fn.Params {
		b.declarePatternNames(param, fnScope, false)
		// Default values reference the OUTER-to-param (but inner-to-function)
		// scope; using fnScope is an acceptable simplification since defaults
		// referencing later params are rare in generated code and never
		// change which binding a rename targets across the whole tree.
		if asn, ok := param.(*EAssign); ok {
			b.walkExpr(asn.Value, fnScope)
		}
	}
	if fn.Body != nil {
		b.walkStmts(fn.Body.Body, fnScope)
	} else if fn.ExprBody != nil {
		b.walkExpr(fn.ExprBody, fnScope)
	}
}

func (b *scopeBuilder) walkClass(cls *ClassNode, outer *Scope, isDecl bool) {
	declScope := outer
	if !isDecl && cls.Name != nil {
		// Named class expression: name is visible only inside the class body.
		declScope = newScope(ScopeClass, cls.Start, cls.End, outer)
		declScope.declare(cls.Name.Name, cls.Name, true, true)
	} else if isDecl && cls.Name != nil {
		outer.declare(cls.Name.Name, cls.Name, true, true)
	}
	if cls.SuperClass != nil {
		b.walkExpr(cls.SuperClass, outer)
	}
	for _, m := range cls.Members {
		if m.Computed {
			b.walkExpr(m.Key, declScope)
		}
		switch m.Kind {
		case ClassStaticBlock:
			blockScope := newScope(ScopeBlock, m.Body.Start, m.Body.End, declScope)
			b.walkBlockBody(m.Body.Body, blockScope)
		case ClassField:
			if m.Value != nil {
				// Field initializers run with `this` bound to the instance;
				// no new lexical scope is needed for identifier purposes.
				b.walkExpr(m.Value, declScope)
			}
		default:
			if m.Fn != nil {
				b.walkFunction(m.Fn, declScope)
			}
		}
	}
}

func (b *scopeBuilder) walkExpr(e Expr, scope *Scope) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *EIdentifier:
		b.reference(n.Name, n, scope)
	case *EPrivateIdentifier, *ENumber, *EString, *ERegExp, *EBoolean, *ENull, *EThis, *ESuper:
		// no sub-expressions
	case *ETemplate:
		for _, ex := range n.Exprs {
			b.walkExpr(ex, scope)
		}
		if n.Tag != nil {
			b.walkExpr(n.Tag, scope)
		}
	case *EArray:
		for _, el := range n.Elements {
			if el != nil {
				b.walkExpr(el, scope)
			}
		}
	case *EObject:
		for _, prop := range n.Properties {
			if prop.Computed {
				b.walkExpr(prop.Key, scope)
			}
			b.walkExpr(prop.Value, scope)
		}
	case *ESpread:
		b.walkExpr(n.Value, scope)
	case *EAssign:
		// LHS may itself be a destructuring pattern reused in expression
		// position (`[a, b] = [1, 2]`); its identifiers are references to
		// already-existing bindings, never new declarations, here.
		b.resolvePatternRefs(n.Target, scope)
		b.walkExpr(n.Value, scope)
	case *EUnary:
		b.walkExpr(n.Value, scope)
	case *EBinary:
		b.walkExpr(n.Left, scope)
		b.walkExpr(n.Right, scope)
	case *EConditional:
		b.walkExpr(n.Test, scope)
		b.walkExpr(n.Yes, scope)
		b.walkExpr(n.No, scope)
	case *ESequence:
		for _, ex := range n.Exprs {
			b.walkExpr(ex, scope)
		}
	case *ECall:
		b.walkExpr(n.Callee, scope)
		for _, a := range n.Args {
			b.walkExpr(a, scope)
		}
	case *ENew:
		b.walkExpr(n.Callee, scope)
		for _, a := range n.Args {
			b.walkExpr(a, scope)
		}
	case *EMember:
		b.walkExpr(n.Object, scope)
		if n.Computed {
			b.walkExpr(n.PropertyExpr, scope)
		}
		// n.Property (non-computed) is never a reference: see EMember doc.
	case *EArrow:
		b.walkFunction(n.Fn, scope)
	case *EFunction:
		if n.Fn.Name != nil {
			// Named function expression: name visible only inside its own
			// body, so give it a tiny wrapping scope before the fn scope.
			named := newScope(ScopeClass, n.Fn.ScopeStart, n.Fn.ScopeEnd, scope)
			named.declare(n.Fn.Name.Name, n.Fn.Name, true, true)
			b.walkFunction(n.Fn, named)
		} else {
			b.walkFunction(n.Fn, scope)
		}
	case *EClass:
		b.walkClass(n.Class, scope, false)
	case *EYield:
		if n.Value != nil {
			b.walkExpr(n.Value, scope)
		}
	case *EAwait:
		b.walkExpr(n.Value, scope)
	}
}
