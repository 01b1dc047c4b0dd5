package jsast

// Visitor holds optional callbacks invoked as Walk descends a tree. Every
// field is optional; a nil callback is simply skipped. This mirrors the
// "visitor struct of function fields" shape used by small Go AST walkers
// (simpler than a full double-dispatch Visitor interface). Walk calls
// EnterScope, Ident and LeaveScope only; it never calls Stmt or Expr.
type Visitor struct {
	EnterScope func(s *Scope)
	LeaveScope func(s *Scope)
	Ident      func(id *EIdentifier)
	Stmt       func(s Stmt)
	Expr       func(e Expr)
}

// Walk traverses the scope tree in pre-order: EnterScope for each scope,
// Ident for every resolved reference of each binding declared in it (in
// declaration order), then its child scopes, then LeaveScope. It walks
// scopes, not raw AST statements or expressions.
func Walk(st *ScopeTree, v Visitor) {
	walkScope(st.Root, v)
}

func walkScope(s *Scope, v Visitor) {
	if v.EnterScope != nil {
		v.EnterScope(s)
	}
	for _, b := range s.Order {
		if v.Ident != nil {
			for _, ref := range b.Refs {
				v.Ident(ref)
			}
		}
	}
	for _, c := range s.Children {
		walkScope(c, v)
	}
	if v.LeaveScope != nil {
		v.LeaveScope(s)
	}
}
