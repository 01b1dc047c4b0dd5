package jsast

// printer.go wires Tree to its ScopeTree and EditSet so callers get the
// small, spec-shaped surface (ParseSource / Tree.Print / Tree.Walk /
// Scope.Rename / Scope.HasBinding / Scope.GetBinding) instead of having to
// thread Parse + BuildScopeTree + NewEditSet through separately. No actual
// "pretty-printing" happens here — rename output is produced by replaying
// the accumulated edits over the untouched original bytes (see rename.go),
// which is what keeps every unchanged subtree byte-for-byte stable.

// ParseSource parses src and resolves its scope tree in one step, returning
// a Tree ready for Walk/Rename/Print.
func ParseSource(src string) (*Tree, error) {
	t, err := Parse(src)
	if err != nil {
		return nil, err
	}
	t.Scopes = BuildScopeTree(t)
	return t, nil
}

// Walk traverses t's resolved scope tree, invoking v's callbacks.
func (t *Tree) Walk(v Visitor) {
	if t.Scopes == nil {
		return
	}
	Walk(t.Scopes, v)
}

// Print replays every rename made via (*Scope).Rename over the original
// source and returns the result.
func (t *Tree) Print() string {
	if t.Scopes == nil || t.Scopes.Edits == nil {
		return t.Source
	}
	return t.Scopes.Edits.Print(t.Source)
}
