package jsast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) (*Tree, *ScopeTree) {
	t.Helper()
	tree, err := Parse(src)
	require.NoError(t, err)
	st := BuildScopeTree(tree)
	return tree, st
}

func findBinding(st *ScopeTree, name string) *Binding {
	for _, s := range st.AllScopes {
		if b, ok := s.Bindings[name]; ok {
			return b
		}
	}
	return nil
}

func TestRenameSimpleLocal(t *testing.T) {
	src := `function f(a){var b=a+1;return b;}`
	_, st := mustParse(t, src)
	b := findBinding(st, "b")
	require.NotNil(t, b)
	assert.Len(t, b.Refs, 2) // declaration + return usage
}

func TestShadowingDoesNotCrossRename(t *testing.T) {
	// S1-style: an outer `x` and an inner, shadowed `x` must resolve to two
	// distinct bindings so renaming one never touches the other.
	src := `function f(x){ if(true){ let x=2; return x; } return x; }`
	_, st := mustParse(t, src)

	var inner, outer *Binding
	for _, s := range st.AllScopes {
		if b, ok := s.Bindings["x"]; ok {
			if s.Kind == ScopeBlock {
				inner = b
			} else if s.Kind == ScopeFunction {
				outer = b
			}
		}
	}
	require.NotNil(t, inner)
	require.NotNil(t, outer)
	assert.NotSame(t, inner, outer)
	assert.Len(t, inner.Refs, 2)
	assert.Len(t, outer.Refs, 2)
}

func TestPropertyNamesNeverBindings(t *testing.T) {
	// S3-style: object member / class method names must never appear as
	// bindings or references that a rename could touch.
	src := `class Foo { bar(){ return this.bar; } }`
	_, st := mustParse(t, src)
	assert.Nil(t, findBinding(st, "bar"))
	// Foo is a class declaration name attributed to the enclosing scope.
	fooBinding := findBinding(st, "Foo")
	require.NotNil(t, fooBinding)
	assert.Equal(t, st.Root, fooBinding.Scope)
}

func TestFunctionDeclarationAttributesToEnclosingScope(t *testing.T) {
	src := `function outer(){ function inner(){ return 1; } return inner(); }`
	_, st := mustParse(t, src)

	var outerScope, innerBindingScope *Scope
	for _, s := range st.AllScopes {
		if s.Kind == ScopeFunction {
			if _, ok := s.Bindings["inner"]; ok {
				innerBindingScope = s
			}
		}
	}
	for _, s := range st.AllScopes {
		if _, ok := s.Bindings["outer"]; ok {
			outerScope = s
		}
	}
	require.NotNil(t, outerScope)
	require.NotNil(t, innerBindingScope)
	assert.Equal(t, st.Root, outerScope)
	// `inner`'s binding lives in outer()'s own function scope (its enclosing
	// scope), not in some nested block.
	assert.Equal(t, ScopeFunction, innerBindingScope.Kind)
}

func TestDestructuringParamsDeclareEveryName(t *testing.T) {
	src := `function f({a, b: [c, ...d]}, ...rest){ return a+c+d.length+rest.length; }`
	_, st := mustParse(t, src)
	for _, name := range []string{"a", "c", "d", "rest"} {
		assert.NotNil(t, findBinding(st, name), "missing binding for %s", name)
	}
	// `b` is a property key, never a binding.
	assert.Nil(t, findBinding(st, "b"))
}

func TestRenameAppliesAcrossAllReferences(t *testing.T) {
	src := `function f(a){ var total=0; for(var i=0;i<a;i++){ total+=i; } return total; }`
	tree, st := mustParse(t, src)
	totalB := findBinding(st, "total")
	require.NotNil(t, totalB)

	es := NewEditSet()
	es.RenameBinding(totalB, "sum")
	out := es.Print(tree.Source)

	assert.Contains(t, out, "var sum=0")
	assert.Contains(t, out, "sum+=i")
	assert.Contains(t, out, "return sum;")
	assert.NotContains(t, out, "total")
}

func TestGlobalReferencesAreCollected(t *testing.T) {
	src := `function f(){ return window.location.href + undeclaredGlobal; }`
	_, st := mustParse(t, src)
	assert.Contains(t, st.Globals.Refs, "window")
	assert.Contains(t, st.Globals.Refs, "undeclaredGlobal")
}

func TestCatchParamScopedToCatchBlock(t *testing.T) {
	src := `function f(){ try { risky(); } catch(e) { return e.message; } }`
	_, st := mustParse(t, src)
	b := findBinding(st, "e")
	require.NotNil(t, b)
	assert.Equal(t, ScopeCatch, b.Scope.Kind)
}

func TestArrowFunctionParamsScopeCorrectly(t *testing.T) {
	src := `const add = (a, b) => a + b;`
	_, st := mustParse(t, src)
	a := findBinding(st, "a")
	require.NotNil(t, a)
	assert.Len(t, a.Refs, 2)
}

func TestTemplateLiteralInterpolationResolvesIdentifiers(t *testing.T) {
	src := "function f(name){ return `hello ${name}!`; }"
	_, st := mustParse(t, src)
	b := findBinding(st, "name")
	require.NotNil(t, b)
	assert.Len(t, b.Refs, 2)
}

func TestForOfLoopVariableScopedPerIteration(t *testing.T) {
	src := `function f(items){ for(const item of items){ use(item); } }`
	_, st := mustParse(t, src)
	b := findBinding(st, "item")
	require.NotNil(t, b)
	assert.Equal(t, ScopeFor, b.Scope.Kind)
}

func TestParseErrorReturnedNotPanicked(t *testing.T) {
	_, err := Parse(`function f( { `)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}
