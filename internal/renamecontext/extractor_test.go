package renamecontext

import (
	"strings"
	"testing"

	"github.com/codalotl/jsrenamer/internal/grouping"
	"github.com/codalotl/jsrenamer/internal/jsast"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *jsast.Tree {
	t.Helper()
	tree, err := jsast.ParseSource(src)
	require.NoError(t, err)
	return tree
}

func findBinding(t *testing.T, tree *jsast.Tree, name string) *jsast.Binding {
	t.Helper()
	for _, s := range tree.Scopes.AllScopes {
		if b, ok := s.Bindings[name]; ok {
			return b
		}
	}
	t.Fatalf("no binding named %q", name)
	return nil
}

func TestExtractIncludesFocusHintForSingleTarget(t *testing.T) {
	src := `function outer() {
  var a = 1;
  function inner(x) {
    return x + a;
  }
  return inner(a);
}
`
	tree := mustParse(t, src)
	b := findBinding(t, tree, "x")
	ex := New(tree, 2000, 16)
	out := ex.Extract(&grouping.Batch{Bindings: []*jsast.Binding{b}})
	require.Contains(t, out, "Focus identifier: x")
	require.Contains(t, out, "inner")
}

func TestExtractWalksPastAnonymousFunctionScopes(t *testing.T) {
	src := `var handler = function(event) {
  var payload = event.data;
  return payload;
};
`
	tree := mustParse(t, src)
	b := findBinding(t, tree, "payload")
	ex := New(tree, 2000, 16)
	out := ex.Extract(&grouping.Batch{Bindings: []*jsast.Binding{b}})
	require.Contains(t, out, "handler")
}

func TestExtractGroupsMultipleTargetsAtCommonAncestor(t *testing.T) {
	src := `function outer() {
  var a = 1;
  var b = 2;
  return a + b;
}
`
	tree := mustParse(t, src)
	ba := findBinding(t, tree, "a")
	bb := findBinding(t, tree, "b")
	ex := New(tree, 2000, 16)
	out := ex.Extract(&grouping.Batch{Bindings: []*jsast.Binding{ba, bb}})
	require.Contains(t, out, "--- a ---")
	require.Contains(t, out, "--- b ---")
}

func TestExtractRespectsCharacterBudgetFallback(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("function outer() {\n")
	for i := 0; i < 200; i++ {
		sb.WriteString("  doSomething();\n")
	}
	sb.WriteString("  var target = 1;\n")
	for i := 0; i < 200; i++ {
		sb.WriteString("  doSomethingElse();\n")
	}
	sb.WriteString("  return target;\n}\n")

	tree := mustParse(t, sb.String())
	b := findBinding(t, tree, "target")
	ex := New(tree, 200, 16)
	out := ex.Extract(&grouping.Batch{Bindings: []*jsast.Binding{b}})
	require.Contains(t, out, "target")
	require.Less(t, len(out), len(sb.String()))
}

func TestExtractAppendsGlobalReferencesForProgramScopedBinding(t *testing.T) {
	src := `var config = {};
function useIt() {
  return config.value;
}
function useItAgain() {
  return config.other;
}
`
	tree := mustParse(t, src)
	b := findBinding(t, tree, "config")
	ex := New(tree, 4000, 16)
	out := ex.Extract(&grouping.Batch{Bindings: []*jsast.Binding{b}})
	require.Contains(t, out, "=== Global References ===")
}
