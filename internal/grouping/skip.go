package grouping

import (
	"strings"

	"github.com/codalotl/jsrenamer/internal/jsast"
)

// StructurallySkippable implements the part of spec §4.7's low-signal skip
// list that is decidable from a Binding alone: the empty-catch-parameter
// rule. The other structural forms ("function N(){}", "class N {}", trivial
// var initializers) need the richer FunctionNode/ClassNode/Declarator — see
// IsTrivialFunctionNode, IsTrivialClassNode, and IsTrivialDeclarator below.
// Of these, only IsTrivialFunctionNode is applied by renameengine, which
// reaches the FunctionNode through the scope tree; IsTrivialClassNode and
// IsTrivialDeclarator are not called by the engine. The
// remaining §4.7 rule — context shorter than 10 non-whitespace characters —
// can only be evaluated once the context extractor has rendered a batch's
// context, so it is checked separately by the engine after extraction.
func StructurallySkippable(b *jsast.Binding) bool {
	return b.Scope.Kind == jsast.ScopeCatch && b.Scope.CatchBlockEmpty
}

// IsTrivialFunctionNode reports whether fn is an empty-bodied function
// declaration with at most one parameter ("function N(){}" / "function
// N(x){}").
func IsTrivialFunctionNode(fn *jsast.FunctionNode) bool {
	return fn.Body != nil && len(fn.Body.Body) == 0 && len(fn.Params) <= 1
}

// IsTrivialClassNode reports whether cls has no members ("class N {}").
func IsTrivialClassNode(cls *jsast.ClassNode) bool {
	return len(cls.Members) == 0
}

// IsTrivialDeclarator reports whether d is one of the structurally trivial
// single-statement forms in spec §4.7: an empty string/object/array
// initializer, or a bare single-name array pattern with no initializer.
func IsTrivialDeclarator(d *jsast.Declarator) bool {
	if d.Init == nil {
		if arr, ok := d.Target.(*jsast.EArray); ok && len(arr.Elements) == 1 {
			return true
		}
		return false
	}
	switch v := d.Init.(type) {
	case *jsast.EString:
		return strings.Trim(v.Raw, `"'`+"`") == ""
	case *jsast.EObject:
		return len(v.Properties) == 0
	case *jsast.EArray:
		return len(v.Elements) == 0
	}
	return false
}
