// Package renamecontext implements the context extractor (spec §4.5): given
// a batch of target bindings and the tree they come from, render a bounded
// textual slice of source suitable as LLM prompt context. It never mutates
// the tree; it only slices the original source text that the tree still
// points into (renames scheduled so far don't change byte offsets, since
// they're replayed at Print time, not applied in place).
package renamecontext

import (
	"fmt"
	"strings"

	"github.com/codalotl/jsrenamer/internal/grouping"
	"github.com/codalotl/jsrenamer/internal/jsast"
)

// Extractor holds the knobs spec §4.5 parameterizes context extraction by.
type Extractor struct {
	Source               string
	Tree                 *jsast.Tree
	ContextWindowSize    int // character budget
	MinInformationScore  int // minimum line count before a context is "good enough"
}

// New returns an Extractor bound to tree's resolved source and scopes.
func New(tree *jsast.Tree, contextWindowSize, minInformationScore int) *Extractor {
	return &Extractor{Source: tree.Source, Tree: tree, ContextWindowSize: contextWindowSize, MinInformationScore: minInformationScore}
}

// Extract renders the prompt context for one batch from §4.5's steps. Step 6
// (common-ancestor shrink) runs before step 5 (character-budget fallback),
// and step 9's decoration is rendered as a snippet header (see snippetFor).
func (e *Extractor) Extract(batch *grouping.Batch) string {
	if len(batch.Bindings) == 0 {
		return ""
	}

	first := batch.Bindings[0]
	p := first.Scope

	// Step 2: walk upward out of anonymous function expressions/arrows.
	for p.Kind == jsast.ScopeFunction && p.OwnerFn != nil && p.OwnerFn.Name == nil && p.Parent != nil {
		p = p.Parent
	}

	// Steps 3-4: expand upward until the line-count threshold is met or we
	// hit the program root.
	for p.Parent != nil && lineCount(e.slice(p.Start, p.End)) < e.MinInformationScore {
		p = p.Parent
	}

	// Step 6: multiple targets that bottomed out at the root shrink to their
	// minimal common ancestor instead of using the whole program.
	if len(batch.Bindings) > 1 && p.Kind == jsast.ScopeProgram {
		if lca := minimalCommonAncestor(batch.Bindings); lca != nil {
			p = lca
		}
	}

	context := e.slice(p.Start, p.End)

	// Step 5: character-budget fallback via the enclosing-container
	// algorithm (center on the target statement, alternately expand).
	if len(context) > e.ContextWindowSize {
		context = e.enclosingContainerFallback(p, first)
	}

	// Step 7: per-target labelled snippets, appended after the shared window
	// so every target is locatable even if the window truncated one.
	perTargetBudget := 120
	if len(batch.Bindings) > 0 {
		if b := e.ContextWindowSize / len(batch.Bindings); b > perTargetBudget {
			perTargetBudget = b
		}
	}
	var snippets strings.Builder
	for _, b := range batch.Bindings {
		snippets.WriteString(e.snippetFor(b, perTargetBudget))
	}

	full := context + snippets.String()

	// Step 8: single-target batches get one more expansion pass plus a focus hint.
	if len(batch.Bindings) == 1 {
		for p.Parent != nil && lineCount(full) < e.MinInformationScore {
			p = p.Parent
			context = e.slice(p.Start, p.End)
			full = context + snippets.String()
		}
		full += fmt.Sprintf("\n// Focus identifier: %s\n", first.Name)
	}

	// Global references: any target declared at program scope gets its
	// whole-tree reference sites appended, budget permitting.
	full += e.globalReferencesBlock(batch, full)

	return full
}

func (e *Extractor) slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(e.Source) {
		end = len(e.Source)
	}
	if start > end {
		return ""
	}
	return e.Source[start:end]
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// minimalCommonAncestor returns the nearest scope that is an ancestor of
// (or equal to) every target binding's scope.
func minimalCommonAncestor(bindings []*jsast.Binding) *jsast.Scope {
	if len(bindings) == 0 {
		return nil
	}
	ancestor := bindings[0].Scope
	for _, b := range bindings[1:] {
		ancestor = commonAncestor(ancestor, b.Scope)
		if ancestor == nil {
			return nil
		}
	}
	return ancestor
}

func commonAncestor(a, b *jsast.Scope) *jsast.Scope {
	depth := func(s *jsast.Scope) int {
		d := 0
		for p := s; p != nil; p = p.Parent {
			d++
		}
		return d
	}
	da, db := depth(a), depth(b)
	for da > db {
		a = a.Parent
		da--
	}
	for db > da {
		b = b.Parent
		db--
	}
	for a != b {
		if a == nil || b == nil {
			return nil
		}
		a = a.Parent
		b = b.Parent
	}
	return a
}

// enclosingContainerFallback centers on the statement containing target's
// declaration within p's statement list, then alternately prepends/appends
// neighboring statements until the character budget would be exceeded.
func (e *Extractor) enclosingContainerFallback(p *jsast.Scope, target *jsast.Binding) string {
	stmts := containerStmts(e.Tree, p)
	if len(stmts) == 0 {
		return truncate(e.slice(p.Start, p.End), e.ContextWindowSize)
	}

	targetOffset := 0
	if target.DeclIdent != nil {
		targetOffset = target.DeclIdent.Start
	}
	centerIdx := 0
	for i, s := range stmts {
		start, end := s.Span()
		if targetOffset >= start && targetOffset < end {
			centerIdx = i
			break
		}
	}

	lo, hi := centerIdx, centerIdx
	budget := e.ContextWindowSize
	start, end := stmts[centerIdx].Span()
	used := end - start
	expandLow := true
	for used < budget {
		if expandLow && lo > 0 {
			lo--
			s, _ := stmts[lo].Span()
			_, e2 := stmts[lo].Span()
			used += e2 - s
			expandLow = false
			continue
		}
		if !expandLow && hi < len(stmts)-1 {
			hi++
			s, e2 := stmts[hi].Span()
			used += e2 - s
			expandLow = true
			continue
		}
		if lo == 0 && hi == len(stmts)-1 {
			break
		}
		expandLow = !expandLow
	}

	rangeStart, _ := stmts[lo].Span()
	_, rangeEnd := stmts[hi].Span()
	return truncate(e.slice(rangeStart, rangeEnd), e.ContextWindowSize)
}

func containerStmts(tree *jsast.Tree, p *jsast.Scope) []jsast.Stmt {
	if p.Kind == jsast.ScopeFunction && p.OwnerFn != nil && p.OwnerFn.Body != nil {
		return p.OwnerFn.Body.Body
	}
	return tree.Program.Body
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// snippetFor renders the "Rename this NAME"-style labelled excerpt for one
// target: a header naming it and a bounded slice of source around its
// declaration. The spec's temporary "Rename this NAME" trailing-comment
// decoration is a render-time-only annotation that never persists in the
// tree; since decorate-then-strip is observationally equivalent to never
// decorating, this renders the header directly instead of inserting and
// removing a comment.
func (e *Extractor) snippetFor(b *jsast.Binding, windowChars int) string {
	if b.DeclIdent == nil {
		return ""
	}
	half := windowChars / 2
	start := b.DeclIdent.Start - half
	end := b.DeclIdent.End + half
	if start < 0 {
		start = 0
	}
	if end > len(e.Source) {
		end = len(e.Source)
	}
	excerpt := e.Source[start:end]
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n// --- %s ---\n", b.Name))
	if start > 0 {
		sb.WriteString("...")
	}
	sb.WriteString(excerpt)
	if end < len(e.Source) {
		sb.WriteString("...")
	}
	sb.WriteString("\n")
	return sb.String()
}

// globalReferencesBlock appends whole-tree reference sites for any
// program-scoped target, under the "=== Global References ===" banner,
// trimmed to whatever budget remains after the rest of the context.
func (e *Extractor) globalReferencesBlock(batch *grouping.Batch, soFar string) string {
	remaining := e.ContextWindowSize - len(soFar)
	if remaining <= 0 {
		return ""
	}

	var sb strings.Builder
	wrote := false
	for _, b := range batch.Bindings {
		if b.Scope.Kind != jsast.ScopeProgram {
			continue
		}
		for _, ref := range b.Refs {
			line := lineContaining(e.Source, ref.Start)
			if line == "" {
				continue
			}
			if !wrote {
				sb.WriteString("\n// === Global References ===\n")
				wrote = true
			}
			sb.WriteString(strings.TrimSpace(line))
			sb.WriteString("\n")
			if sb.Len() >= remaining {
				return truncate(sb.String(), remaining)
			}
		}
	}
	return sb.String()
}

func lineContaining(src string, offset int) string {
	if offset < 0 || offset > len(src) {
		return ""
	}
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	end := strings.IndexByte(src[offset:], '\n')
	if end == -1 {
		return src[start:]
	}
	return src[start : offset+end]
}
