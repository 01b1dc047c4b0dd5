// Package grouping implements the scope analyzer's downstream partitioning
// steps: grouping bindings by their grouping scope (§4.2), folding
// neighboring small scopes into bigger batches to cut LLM round-trips
// (§4.3), and splitting oversized groups into maxBatchSize-bounded batches
// (§4.4). It operates purely over jsast's resolved Binding/Scope values —
// no LLM or I/O concerns live here, matching how the teacher keeps
// orchestration (gorenamer) separate from the scope/diff primitives it
// drives.
package grouping

import (
	"sort"

	"github.com/codalotl/jsrenamer/internal/jsast"
)

// Group is every binding sharing one grouping-scope: the scope that owns
// the binding, with function/class declaration names already attributed to
// their enclosing scope by the jsast scope builder (so grouping here needs
// no extra promotion step — Binding.Scope already IS the grouping scope).
type Group struct {
	Scope    *jsast.Scope
	Bindings []*jsast.Binding
}

// GroupBindings partitions an ordered binding list (as returned by
// jsast.AllBindings) into groups keyed by grouping scope, then sorts the
// groups by scope byte-span ascending so inner, name-rich scopes are
// renamed before outer ones (§4.2 — limits collision cascades outward).
func GroupBindings(bindings []*jsast.Binding) []*Group {
	byScope := map[*jsast.Scope]*Group{}
	var order []*Group
	for _, b := range bindings {
		g, ok := byScope[b.Scope]
		if !ok {
			g = &Group{Scope: b.Scope}
			byScope[b.Scope] = g
			order = append(order, g)
		}
		g.Bindings = append(g.Bindings, b)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return spanBytes(order[i].Scope) < spanBytes(order[j].Scope)
	})
	return order
}

func spanBytes(s *jsast.Scope) int { return s.End - s.Start }

// Batch is the unit eventually sent to one LLM call: bindings from one or
// more merged groups, plus the nearest enclosing program/function/class
// scope ("merge boundary") all of its groups shared, needed so the context
// extractor knows which container to render.
type Batch struct {
	Bindings []*jsast.Binding
	Boundary *jsast.Scope
}

// boundaryProximityBytes is the small-scope merger's hard-coded distance
// threshold (§4.3 condition d / §9 design note: "its presence is load
// bearing, its exact value is not").
const boundaryProximityBytes = 5000

// enclosingBoundary walks up from s (inclusive) to the nearest scope that is
// the program, a function, or a class — the boundary the merger refuses to
// cross, since cross-function context confuses the LLM (§4.3).
func enclosingBoundary(s *jsast.Scope) *jsast.Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		switch cur.Kind {
		case jsast.ScopeProgram, jsast.ScopeFunction, jsast.ScopeClass:
			return cur
		}
	}
	return s
}

// MergeSmallScopes folds adjacent groups of at most smallScopeMergeLimit
// bindings into shared batches, subject to the four rejection conditions in
// §4.3. smallScopeMergeLimit <= 0 disables merging entirely (every group
// becomes its own batch, to be split further by SplitBatches).
func MergeSmallScopes(groups []*Group, smallScopeMergeLimit, maxBatchSize int, isSkippable func(*jsast.Binding) bool) []*Batch {
	var out []*Batch
	if smallScopeMergeLimit <= 0 {
		for _, g := range groups {
			out = append(out, &Batch{Bindings: g.Bindings, Boundary: enclosingBoundary(g.Scope)})
		}
		return out
	}

	var acc *Batch
	var accGroups []*Group
	flush := func() {
		if acc != nil && len(acc.Bindings) > 0 {
			out = append(out, acc)
		}
		acc = nil
		accGroups = nil
	}

	for _, g := range groups {
		if len(g.Bindings) > smallScopeMergeLimit || anySkippable(g.Bindings, isSkippable) {
			flush()
			out = append(out, &Batch{Bindings: g.Bindings, Boundary: enclosingBoundary(g.Scope)})
			continue
		}

		boundary := enclosingBoundary(g.Scope)
		if acc == nil {
			acc = &Batch{Bindings: append([]*jsast.Binding{}, g.Bindings...), Boundary: boundary}
			accGroups = []*Group{g}
			continue
		}

		if rejectFold(acc, accGroups, g, boundary, maxBatchSize) {
			flush()
			acc = &Batch{Bindings: append([]*jsast.Binding{}, g.Bindings...), Boundary: boundary}
			accGroups = []*Group{g}
			continue
		}

		acc.Bindings = append(acc.Bindings, g.Bindings...)
		accGroups = append(accGroups, g)
	}
	flush()
	return out
}

func rejectFold(acc *Batch, accGroups []*Group, g *Group, boundary *jsast.Scope, maxBatchSize int) bool {
	// (a) name collision with a name already in the accumulator.
	seen := map[string]bool{}
	for _, b := range acc.Bindings {
		seen[b.Name] = true
	}
	for _, b := range g.Bindings {
		if seen[b.Name] {
			return true
		}
	}
	// (b) folding would exceed maxBatchSize.
	if len(acc.Bindings)+len(g.Bindings) > maxBatchSize {
		return true
	}
	// (c) merge-boundary mismatch.
	if boundary != acc.Boundary {
		return true
	}
	// (d) proximity: new group's first declaration more than 5,000 bytes
	// from the accumulator's last.
	lastGroup := accGroups[len(accGroups)-1]
	if distanceBytes(lastGroup, g) > boundaryProximityBytes {
		return true
	}
	return false
}

func distanceBytes(a, b *Group) int {
	d := b.Scope.Start - a.Scope.End
	last, first := a.Bindings[len(a.Bindings)-1].DeclIdent, b.Bindings[0].DeclIdent
	if last != nil && first != nil {
		d = first.Start - last.Start
	}
	if d < 0 {
		return -d
	}
	return d
}

func anySkippable(bindings []*jsast.Binding, isSkippable func(*jsast.Binding) bool) bool {
	if isSkippable == nil {
		return false
	}
	for _, b := range bindings {
		if isSkippable(b) {
			return true
		}
	}
	return false
}

// SplitBatches further splits any batch above maxBatchSize into
// ceil(n/maxBatchSize) sequential sub-batches, preserving declaration order
// (§4.4). Batches already at or under the limit pass through unchanged.
func SplitBatches(batches []*Batch, maxBatchSize int) []*Batch {
	var out []*Batch
	for _, batch := range batches {
		if len(batch.Bindings) <= maxBatchSize {
			out = append(out, batch)
			continue
		}
		for i := 0; i < len(batch.Bindings); i += maxBatchSize {
			end := i + maxBatchSize
			if end > len(batch.Bindings) {
				end = len(batch.Bindings)
			}
			out = append(out, &Batch{Bindings: batch.Bindings[i:end], Boundary: batch.Boundary})
		}
	}
	return out
}
