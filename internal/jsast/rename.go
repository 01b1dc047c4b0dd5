package jsast

import "sort"

// edit is one byte-range replacement against the original source. Renaming
// never reconstructs syntax; it only ever swaps an identifier's source text
// for another string of the same grammatical kind, which is what keeps
// unchanged subtrees byte-for-byte stable (the engine's print contract).
type edit struct {
	start, end int
	text       string
}

// EditSet accumulates the renames produced across a whole tree and prints
// them back over the original source in one pass. Bindings may be renamed in
// any order; Print applies them in source order regardless of insertion
// order, so callers never need to sort renames themselves.
type EditSet struct {
	edits []edit
}

// NewEditSet returns an empty edit set ready to receive renames.
func NewEditSet() *EditSet { return &EditSet{} }

// RenameBinding schedules every occurrence of b (its declaration and every
// resolved reference) to read newName instead. It does not mutate the tree;
// the rewrite only takes effect once Print is called.
func (es *EditSet) RenameBinding(b *Binding, newName string) {
	for _, ref := range b.Refs {
		es.edits = append(es.edits, edit{start: ref.Start, end: ref.End, text: newName})
	}
}

// RenameSpan schedules an arbitrary byte range to be replaced, for callers
// that need finer control than whole-binding renames (unused currently, but
// keeps the edit list open to future e.g. shorthand-property rewrites that
// must touch only the value side of `{a}` without touching the key).
func (es *EditSet) RenameSpan(start, end int, text string) {
	es.edits = append(es.edits, edit{start: start, end: end, text: text})
}

// Print applies every scheduled edit over src and returns the resulting
// source text. Overlapping edits (which should never occur since each
// identifier span is scheduled at most once) are resolved by keeping the
// first in source order and discarding later ones, rather than corrupting
// output.
func (es *EditSet) Print(src string) string {
	edits := make([]edit, len(es.edits))
	copy(edits, es.edits)
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var out []byte
	pos := 0
	for _, e := range edits {
		if e.start < pos {
			continue // overlapping with a prior edit; keep the earlier one
		}
		out = append(out, src[pos:e.start]...)
		out = append(out, e.text...)
		pos = e.end
	}
	out = append(out, src[pos:]...)
	return string(out)
}
