package renameengine

import (
	"fmt"
	"strings"

	"github.com/codalotl/jsrenamer/internal/grouping"
	"github.com/codalotl/jsrenamer/internal/jsast"
	"github.com/codalotl/jsrenamer/internal/q/health"
)

// maxDisambiguationAttempts bounds resolveCollision's retry loop (spec §7:
// "disambiguation loop exceeds a sanity bound" is fatal). It is generous
// enough that no realistic scope collides with a whole family of
// digit-suffixed variants of the same candidate, while still guaranteeing
// termination.
const maxDisambiguationAttempts = 1000

// RenameRecord is one applied rename (dry-run mode applies renames too).
type RenameRecord struct {
	OldName string
	NewName string
	Scope   *jsast.Scope
}

// String renders a record the way a resume sidecar's renames[] entries and
// the teacher's rename-preview printing (renamebot.RenameForConsistency)
// both favor: compact and human-scannable.
func (r RenameRecord) String() string {
	return r.OldName + "->" + r.NewName
}

// isLowSignal implements the structural half of spec §4.7's skip list that
// needs node types richer than grouping.StructurallySkippable's Binding-only
// view: a trivial function declaration, reachable here as the OwnerFn of the
// child scope whose function is named by the binding's declaration
// identifier. Trivial class declarations and trivial var declarators (spec
// §4.7's "class N {}", "X = {}", etc.) are not skipped: Binding holds no
// pointer to the ClassNode/Declarator, and grouping.IsTrivialClassNode/
// IsTrivialDeclarator are not called anywhere in the engine. The remaining
// rule — context shorter than 10 non-whitespace characters — is checked once
// context has been rendered.
func isLowSignal(b *jsast.Binding) bool {
	if grouping.StructurallySkippable(b) {
		return true
	}
	if b.IsFunction && b.DeclIdent != nil {
		for _, c := range b.Scope.Children {
			if fn := c.OwnerFn; fn != nil && fn.Name == b.DeclIdent && grouping.IsTrivialFunctionNode(fn) {
				return true
			}
		}
	}
	return false
}

func contextIsLowSignal(context string) bool {
	n := 0
	for _, r := range context {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			n++
			if n >= 10 {
				return false
			}
		}
	}
	return true
}

// nameRegistry tracks names already assigned this run (uniqueNames=true
// policy), seeded with every name bound in the tree — used while resolving
// collisions for a batch's proposals. Whether a name is bound in the target
// scope is checked on the Scope itself, not tracked here.
type nameRegistry struct {
	usedThisRun map[string]bool
}

func newNameRegistry() *nameRegistry {
	return &nameRegistry{usedThisRun: map[string]bool{}}
}

// resolveCollision applies spec §4.6 steps 2-3: while candidate collides
// (per policy), disambiguate deterministically and retry, up to
// maxDisambiguationAttempts times before giving up with an error.
func (reg *nameRegistry) resolveCollision(candidate string, scope *jsast.Scope, uniqueNames bool) (string, error) {
	original := candidate
	for attempt := 0; attempt < maxDisambiguationAttempts; attempt++ {
		if !reg.collides(candidate, scope, uniqueNames) {
			return candidate, nil
		}
		candidate = disambiguate(candidate)
	}
	return "", fmt.Errorf("no non-colliding name found for %q after %d attempts (last tried %q)", original, maxDisambiguationAttempts, candidate)
}

func (reg *nameRegistry) collides(name string, scope *jsast.Scope, uniqueNames bool) bool {
	if IsBuiltinGlobal(name) {
		return true
	}
	if scope.HasBinding(name) {
		return true
	}
	if uniqueNames && reg.usedThisRun[name] {
		return true
	}
	return false
}

func (reg *nameRegistry) commit(name string) {
	reg.usedThisRun[name] = true
}

// seedFromExistingNames primes the registry with every currently-bound name
// in the tree, so uniqueNames=true collision checks see names that were
// never themselves renamed this run (including ones restored from a
// resumed sidecar).
func seedFromExistingNames(st *jsast.ScopeTree, reg *nameRegistry) {
	for _, b := range jsast.AllBindings(st) {
		reg.usedThisRun[b.Name] = true
	}
}

// applyProposals implements spec §4.6 steps 1-5 for one batch's visitor
// response: normalize, resolve collisions, apply via the scope-aware rename
// primitive, and record. Bindings the visitor omitted, or whose proposal
// normalizes to empty/unchanged, are left alone but still marked visited by
// the caller.
func applyProposals(batch *grouping.Batch, proposals map[string]string, reg *nameRegistry, uniqueNames bool) ([]RenameRecord, error) {
	var records []RenameRecord
	for _, b := range batch.Bindings {
		proposed, ok := proposals[b.Name]
		if !ok {
			continue
		}
		proposed = strings.TrimSpace(proposed)
		if proposed == "" || proposed == b.Name {
			continue
		}

		normalized := normalizeName(proposed)
		if normalized == "" {
			continue
		}

		final, err := reg.resolveCollision(normalized, b.Scope, uniqueNames)
		if err != nil {
			return records, wrapSentinel(ErrCollisionUnresolvable, err)
		}

		oldName := b.Name
		if err := b.Scope.Rename(oldName, final); err != nil {
			return records, health.Wrap("renameengine: applying rename", err)
		}
		reg.commit(final)
		records = append(records, RenameRecord{OldName: oldName, NewName: final, Scope: b.Scope})
	}
	return records, nil
}
