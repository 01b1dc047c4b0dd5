// Package renameengine wires the scope analyzer, grouper, context
// extractor, and visitor together into the engine entry point (spec §6.5),
// handling batching, collision resolution, checkpointing, and progress
// reporting.
package renameengine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codalotl/jsrenamer/internal/checkpoint"
	"github.com/codalotl/jsrenamer/internal/grouping"
	"github.com/codalotl/jsrenamer/internal/jsast"
	"github.com/codalotl/jsrenamer/internal/q/health"
	"github.com/codalotl/jsrenamer/internal/renamecontext"
	"github.com/codalotl/jsrenamer/internal/renamevisitor"
	"github.com/tiktoken-go/tokenizer"
	"golang.org/x/sync/errgroup"
)

// Rename is the engine entry point (spec §6.5): parse sourceText, decide
// what to rename via visitor, apply renames with scope-preserving collision
// handling, checkpoint progress, and return the rewritten source.
func Rename(ctx context.Context, sourceText string, visitor renamevisitor.Visitor, cfg Config) (string, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return "", err
	}

	e := &engine{cfg: cfg, visitor: visitor}
	return e.run(ctx, sourceText)
}

type engine struct {
	cfg     Config
	visitor renamevisitor.Visitor
}

func (e *engine) logger() *slog.Logger { return e.cfg.Logger }

func (e *engine) logError(msg string, err error) {
	if e.cfg.Logger != nil {
		e.cfg.Logger.Error(msg, "err", err)
	}
}

func (e *engine) run(ctx context.Context, sourceText string) (string, error) {
	source := sourceText
	var restoredRenames []string
	var restoredVisited map[string]bool
	var totalScopesAtCheckpoint int

	if e.cfg.ResumePath != "" {
		state, ok, err := checkpoint.Load(e.cfg.ResumePath, e.cfg.FilePath, sourceText, e.logger())
		if err != nil {
			return "", health.Wrap("renameengine: loading checkpoint", err)
		}
		if ok {
			if e.cfg.FilePath != "" && state.CodePath != "" && state.CodePath != e.cfg.FilePath {
				return "", wrapSentinel(ErrResumeCorrupt, fmt.Errorf("sidecar codePath %q does not match requested file %q", state.CodePath, e.cfg.FilePath))
			}
			source = state.Code
			restoredRenames = state.Renames
			restoredVisited = make(map[string]bool, len(state.Visited))
			for _, k := range state.Visited {
				restoredVisited[k] = true
			}
			totalScopesAtCheckpoint = state.TotalScopes
		}
	}

	tree, err := jsast.ParseSource(source)
	if err != nil {
		return "", wrapSentinel(ErrParse, err)
	}

	allBindings := jsast.AllBindings(tree.Scopes)
	groups := grouping.GroupBindings(allBindings)
	merged := grouping.MergeSmallScopes(groups, e.cfg.SmallScopeMergeLimit, e.cfg.MaxBatchSize, isLowSignal)
	batches := grouping.SplitBatches(merged, e.cfg.MaxBatchSize)

	totalScopes := len(groups)
	if totalScopesAtCheckpoint > totalScopes {
		totalScopes = totalScopesAtCheckpoint
	}

	reg := newNameRegistry()
	seedFromExistingNames(tree.Scopes, reg)

	extractor := renamecontext.New(tree, e.cfg.ContextWindowSize, e.cfg.MinInformationScore)

	var allRecords []RenameRecord
	for _, s := range restoredRenames {
		allRecords = append(allRecords, parseRenameRecordString(s))
	}

	groupsSinceCheckpoint := 0
	dirtySinceCheckpoint := false
	visited := restoredVisited
	if visited == nil {
		visited = map[string]bool{}
	}

	total := len(batches)
	for cohortStart := 0; cohortStart < total; cohortStart += e.cfg.BatchConcurrency {
		cohortEnd := cohortStart + e.cfg.BatchConcurrency
		if cohortEnd > total {
			cohortEnd = total
		}

		// A resumed run re-parses the sidecar's already-partially-renamed
		// source from scratch, so batch order and scope byte offsets from
		// the interrupted run carry no meaning here: a batch is "already
		// done" purely by virtue of every one of its bindings already
		// appearing in Visited (checked per-binding, below), never by
		// comparing against a prior run's cursor position.
		type prepared struct {
			batch   *grouping.Batch
			context string
			names   []string
			skip    bool
		}
		var cohort []prepared

		for i := cohortStart; i < cohortEnd; i++ {
			b := batches[i]
			live := filterUnvisitedAndLowSignal(b, visited)
			if len(live.Bindings) == 0 {
				for _, bind := range b.Bindings {
					visited[bindingKey(bind)] = true
				}
				cohort = append(cohort, prepared{batch: b, skip: true})
				continue
			}

			renderedContext := extractor.Extract(live)
			if contextIsLowSignal(renderedContext) {
				for _, bind := range live.Bindings {
					visited[bindingKey(bind)] = true
				}
				cohort = append(cohort, prepared{batch: b, skip: true})
				continue
			}

			e.logTelemetry(renderedContext)

			names := make([]string, len(live.Bindings))
			for j, bind := range live.Bindings {
				names[j] = bind.Name
			}
			cohort = append(cohort, prepared{batch: live, context: renderedContext, names: names})
		}

		proposals := make([]map[string]string, len(cohort))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.BatchConcurrency)
		for idx := range cohort {
			idx := idx
			p := cohort[idx]
			if p.skip {
				continue
			}
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				result, err := e.visitor.Propose(p.names, p.context)
				if err != nil {
					return wrapSentinel(ErrVisitor, err)
				}
				proposals[idx] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}

		for idx, p := range cohort {
			if p.skip {
				continue
			}
			records, err := applyProposals(p.batch, proposals[idx], reg, e.cfg.UniqueNames)
			if err != nil {
				// applyProposals already classifies its own failures: a
				// collision-unresolvable error is wrapped with
				// ErrCollisionUnresolvable at its origin in batch.go, while an
				// unrelated internal failure (e.g. Scope.Rename rejecting a
				// stale binding name) is not.
				return "", err
			}
			allRecords = append(allRecords, records...)
			for _, bind := range p.batch.Bindings {
				visited[bindingKey(bind)] = true
			}

			groupsSinceCheckpoint++
			dirty := len(records) > 0
			dirtySinceCheckpoint = dirtySinceCheckpoint || dirty

			if done := idx + cohortStart + 1; done < total {
				e.reportProgress(float64(done) / float64(total))
			}

			if e.cfg.ResumePath != "" && !e.cfg.DryRun {
				shouldCheckpoint := (dirtySinceCheckpoint && groupsSinceCheckpoint >= e.cfg.DirtyCheckpointInterval) ||
					(!dirtySinceCheckpoint && groupsSinceCheckpoint >= e.cfg.IdleCheckpointInterval)
				if shouldCheckpoint {
					if err := e.checkpointNow(tree, allRecords, visited, cohortStart+idx+1, totalScopes); err != nil {
						e.logError("renameengine: checkpoint write failed", err)
					}
					groupsSinceCheckpoint = 0
					dirtySinceCheckpoint = false
				}
			}
		}
	}

	e.reportProgress(1)

	final := tree.Print()

	if e.cfg.ResumePath != "" && !e.cfg.DryRun {
		if err := checkpoint.Delete(e.cfg.ResumePath, e.cfg.FilePath); err != nil {
			e.logError("renameengine: deleting sidecar failed", err)
		}
	}

	if e.cfg.ReportWriter != nil {
		if err := writeReport(e.cfg.ReportWriter, allRecords); err != nil {
			return "", health.Wrap("renameengine: writing rename report", err)
		}
	}

	return final, nil
}

func (e *engine) reportProgress(fraction float64) {
	if e.cfg.OnProgress != nil {
		e.cfg.OnProgress(fraction)
	}
}

func (e *engine) checkpointNow(tree *jsast.Tree, records []RenameRecord, visited map[string]bool, currentIndex, totalScopes int) error {
	renameStrings := make([]string, len(records))
	for i, r := range records {
		renameStrings[i] = r.String()
	}
	visitedStrings := make([]string, 0, len(visited))
	for k := range visited {
		visitedStrings = append(visitedStrings, k)
	}

	state := checkpoint.State{
		Code:         tree.Print(),
		Renames:      renameStrings,
		Visited:      visitedStrings,
		CurrentIndex: currentIndex,
		TotalScopes:  totalScopes,
		CodePath:     e.cfg.FilePath,
	}
	return checkpoint.Store(e.cfg.ResumePath, e.cfg.FilePath, state)
}

func (e *engine) logTelemetry(renderedContext string) {
	logger := e.logger()
	if logger == nil {
		return
	}
	enc, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		return
	}
	count, err := enc.Count(renderedContext)
	if err != nil {
		return
	}
	logger.Debug("renameengine: batch context token estimate", "tokens", count, "chars", len(renderedContext))
}

// bindingKey is the identity key used in Visited/resume sets. It must stay
// stable across a resume's from-scratch re-parse of the sidecar's
// already-partially-renamed source, where every binding after an earlier
// length-changing rename lands at a different byte offset than it did in
// the interrupted run's tree. Byte offsets are therefore unusable as
// identity; instead the key is built from the binding's position in the
// scope tree's structure (which renaming never changes): the declaring
// scope's index among its siblings at each level from the program root,
// plus the binding's declaration-order index within that scope. Renaming
// only ever rewrites identifier text, never reorders or adds/removes
// declarations, so this path is identical across both parses for the same
// logical binding. The current name is appended for readability; it does
// not need to carry identity since, for an already-applied rename, the
// resumed parse reads back the very name this key was first recorded
// under.
func bindingKey(b *jsast.Binding) string {
	return b.Name + "@" + scopePathString(b.Scope) + "#" + fmt.Sprint(orderIndex(b))
}

// scopePathString renders s's position in the scope tree as a dotted list
// of sibling indices, walking from s up to (but not including) the
// program-root scope, which has no parent and therefore always sits at a
// fixed position.
func scopePathString(s *jsast.Scope) string {
	var indices []int
	for cur := s; cur != nil && cur.Parent != nil; cur = cur.Parent {
		indices = append([]int{siblingIndex(cur)}, indices...)
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = fmt.Sprint(idx)
	}
	return strings.Join(parts, ".")
}

func siblingIndex(s *jsast.Scope) int {
	for i, c := range s.Parent.Children {
		if c == s {
			return i
		}
	}
	return -1
}

// orderIndex returns b's position within its declaring scope's declaration
// order (Scope.Order), which is fixed at parse time and unaffected by
// subsequent renames.
func orderIndex(b *jsast.Binding) int {
	if b.Scope == nil {
		return -1
	}
	for i, o := range b.Scope.Order {
		if o == b {
			return i
		}
	}
	return -1
}

func filterUnvisitedAndLowSignal(b *grouping.Batch, visited map[string]bool) *grouping.Batch {
	out := &grouping.Batch{Boundary: b.Boundary}
	for _, bind := range b.Bindings {
		if visited[bindingKey(bind)] {
			continue
		}
		if isLowSignal(bind) {
			visited[bindingKey(bind)] = true
			continue
		}
		out.Bindings = append(out.Bindings, bind)
	}
	return out
}

func parseRenameRecordString(s string) RenameRecord {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '-' && s[i+1] == '>' {
			return RenameRecord{OldName: s[:i], NewName: s[i+2:]}
		}
	}
	return RenameRecord{OldName: s}
}
