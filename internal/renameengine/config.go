package renameengine

import (
	"errors"
	"fmt"
	"io"

	"github.com/codalotl/jsrenamer/internal/checkpoint"
	"github.com/codalotl/jsrenamer/internal/q/health"
)

// Sentinel errors modeling spec §7's error kinds. Wrap/LogWrappedErr
// produce *health.HealthErr values that satisfy errors.Is against these via
// the standard wrap chain.
var (
	ErrConfig                = errors.New("renameengine: invalid configuration")
	ErrParse                 = errors.New("renameengine: source failed to parse")
	ErrVisitor               = errors.New("renameengine: visitor call failed")
	ErrCollisionUnresolvable = errors.New("renameengine: could not resolve a naming collision")

	// Re-exported so callers only need to import renameengine for the full
	// sentinel-error surface; these are produced deeper in the stack, by the
	// checkpoint package itself.
	ErrCheckpointWrite = checkpoint.ErrCheckpointWrite
	ErrResumeCorrupt   = checkpoint.ErrResumeCorrupt
)

// Config mirrors the role of the teacher's renamebot.BaseOptions: it groups
// the engine's numeric knobs, carries the caller's health.Ctx for structured
// logging/error wrapping, and is validated synchronously before any work
// begins (spec §4.8's ConfigError).
type Config struct {
	// MaxBatchSize caps how many bindings are sent to the visitor per call.
	MaxBatchSize int

	// BatchConcurrency bounds how many batches run concurrently in one
	// cohort.
	BatchConcurrency int

	// SmallScopeMergeLimit is the small-scope merger's per-group binding
	// ceiling below which groups are candidates for merging (0 disables
	// merging).
	SmallScopeMergeLimit int

	// ContextWindowSize is the context extractor's character budget.
	ContextWindowSize int

	// MinInformationScore is the context extractor's minimum line count
	// before a rendered context is considered informative enough.
	MinInformationScore int

	// UniqueNames selects the collision policy (spec §4.6): true requires
	// every new name be unique across the whole run; false only requires
	// it be free of the target scope and the builtin-global list.
	UniqueNames bool

	// DryRun runs the full pipeline, including visitor calls, and returns
	// the renamed source as usual, but never writes or deletes the
	// checkpoint sidecar.
	DryRun bool

	// ReportWriter, if set, receives a Markdown rename report after a
	// successful run.
	ReportWriter io.Writer

	// ResumePath, if set, enables checkpointing: the sidecar is derived
	// from (ResumePath, FilePath) per spec §6.3.
	ResumePath string

	// FilePath is the optional per-file path folded into the sidecar hash,
	// and the path resume validation checks the sidecar's codePath against.
	FilePath string

	// DirtyCheckpointInterval is how many dirty groups elapse between
	// sidecar writes (spec §4.8 default 50).
	DirtyCheckpointInterval int

	// IdleCheckpointInterval is how many groups elapse between sidecar
	// writes when nothing has changed since the last one (spec §4.8
	// default 200).
	IdleCheckpointInterval int

	// OnProgress, if set, is called after every applied batch and exactly
	// once with 1 on completion.
	OnProgress func(fraction float64)

	health.Ctx
}

// withDefaults fills in the spec's documented defaults for fields left at
// their zero value, without altering fields the caller explicitly set.
func (c Config) withDefaults() Config {
	if c.ContextWindowSize == 0 {
		c.ContextWindowSize = 2000
	}
	if c.MinInformationScore == 0 {
		c.MinInformationScore = 16
	}
	if c.DirtyCheckpointInterval == 0 {
		c.DirtyCheckpointInterval = 50
	}
	if c.IdleCheckpointInterval == 0 {
		c.IdleCheckpointInterval = 200
	}
	return c
}

// validate enforces spec §4.8's synchronous config checks.
func (c Config) validate() error {
	if c.MaxBatchSize <= 0 {
		return wrapSentinel(ErrConfig, errors.New("maxBatchSize must be positive"))
	}
	if c.BatchConcurrency <= 0 {
		return wrapSentinel(ErrConfig, errors.New("batchConcurrency must be positive"))
	}
	if c.SmallScopeMergeLimit < 0 {
		return wrapSentinel(ErrConfig, errors.New("smallScopeMergeLimit must not be negative"))
	}
	return nil
}

// wrapSentinel produces a *health.HealthErr (so callers keep structured
// logging) whose Unwrap chain still satisfies errors.Is(result, sentinel)
// and errors.Is(result, cause), by multi-wrapping both with fmt.Errorf
// before handing the result to health.Wrap as the "wrapped" error.
func wrapSentinel(sentinel, cause error) error {
	return health.Wrap(sentinel.Error(), fmt.Errorf("%w: %w", sentinel, cause))
}
