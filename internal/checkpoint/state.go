package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/codalotl/jsrenamer/internal/q/health"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ErrResumeCorrupt is returned (wrapped) when a sidecar file exists but
// fails schema validation on load.
var ErrResumeCorrupt = errors.New("checkpoint: resume state is corrupt")

// ErrCheckpointWrite is returned (wrapped) when a sidecar write fails. Per
// spec §7 this is a logged, non-fatal condition; callers choose whether to
// treat it as fatal.
var ErrCheckpointWrite = errors.New("checkpoint: sidecar write failed")

// State is the sidecar's exact on-disk schema (spec §6.3): the current
// rendered source, the rename records applied so far, the set of visited
// binding keys, the batch-stream cursor, the total scope count (for
// progress reporting), and the input path resume is validated against.
type State struct {
	Code         string   `json:"code"`
	Renames      []string `json:"renames"`
	Visited      []string `json:"visited"`
	CurrentIndex int      `json:"currentIndex"`
	TotalScopes  int      `json:"totalScopes"`
	CodePath     string   `json:"codePath"`
}

// rawState mirrors State but with json.RawMessage leaves so Load can detect
// a field of the wrong JSON type (string where a number was expected, etc.)
// instead of silently zero-valuing it the way json.Unmarshal normally would
// when decoding into an any-typed field.
type rawState struct {
	Code         json.RawMessage `json:"code"`
	Renames      json.RawMessage `json:"renames"`
	Visited      json.RawMessage `json:"visited"`
	CurrentIndex json.RawMessage `json:"currentIndex"`
	TotalScopes  json.RawMessage `json:"totalScopes"`
	CodePath     json.RawMessage `json:"codePath"`
}

// Store atomically writes state to the sidecar derived from resumePath and
// filePath, grounded on q/cas.DB.Store's temp-file-then-rename discipline
// (temp file in the same directory, Chmod, Write, Close, os.Rename).
func Store(resumePath, filePath string, state State) error {
	path, err := SidecarPath(resumePath, filePath)
	if err != nil {
		return health.Wrap(ErrCheckpointWrite.Error(), err)
	}

	out, err := json.Marshal(state)
	if err != nil {
		return health.Wrap(ErrCheckpointWrite.Error(), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return health.Wrap(ErrCheckpointWrite.Error(), err)
	}

	tmp, err := os.CreateTemp(dir, "checkpoint-tmp-*")
	if err != nil {
		return health.Wrap(ErrCheckpointWrite.Error(), err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o644); err != nil {
		return health.Wrap(ErrCheckpointWrite.Error(), err)
	}
	if _, err := tmp.Write(out); err != nil {
		return health.Wrap(ErrCheckpointWrite.Error(), err)
	}
	if err := tmp.Close(); err != nil {
		return health.Wrap(ErrCheckpointWrite.Error(), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return health.Wrap(ErrCheckpointWrite.Error(), err)
	}
	return nil
}

// Delete removes the current-scheme sidecar for resumePath/filePath. Called
// on successful run completion (spec §4.8). A missing sidecar is not an
// error.
func Delete(resumePath, filePath string) error {
	path, err := SidecarPath(resumePath, filePath)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Load tries the current sidecar scheme, then the legacy schemes in order,
// returning the first one found. ok is false (with a nil error) when no
// sidecar exists under any scheme. When a sidecar is found but fails schema
// validation, Load returns ErrResumeCorrupt and leaves the bad file in
// place (spec §7: "start fresh, do not delete the bad file").
//
// If a logger is supplied and a sidecar is successfully loaded, Load emits a
// debug-level log line with a compact diff between the sidecar's recorded
// code and currentSource, grounded on the teacher's diff package's use of
// sergi/go-diff/diffmatchpatch for line-based diffing. This is log-only: it
// never influences whether the resume proceeds.
func Load(resumePath, filePath string, currentSource string, logger *slog.Logger) (State, bool, error) {
	paths := []string{}
	if p, err := SidecarPath(resumePath, filePath); err == nil {
		paths = append(paths, p)
	}
	if legacy, err := legacySidecarPaths(resumePath, filePath); err == nil {
		paths = append(paths, legacy...)
	}

	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return State{}, false, err
		}

		state, err := parseState(b)
		if err != nil {
			return State{}, false, health.Wrap(fmt.Sprintf("checkpoint: %s failed schema validation", path), fmt.Errorf("%w: %v", ErrResumeCorrupt, err))
		}

		if logger != nil {
			logDiff(logger, state.Code, currentSource)
		}
		return state, true, nil
	}

	return State{}, false, nil
}

func parseState(b []byte) (State, error) {
	var raw rawState
	if err := json.Unmarshal(b, &raw); err != nil {
		return State{}, err
	}

	var state State
	if err := requireJSONString(raw.Code, &state.Code); err != nil {
		return State{}, fmt.Errorf("code: %w", err)
	}
	if err := requireJSONStringSlice(raw.Renames, &state.Renames); err != nil {
		return State{}, fmt.Errorf("renames: %w", err)
	}
	if err := requireJSONStringSlice(raw.Visited, &state.Visited); err != nil {
		return State{}, fmt.Errorf("visited: %w", err)
	}
	if err := requireJSONNumber(raw.CurrentIndex, &state.CurrentIndex); err != nil {
		return State{}, fmt.Errorf("currentIndex: %w", err)
	}
	if err := requireJSONNumber(raw.TotalScopes, &state.TotalScopes); err != nil {
		return State{}, fmt.Errorf("totalScopes: %w", err)
	}
	if err := requireJSONString(raw.CodePath, &state.CodePath); err != nil {
		return State{}, fmt.Errorf("codePath: %w", err)
	}
	return state, nil
}

func requireJSONString(raw json.RawMessage, out *string) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing field")
	}
	return json.Unmarshal(raw, out)
}

func requireJSONStringSlice(raw json.RawMessage, out *[]string) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing field")
	}
	return json.Unmarshal(raw, out)
}

func requireJSONNumber(raw json.RawMessage, out *int) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing field")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}
	*out = int(f)
	return nil
}

func logDiff(logger *slog.Logger, oldCode, newCode string) {
	if oldCode == newCode {
		logger.Debug("checkpoint: resumed source matches sidecar exactly")
		return
	}
	dmp := diffmatchpatch.New()
	rOld, rNew, _ := dmp.DiffLinesToRunes(oldCode, newCode)
	diffs := dmp.DiffMainRunes(rOld, rNew, false)
	diffs = dmp.DiffCleanupMerge(diffs)

	var added, removed int
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += countLines(d.Text)
		}
	}
	logger.Debug("checkpoint: resumed source differs from sidecar", "linesAdded", added, "linesRemoved", removed)
}

func countLines(runeStr string) int {
	n := 0
	for range runeStr {
		n++
	}
	return n
}
