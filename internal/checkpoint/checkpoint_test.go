package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSidecarPathIsHiddenAndDeterministic(t *testing.T) {
	p1, err := SidecarPath("/tmp/project/input.js", "")
	require.NoError(t, err)
	p2, err := SidecarPath("/tmp/project/input.js", "")
	require.NoError(t, err)
	require.Equal(t, p1, p2)
	require.True(t, filepath.Base(p1)[0] == '.')
	require.Contains(t, p1, "humanify-resume.json")
}

func TestSidecarPathDependsOnFilePath(t *testing.T) {
	withoutF, err := SidecarPath("/tmp/project/input.js", "")
	require.NoError(t, err)
	withF, err := SidecarPath("/tmp/project/input.js", "/tmp/project/output.js")
	require.NoError(t, err)
	require.NotEqual(t, withoutF, withF)
}

func TestStoreThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	resumePath := filepath.Join(dir, "input.js")
	require.NoError(t, os.WriteFile(resumePath, []byte("const a=1;"), 0o644))

	state := State{
		Code:         "const value=1;",
		Renames:      []string{"a->value"},
		Visited:      []string{"a@0"},
		CurrentIndex: 1,
		TotalScopes:  3,
		CodePath:     resumePath,
	}
	require.NoError(t, Store(resumePath, "", state))

	loaded, ok, err := Load(resumePath, "", "const value=1;", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, state, loaded)
}

func TestLoadReturnsNotOKWhenNoSidecarExists(t *testing.T) {
	dir := t.TempDir()
	resumePath := filepath.Join(dir, "input.js")
	_, ok, err := Load(resumePath, "", "", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadRejectsWrongFieldTypesAsResumeCorrupt(t *testing.T) {
	dir := t.TempDir()
	resumePath := filepath.Join(dir, "input.js")
	path, err := SidecarPath(resumePath, "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`{"code":123,"renames":[],"visited":[],"currentIndex":0,"totalScopes":0,"codePath":""}`), 0o644))

	_, ok, err := Load(resumePath, "", "", nil)
	require.Error(t, err)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrResumeCorrupt)

	// Corrupt file is left in place, not deleted.
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestDeleteRemovesCurrentSchemeSidecar(t *testing.T) {
	dir := t.TempDir()
	resumePath := filepath.Join(dir, "input.js")
	state := State{Code: "x", CodePath: resumePath}
	require.NoError(t, Store(resumePath, "", state))

	path, err := SidecarPath(resumePath, "")
	require.NoError(t, err)
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	require.NoError(t, Delete(resumePath, ""))
	_, statErr = os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestDeleteOfMissingSidecarIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	resumePath := filepath.Join(dir, "input.js")
	require.NoError(t, Delete(resumePath, ""))
}
