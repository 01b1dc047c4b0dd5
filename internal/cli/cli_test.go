package cli_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/codalotl/jsrenamer/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestRunWithoutFileFlagIsAUsageError(t *testing.T) {
	var out, errBuf bytes.Buffer
	code, err := cli.Run([]string{"jsrename"}, &cli.RunOptions{Out: &out, Err: &errBuf})
	require.Error(t, err)
	require.Equal(t, 2, code)
	require.Contains(t, errBuf.String(), "--file")
}

func TestRunHelpExitsZero(t *testing.T) {
	var out, errBuf bytes.Buffer
	code, err := cli.Run([]string{"jsrename", "--help"}, &cli.RunOptions{Out: &out, Err: &errBuf})
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.True(t, strings.Contains(out.String(), "jsrename") || strings.Contains(errBuf.String(), "jsrename"))
}

func TestRunMissingFileOnDiskIsAnError(t *testing.T) {
	var out, errBuf bytes.Buffer
	code, err := cli.Run([]string{"jsrename", "--file", "/nonexistent/does-not-exist.js"}, &cli.RunOptions{Out: &out, Err: &errBuf})
	require.Error(t, err)
	require.Equal(t, 1, code)
}
