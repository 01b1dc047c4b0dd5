// Package cli wires the jsrename command tree onto internal/q/cli and is the
// single entry point root main.go calls.
package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	qcli "github.com/codalotl/jsrenamer/internal/q/cli"
)

// Version is the jsrename CLI version. It is a var, not a const, so a release
// build can override it via -ldflags.
var Version = "0.1.0"

// RunOptions overrides standard I/O; useful for testing. If nil fields are
// left unset, the corresponding os.Std* stream is used.
type RunOptions struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run runs the CLI with args (typically os.Args) and returns a recommended
// process exit code (0, 1, or 2) plus an error, if any. Run has already
// printed an error message to opts.Err (or Stderr) by the time it returns
// non-zero.
func Run(args []string, opts *RunOptions) (int, error) {
	argv := args
	if len(argv) > 0 {
		argv = argv[1:]
	}

	root := newRootCommand()

	var in io.Reader = os.Stdin
	var out io.Writer = os.Stdout
	var errW io.Writer = os.Stderr
	if opts != nil {
		if opts.In != nil {
			in = opts.In
		}
		if opts.Out != nil {
			out = opts.Out
		}
		if opts.Err != nil {
			errW = opts.Err
		}
	}

	// internal/q/cli intentionally returns only an exit code, so stderr is
	// teed to produce a non-nil error when exitCode != 0.
	var stderrBuf bytes.Buffer
	var stdoutBuf bytes.Buffer
	outTee := io.MultiWriter(out, &stdoutBuf)
	errTee := io.MultiWriter(errW, &stderrBuf)

	exitCode := qcli.Run(context.Background(), root, qcli.Options{
		Args: argv,
		In:   in,
		Out:  outTee,
		Err:  errTee,
	})

	if exitCode == 0 {
		return 0, nil
	}

	msg := strings.TrimSpace(stderrBuf.String())
	if msg == "" {
		msg = strings.TrimSpace(stdoutBuf.String())
	}
	if msg == "" {
		msg = "command failed"
	}
	return exitCode, errors.New(msg)
}
