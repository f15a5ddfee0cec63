package repository

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os/exec"
	"strings"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/logging"
)

// GitBinary is the executable RunGit starts
var GitBinary = "git"

// Streams connect a git process to the caller. Nil fields are discarded.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// RunGit runs the git binary in dir. It is the escape hatch for operations
// the go-git adapter does not cover, so its output goes straight to the
// caller's streams.
func RunGit(ctx context.Context, dir string, args []string, streams Streams) error {
	logger := logging.GetLogger("repository")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, GitBinary, args...)
	cmd.Dir = dir
	cmd.Stdin = streams.In
	cmd.Stdout = streams.Out
	if streams.Err != nil {
		cmd.Stderr = io.MultiWriter(streams.Err, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	logger.Debug().Str("dir", dir).Strs("args", args).Msg("Running git")
	err := cmd.Run()
	if err == nil {
		return nil
	}

	line := strings.Join(append([]string{GitBinary}, args...), " ")
	var exitErr *exec.ExitError
	switch {
	case stderrors.Is(err, exec.ErrNotFound):
		return errors.Wrapf(err, errors.ErrRepository, "%s executable not found", GitBinary)
	case stderrors.As(err, &exitErr):
		return errors.Wrapf(err, errors.ErrRepository, "%s exited with status %d", line, exitErr.ExitCode()).
			WithDetail("stderr", strings.TrimSpace(stderr.String()))
	default:
		return errors.Wrapf(err, errors.ErrRepository, "failed to run %s", line)
	}
}
