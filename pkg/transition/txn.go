package transition

import (
	"github.com/rs/zerolog"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/types"
)

type undoStep struct {
	name string
	fn   func() error
}

// txn records completed sub-steps of a transition so that a failure can
// reverse them in the opposite order.
type txn struct {
	fs     types.FS
	logger zerolog.Logger
	undo   []undoStep
}

func newTxn(fsys types.FS, logger zerolog.Logger) *txn {
	return &txn{fs: fsys, logger: logger}
}

func (t *txn) onRollback(name string, fn func() error) {
	t.undo = append(t.undo, undoStep{name: name, fn: fn})
}

// mkdirAll creates dir and registers removal of every directory it had to
// create.
func (t *txn) mkdirAll(dir string) error {
	created := missingAncestors(t.fs, dir)
	if len(created) == 0 {
		return nil
	}
	if err := t.fs.MkdirAll(dir, 0755); err != nil {
		for _, d := range created {
			_ = t.fs.Remove(d)
		}
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot create directory %s", dir).
			WithDetail("path", dir)
	}
	t.onRollback("remove created directories", func() error {
		// created is deepest first
		for _, d := range created {
			if err := t.fs.Remove(d); err != nil {
				return err
			}
		}
		return nil
	})
	return nil
}

// abort reverses completed steps and returns cause. Rollback failures are
// attached to the error details, the original cause is what surfaces.
func (t *txn) abort(cause error) error {
	var failed []string
	for i := len(t.undo) - 1; i >= 0; i-- {
		step := t.undo[i]
		if err := step.fn(); err != nil {
			t.logger.Error().Err(err).Str("step", step.name).Msg("Rollback step failed")
			failed = append(failed, step.name+": "+err.Error())
		}
	}
	t.undo = nil

	if len(failed) == 0 {
		return cause
	}
	wrapped := errors.Wrap(cause, errors.GetErrorCode(cause), "operation failed and could not be fully reversed")
	if wrapped.Code == errors.ErrUnknown {
		wrapped.Code = errors.ErrFilesystem
	}
	return wrapped.WithDetail("rollback_failures", failed)
}
