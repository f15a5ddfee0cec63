// Package transition performs the state-changing operations on a single
// path: track moves content into the repository working tree and links it
// back, untrack reverses that. Each operation either completes or leaves
// the filesystem as it found it.
package transition

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/linkstate"
	"github.com/arthur-debert/dotvault/pkg/logging"
	"github.com/arthur-debert/dotvault/pkg/paths"
	"github.com/arthur-debert/dotvault/pkg/types"
)

// Action names what an operation did to a path
type Action string

const (
	ActionNone    Action = "none"
	ActionAdopt   Action = "adopt"
	ActionLink    Action = "link"
	ActionRepair  Action = "repair"
	ActionRestore Action = "restore"
	ActionUnlink  Action = "unlink"
)

// Result describes one path's transition
type Result struct {
	Path    string          `json:"path" yaml:"path"`
	Before  types.PathState `json:"before" yaml:"before"`
	After   types.PathState `json:"after" yaml:"after"`
	Action  Action          `json:"action" yaml:"action"`
	Warning string          `json:"warning,omitempty" yaml:"warning,omitempty"`
	Err     error           `json:"-" yaml:"-"`
}

// Changed reports whether the filesystem was modified
func (r Result) Changed() bool {
	return r.Err == nil && r.Action != ActionNone
}

// Engine runs transitions
type Engine struct {
	fs        types.FS
	paths     paths.Paths
	inspector *linkstate.Inspector
	logger    zerolog.Logger
}

// NewEngine creates an engine operating through fsys
func NewEngine(fsys types.FS, p paths.Paths) *Engine {
	return &Engine{
		fs:        fsys,
		paths:     p,
		inspector: linkstate.NewInspector(fsys, p),
		logger:    logging.GetLogger("transition"),
	}
}

// Track brings path under management
func (e *Engine) Track(path string) (Result, error) {
	res := Result{Path: path, Action: ActionNone}

	entry, err := e.inspector.Inspect(path)
	if err != nil {
		return e.fail(res, err)
	}
	res.Before = entry.State
	res.After = entry.State

	switch entry.State {
	case types.StateLinked:
		res.Warning = "already tracked"
	case types.StateMissing:
		res.Warning = "nothing to track, path does not exist"
	case types.StateUntracked:
		if err := e.adopt(entry); err != nil {
			return e.fail(res, err)
		}
		res.Action = ActionAdopt
		res.After = types.StateLinked
	case types.StateUnlinked:
		if err := e.link(entry); err != nil {
			return e.fail(res, err)
		}
		res.Action = ActionLink
		res.After = types.StateLinked
	case types.StateBroken:
		if !entry.RepositoryExists {
			res.Warning = "repository content is missing, link left broken"
			break
		}
		if err := e.repair(entry); err != nil {
			return e.fail(res, err)
		}
		res.Action = ActionRepair
		res.After = types.StateLinked
	}

	e.log(res, "track")
	return res, nil
}

// Untrack releases path from management, moving content back in place of
// the link.
func (e *Engine) Untrack(path string) (Result, error) {
	res := Result{Path: path, Action: ActionNone}

	entry, err := e.inspector.Inspect(path)
	if err != nil {
		return e.fail(res, err)
	}
	res.Before = entry.State
	res.After = entry.State

	switch entry.State {
	case types.StateUntracked:
		res.Warning = "not tracked"
	case types.StateMissing:
		res.Warning = "nothing to untrack, path does not exist"
	case types.StateLinked:
		if err := e.restore(entry); err != nil {
			return e.fail(res, err)
		}
		res.Action = ActionRestore
		res.After = types.StateUntracked
	case types.StateUnlinked:
		if err := e.restoreUnlinked(entry); err != nil {
			return e.fail(res, err)
		}
		res.Action = ActionRestore
		res.After = types.StateUntracked
	case types.StateBroken:
		if err := e.fs.Remove(entry.Original); err != nil {
			return e.fail(res, errors.Wrapf(err, errors.ErrFilesystem, "cannot remove link %s", entry.Original).
				WithDetail("path", entry.Original))
		}
		res.Action = ActionUnlink
		res.After = types.StateMissing
		res.Warning = "repository content is missing, original left absent"
	}

	e.log(res, "untrack")
	return res, nil
}

// adopt moves the original into the repository and links it back. A
// collision at the repository location aborts before anything moves.
func (e *Engine) adopt(entry linkstate.Entry) error {
	info, err := e.fs.Lstat(entry.Original)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot stat %s", entry.Original).
			WithDetail("path", entry.Original)
	}
	if info.IsDir() {
		return errors.Newf(errors.ErrInvalidInput, "%s is a directory, only files are tracked", entry.Original).
			WithDetail("path", entry.Original)
	}
	if entry.RepositoryExists {
		return errors.Newf(errors.ErrCollision, "%s already exists in the repository", entry.Repository).
			WithDetail("path", entry.Original).
			WithDetail("repository", entry.Repository)
	}

	tx := newTxn(e.fs, e.logger)

	if err := tx.mkdirAll(filepath.Dir(entry.Repository)); err != nil {
		return tx.abort(err)
	}

	if err := move(e.fs, entry.Original, entry.Repository); err != nil {
		return tx.abort(err)
	}
	tx.onRollback("move back "+entry.Repository, func() error {
		return move(e.fs, entry.Repository, entry.Original)
	})

	if err := e.fs.Symlink(entry.Repository, entry.Original); err != nil {
		return tx.abort(errors.Wrapf(err, errors.ErrFilesystem, "cannot link %s", entry.Original).
			WithDetail("path", entry.Original))
	}
	return nil
}

// link creates the original as a link to existing repository content
func (e *Engine) link(entry linkstate.Entry) error {
	tx := newTxn(e.fs, e.logger)

	if err := tx.mkdirAll(filepath.Dir(entry.Original)); err != nil {
		return tx.abort(err)
	}
	if err := e.fs.Symlink(entry.Repository, entry.Original); err != nil {
		return tx.abort(errors.Wrapf(err, errors.ErrFilesystem, "cannot link %s", entry.Original).
			WithDetail("path", entry.Original))
	}
	return nil
}

// repair replaces a dangling link with one to the path's own mirror
func (e *Engine) repair(entry linkstate.Entry) error {
	tx := newTxn(e.fs, e.logger)

	if err := e.fs.Remove(entry.Original); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot remove link %s", entry.Original).
			WithDetail("path", entry.Original)
	}
	tx.onRollback("restore link "+entry.Original, func() error {
		return e.fs.Symlink(entry.LinkTarget, entry.Original)
	})

	if err := e.fs.Symlink(entry.Repository, entry.Original); err != nil {
		return tx.abort(errors.Wrapf(err, errors.ErrFilesystem, "cannot link %s", entry.Original).
			WithDetail("path", entry.Original))
	}
	return nil
}

// restore removes the link and moves its target back in its place
func (e *Engine) restore(entry linkstate.Entry) error {
	source := entry.Repository
	if !entry.PointsAtMirror() {
		source = resolveTarget(entry.Original, entry.LinkTarget)
	}

	tx := newTxn(e.fs, e.logger)

	if err := e.fs.Remove(entry.Original); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot remove link %s", entry.Original).
			WithDetail("path", entry.Original)
	}
	tx.onRollback("restore link "+entry.Original, func() error {
		return e.fs.Symlink(entry.LinkTarget, entry.Original)
	})

	if err := move(e.fs, source, entry.Original); err != nil {
		return tx.abort(err)
	}

	e.pruneRepositoryDirs(filepath.Dir(source))
	return nil
}

func (e *Engine) restoreUnlinked(entry linkstate.Entry) error {
	info, err := e.fs.Lstat(entry.Repository)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot stat %s", entry.Repository).
			WithDetail("path", entry.Repository)
	}
	if info.IsDir() {
		return errors.Newf(errors.ErrInvalidInput, "%s is a directory, only files are tracked", entry.Repository).
			WithDetail("path", entry.Original)
	}

	tx := newTxn(e.fs, e.logger)
	if err := tx.mkdirAll(filepath.Dir(entry.Original)); err != nil {
		return tx.abort(err)
	}
	if err := move(e.fs, entry.Repository, entry.Original); err != nil {
		return tx.abort(err)
	}

	e.pruneRepositoryDirs(filepath.Dir(entry.Repository))
	return nil
}

// pruneRepositoryDirs removes dir and its parents while they are empty,
// stopping at the repository root.
func (e *Engine) pruneRepositoryDirs(dir string) {
	root := filepath.Clean(e.paths.RepositoryDir())
	for dir = filepath.Clean(dir); dir != root && e.paths.IsInRepository(dir); dir = filepath.Dir(dir) {
		entries, err := e.fs.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := e.fs.Remove(dir); err != nil {
			e.logger.Debug().Err(err).Str("dir", dir).Msg("Could not prune directory")
			return
		}
	}
}

func (e *Engine) fail(res Result, err error) (Result, error) {
	res.Err = err
	res.After = res.Before
	e.log(res, "")
	return res, err
}

func (e *Engine) log(res Result, op string) {
	event := e.logger.Info()
	if res.Err != nil {
		event = e.logger.Error().Err(res.Err)
	} else if res.Action == ActionNone {
		event = e.logger.Debug()
	}
	if res.Warning != "" {
		event = event.Str("warning", res.Warning)
	}
	if op != "" {
		event = event.Str("op", op)
	}
	event.
		Str("path", res.Path).
		Str("before", string(res.Before)).
		Str("after", string(res.After)).
		Str("action", string(res.Action)).
		Msg("Transition")
}

func resolveTarget(link, target string) string {
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	return filepath.Clean(target)
}

// missingAncestors lists dir and each parent that does not exist yet,
// deepest first.
func missingAncestors(fsys types.FS, dir string) []string {
	var missing []string
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		if _, err := fsys.Lstat(d); err == nil || !os.IsNotExist(err) {
			break
		}
		missing = append(missing, d)
		if filepath.Dir(d) == d {
			break
		}
	}
	return missing
}
