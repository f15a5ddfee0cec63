// Package linkstate classifies a declared path by looking at its original
// location and its mirror in the repository working tree. Inspection never
// modifies the filesystem.
package linkstate

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/paths"
	"github.com/arthur-debert/dotvault/pkg/types"
)

// Entry is the inspected state of one path
type Entry struct {
	Original   string          `json:"original" yaml:"original"`
	Repository string          `json:"repository" yaml:"repository"`
	LinkTarget string          `json:"linkTarget,omitempty" yaml:"linkTarget,omitempty"`
	State      types.PathState `json:"state" yaml:"state"`

	// RepositoryExists is true when the mirror entry is present, whatever
	// the state of the original.
	RepositoryExists bool `json:"repositoryExists" yaml:"repositoryExists"`
}

// Inspector classifies paths
type Inspector struct {
	fs    types.FS
	paths paths.Paths
}

// NewInspector creates an inspector over fs
func NewInspector(fsys types.FS, p paths.Paths) *Inspector {
	return &Inspector{fs: fsys, paths: p}
}

// Inspect classifies original, a path under home. A symlink counts as a
// link into the repository when its target lies inside the working tree.
func (i *Inspector) Inspect(original string) (Entry, error) {
	repo, err := i.paths.ToRepository(original)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Original: original, Repository: repo}

	repoExists, err := i.exists(repo)
	if err != nil {
		return entry, err
	}
	entry.RepositoryExists = repoExists

	info, err := i.fs.Lstat(original)
	if err != nil {
		if !os.IsNotExist(err) {
			return entry, errors.Wrapf(err, errors.ErrFilesystem, "cannot inspect %s", original).
				WithDetail("path", original)
		}
		if repoExists {
			entry.State = types.StateUnlinked
		} else {
			entry.State = types.StateMissing
		}
		return entry, nil
	}

	if info.Mode()&fs.ModeSymlink == 0 {
		entry.State = types.StateUntracked
		return entry, nil
	}

	target, err := i.fs.Readlink(original)
	if err != nil {
		return entry, errors.Wrapf(err, errors.ErrFilesystem, "cannot read link %s", original).
			WithDetail("path", original)
	}
	entry.LinkTarget = target

	resolved := absTarget(original, target)
	if !i.paths.IsInRepository(resolved) {
		entry.State = types.StateUntracked
		return entry, nil
	}

	targetExists, err := i.exists(resolved)
	if err != nil {
		return entry, err
	}
	if targetExists {
		entry.State = types.StateLinked
	} else {
		entry.State = types.StateBroken
	}
	return entry, nil
}

// InspectAll inspects every path, stopping at the first error
func (i *Inspector) InspectAll(originals []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(originals))
	for _, p := range originals {
		e, err := i.Inspect(p)
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// PointsAtMirror reports whether the entry's link targets exactly its own
// repository mirror.
func (e Entry) PointsAtMirror() bool {
	return e.LinkTarget != "" && absTarget(e.Original, e.LinkTarget) == filepath.Clean(e.Repository)
}

func (i *Inspector) exists(path string) (bool, error) {
	if _, err := i.fs.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrFilesystem, "cannot inspect %s", path).
			WithDetail("path", path)
	}
	return true, nil
}

func absTarget(link, target string) string {
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	return filepath.Clean(target)
}
