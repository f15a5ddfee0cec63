// Package glob expands include and exclude patterns into concrete file
// paths. Patterns use doublestar syntax (`*`, `**`, `?`, classes and
// alternatives) and are matched case sensitively. A pattern naming a
// directory expands to every non-directory entry below it.
package glob

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/logging"
)

// Resolver turns patterns into paths
type Resolver struct {
	skip   mapset.Set[string]
	logger zerolog.Logger
}

// NewResolver creates a resolver. Directories listed in skip are never
// descended into or returned.
func NewResolver(skip ...string) *Resolver {
	r := &Resolver{
		skip:   mapset.NewThreadUnsafeSet[string](),
		logger: logging.GetLogger("glob"),
	}
	for _, dir := range skip {
		r.skip.Add(filepath.Clean(dir))
	}
	return r
}

// Validate checks pattern syntax
func Validate(pattern string) error {
	p := trimHome(pattern)
	if strings.TrimSpace(p) == "" || p == "." || p == "~" {
		return errors.Newf(errors.ErrResolution, "pattern %q matches nothing useful", pattern).
			WithDetail("pattern", pattern)
	}
	if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
		return errors.Newf(errors.ErrResolution, "invalid pattern %q", pattern).
			WithDetail("pattern", pattern)
	}
	return nil
}

// Resolve expands patterns relative to baseDir. Results keep the order of
// first match and contain each path once. Patterns that match nothing are
// not an error.
func (r *Resolver) Resolve(patterns []string, baseDir string) ([]string, error) {
	seen := mapset.NewThreadUnsafeSet[string]()
	var out []string

	add := func(path string) {
		if seen.Add(path) {
			out = append(out, path)
		}
	}

	donePatterns := mapset.NewThreadUnsafeSet[string]()
	for _, pattern := range patterns {
		if !donePatterns.Add(pattern) {
			continue
		}
		if err := Validate(pattern); err != nil {
			return nil, err
		}

		full := trimHome(pattern)
		if !filepath.IsAbs(full) {
			full = filepath.Join(baseDir, full)
		}
		full = filepath.Clean(full)

		var err error
		if hasMeta(full) {
			err = r.resolveGlob(full, add)
		} else {
			err = r.resolveLiteral(full, add)
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrResolution, "failed to resolve %q", pattern).
				WithDetail("pattern", pattern)
		}
	}

	r.logger.Debug().
		Strs("patterns", patterns).
		Str("base", baseDir).
		Int("matches", len(out)).
		Msg("Resolved patterns")
	return out, nil
}

// ResolveSet resolves include and removes every path also produced by
// exclude. Paths are compared as strings, without following links.
func (r *Resolver) ResolveSet(include, exclude []string, baseDir string) ([]string, error) {
	included, err := r.Resolve(include, baseDir)
	if err != nil {
		return nil, err
	}
	if len(exclude) == 0 {
		return included, nil
	}

	excluded, err := r.Resolve(exclude, baseDir)
	if err != nil {
		return nil, err
	}
	drop := mapset.NewThreadUnsafeSet(excluded...)

	out := make([]string, 0, len(included))
	for _, p := range included {
		if !drop.Contains(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// resolveLiteral uses lstat so that dangling symlinks still resolve
func (r *Resolver) resolveLiteral(path string, add func(string)) error {
	if r.skipped(path) {
		return nil
	}
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) || isNotDir(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return r.expandDir(path, add)
	}
	add(path)
	return nil
}

// resolveGlob walks only the directories the pattern can reach. Symlinks
// are matched as entries and never followed. The callback never returns
// SkipDir: for single-segment matches doublestar would also drop the
// remaining siblings.
func (r *Resolver) resolveGlob(full string, add func(string)) error {
	base, rest := doublestar.SplitPattern(filepath.ToSlash(full))
	base = filepath.FromSlash(base)

	info, err := os.Lstat(base)
	if err != nil || !info.IsDir() {
		return nil
	}

	expanded := mapset.NewThreadUnsafeSet[string]()
	return doublestar.GlobWalk(os.DirFS(base), rest, func(rel string, d fs.DirEntry) error {
		if rel == "." {
			return nil
		}
		path := filepath.Join(base, filepath.FromSlash(rel))
		if below(r.skip, base, path) || below(expanded, base, filepath.Dir(path)) {
			return nil
		}
		if d.IsDir() {
			expanded.Add(path)
			return r.expandDir(path, add)
		}
		add(path)
		return nil
	}, doublestar.WithNoFollow())
}

// expandDir adds every non-directory entry under dir, as if dir/**/* had
// been given.
func (r *Resolver) expandDir(dir string, add func(string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			r.logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable entry")
			return nil
		}
		if r.skipped(path) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			add(path)
		}
		return nil
	})
}

func (r *Resolver) skipped(path string) bool {
	return r.skip.Contains(filepath.Clean(path))
}

// below reports whether path or one of its parents up to base is in set
func below(set mapset.Set[string], base, path string) bool {
	for p := filepath.Clean(path); p != base && p != filepath.Dir(p); p = filepath.Dir(p) {
		if set.Contains(p) {
			return true
		}
	}
	return false
}

func trimHome(pattern string) string {
	if strings.HasPrefix(pattern, "~/") {
		return pattern[2:]
	}
	return pattern
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

func isNotDir(err error) bool {
	return stderrors.Is(err, syscall.ENOTDIR)
}
