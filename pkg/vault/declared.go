package vault

import (
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/arthur-debert/dotvault/pkg/glob"
	"github.com/arthur-debert/dotvault/pkg/paths"
)

// declared resolves the configured patterns into the set of paths under
// home that the vault manages. Paths that only exist in the working tree
// (the Unlinked state on a fresh clone) are found by resolving the same
// patterns against the repository directory.
func (v *Vault) declared() ([]string, error) {
	return v.resolve(v.cfg.Include, v.cfg.Exclude)
}

func (v *Vault) resolve(include, exclude []string) ([]string, error) {
	include = v.homePatterns(include)
	exclude = v.homePatterns(exclude)
	repoDir := v.paths.RepositoryDir()

	homeSide, err := glob.NewResolver(repoDir, v.paths.LockFile()).ResolveSet(include, exclude, v.paths.Home())
	if err != nil {
		return nil, err
	}
	repoSide, err := glob.NewResolver(filepath.Join(repoDir, ".git")).ResolveSet(include, exclude, repoDir)
	if err != nil {
		return nil, err
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(homeSide)+len(repoSide))
	add := func(p string) {
		if v.paths.IsInRepository(p) || p == v.paths.LockFile() || seen.Contains(p) {
			return
		}
		seen.Add(p)
		out = append(out, p)
	}

	for _, p := range homeSide {
		add(p)
	}
	for _, p := range repoSide {
		home, err := v.paths.ToHome(p)
		if err != nil {
			continue
		}
		add(home)
	}
	return out, nil
}

// homePatterns rewrites absolute patterns under home as home relative ones,
// so the same pattern can be resolved against the working tree.
func (v *Vault) homePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if filepath.IsAbs(p) {
			if rel, err := v.paths.RelativeToHome(filepath.Clean(p)); err == nil {
				p = filepath.ToSlash(rel)
			}
		}
		out = append(out, p)
	}
	return out
}

// pattern turns an operator supplied path into the form stored in the
// configuration: relative to home, slash separated.
func (v *Vault) pattern(arg string) (string, error) {
	abs, err := v.paths.NormalizePath(arg)
	if err != nil {
		return "", err
	}
	rel, err := v.paths.RelativeToHome(abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// configPattern is the home relative path of the configuration file, or ""
// when the root lives outside home.
func configPattern(p paths.Paths) string {
	rel, err := p.RelativeToHome(p.ConfigFile())
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}
