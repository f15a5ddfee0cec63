package vault

import (
	"context"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/arthur-debert/dotvault/pkg/glob"
	"github.com/arthur-debert/dotvault/pkg/linkstate"
)

// StatusReport is the state of every declared path and of the repository
type StatusReport struct {
	Home    string            `json:"home" yaml:"home"`
	Root    string            `json:"root" yaml:"root"`
	Remote  string            `json:"remote,omitempty" yaml:"remote,omitempty"`
	Entries []linkstate.Entry `json:"entries" yaml:"entries"`

	// Orphans are working tree files no pattern declares
	Orphans []string `json:"orphans,omitempty" yaml:"orphans,omitempty"`

	// Changes are uncommitted paths in the working tree
	Changes []string `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// Drift returns the entries that are declared but not linked
func (s *StatusReport) Drift() []linkstate.Entry {
	var out []linkstate.Entry
	for _, e := range s.Entries {
		if e.State.IsDrift() {
			out = append(out, e)
		}
	}
	return out
}

// Display shortens path to ~/rel when it lies under home
func (s *StatusReport) Display(path string) string {
	rel, err := filepath.Rel(s.Home, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return "~/" + filepath.ToSlash(rel)
}

// Clean reports whether every path is linked and nothing is uncommitted
func (s *StatusReport) Clean() bool {
	return len(s.Drift()) == 0 && len(s.Changes) == 0
}

// Status inspects every declared path. It never modifies anything.
func (v *Vault) Status(ctx context.Context) (*StatusReport, error) {
	declared, err := v.declared()
	if err != nil {
		return nil, err
	}
	entries, err := v.inspector.InspectAll(declared)
	if err != nil {
		return nil, err
	}
	orphans, err := v.orphans(declared)
	if err != nil {
		return nil, err
	}
	changes, err := v.repo.Status(ctx)
	if err != nil {
		return nil, err
	}

	return &StatusReport{
		Home:    v.paths.Home(),
		Root:    v.paths.Root(),
		Remote:  v.repo.RemoteURL(),
		Entries: entries,
		Orphans: orphans,
		Changes: changes,
	}, nil
}

func (v *Vault) orphans(declared []string) ([]string, error) {
	repoDir := v.paths.RepositoryDir()
	files, err := glob.NewResolver(filepath.Join(repoDir, ".git")).Resolve([]string{"**"}, repoDir)
	if err != nil {
		return nil, err
	}

	known := mapset.NewThreadUnsafeSet(declared...)
	var out []string
	for _, f := range files {
		home, err := v.paths.ToHome(f)
		if err != nil || known.Contains(home) {
			continue
		}
		out = append(out, v.display(home))
	}
	return out, nil
}
