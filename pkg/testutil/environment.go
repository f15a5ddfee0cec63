package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/dotvault/pkg/filesystem"
	"github.com/arthur-debert/dotvault/pkg/paths"
	"github.com/arthur-debert/dotvault/pkg/types"
)

// TestEnvironment is a temp-dir backed home and vault root
type TestEnvironment struct {
	Home  string
	Root  string
	State string

	FS    types.FS
	Paths paths.Paths

	t *testing.T
}

// NewTestEnvironment creates an isolated environment. HOME and the
// DOTVAULT_* variables point into it for the duration of the test.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	base := t.TempDir()
	env := &TestEnvironment{
		Home:  filepath.Join(base, "home"),
		State: filepath.Join(base, "state"),
		FS:    filesystem.NewOS(),
		t:     t,
	}
	env.Root = filepath.Join(env.Home, paths.DefaultRootDir)

	require.NoError(t, os.MkdirAll(env.Home, 0755))

	t.Setenv("HOME", env.Home)
	t.Setenv(paths.EnvHome, env.Home)
	t.Setenv(paths.EnvRoot, env.Root)
	t.Setenv(paths.EnvStateDir, env.State)
	t.Setenv("GIT_CONFIG_GLOBAL", filepath.Join(base, "gitconfig"))
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	p, err := paths.New(env.Home, env.Root)
	require.NoError(t, err)
	env.Paths = p

	return env
}

// HomePath joins rel onto the home directory
func (env *TestEnvironment) HomePath(rel string) string {
	return filepath.Join(env.Home, rel)
}

// RepoPath joins rel onto the repository working tree
func (env *TestEnvironment) RepoPath(rel string) string {
	return filepath.Join(env.Paths.RepositoryDir(), rel)
}

// WriteHomeFile creates a file under home, including parent directories
func (env *TestEnvironment) WriteHomeFile(rel, content string) string {
	env.t.Helper()
	return env.writeFile(env.HomePath(rel), content)
}

// WriteRepoFile creates a file in the repository working tree
func (env *TestEnvironment) WriteRepoFile(rel, content string) string {
	env.t.Helper()
	return env.writeFile(env.RepoPath(rel), content)
}

func (env *TestEnvironment) writeFile(path, content string) string {
	env.t.Helper()
	require.NoError(env.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(env.t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// Symlink creates link pointing at target, including parent directories
func (env *TestEnvironment) Symlink(target, link string) {
	env.t.Helper()
	require.NoError(env.t, os.MkdirAll(filepath.Dir(link), 0755))
	require.NoError(env.t, os.Symlink(target, link))
}

// ReadFile returns the content at path, following symlinks
func (env *TestEnvironment) ReadFile(path string) string {
	env.t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(env.t, err)
	return string(data)
}

// Exists reports whether path exists without following symlinks
func (env *TestEnvironment) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsSymlink reports whether path is a symlink
func (env *TestEnvironment) IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// LinkTarget returns the target of the symlink at path
func (env *TestEnvironment) LinkTarget(path string) string {
	env.t.Helper()
	target, err := os.Readlink(path)
	require.NoError(env.t, err)
	return target
}
