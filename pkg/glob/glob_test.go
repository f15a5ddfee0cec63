package glob_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/glob"
)

func tree(t *testing.T, files ...string) string {
	t.Helper()
	base := t.TempDir()
	for _, f := range files {
		path := filepath.Join(base, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(f), 0644))
	}
	return base
}

func rel(t *testing.T, base string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := filepath.Rel(base, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(r))
	}
	return out
}

func TestResolveLiteral(t *testing.T) {
	base := tree(t, ".bashrc", ".vimrc")
	r := glob.NewResolver()

	got, err := r.Resolve([]string{".bashrc", "~/.vimrc", ".missing"}, base)
	require.NoError(t, err)
	assert.Equal(t, []string{".bashrc", ".vimrc"}, rel(t, base, got))
}

func TestResolveAbsolutePattern(t *testing.T) {
	base := tree(t, ".zshrc")
	r := glob.NewResolver()

	got, err := r.Resolve([]string{filepath.Join(base, ".zshrc")}, "/nonexistent")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(base, ".zshrc")}, got)
}

func TestResolveDirectoryExpandsToFiles(t *testing.T) {
	base := tree(t, ".config/nvim/init.lua", ".config/nvim/lua/plugins.lua", ".config/git/config")
	r := glob.NewResolver()

	got, err := r.Resolve([]string{".config/nvim"}, base)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{".config/nvim/init.lua", ".config/nvim/lua/plugins.lua"}, rel(t, base, got))
}

func TestResolveWildcards(t *testing.T) {
	base := tree(t, "a.toml", "b.toml", "c.txt", "sub/d.toml", "sub/deep/e.toml")
	r := glob.NewResolver()

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"star", "*.toml", []string{"a.toml", "b.toml"}},
		{"question", "?.txt", []string{"c.txt"}},
		{"doublestar", "**/*.toml", []string{"a.toml", "b.toml", "sub/d.toml", "sub/deep/e.toml"}},
		{"nested_star", "sub/*.toml", []string{"sub/d.toml"}},
		{"dir_match_expands", "s*", []string{"sub/d.toml", "sub/deep/e.toml"}},
		{"no_match", "*.yaml", nil},
		{"case_sensitive", "*.TOML", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve([]string{tt.pattern}, base)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.ElementsMatch(t, tt.want, rel(t, base, got))
		})
	}
}

func TestResolveMatchedDirectoryKeepsSiblings(t *testing.T) {
	base := tree(t, "a/x", "b", "c/y/z", "d")
	r := glob.NewResolver()

	got, err := r.Resolve([]string{"*"}, base)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/x", "b", "c/y/z", "d"}, rel(t, base, got))

	got, err = r.Resolve([]string{"**"}, base)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/x", "b", "c/y/z", "d"}, rel(t, base, got))
}

func TestResolveShallowPatternIgnoresNestedMatches(t *testing.T) {
	base := tree(t, ".bashrc", ".vimrc", "projects/app/.eslintrc", "projects/.npmrc")

	got, err := glob.NewResolver().Resolve([]string{".*rc"}, base)
	require.NoError(t, err)
	assert.Equal(t, []string{".bashrc", ".vimrc"}, rel(t, base, got))
}

func TestResolveOrderAndDedup(t *testing.T) {
	base := tree(t, "a", "b", "c")
	r := glob.NewResolver()

	got, err := r.Resolve([]string{"c", "*", "a", "c"}, base)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, rel(t, base, got))
}

func TestResolveKeepsBrokenSymlink(t *testing.T) {
	base := t.TempDir()
	link := filepath.Join(base, ".gitconfig")
	require.NoError(t, os.Symlink(filepath.Join(base, "gone"), link))

	got, err := glob.NewResolver().Resolve([]string{".gitconfig"}, base)
	require.NoError(t, err)
	assert.Equal(t, []string{link}, got)
}

func TestResolveSymlinkedDirIsNotFollowed(t *testing.T) {
	base := tree(t, "real/file")
	require.NoError(t, os.Symlink(filepath.Join(base, "real"), filepath.Join(base, "alias")))

	got, err := glob.NewResolver().Resolve([]string{"alias"}, base)
	require.NoError(t, err)
	assert.Equal(t, []string{"alias"}, rel(t, base, got))
}

func TestResolveSkipsDirectories(t *testing.T) {
	base := tree(t, ".bashrc", ".dotvault/dotfiles/.bashrc", ".dotvault/config.toml")
	r := glob.NewResolver(filepath.Join(base, ".dotvault"))

	got, err := r.Resolve([]string{"**/*"}, base)
	require.NoError(t, err)
	assert.Equal(t, []string{".bashrc"}, rel(t, base, got))

	got, err = r.Resolve([]string{".dotvault"}, base)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveInvalidPattern(t *testing.T) {
	r := glob.NewResolver()

	for _, pattern := range []string{"[abc", "", "~", "~/"} {
		_, err := r.Resolve([]string{pattern}, t.TempDir())
		require.Error(t, err, pattern)
		assert.True(t, errors.IsErrorCode(err, errors.ErrResolution), pattern)
		assert.Contains(t, err.Error(), pattern)
	}
}

func TestResolveSet(t *testing.T) {
	base := tree(t, ".config/a", ".config/b", ".config/secret/token")
	r := glob.NewResolver()

	got, err := r.ResolveSet([]string{".config"}, []string{".config/secret", ".config/b"}, base)
	require.NoError(t, err)
	assert.Equal(t, []string{".config/a"}, rel(t, base, got))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, glob.Validate("~/.config/**/*.toml"))
	assert.NoError(t, glob.Validate(".bash{rc,_profile}"))
	assert.Error(t, glob.Validate(".config/[x"))
}
