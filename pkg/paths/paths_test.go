package paths_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/paths"
)

func newPaths(t *testing.T) (paths.Paths, string) {
	t.Helper()
	home := t.TempDir()
	p, err := paths.New(home, "")
	require.NoError(t, err)
	return p, home
}

func TestNewDefaults(t *testing.T) {
	p, home := newPaths(t)

	assert.Equal(t, home, p.Home())
	assert.Equal(t, filepath.Join(home, ".dotvault"), p.Root())
	assert.Equal(t, filepath.Join(home, ".dotvault", "config.toml"), p.ConfigFile())
	assert.Equal(t, filepath.Join(home, ".dotvault", "dotfiles"), p.RepositoryDir())
	assert.Equal(t, filepath.Join(home, ".dotvault", "dotvault.lock"), p.LockFile())
}

func TestNewFromEnvironment(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	state := t.TempDir()
	t.Setenv(paths.EnvHome, home)
	t.Setenv(paths.EnvRoot, root)
	t.Setenv("XDG_STATE_HOME", state)

	p, err := paths.New("", "")
	require.NoError(t, err)

	assert.Equal(t, home, p.Home())
	assert.Equal(t, root, p.Root())
	assert.Equal(t, filepath.Join(state, "dotvault", "dotvault.log"), p.LogFilePath())
}

func TestRootTildeExpandsToHome(t *testing.T) {
	home := t.TempDir()
	p, err := paths.New(home, "~/vault")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "vault"), p.Root())
}

func TestNormalizePath(t *testing.T) {
	p, home := newPaths(t)

	tests := []struct {
		name    string
		input   string
		want    string
		errCode errors.ErrorCode
	}{
		{"tilde", "~/.bashrc", filepath.Join(home, ".bashrc"), ""},
		{"absolute", filepath.Join(home, ".config", "..", ".vimrc"), filepath.Join(home, ".vimrc"), ""},
		{"empty", "", "", errors.ErrInvalidInput},
		{"outside", "/etc/passwd", "", errors.ErrOutsideHome},
		{"home_itself", "~", "", errors.ErrOutsideHome},
		{"sibling_prefix", home + "-other/file", "", errors.ErrOutsideHome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.NormalizePath(tt.input)
			if tt.errCode != "" {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, tt.errCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepositoryMapping(t *testing.T) {
	p, home := newPaths(t)

	original := filepath.Join(home, ".config", "nvim", "init.lua")
	mirror, err := p.ToRepository(original)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.RepositoryDir(), ".config", "nvim", "init.lua"), mirror)
	assert.True(t, p.IsInRepository(mirror))
	assert.True(t, p.IsInRoot(mirror))
	assert.False(t, p.IsInRepository(original))

	back, err := p.ToHome(mirror)
	require.NoError(t, err)
	assert.Equal(t, original, back)

	_, err = p.ToHome(original)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	_, err = p.ToRepository("/elsewhere/file")
	assert.True(t, errors.IsErrorCode(err, errors.ErrOutsideHome))
}
