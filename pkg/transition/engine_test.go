package transition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/testutil"
	"github.com/arthur-debert/dotvault/pkg/transition"
	"github.com/arthur-debert/dotvault/pkg/types"
)

func TestTrackUntracked(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.WriteHomeFile(".config/git/config", "[user]\n")

	res, err := transition.NewEngine(env.FS, env.Paths).Track(original)
	require.NoError(t, err)

	assert.Equal(t, types.StateUntracked, res.Before)
	assert.Equal(t, types.StateLinked, res.After)
	assert.Equal(t, transition.ActionAdopt, res.Action)
	assert.True(t, res.Changed())

	assert.True(t, env.IsSymlink(original))
	assert.Equal(t, env.RepoPath(".config/git/config"), env.LinkTarget(original))
	assert.Equal(t, "[user]\n", env.ReadFile(original))
	assert.Equal(t, "[user]\n", env.ReadFile(env.RepoPath(".config/git/config")))
}

func TestTrackIsIdempotent(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.WriteHomeFile(".bashrc", "alias ll='ls -l'\n")
	engine := transition.NewEngine(env.FS, env.Paths)

	_, err := engine.Track(original)
	require.NoError(t, err)

	res, err := engine.Track(original)
	require.NoError(t, err)
	assert.Equal(t, types.StateLinked, res.Before)
	assert.Equal(t, transition.ActionNone, res.Action)
	assert.Equal(t, "already tracked", res.Warning)
	assert.False(t, res.Changed())
}

func TestTrackCollisionAbortsBeforeMove(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.WriteHomeFile(".bashrc", "home")
	mirror := env.WriteRepoFile(".bashrc", "repo")

	res, err := transition.NewEngine(env.FS, env.Paths).Track(original)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCollision))
	assert.Equal(t, err, res.Err)
	assert.Equal(t, types.StateUntracked, res.After)

	assert.False(t, env.IsSymlink(original))
	assert.Equal(t, "home", env.ReadFile(original))
	assert.Equal(t, "repo", env.ReadFile(mirror))
}

func TestTrackRollsBackWhenLinkFails(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.WriteHomeFile(".config/nvim/init.lua", "vim.o.number = true")
	faulty := testutil.NewFaultyFS(env.FS).
		FailOn(testutil.OpSymlink, original, testutil.PermissionError("symlink", original))

	_, err := transition.NewEngine(faulty, env.Paths).Track(original)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFilesystem))
	assert.ErrorIs(t, err, os.ErrPermission)

	assert.False(t, env.IsSymlink(original))
	assert.Equal(t, "vim.o.number = true", env.ReadFile(original))
	assert.False(t, env.Exists(env.RepoPath(".config/nvim/init.lua")))
	assert.False(t, env.Exists(env.RepoPath(".config")), "created directories are removed")
}

func TestTrackKeepsPreexistingDirectoriesOnRollback(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.WriteHomeFile(".config/a", "a")
	env.WriteRepoFile(".config/other", "other")
	faulty := testutil.NewFaultyFS(env.FS).
		FailOn(testutil.OpSymlink, original, testutil.PermissionError("symlink", original))

	_, err := transition.NewEngine(faulty, env.Paths).Track(original)
	require.Error(t, err)
	assert.True(t, env.Exists(env.RepoPath(".config/other")))
	assert.Equal(t, "a", env.ReadFile(original))
}

func TestTrackCrossDevice(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.WriteHomeFile(".ssh/config", "Host *\n")
	require.NoError(t, os.Chmod(original, 0600))
	mirror := env.RepoPath(".ssh/config")

	faulty := testutil.NewFaultyFS(env.FS).
		FailOn(testutil.OpRename, original, testutil.CrossDeviceError(original, mirror))

	res, err := transition.NewEngine(faulty, env.Paths).Track(original)
	require.NoError(t, err)
	assert.Equal(t, types.StateLinked, res.After)

	assert.True(t, env.IsSymlink(original))
	assert.Equal(t, "Host *\n", env.ReadFile(mirror))
	info, err := os.Stat(mirror)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Contains(t, faulty.Calls(), testutil.OpRemove+" "+original)
}

func TestTrackCrossDeviceVerifyFailureKeepsSource(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.WriteHomeFile(".profile", "export EDITOR=vi\n")
	mirror := env.RepoPath(".profile")

	faulty := testutil.NewFaultyFS(env.FS).
		FailOn(testutil.OpRename, original, testutil.CrossDeviceError(original, mirror)).
		FailOn(testutil.OpReadFile, mirror, testutil.PermissionError("open", mirror))

	_, err := transition.NewEngine(faulty, env.Paths).Track(original)
	require.Error(t, err)

	assert.Equal(t, "export EDITOR=vi\n", env.ReadFile(original))
	assert.False(t, env.IsSymlink(original))
	assert.False(t, env.Exists(mirror))
	assert.NotContains(t, faulty.Calls(), testutil.OpRemove+" "+original)
}

func TestTrackCrossDeviceSourceRemovalFailure(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.WriteHomeFile(".inputrc", "set bell-style none\n")
	mirror := env.RepoPath(".inputrc")

	faulty := testutil.NewFaultyFS(env.FS).
		FailOn(testutil.OpRename, original, testutil.CrossDeviceError(original, mirror)).
		FailOn(testutil.OpRemove, original, testutil.PermissionError("remove", original))

	_, err := transition.NewEngine(faulty, env.Paths).Track(original)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFilesystem))

	assert.Equal(t, "set bell-style none\n", env.ReadFile(original))
	assert.False(t, env.Exists(mirror))
}

func TestTrackCrossDeviceForeignSymlink(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	target := env.WriteHomeFile("shared/gitignore", "*.o\n")
	original := env.HomePath(".gitignore")
	env.Symlink(target, original)
	mirror := env.RepoPath(".gitignore")

	faulty := testutil.NewFaultyFS(env.FS).
		FailOn(testutil.OpRename, original, testutil.CrossDeviceError(original, mirror))

	_, err := transition.NewEngine(faulty, env.Paths).Track(original)
	require.NoError(t, err)

	assert.True(t, env.IsSymlink(mirror))
	assert.Equal(t, target, env.LinkTarget(mirror))
	assert.Equal(t, mirror, env.LinkTarget(original))
	assert.Equal(t, "*.o\n", env.ReadFile(original))
}

func TestTrackRelativeSymlinkStaysReadable(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	target := env.WriteHomeFile("dots/vimrc", "set nu\n")
	original := env.HomePath(".vimrc")
	env.Symlink("dots/vimrc", original)
	mirror := env.RepoPath(".vimrc")
	engine := transition.NewEngine(env.FS, env.Paths)

	res, err := engine.Track(original)
	require.NoError(t, err)
	assert.Equal(t, types.StateLinked, res.After)

	assert.Equal(t, mirror, env.LinkTarget(original))
	assert.Equal(t, target, env.LinkTarget(mirror))
	assert.Equal(t, "set nu\n", env.ReadFile(original))

	_, err = engine.Untrack(original)
	require.NoError(t, err)
	assert.Equal(t, target, env.LinkTarget(original))
	assert.Equal(t, "set nu\n", env.ReadFile(original))
	assert.False(t, env.Exists(mirror))
}

func TestTrackUnlinked(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	mirror := env.WriteRepoFile(".config/fish/config.fish", "set -x PAGER less")
	original := env.HomePath(".config/fish/config.fish")

	res, err := transition.NewEngine(env.FS, env.Paths).Track(original)
	require.NoError(t, err)

	assert.Equal(t, types.StateUnlinked, res.Before)
	assert.Equal(t, transition.ActionLink, res.Action)
	assert.Equal(t, mirror, env.LinkTarget(original))
}

func TestTrackBrokenRepairsWhenMirrorExists(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.WriteRepoFile(".bashrc", "content")
	original := env.HomePath(".bashrc")
	env.Symlink(env.RepoPath(".bashrc.old"), original)

	res, err := transition.NewEngine(env.FS, env.Paths).Track(original)
	require.NoError(t, err)

	assert.Equal(t, types.StateBroken, res.Before)
	assert.Equal(t, transition.ActionRepair, res.Action)
	assert.Equal(t, env.RepoPath(".bashrc"), env.LinkTarget(original))
	assert.Equal(t, "content", env.ReadFile(original))
}

func TestTrackBrokenWithoutContentWarns(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.HomePath(".bashrc")
	env.Symlink(env.RepoPath(".bashrc"), original)

	res, err := transition.NewEngine(env.FS, env.Paths).Track(original)
	require.NoError(t, err)

	assert.Equal(t, types.StateBroken, res.After)
	assert.Equal(t, transition.ActionNone, res.Action)
	assert.NotEmpty(t, res.Warning)
	assert.True(t, env.IsSymlink(original))
}

func TestTrackMissing(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	res, err := transition.NewEngine(env.FS, env.Paths).Track(env.HomePath(".nothing"))
	require.NoError(t, err)
	assert.Equal(t, types.StateMissing, res.After)
	assert.NotEmpty(t, res.Warning)
	assert.False(t, env.Exists(env.Paths.RepositoryDir()))
}

func TestTrackRejectsDirectory(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.WriteHomeFile(".config/x", "x")

	_, err := transition.NewEngine(env.FS, env.Paths).Track(env.HomePath(".config"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestUntrackLinked(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.WriteHomeFile(".config/alacritty/alacritty.toml", "[font]\n")
	env.WriteRepoFile(".config/keep", "keep")
	engine := transition.NewEngine(env.FS, env.Paths)

	_, err := engine.Track(original)
	require.NoError(t, err)

	res, err := engine.Untrack(original)
	require.NoError(t, err)

	assert.Equal(t, types.StateLinked, res.Before)
	assert.Equal(t, types.StateUntracked, res.After)
	assert.Equal(t, transition.ActionRestore, res.Action)

	assert.False(t, env.IsSymlink(original))
	assert.Equal(t, "[font]\n", env.ReadFile(original))
	assert.False(t, env.Exists(env.RepoPath(".config/alacritty")), "empty mirror directories are pruned")
	assert.True(t, env.Exists(env.RepoPath(".config/keep")))
	assert.True(t, env.Exists(env.Paths.RepositoryDir()), "repository root is never pruned")
}

func TestUntrackRollsBackWhenMoveFails(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.WriteHomeFile(".vimrc", "set nu")
	engine := transition.NewEngine(env.FS, env.Paths)
	_, err := engine.Track(original)
	require.NoError(t, err)

	mirror := env.RepoPath(".vimrc")
	faulty := testutil.NewFaultyFS(env.FS).
		FailOn(testutil.OpRename, mirror, testutil.PermissionError("rename", mirror))

	_, err = transition.NewEngine(faulty, env.Paths).Untrack(original)
	require.Error(t, err)

	assert.True(t, env.IsSymlink(original))
	assert.Equal(t, mirror, env.LinkTarget(original))
	assert.Equal(t, "set nu", env.ReadFile(original))
}

func TestUntrackBroken(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.HomePath(".bashrc")
	env.Symlink(env.RepoPath(".bashrc"), original)

	res, err := transition.NewEngine(env.FS, env.Paths).Untrack(original)
	require.NoError(t, err)

	assert.Equal(t, types.StateMissing, res.After)
	assert.Equal(t, transition.ActionUnlink, res.Action)
	assert.NotEmpty(t, res.Warning)
	assert.False(t, env.Exists(original))
}

func TestUntrackUnlinkedRestoresContent(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.WriteRepoFile(".config/tmux/tmux.conf", "set -g mouse on")
	original := env.HomePath(".config/tmux/tmux.conf")

	res, err := transition.NewEngine(env.FS, env.Paths).Untrack(original)
	require.NoError(t, err)

	assert.Equal(t, transition.ActionRestore, res.Action)
	assert.Equal(t, "set -g mouse on", env.ReadFile(original))
	assert.False(t, env.Exists(env.RepoPath(".config")))
}

func TestUntrackNoops(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	untracked := env.WriteHomeFile(".plain", "x")
	engine := transition.NewEngine(env.FS, env.Paths)

	res, err := engine.Untrack(untracked)
	require.NoError(t, err)
	assert.Equal(t, transition.ActionNone, res.Action)
	assert.Equal(t, "x", env.ReadFile(untracked))

	res, err = engine.Untrack(env.HomePath(".absent"))
	require.NoError(t, err)
	assert.Equal(t, types.StateMissing, res.After)
}

func TestTrackAllContinuesPastFailures(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	a := env.WriteHomeFile(".a", "a")
	b := env.WriteHomeFile(".b", "b")
	env.WriteRepoFile(".b", "collides")
	c := env.WriteHomeFile(".c", "c")

	batch := transition.NewEngine(env.FS, env.Paths).TrackAll([]string{a, b, c})
	require.Len(t, batch.Results, 3)

	err := batch.Err()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.True(t, errors.IsErrorCode(batch.Results[1].Err, errors.ErrCollision))
	assert.Equal(t, 2, batch.Changed())

	assert.True(t, env.IsSymlink(a))
	assert.False(t, env.IsSymlink(b))
	assert.True(t, env.IsSymlink(c))
}

func TestUntrackAll(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	engine := transition.NewEngine(env.FS, env.Paths)
	var tracked []string
	for _, name := range []string{".x", ".y/z"} {
		p := env.WriteHomeFile(name, name)
		tracked = append(tracked, p)
	}
	require.NoError(t, engine.TrackAll(tracked).Err())

	batch := engine.UntrackAll(tracked)
	require.NoError(t, batch.Err())
	for _, p := range tracked {
		assert.False(t, env.IsSymlink(p))
		assert.Equal(t, filepath.Base(p), filepath.Base(env.ReadFile(p)))
	}
}
