package linkstate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/linkstate"
	"github.com/arthur-debert/dotvault/pkg/testutil"
	"github.com/arthur-debert/dotvault/pkg/types"
)

func TestInspect(t *testing.T) {
	tests := []struct {
		name  string
		setup func(env *testutil.TestEnvironment)
		want  types.PathState
	}{
		{
			name:  "missing",
			setup: func(env *testutil.TestEnvironment) {},
			want:  types.StateMissing,
		},
		{
			name: "untracked_file",
			setup: func(env *testutil.TestEnvironment) {
				env.WriteHomeFile(".bashrc", "x")
			},
			want: types.StateUntracked,
		},
		{
			name: "untracked_foreign_symlink",
			setup: func(env *testutil.TestEnvironment) {
				other := env.WriteHomeFile("elsewhere", "x")
				env.Symlink(other, env.HomePath(".bashrc"))
			},
			want: types.StateUntracked,
		},
		{
			name: "linked",
			setup: func(env *testutil.TestEnvironment) {
				env.Symlink(env.WriteRepoFile(".bashrc", "x"), env.HomePath(".bashrc"))
			},
			want: types.StateLinked,
		},
		{
			name: "linked_relative_target",
			setup: func(env *testutil.TestEnvironment) {
				env.WriteRepoFile(".bashrc", "x")
				env.Symlink(filepath.Join(".dotvault", "dotfiles", ".bashrc"), env.HomePath(".bashrc"))
			},
			want: types.StateLinked,
		},
		{
			name: "broken",
			setup: func(env *testutil.TestEnvironment) {
				env.Symlink(env.RepoPath(".bashrc"), env.HomePath(".bashrc"))
			},
			want: types.StateBroken,
		},
		{
			name: "unlinked",
			setup: func(env *testutil.TestEnvironment) {
				env.WriteRepoFile(".bashrc", "x")
			},
			want: types.StateUnlinked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewTestEnvironment(t)
			tt.setup(env)

			inspector := linkstate.NewInspector(env.FS, env.Paths)
			entry, err := inspector.Inspect(env.HomePath(".bashrc"))
			require.NoError(t, err)

			assert.Equal(t, tt.want, entry.State)
			assert.Equal(t, env.HomePath(".bashrc"), entry.Original)
			assert.Equal(t, env.RepoPath(".bashrc"), entry.Repository)
		})
	}
}

func TestInspectHasNoSideEffects(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.Symlink(env.RepoPath(".gitconfig"), env.HomePath(".gitconfig"))

	_, err := linkstate.NewInspector(env.FS, env.Paths).Inspect(env.HomePath(".gitconfig"))
	require.NoError(t, err)

	assert.True(t, env.IsSymlink(env.HomePath(".gitconfig")))
	assert.False(t, env.Exists(env.RepoPath(".gitconfig")))
	assert.False(t, env.Exists(env.Paths.RepositoryDir()))
}

func TestInspectOutsideHome(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	_, err := linkstate.NewInspector(env.FS, env.Paths).Inspect("/etc/hosts")
	assert.True(t, errors.IsErrorCode(err, errors.ErrOutsideHome))
}

func TestInspectFilesystemError(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	original := env.HomePath(".bashrc")
	faulty := testutil.NewFaultyFS(env.FS).FailOn(testutil.OpLstat, original, testutil.PermissionError("lstat", original))

	_, err := linkstate.NewInspector(faulty, env.Paths).Inspect(original)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFilesystem))
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestPointsAtMirror(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.WriteRepoFile(".a", "a")
	env.WriteRepoFile(".b", "b")
	env.Symlink(env.RepoPath(".b"), env.HomePath(".a"))
	env.Symlink(env.RepoPath(".b"), env.HomePath(".b"))

	entries, err := linkstate.NewInspector(env.FS, env.Paths).InspectAll([]string{env.HomePath(".a"), env.HomePath(".b")})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, types.StateLinked, entries[0].State)
	assert.False(t, entries[0].PointsAtMirror())
	assert.True(t, entries[1].PointsAtMirror())
}
