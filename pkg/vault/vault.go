// Package vault implements the operator commands on top of the lower
// level packages. A Vault holds the command lock for its lifetime; callers
// must Close it.
package vault

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/dotvault/pkg/config"
	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/filesystem"
	"github.com/arthur-debert/dotvault/pkg/linkstate"
	"github.com/arthur-debert/dotvault/pkg/logging"
	"github.com/arthur-debert/dotvault/pkg/paths"
	"github.com/arthur-debert/dotvault/pkg/repository"
	"github.com/arthur-debert/dotvault/pkg/transition"
	"github.com/arthur-debert/dotvault/pkg/types"
)

// Options configure where a vault lives and what it is built on. Zero
// values use the environment and defaults.
type Options struct {
	Home string
	Root string
	FS   types.FS

	// Repository replaces the go-git repository, for tests
	Repository repository.Repository
}

// Vault is an opened, locked vault
type Vault struct {
	paths     paths.Paths
	fs        types.FS
	cfg       *config.Config
	repo      repository.Repository
	engine    *transition.Engine
	inspector *linkstate.Inspector
	lock      *commandLock
	logger    zerolog.Logger
}

func prepare(opts Options) (paths.Paths, types.FS, error) {
	p, err := paths.New(opts.Home, opts.Root)
	if err != nil {
		return nil, nil, err
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = filesystem.NewOS()
	}
	return p, fsys, nil
}

// Open opens an initialized vault and takes the command lock
func Open(ctx context.Context, opts Options) (*Vault, error) {
	p, fsys, err := prepare(opts)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(p.Root()); os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrNotInitialized, "no vault at %s, run init first", p.Root()).
			WithDetail("path", p.Root())
	}

	lock, err := acquireLock(p.Root(), p.LockFile())
	if err != nil {
		return nil, err
	}

	v, err := open(ctx, p, fsys, lock, opts.Repository)
	if err != nil {
		_ = lock.release()
		return nil, err
	}
	return v, nil
}

func open(ctx context.Context, p paths.Paths, fsys types.FS, lock *commandLock, repo repository.Repository) (*Vault, error) {
	cfg, err := config.Load(p.ConfigFile())
	if err != nil {
		return nil, err
	}

	if repo == nil {
		repo, err = repository.Open(ctx, p.RepositoryDir(), repoOptions(cfg))
		if err != nil {
			return nil, err
		}
	}

	if cfg.RepositoryURL != "" && repo.RemoteURL() != cfg.RepositoryURL {
		if err := repo.SetRemote(cfg.RepositoryURL); err != nil {
			return nil, err
		}
	}

	return newVault(p, fsys, cfg, repo, lock), nil
}

func newVault(p paths.Paths, fsys types.FS, cfg *config.Config, repo repository.Repository, lock *commandLock) *Vault {
	return &Vault{
		paths:     p,
		fs:        fsys,
		cfg:       cfg,
		repo:      repo,
		engine:    transition.NewEngine(fsys, p),
		inspector: linkstate.NewInspector(fsys, p),
		lock:      lock,
		logger:    logging.GetLogger("vault"),
	}
}

func repoOptions(cfg *config.Config) repository.Options {
	if cfg == nil {
		return repository.Options{}
	}
	return repository.Options{
		Branch:      cfg.Git.Branch,
		Remote:      cfg.Git.Remote,
		AuthorName:  cfg.Git.AuthorName,
		AuthorEmail: cfg.Git.AuthorEmail,
	}
}

// Close releases the command lock
func (v *Vault) Close() error {
	return v.lock.release()
}

// Paths returns the vault's path layout
func (v *Vault) Paths() paths.Paths {
	return v.paths
}

// Config returns the loaded configuration
func (v *Vault) Config() *config.Config {
	return v.cfg
}
