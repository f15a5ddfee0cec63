package vault

import (
	"context"
	"os"
	"path/filepath"

	"github.com/arthur-debert/dotvault/pkg/config"
	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/logging"
	"github.com/arthur-debert/dotvault/pkg/paths"
	"github.com/arthur-debert/dotvault/pkg/repository"
	"github.com/arthur-debert/dotvault/pkg/transition"
	"github.com/arthur-debert/dotvault/pkg/types"
)

// InitMessage is the commit message of the first commit
const InitMessage = "Initialize dotvault"

// Init creates the vault root, its repository and configuration, then links
// every declared path. With a url, or a repository_url in an existing
// configuration, the repository is cloned; on a new machine this restores
// every link the remote declares.
func Init(ctx context.Context, opts Options, url string) (*Vault, *types.Result, error) {
	p, fsys, err := prepare(opts)
	if err != nil {
		return nil, nil, err
	}

	lock, err := acquireLock(p.Root(), p.LockFile())
	if err != nil {
		return nil, nil, err
	}

	v, res, err := initialize(ctx, p, fsys, lock, opts.Repository, url)
	if err != nil {
		_ = lock.release()
		return nil, nil, err
	}
	return v, res, nil
}

func initialize(ctx context.Context, p paths.Paths, fsys types.FS, lock *commandLock, repo repository.Repository, url string) (*Vault, *types.Result, error) {
	logger := logging.GetLogger("vault")
	done := logging.LogOperationStart(logger, "init")
	defer done()

	if _, err := os.Stat(filepath.Join(p.RepositoryDir(), ".git")); err == nil {
		return nil, nil, errors.Newf(errors.ErrAlreadyInitialized, "vault already initialized at %s", p.Root()).
			WithDetail("path", p.Root())
	}

	var cfg *config.Config
	if _, err := os.Stat(p.ConfigFile()); err == nil {
		loaded, err := config.Load(p.ConfigFile())
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
		if url == "" {
			url = cfg.RepositoryURL
		}
	}

	res := types.NewResult("init")

	if repo == nil {
		var err error
		if repo, err = createRepository(ctx, p, url, repoOptions(cfg)); err != nil {
			return nil, nil, err
		}
	} else if url != "" && repo.RemoteURL() != url {
		if err := repo.SetRemote(url); err != nil {
			return nil, nil, err
		}
	}
	if url != "" {
		res.Add(types.Step{Name: "repository", Target: url, Outcome: types.OutcomeSuccess, Message: "cloned into " + p.RepositoryDir()})
	} else {
		res.Add(types.Step{Name: "repository", Target: p.RepositoryDir(), Outcome: types.OutcomeSuccess, Message: "initialized"})
	}

	if cfg == nil {
		var err error
		if cfg, err = restoreConfig(p, fsys, res); err != nil {
			return nil, nil, err
		}
	}
	if url != "" && cfg.RepositoryURL != url {
		cfg.SetRepositoryURL(url)
		if err := cfg.Save(); err != nil {
			return nil, nil, err
		}
	}

	v := newVault(p, fsys, cfg, repo, lock)
	v.reconcile(res)
	v.commit(ctx, res, InitMessage)
	return v, res, nil
}

func createRepository(ctx context.Context, p paths.Paths, url string, opts repository.Options) (repository.Repository, error) {
	if url != "" {
		return repository.Clone(ctx, url, p.RepositoryDir(), opts)
	}
	return repository.Init(ctx, p.RepositoryDir(), "", opts)
}

// restoreConfig links the configuration when the repository carries one,
// and writes the defaults otherwise. A new configuration declares itself
// so that it is tracked along with everything else.
func restoreConfig(p paths.Paths, fsys types.FS, res *types.Result) (*config.Config, error) {
	display := p.ConfigFile()
	self := configPattern(p)

	if self != "" {
		mirror, err := p.ToRepository(p.ConfigFile())
		if err != nil {
			return nil, err
		}
		if _, err := fsys.Lstat(mirror); err == nil {
			r, err := transition.NewEngine(fsys, p).Track(p.ConfigFile())
			if err != nil {
				return nil, err
			}
			res.Add(types.Step{Name: "config", Target: display, Outcome: types.OutcomeSuccess, Message: "restored from repository (" + string(r.Action) + ")"})
			return config.Load(p.ConfigFile())
		}
	}

	var include []string
	if self != "" {
		include = []string{self}
	}
	cfg, err := config.Create(p.ConfigFile(), include)
	if err != nil {
		return nil, err
	}
	res.Add(types.Step{Name: "config", Target: display, Outcome: types.OutcomeSuccess, Message: "created"})
	return cfg, nil
}
