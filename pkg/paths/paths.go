// Package paths resolves every location dotvault reads or writes: the home
// directory being managed, the vault root with its config file, the git
// working tree that mirrors home-relative paths, and the XDG state dir.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/arthur-debert/dotvault/pkg/errors"
)

// Environment variable names
const (
	// EnvRoot overrides the vault root (default ~/.dotvault)
	EnvRoot = "DOTVAULT_ROOT"

	// EnvHome overrides the directory whose files are managed
	EnvHome = "DOTVAULT_HOME"

	// EnvStateDir overrides the directory holding the log file
	EnvStateDir = "DOTVAULT_STATE_DIR"
)

// Fixed layout inside the vault root. These names are part of the on-disk
// format and are not configurable.
const (
	DefaultRootDir    = ".dotvault"
	RepositoryDirName = "dotfiles"
	ConfigFileName    = "config.toml"
	LockFileName      = "dotvault.lock"
	AppDirName        = "dotvault"
	LogFileName       = "dotvault.log"
)

// Paths provides path management for a vault
type Paths interface {
	Home() string
	Root() string
	ConfigFile() string
	RepositoryDir() string
	LockFile() string
	StateDir() string
	LogFilePath() string

	// NormalizePath expands ~, makes path absolute and cleans it. The result
	// must lie under Home.
	NormalizePath(path string) (string, error)
	RelativeToHome(path string) (string, error)
	ToRepository(homePath string) (string, error)
	ToHome(repoPath string) (string, error)
	IsInRepository(path string) bool
	IsInRoot(path string) bool
}

type paths struct {
	home     string
	root     string
	stateDir string
}

// New creates a Paths for the given home and root. Empty values are taken
// from the environment, then from defaults.
func New(home, root string) (Paths, error) {
	p := &paths{}

	if home == "" {
		home = os.Getenv(EnvHome)
	}
	if home == "" {
		h, err := GetHomeDirectory()
		if err != nil {
			return nil, err
		}
		home = h
	}
	absHome, err := filepath.Abs(home)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFilesystem, "failed to get absolute path for home %s", home)
	}
	p.home = filepath.Clean(absHome)

	if root == "" {
		root = os.Getenv(EnvRoot)
	}
	if root == "" {
		root = filepath.Join(p.home, DefaultRootDir)
	}
	absRoot, err := filepath.Abs(p.expandHome(root))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFilesystem, "failed to get absolute path for root %s", root)
	}
	p.root = filepath.Clean(absRoot)

	p.stateDir = stateDir()
	return p, nil
}

// stateDir checks the environment before falling back to xdg, whose values
// are computed once at package init.
func stateDir() string {
	if dir := os.Getenv(EnvStateDir); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, AppDirName)
	}
	return filepath.Join(xdg.StateHome, AppDirName)
}

func (p *paths) expandHome(path string) string {
	if path == "~" {
		return p.home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(p.home, path[2:])
	}
	return path
}

func (p *paths) Home() string {
	return p.home
}

func (p *paths) Root() string {
	return p.root
}

func (p *paths) ConfigFile() string {
	return filepath.Join(p.root, ConfigFileName)
}

func (p *paths) RepositoryDir() string {
	return filepath.Join(p.root, RepositoryDirName)
}

func (p *paths) LockFile() string {
	return filepath.Join(p.root, LockFileName)
}

func (p *paths) StateDir() string {
	return p.stateDir
}

func (p *paths) LogFilePath() string {
	return filepath.Join(p.stateDir, LogFileName)
}

func (p *paths) NormalizePath(path string) (string, error) {
	if path == "" {
		return "", errors.New(errors.ErrInvalidInput, "empty path")
	}

	abs, err := filepath.Abs(p.expandHome(path))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "failed to get absolute path for %s", path)
	}
	abs = filepath.Clean(abs)

	if !isWithin(p.home, abs) || abs == p.home {
		return "", errors.Newf(errors.ErrOutsideHome, "%s is not inside %s", abs, p.home).
			WithDetail("path", abs)
	}
	return abs, nil
}

func (p *paths) RelativeToHome(path string) (string, error) {
	rel, err := filepath.Rel(p.home, path)
	if err != nil || !isWithin(p.home, path) {
		return "", errors.Newf(errors.ErrOutsideHome, "%s is not inside %s", path, p.home).
			WithDetail("path", path)
	}
	return rel, nil
}

// ToRepository maps a path under home to its mirror in the working tree
func (p *paths) ToRepository(homePath string) (string, error) {
	rel, err := p.RelativeToHome(homePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.RepositoryDir(), rel), nil
}

// ToHome maps a working tree path back to its original location
func (p *paths) ToHome(repoPath string) (string, error) {
	if !isWithin(p.RepositoryDir(), repoPath) {
		return "", errors.Newf(errors.ErrInvalidInput, "%s is not inside the repository", repoPath)
	}
	rel, err := filepath.Rel(p.RepositoryDir(), repoPath)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInternal, "failed to relativize %s", repoPath)
	}
	return filepath.Join(p.home, rel), nil
}

func (p *paths) IsInRepository(path string) bool {
	return isWithin(p.RepositoryDir(), path)
}

func (p *paths) IsInRoot(path string) bool {
	return isWithin(p.root, path)
}

// isWithin reports whether path equals base or lies below it
func isWithin(base, path string) bool {
	rel, err := filepath.Rel(base, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// GetHomeDirectory returns the user's home directory, falling back to $HOME
func GetHomeDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if home := os.Getenv("HOME"); home != "" {
			return home, nil
		}
		return "", errors.Wrap(err, errors.ErrFilesystem, "failed to get home directory")
	}
	return homeDir, nil
}
