package config

import (
	"slices"

	"github.com/arthur-debert/dotvault/pkg/glob"
)

// EnvPrefix is stripped from environment overrides. A double underscore
// separates nesting levels: DOTVAULT_GIT__BRANCH sets git.branch.
const EnvPrefix = "DOTVAULT_"

// GitConfig configures the repository
type GitConfig struct {
	Branch      string `koanf:"branch" toml:"branch,omitempty"`
	Remote      string `koanf:"remote" toml:"remote,omitempty"`
	AuthorName  string `koanf:"author_name" toml:"author_name,omitempty"`
	AuthorEmail string `koanf:"author_email" toml:"author_email,omitempty"`
}

// CommitConfig configures commit messages
type CommitConfig struct {
	SyncMessage string `koanf:"sync_message" toml:"sync_message,omitempty"`
}

// Config is the vault configuration
type Config struct {
	RepositoryURL string       `koanf:"repository_url" toml:"repository_url"`
	Include       []string     `koanf:"include" toml:"include"`
	Exclude       []string     `koanf:"exclude" toml:"exclude"`
	Git           GitConfig    `koanf:"git" toml:"git"`
	Commit        CommitConfig `koanf:"commit" toml:"commit"`

	path string
	// stored mirrors the file layer without environment overrides. Mutators
	// update both, Save writes stored.
	stored *Config
}

// Path returns the file the configuration was loaded from
func (c *Config) Path() string {
	return c.path
}

// Validate checks every pattern
func (c *Config) Validate() error {
	for _, p := range append(slices.Clone(c.Include), c.Exclude...) {
		if err := glob.Validate(p); err != nil {
			return err
		}
	}
	return nil
}

// AddInclude adds pattern to include and drops it from exclude. It
// reports whether anything changed.
func (c *Config) AddInclude(pattern string) bool {
	changed := c.addInclude(pattern)
	if c.stored != nil {
		c.stored.addInclude(pattern)
	}
	return changed
}

func (c *Config) addInclude(pattern string) bool {
	changed := false
	if !slices.Contains(c.Include, pattern) {
		c.Include = append(c.Include, pattern)
		changed = true
	}
	if i := slices.Index(c.Exclude, pattern); i >= 0 {
		c.Exclude = slices.Delete(c.Exclude, i, i+1)
		changed = true
	}
	return changed
}

// RemoveInclude drops pattern from include. It reports whether the
// pattern was present.
func (c *Config) RemoveInclude(pattern string) bool {
	removed := c.removeInclude(pattern)
	if c.stored != nil {
		c.stored.removeInclude(pattern)
	}
	return removed
}

func (c *Config) removeInclude(pattern string) bool {
	i := slices.Index(c.Include, pattern)
	if i < 0 {
		return false
	}
	c.Include = slices.Delete(c.Include, i, i+1)
	return true
}

// AddExclude appends pattern to exclude, once
func (c *Config) AddExclude(pattern string) bool {
	changed := c.addExclude(pattern)
	if c.stored != nil {
		c.stored.addExclude(pattern)
	}
	return changed
}

func (c *Config) addExclude(pattern string) bool {
	if slices.Contains(c.Exclude, pattern) {
		return false
	}
	c.Exclude = append(c.Exclude, pattern)
	return true
}

// SetRepositoryURL records the remote URL
func (c *Config) SetRepositoryURL(url string) {
	c.RepositoryURL = url
	if c.stored != nil {
		c.stored.RepositoryURL = url
	}
}
