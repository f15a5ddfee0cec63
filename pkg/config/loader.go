package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/logging"
)

// Load reads the configuration at path
func Load(path string) (*Config, error) {
	logger := logging.GetLogger("config")

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, errors.ErrNotInitialized, "no configuration at %s, run init first", path).
				WithDetail("path", path)
		}
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read %s", path).WithDetail("path", path)
	}

	k := koanf.New(".")
	if err := loadFileLayers(k, path); err != nil {
		return nil, err
	}
	stored, err := decode(k)
	if err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}
	cfg, err := decode(k)
	if err != nil {
		return nil, err
	}

	cfg.path = path
	cfg.stored = stored
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "invalid pattern in %s", path).WithDetail("path", path)
	}

	logger.Debug().
		Str("path", path).
		Strs("include", cfg.Include).
		Strs("exclude", cfg.Exclude).
		Msg("Configuration loaded")
	return cfg, nil
}

// Create writes a new configuration file with the defaults and the given
// include patterns. An existing file is left alone.
func Create(path string, include []string) (*Config, error) {
	if _, err := os.Lstat(path); err == nil {
		return nil, errors.Newf(errors.ErrAlreadyInitialized, "configuration already exists at %s", path).
			WithDetail("path", path)
	}

	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to parse embedded defaults")
	}
	stored, err := decode(k)
	if err != nil {
		return nil, err
	}
	stored.path = path
	for _, p := range include {
		stored.addInclude(p)
	}
	if err := stored.Save(); err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes the file layer back to the configuration path. Environment
// overrides are not persisted. The write follows a symlinked config file.
func (c *Config) Save() error {
	target := c
	if c.stored != nil {
		target = c.stored
	}
	if target.Include == nil {
		target.Include = []string{}
	}
	if target.Exclude == nil {
		target.Exclude = []string{}
	}

	data, err := gotoml.Marshal(target)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigSave, "failed to encode configuration")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrConfigSave, "cannot create %s", filepath.Dir(c.path))
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrConfigSave, "cannot write %s", c.path).WithDetail("path", c.path)
	}

	logger := logging.GetLogger("config")
	logger.Debug().Str("path", c.path).Msg("Configuration saved")
	return nil
}

func loadFileLayers(k *koanf.Koanf, path string) error {
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to parse embedded defaults")
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return errors.Wrapf(err, errors.ErrConfigParse, "failed to parse %s", path).WithDetail("path", path)
	}
	return nil
}

func decode(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to decode configuration")
	}
	return &cfg, nil
}

// envKey maps DOTVAULT_GIT__AUTHOR_NAME to git.author_name
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}
