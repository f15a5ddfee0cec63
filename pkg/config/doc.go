// Package config loads and saves the vault configuration file. Values are
// layered: embedded defaults, then <root>/config.toml, then DOTVAULT_
// environment variables. Only the first two are ever written back.
package config
