// Package types holds the types shared across dotvault packages: the
// filesystem abstraction, the per-path link state, and the structured
// step results every command returns.
package types
