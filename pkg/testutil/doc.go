// Package testutil provides isolated home/vault environments and a
// fault-injecting filesystem for tests.
package testutil
