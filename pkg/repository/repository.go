// Package repository wraps the git working tree that holds tracked files.
// The interface is what the sync orchestrator and the vault depend on; the
// go-git implementation needs no git binary.
package repository

import (
	"context"
	"fmt"

	"github.com/arthur-debert/dotvault/pkg/errors"
)

// Defaults used when nothing is configured
const (
	DefaultBranch      = "main"
	DefaultRemote      = "origin"
	DefaultAuthorName  = "dotvault"
	DefaultAuthorEmail = "dotvault@localhost"
)

// CommitID is a full commit hash
type CommitID string

// Short returns the abbreviated hash
func (c CommitID) Short() string {
	if len(c) > 7 {
		return string(c[:7])
	}
	return string(c)
}

// PullResult describes a pull that did not conflict
type PullResult struct {
	Updated bool     `json:"updated" yaml:"updated"`
	Head    CommitID `json:"head,omitempty" yaml:"head,omitempty"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// PushResult describes a push that was not rejected
type PushResult struct {
	Pushed  bool   `json:"pushed" yaml:"pushed"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ConflictReport is returned by Pull when local and remote histories cannot
// be integrated without manual intervention.
type ConflictReport struct {
	Remote string
	Branch string
	Reason string
	Err    error
}

func (c *ConflictReport) Error() string {
	return fmt.Sprintf("[%s] pull from %s/%s needs manual resolution: %s", errors.ErrConflict, c.Remote, c.Branch, c.Reason)
}

func (c *ConflictReport) Unwrap() error {
	return c.Err
}

// Is lets IsErrorCode(err, ErrConflict) match
func (c *ConflictReport) Is(target error) bool {
	return errors.IsErrorCode(target, errors.ErrConflict)
}

func (c *ConflictReport) ErrorCode() errors.ErrorCode {
	return errors.ErrConflict
}

// RejectionReport is returned by Push when the remote refuses the update.
// Local commits are left intact.
type RejectionReport struct {
	Remote string
	Branch string
	Reason string
	Err    error
}

func (r *RejectionReport) Error() string {
	return fmt.Sprintf("[%s] push to %s/%s rejected: %s", errors.ErrRejected, r.Remote, r.Branch, r.Reason)
}

func (r *RejectionReport) Unwrap() error {
	return r.Err
}

// Is lets IsErrorCode(err, ErrRejected) match
func (r *RejectionReport) Is(target error) bool {
	return errors.IsErrorCode(target, errors.ErrRejected)
}

func (r *RejectionReport) ErrorCode() errors.ErrorCode {
	return errors.ErrRejected
}

// Repository is a version-controlled working tree with at most one remote
type Repository interface {
	// Path returns the working tree root
	Path() string

	// HasRemote reports whether a remote is configured
	HasRemote() bool

	// RemoteURL returns the configured remote URL, or ""
	RemoteURL() string

	// SetRemote configures the remote, replacing any existing one
	SetRemote(url string) error

	// CommitAll stages every change in the working tree and commits it. The
	// boolean is false, with no error, when there was nothing to commit.
	CommitAll(ctx context.Context, message string) (CommitID, bool, error)

	// Pull fast-forwards the current branch. Diverged histories yield a
	// *ConflictReport.
	Pull(ctx context.Context) (PullResult, error)

	// Push publishes local commits. A refused update yields a
	// *RejectionReport.
	Push(ctx context.Context) (PushResult, error)

	// Status lists changed paths relative to the working tree root, sorted
	Status(ctx context.Context) ([]string, error)

	// Undo removes the last commit if it has not been pushed, keeping its
	// changes in the working tree. It returns the new HEAD.
	Undo(ctx context.Context) (CommitID, error)
}
