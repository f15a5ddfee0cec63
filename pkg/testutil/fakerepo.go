package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/arthur-debert/dotvault/pkg/repository"
)

// FakeRepository is a scriptable repository.Repository. Zero values mean
// clean tree, nothing to pull, nothing to push.
type FakeRepository struct {
	mu sync.Mutex

	Dir    string
	Remote string

	// Dirty makes the next CommitAll create a commit
	Dirty     bool
	CommitErr error

	PullResult repository.PullResult
	PullErr    error

	PushResult repository.PushResult
	PushErr    error

	Changed []string
	UndoErr error

	Commits []string
	calls   []string
}

var _ repository.Repository = (*FakeRepository)(nil)

func (f *FakeRepository) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// Calls returns the method names invoked, in order
func (f *FakeRepository) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeRepository) Path() string      { return f.Dir }
func (f *FakeRepository) HasRemote() bool   { return f.Remote != "" }
func (f *FakeRepository) RemoteURL() string { return f.Remote }

func (f *FakeRepository) SetRemote(url string) error {
	f.record("set-remote")
	f.Remote = url
	return nil
}

func (f *FakeRepository) CommitAll(ctx context.Context, message string) (repository.CommitID, bool, error) {
	f.record("commit")
	if f.CommitErr != nil {
		return "", false, f.CommitErr
	}
	if !f.Dirty {
		return "", false, nil
	}
	f.Dirty = false
	f.Commits = append(f.Commits, message)
	return repository.CommitID(fmt.Sprintf("%040d", len(f.Commits))), true, nil
}

func (f *FakeRepository) Pull(ctx context.Context) (repository.PullResult, error) {
	f.record("pull")
	return f.PullResult, f.PullErr
}

func (f *FakeRepository) Push(ctx context.Context) (repository.PushResult, error) {
	f.record("push")
	return f.PushResult, f.PushErr
}

func (f *FakeRepository) Status(ctx context.Context) ([]string, error) {
	f.record("status")
	return f.Changed, nil
}

func (f *FakeRepository) Undo(ctx context.Context) (repository.CommitID, error) {
	f.record("undo")
	if f.UndoErr != nil {
		return "", f.UndoErr
	}
	if len(f.Commits) < 2 {
		return "", fmt.Errorf("nothing to undo")
	}
	f.Commits = f.Commits[:len(f.Commits)-1]
	return repository.CommitID(fmt.Sprintf("%040d", len(f.Commits))), nil
}
