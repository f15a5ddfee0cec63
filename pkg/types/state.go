package types

// PathState classifies a declared path by comparing its original location
// with its mirror in the repository working tree.
type PathState string

const (
	// StateMissing means neither the original location nor a repository
	// entry exists.
	StateMissing PathState = "missing"

	// StateUntracked means the original exists and is not a link into the
	// repository.
	StateUntracked PathState = "untracked"

	// StateLinked means the original is a symlink resolving to an existing
	// repository entry.
	StateLinked PathState = "linked"

	// StateBroken means the original is a symlink into the repository whose
	// target is gone.
	StateBroken PathState = "broken"

	// StateUnlinked means the original is absent while the repository entry
	// exists, as on a freshly cloned machine.
	StateUnlinked PathState = "unlinked"
)

// IsDrift reports whether the state differs from what a tracked path should be
func (s PathState) IsDrift() bool {
	return s != StateLinked
}
