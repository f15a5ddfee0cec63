package vault

import (
	"os"

	"github.com/gofrs/flock"

	"github.com/arthur-debert/dotvault/pkg/errors"
)

// commandLock keeps two dotvault processes from working on the same root
type commandLock struct {
	flock *flock.Flock
}

func acquireLock(root, path string) (*commandLock, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFilesystem, "cannot create %s", root).WithDetail("path", root)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFilesystem, "failed to lock %s", path).WithDetail("path", path)
	}
	if !locked {
		return nil, errors.Newf(errors.ErrLocked, "another dotvault command is running (lock held on %s)", path).
			WithDetail("path", path)
	}
	return &commandLock{flock: fl}, nil
}

// release unlocks and removes the lock file. Releasing twice is harmless.
func (l *commandLock) release() error {
	if l == nil || !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return errors.Wrap(err, errors.ErrFilesystem, "failed to unlock")
	}
	if err := os.Remove(l.flock.Path()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrFilesystem, "failed to remove lock file")
	}
	return nil
}
