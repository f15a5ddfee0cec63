package testutil

import (
	"io/fs"
	"os"
	"sync"
	"syscall"

	"github.com/arthur-debert/dotvault/pkg/types"
)

// Filesystem operation names understood by FaultyFS
const (
	OpStat      = "stat"
	OpLstat     = "lstat"
	OpReadFile  = "readfile"
	OpWriteFile = "writefile"
	OpChmod     = "chmod"
	OpMkdirAll  = "mkdirall"
	OpReadDir   = "readdir"
	OpSymlink   = "symlink"
	OpReadlink  = "readlink"
	OpRename    = "rename"
	OpRemove    = "remove"
	OpRemoveAll = "removeall"
)

type fault struct {
	op   string
	path string
	err  error
	skip int
}

// FaultyFS wraps a types.FS and fails selected operations. Path matching is
// on the first path argument; an empty path matches every call.
type FaultyFS struct {
	types.FS

	mu     sync.Mutex
	faults []*fault
	calls  []string
}

// NewFaultyFS wraps inner
func NewFaultyFS(inner types.FS) *FaultyFS {
	return &FaultyFS{FS: inner}
}

// FailOn makes every op on path return err
func (f *FaultyFS) FailOn(op, path string, err error) *FaultyFS {
	return f.FailAfter(op, path, 0, err)
}

// FailAfter lets the first skip matching calls through, then fails
func (f *FaultyFS) FailAfter(op, path string, skip int, err error) *FaultyFS {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, &fault{op: op, path: path, err: err, skip: skip})
	return f
}

// Calls returns the operations performed, as "op path"
func (f *FaultyFS) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FaultyFS) check(op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+" "+path)
	for _, ft := range f.faults {
		if ft.op != op || (ft.path != "" && ft.path != path) {
			continue
		}
		if ft.skip > 0 {
			ft.skip--
			continue
		}
		return ft.err
	}
	return nil
}

// CrossDeviceError is what rename returns when source and destination are
// on different filesystems.
func CrossDeviceError(oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
}

// PermissionError builds a path error wrapping EACCES
func PermissionError(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrPermission}
}

func (f *FaultyFS) Stat(name string) (fs.FileInfo, error) {
	if err := f.check(OpStat, name); err != nil {
		return nil, err
	}
	return f.FS.Stat(name)
}

func (f *FaultyFS) Lstat(name string) (fs.FileInfo, error) {
	if err := f.check(OpLstat, name); err != nil {
		return nil, err
	}
	return f.FS.Lstat(name)
}

func (f *FaultyFS) ReadFile(name string) ([]byte, error) {
	if err := f.check(OpReadFile, name); err != nil {
		return nil, err
	}
	return f.FS.ReadFile(name)
}

func (f *FaultyFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if err := f.check(OpWriteFile, name); err != nil {
		return err
	}
	return f.FS.WriteFile(name, data, perm)
}

func (f *FaultyFS) Chmod(name string, mode fs.FileMode) error {
	if err := f.check(OpChmod, name); err != nil {
		return err
	}
	return f.FS.Chmod(name, mode)
}

func (f *FaultyFS) MkdirAll(path string, perm fs.FileMode) error {
	if err := f.check(OpMkdirAll, path); err != nil {
		return err
	}
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if err := f.check(OpReadDir, name); err != nil {
		return nil, err
	}
	return f.FS.ReadDir(name)
}

// Symlink matches on the link path, not the target
func (f *FaultyFS) Symlink(oldname, newname string) error {
	if err := f.check(OpSymlink, newname); err != nil {
		return err
	}
	return f.FS.Symlink(oldname, newname)
}

func (f *FaultyFS) Readlink(name string) (string, error) {
	if err := f.check(OpReadlink, name); err != nil {
		return "", err
	}
	return f.FS.Readlink(name)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if err := f.check(OpRename, oldpath); err != nil {
		return err
	}
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) Remove(name string) error {
	if err := f.check(OpRemove, name); err != nil {
		return err
	}
	return f.FS.Remove(name)
}

func (f *FaultyFS) RemoveAll(path string) error {
	if err := f.check(OpRemoveAll, path); err != nil {
		return err
	}
	return f.FS.RemoveAll(path)
}
