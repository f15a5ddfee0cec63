package transition

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/internal/hashutil"
	"github.com/arthur-debert/dotvault/pkg/types"
)

// move relocates src to dst. Rename is tried first. When src and dst live
// on different filesystems the content is copied, the copy is verified
// against the source, and only then is the source removed. On any failure
// dst is cleaned up and src is left untouched.
// A symlink with a relative target is never renamed: the target would then
// resolve against dst. It is recreated at dst pointing at the absolute
// target instead.
func move(fsys types.FS, src, dst string) error {
	if isRelativeLink(fsys, src) {
		return copyVerifyDelete(fsys, src, dst)
	}
	err := fsys.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return errors.Wrapf(err, errors.ErrFilesystem, "failed to move %s to %s", src, dst).
			WithDetail("path", src)
	}
	return copyVerifyDelete(fsys, src, dst)
}

func isRelativeLink(fsys types.FS, path string) bool {
	info, err := fsys.Lstat(path)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return false
	}
	target, err := fsys.Readlink(path)
	return err == nil && !filepath.IsAbs(target)
}

func isCrossDevice(err error) bool {
	return stderrors.Is(err, syscall.EXDEV)
}

func copyVerifyDelete(fsys types.FS, src, dst string) error {
	info, err := fsys.Lstat(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot stat %s", src).WithDetail("path", src)
	}
	// dst is only ever removed below if this call created it
	if _, err := fsys.Lstat(dst); err == nil {
		return errors.Newf(errors.ErrCollision, "%s already exists", dst).WithDetail("path", dst)
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot stat %s", dst).WithDetail("path", dst)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		err = copySymlink(fsys, src, dst)
	} else {
		err = copyFile(fsys, src, dst, info.Mode().Perm())
	}
	if err != nil {
		_ = fsys.Remove(dst)
		return err
	}

	if err := fsys.Remove(src); err != nil {
		_ = fsys.Remove(dst)
		return errors.Wrapf(err, errors.ErrFilesystem, "copied %s but could not remove it", src).
			WithDetail("path", src)
	}
	return nil
}

func copyFile(fsys types.FS, src, dst string, perm fs.FileMode) error {
	data, err := fsys.ReadFile(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot read %s", src).WithDetail("path", src)
	}
	if err := fsys.WriteFile(dst, data, perm); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot write %s", dst).WithDetail("path", dst)
	}
	// WriteFile is subject to the umask
	if err := fsys.Chmod(dst, perm); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot set mode on %s", dst).WithDetail("path", dst)
	}

	written, err := hashutil.FileChecksum(fsys, dst)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot verify %s", dst).WithDetail("path", dst)
	}
	if written != hashutil.Sum(data) {
		return errors.Newf(errors.ErrFilesystem, "copy of %s to %s does not match the source", src, dst).
			WithDetail("path", src)
	}
	return nil
}

func copySymlink(fsys types.FS, src, dst string) error {
	target, err := fsys.Readlink(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot read link %s", src).WithDetail("path", src)
	}
	target = resolveTarget(src, target)
	if err := fsys.Symlink(target, dst); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "cannot create link %s", dst).WithDetail("path", dst)
	}
	written, err := fsys.Readlink(dst)
	if err != nil || written != target {
		return errors.Newf(errors.ErrFilesystem, "copy of link %s to %s does not match the source", src, dst).
			WithDetail("path", src)
	}
	return nil
}
