package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// Replace makes src become dst in a single filesystem operation.
// If src doesn't exist it's a no-op success: there is nothing to
// publish. Callers must make sure src was actually written or they
// silently lose the intended update.
//
// On the same filesystem this is an atomic rename: any observer of
// dst sees either its old content or src's content, never a mix.
// Across filesystems (rename fails with EXDEV) we fall back to
// ReplaceNonAtomic which doesn't have that guarantee.
func Replace(src, dst string) error {
	if _, err := os.Lstat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	err := os.Rename(src, dst)
	if err != nil {
		if errors.Is(err, syscall.EXDEV) {
			return ReplaceNonAtomic(src, dst)
		}
		return err
	}
	// for extra protection against crashes elsewhere,
	// sync directory after rename
	syncDir(filepath.Dir(dst))
	return nil
}

// ReplaceNonAtomic copies src over dst and removes src. Unlike
// Replace, a crash in the middle can leave dst truncated or
// partially written. Only used when the platform forbids an atomic
// rename across the src/dst pair.
func ReplaceNonAtomic(src, dst string) error {
	fin, err := os.Open(src)
	if err != nil {
		return err
	}
	fout, err := os.Create(dst)
	if err != nil {
		fin.Close()
		return err
	}
	_, err = io.Copy(fout, fin)
	if err == nil {
		err = fout.Sync()
	}
	errClose := fout.Close()
	if err == nil {
		err = errClose
	}
	_ = fin.Close()
	if err != nil {
		// dst is in an unknown state, don't touch src
		return err
	}
	return os.Remove(src)
}

func syncDir(dir string) {
	// ignore errors as those are a nice to have, not must have
	fdir, _ := os.Open(dir)
	if fdir != nil {
		_ = fdir.Sync()
		_ = fdir.Close()
	}
}
