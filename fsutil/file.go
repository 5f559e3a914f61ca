package fsutil

import (
	"io"
	"os"

	"github.com/kjk/durafile/atomicfile"
)

// PathExists returns true if path exists
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// FileExists returns true if path exists and is a regular file
func FileExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.Mode().IsRegular()
}

// DirExists returns true if path exists and is a directory
func DirExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.IsDir()
}

// FileSize gets file size, -1 if file doesn't exist
func FileSize(path string) int64 {
	st, err := os.Lstat(path)
	if err == nil {
		return st.Size()
	}
	return -1
}

// CreateDirectories creates a directory and all missing parents.
// Idempotent: succeeds if path is already a directory, also when
// path is a symlink resolving to a directory
func CreateDirectories(path string) error {
	return os.MkdirAll(path, 0755)
}

// Remove deletes path and, if it's a directory, everything under it.
// Best effort: an empty or non-existent path is a no-op
func Remove(path string) error {
	if path == "" {
		return nil
	}
	err := os.RemoveAll(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Move makes src become dst, replacing dst if it exists.
// No-op if src doesn't exist
func Move(src, dst string) error {
	return atomicfile.Replace(src, dst)
}

// CloseNoError is like io.Closer Close() but ignores an error
// use as: defer CloseNoError(f)
func CloseNoError(f io.Closer) {
	_ = f.Close()
}
