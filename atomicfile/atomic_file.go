package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

var (
	// ErrCancelled is returned by calls subsequent to RemoveIfNotClosed()
	ErrCancelled = errors.New("cancelled")

	// ensure we implement desired interface
	_ io.WriteCloser = &File{}
)

// File writes to a file atomically: data goes to a temporary file
// at <path>.tmp and only becomes visible at path when Close()
// succeeds. If anything fails in between, path keeps its previous
// content and the temporary file is removed.
//
// The temporary path is derived from the destination, so a leftover
// temp file from a crashed writer is overwritten by the next writer.
// Only one writer per destination path at a time.
type File struct {
	dstPath string
	tmpPath string
	tmpFile *os.File
	err     error
}

// New creates a File that will become path on Close()
func New(path string) (*File, error) {
	_, fName := filepath.Split(path)
	if fName == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}

	tmpPath := TempPath(path)
	// truncate-or-create: a stale temp file from a crashed writer
	// is overwritten unconditionally
	tmpFile, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	return &File{
		dstPath: path,
		tmpPath: tmpPath,
		tmpFile: tmpFile,
	}, nil
}

// TempPath returns the temporary path a File for path writes to
func TempPath(path string) string {
	return path + ".tmp"
}

func (f *File) handleError(err error) error {
	if err == nil {
		return nil
	}
	// remember the first error
	if f.err == nil {
		f.err = err
	}
	// cleanup i.e. delete temporary file
	_ = f.Close()
	return err
}

// Write writes data to the temporary file
func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.handleError(err)
}

// WriteString writes a string to the temporary file
func (f *File) WriteString(s string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.WriteString(s)
	return n, f.handleError(err)
}

// Sync flushes the temporary file to disk
func (f *File) Sync() error {
	if f.err != nil {
		return f.err
	}
	err := f.tmpFile.Sync()
	return f.handleError(err)
}

func (f *File) alreadyClosed() bool {
	return f.tmpFile == nil
}

// RemoveIfNotClosed removes the temp file if we didn't Close
// the file yet. Destination file will not be created / replaced.
// Use it with defer to ensure cleanup in case of an early return
// or a panic that happens before Close.
// RemoveIfNotClosed after Close is a no-op.
func (f *File) RemoveIfNotClosed() {
	if f == nil {
		return
	}
	if f.alreadyClosed() {
		// a no-op if already closed
		return
	}

	f.err = ErrCancelled
	_ = f.Close()
}

// Close publishes the temporary file as the destination. Can be
// called multiple times to make it easier to use via defer
func (f *File) Close() error {
	if f.alreadyClosed() {
		// return the first error we encountered
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// cleanup (delete temporary file) if:
	// - there was an error in Write()
	// - there was an error in Sync()
	// - Close() failed
	// - replace with destination failed

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	// delete the temporary file in case of errors
	didReplace := false
	defer func() {
		if !didReplace {
			// ignoring error on this one
			_ = os.Remove(f.tmpPath)
		}
	}()

	// if there was an error during write, return that error
	if f.err != nil {
		return f.err
	}

	err := errSync
	if err == nil {
		err = errClose
	}

	if err == nil {
		// this will over-write dstPath (if it exists)
		err = Replace(f.tmpPath, f.dstPath)
		didReplace = (err == nil)
	}

	if f.err == nil {
		f.err = err
	}
	return f.err
}
