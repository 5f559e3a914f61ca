/*
To write to files in a robust way we should:

- handle error returned by `Close()`

- handle error returned by `Write()`

- remove partially written file if `Write()` or `Close()` returned an error

- make sure a crash between write and publish leaves the old file intact

This logic is non-trivial.

Package atomicfile makes it easy to get this logic right:

	func writeToFileAtomically(filePath string, data []byte) error {
		w, err := atomicfile.New(filePath)
		if err != nil {
			return err
		}
		// remove temp file if we don't reach Close()
		defer w.RemoveIfNotClosed()

		_, err = w.Write(data)
		if err != nil {
			return err
		}
		return w.Close()
	}

Replace() is the underlying publish step (rename with replace) and can
be used on its own to atomically move a fully-written file over another.
Append() builds on it to append to a file without a reader ever seeing
a half-appended state.
*/
package atomicfile
