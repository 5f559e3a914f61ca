/*
Package checksumfile persists small text values (checkpoint offsets,
metadata) to disk so that they survive crashes without becoming
silently corrupted.

Each value is stored in its own file, framed with a CRC-32 checksum:

	[8-byte big-endian checksum][4-byte big-endian length][payload bytes]

Writes go to a temporary file and are published with an atomic
rename, so the file at the target path always holds either the
previous complete record or the new complete record, never a mix.
Reads verify the checksum and return ErrCorrupted instead of data
when verification fails.

	err := checksumfile.Write(path, "offset=42")
	...
	v, err := checksumfile.Read(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// first run, nothing persisted yet
	case errors.Is(err, checksumfile.ErrCorrupted):
		// fall back to an older checkpoint
	}
*/
package checksumfile
