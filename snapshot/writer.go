package snapshot

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/crc32"

	"github.com/kjk/durafile/atomicfile"
)

// Create archives every regular file under dir into a single file
// at archivePath, published atomically (an interrupted Create leaves
// no archive behind and doesn't touch an existing one).
//
// Compression is picked by archivePath's extension: .zst / .zstd
// (recommended), .gz or .br; any other extension means no
// compression. archivePath must not be inside dir.
func Create(dir string, archivePath string) error {
	f, err := atomicfile.New(archivePath)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()

	cw, err := compressor(f, archivePath)
	if err != nil {
		return err
	}

	err = filepath.WalkDir(dir, func(path string, de fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if !de.Type().IsRegular() {
			return nil
		}
		d, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return writeEntry(cw, filepath.ToSlash(rel), d)
	})
	if err != nil {
		return err
	}
	if err = cw.Close(); err != nil {
		return err
	}
	return f.Close()
}

// entry framing:
// "<size> <crc32 hex> <path>\n" followed by size raw bytes and "\n"
func writeEntry(w io.Writer, path string, d []byte) error {
	hdr := fmt.Sprintf("%d %08x %s\n", len(d), crc32.ChecksumIEEE(d), path)
	if _, err := io.WriteString(w, hdr); err != nil {
		return err
	}
	if _, err := w.Write(d); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
