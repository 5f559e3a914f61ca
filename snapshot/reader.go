package snapshot

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/crc32"

	"github.com/kjk/durafile/checksumfile"
	"github.com/kjk/durafile/fsutil"
)

// Entry describes one file in an archive
type Entry struct {
	// slash-separated path relative to the archived directory
	Path     string
	Size     int64
	Checksum uint32
}

// List returns the entries of the archive at archivePath. Every
// entry's checksum is verified along the way; a mismatch or
// malformed framing is reported as checksumfile.ErrCorrupted
func List(archivePath string) ([]*Entry, error) {
	var entries []*Entry
	err := readArchive(archivePath, func(e *Entry, d []byte) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Extract restores the archive at archivePath under dir, creating
// directories as needed. Stops on the first corrupted entry
func Extract(archivePath string, dir string) error {
	return readArchive(archivePath, func(e *Entry, d []byte) error {
		rel := filepath.FromSlash(e.Path)
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("entry path %q escapes the target directory", e.Path)
		}
		dst := filepath.Join(dir, rel)
		if err := fsutil.CreateDirectories(filepath.Dir(dst)); err != nil {
			return err
		}
		return os.WriteFile(dst, d, 0644)
	})
}

func readArchive(archivePath string, cb func(e *Entry, d []byte) error) error {
	f, err := OpenFileMaybeCompressed(archivePath)
	if err != nil {
		return err
	}
	defer fsutil.CloseNoError(f)

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF && line == "" {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: truncated entry header: %w", archivePath, checksumfile.ErrCorrupted)
		}
		e, err := parseEntryHeader(strings.TrimSuffix(line, "\n"))
		if err != nil {
			return fmt.Errorf("%s: %v: %w", archivePath, err, checksumfile.ErrCorrupted)
		}
		// the size comes from the (unverified) header, so don't
		// allocate it up front: a corrupted size larger than the
		// actual data shows up as truncation here
		var buf bytes.Buffer
		if _, err = io.CopyN(&buf, r, e.Size); err != nil {
			return fmt.Errorf("%s: %s: truncated entry data: %w", archivePath, e.Path, checksumfile.ErrCorrupted)
		}
		d := buf.Bytes()
		nl, err := r.ReadByte()
		if err != nil || nl != '\n' {
			return fmt.Errorf("%s: %s: missing entry terminator: %w", archivePath, e.Path, checksumfile.ErrCorrupted)
		}
		if got := crc32.ChecksumIEEE(d); got != e.Checksum {
			return fmt.Errorf("%s: %s: checksum mismatch (stored 0x%08x, computed 0x%08x): %w",
				archivePath, e.Path, e.Checksum, got, checksumfile.ErrCorrupted)
		}
		if err = cb(e, d); err != nil {
			return err
		}
	}
}

func parseEntryHeader(line string) (*Entry, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 || parts[2] == "" {
		return nil, fmt.Errorf("invalid entry header %q", line)
	}
	size, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || size < 0 {
		return nil, fmt.Errorf("invalid size in entry header %q", line)
	}
	sum, err := strconv.ParseUint(parts[1], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid checksum in entry header %q", line)
	}
	return &Entry{
		Path:     parts[2],
		Size:     size,
		Checksum: uint32(sum),
	}, nil
}
