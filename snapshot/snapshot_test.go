package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/klauspost/crc32"

	"github.com/kjk/durafile/checksumfile"
	"github.com/kjk/durafile/fsutil"
)

var testFiles = map[string]string{
	"offsets.state":        "offset=42",
	"sub/topic-0.state":    "offset=1000",
	"sub/deep/empty.state": "",
}

func makeCheckpointDir(t *testing.T) string {
	dir := filepath.Join(t.TempDir(), "checkpoints")
	for rel, content := range testFiles {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		assert.NoError(t, fsutil.CreateDirectories(filepath.Dir(path)))
		assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func roundTrip(t *testing.T, archiveName string) {
	dir := makeCheckpointDir(t)
	archive := filepath.Join(t.TempDir(), archiveName)

	assert.NoError(t, Create(dir, archive))
	assert.True(t, fsutil.FileExists(archive))

	entries, err := List(archive)
	assert.NoError(t, err)
	assert.Equal(t, len(testFiles), len(entries))
	for _, e := range entries {
		content, ok := testFiles[e.Path]
		assert.True(t, ok, e.Path)
		assert.Equal(t, int64(len(content)), e.Size)
		assert.Equal(t, crc32.ChecksumIEEE([]byte(content)), e.Checksum)
	}

	out := filepath.Join(t.TempDir(), "restored")
	assert.NoError(t, Extract(archive, out))
	for rel, content := range testFiles {
		d, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(rel)))
		assert.NoError(t, err)
		assert.Equal(t, content, string(d))
	}
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"backup.snap", "backup.zst", "backup.gz", "backup.br"} {
		t.Run(name, func(t *testing.T) {
			roundTrip(t, name)
		})
	}
}

func TestCreateIsAtomic(t *testing.T) {
	dir := makeCheckpointDir(t)
	archive := filepath.Join(t.TempDir(), "backup.zst")

	assert.NoError(t, Create(dir, archive))
	// no temp file left behind
	assert.False(t, fsutil.PathExists(archive+".tmp"))
}

func TestCorruptedEntryDetected(t *testing.T) {
	dir := makeCheckpointDir(t)
	// uncompressed so we can flip a payload bit directly
	archive := filepath.Join(t.TempDir(), "backup.snap")
	assert.NoError(t, Create(dir, archive))

	d, err := os.ReadFile(archive)
	assert.NoError(t, err)
	// flip a bit in the data of the first entry, right after its
	// header line
	i := 0
	for d[i] != '\n' {
		i++
	}
	d[i+1] ^= 0x01
	assert.NoError(t, os.WriteFile(archive, d, 0644))

	_, err = List(archive)
	assert.True(t, errors.Is(err, checksumfile.ErrCorrupted))

	err = Extract(archive, filepath.Join(t.TempDir(), "restored"))
	assert.True(t, errors.Is(err, checksumfile.ErrCorrupted))
}

func TestTruncatedArchiveDetected(t *testing.T) {
	dir := makeCheckpointDir(t)
	archive := filepath.Join(t.TempDir(), "backup.snap")
	assert.NoError(t, Create(dir, archive))

	d, err := os.ReadFile(archive)
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(archive, d[:len(d)-2], 0644))

	_, err = List(archive)
	assert.True(t, errors.Is(err, checksumfile.ErrCorrupted))
}

func TestOversizedEntryDetected(t *testing.T) {
	// a corrupted header can claim any size; it must surface as
	// corruption, not as an attempt to allocate that much memory
	archive := filepath.Join(t.TempDir(), "backup.snap")
	entry := "4611686018427387904 00000000 x\n"
	assert.NoError(t, os.WriteFile(archive, []byte(entry), 0644))

	_, err := List(archive)
	assert.True(t, errors.Is(err, checksumfile.ErrCorrupted))
}

func TestMalformedHeaderDetected(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "backup.snap")
	assert.NoError(t, os.WriteFile(archive, []byte("not a header\n"), 0644))

	_, err := List(archive)
	assert.True(t, errors.Is(err, checksumfile.ErrCorrupted))
}

func TestExtractRejectsEscapingPath(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "backup.snap")
	data := []byte("evil")
	entry := fmt.Sprintf("%d %08x %s\n%s\n", len(data), crc32.ChecksumIEEE(data), "../evil.txt", data)
	assert.NoError(t, os.WriteFile(archive, []byte(entry), 0644))

	out := filepath.Join(t.TempDir(), "restored")
	err := Extract(archive, out)
	assert.Error(t, err)
	assert.False(t, fsutil.PathExists(filepath.Join(filepath.Dir(out), "evil.txt")))
}

func TestOpenFileMaybeCompressedClose(t *testing.T) {
	dir := makeCheckpointDir(t)
	archive := filepath.Join(t.TempDir(), "backup.zst")
	assert.NoError(t, Create(dir, archive))

	// Close releases both the decoder and the underlying file
	f, err := OpenFileMaybeCompressed(archive)
	assert.NoError(t, err)
	_, err = io.ReadAll(f)
	assert.NoError(t, err)
	assert.NoError(t, f.Close())
}

func TestEmptyDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "empty")
	assert.NoError(t, fsutil.CreateDirectories(dir))
	archive := filepath.Join(t.TempDir(), "backup.zst")

	assert.NoError(t, Create(dir, archive))
	entries, err := List(archive)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(entries))
}
