package checksumfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/klauspost/crc32"

	"github.com/kjk/durafile/atomicfile"
)

// on-disk format:
// [8-byte big-endian checksum][4-byte big-endian payload byte length][payload bytes]
// checksum is CRC-32 (IEEE) of the payload bytes, stored in the low
// 4 bytes of the 8-byte field
const hdrSize = 8 + 4

// ErrCorrupted is returned by Read when the record on disk fails
// checksum verification or doesn't decode with the expected framing.
// Distinct from "file doesn't exist" (fs.ErrNotExist) and from plain
// I/O errors. Check with errors.Is(err, checksumfile.ErrCorrupted).
var ErrCorrupted = errors.New("corrupted checksum file")

// Store persists one string value per file path, framed with a
// CRC-32 checksum so that torn writes and bit rot are detected on
// read instead of being returned as data.
//
// Zero value is ready to use. Single writer per path; readers only
// ever observe a fully-formed file because writes are published via
// atomicfile.Replace.
type Store struct {
	// Logf, if set, gets diagnostic messages e.g. details of a
	// corrupted record. No messages are sent if not set.
	Logf func(format string, args ...any)
}

func (s *Store) logf(format string, args ...any) {
	if s != nil && s.Logf != nil {
		s.Logf(format, args...)
	}
}

// Checksum returns the CRC-32 (IEEE) checksum of the UTF-8 bytes
// of payload. Write stores it, Read re-computes and compares.
func Checksum(payload string) uint32 {
	return crc32.ChecksumIEEE([]byte(payload))
}

func marshalRecord(payload string) []byte {
	d := make([]byte, hdrSize+len(payload))
	binary.BigEndian.PutUint64(d, uint64(Checksum(payload)))
	binary.BigEndian.PutUint32(d[8:], uint32(len(payload)))
	copy(d[hdrSize:], payload)
	return d
}

// Write durably persists payload at path. The record goes to
// <path>.tmp first and is published with an atomic replace, so a
// failure at any point leaves the previous record at path intact.
func (s *Store) Write(path string, payload string) error {
	f, err := atomicfile.New(path)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()

	if _, err = f.Write(marshalRecord(payload)); err != nil {
		return err
	}
	return f.Close()
}

// Read returns the payload persisted at path after verifying its
// checksum. If path doesn't exist the error matches fs.ErrNotExist.
// If the record is malformed or fails verification the error matches
// ErrCorrupted; data is never returned in that case.
func (s *Store) Read(path string) (string, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(d) < hdrSize {
		s.logf("checksumfile: %s: record too short: %d bytes\n", path, len(d))
		return "", fmt.Errorf("%s: record too short (%d bytes): %w", path, len(d), ErrCorrupted)
	}
	stored := binary.BigEndian.Uint64(d)
	if stored > math.MaxUint32 {
		s.logf("checksumfile: %s: stored checksum 0x%x out of CRC-32 range\n", path, stored)
		return "", fmt.Errorf("%s: stored checksum out of range: %w", path, ErrCorrupted)
	}
	length := binary.BigEndian.Uint32(d[8:])
	if uint64(length) != uint64(len(d)-hdrSize) {
		s.logf("checksumfile: %s: payload length %d doesn't match %d bytes on disk\n", path, length, len(d)-hdrSize)
		return "", fmt.Errorf("%s: payload length %d doesn't match %d bytes on disk: %w", path, length, len(d)-hdrSize, ErrCorrupted)
	}
	payload := string(d[hdrSize:])
	if got := Checksum(payload); uint64(got) != stored {
		s.logf("checksumfile: %s: checksum mismatch: stored 0x%08x, computed 0x%08x\n", path, stored, got)
		return "", fmt.Errorf("%s: checksum mismatch (stored 0x%08x, computed 0x%08x): %w", path, stored, got, ErrCorrupted)
	}
	return payload, nil
}

// Write persists payload at path using a zero Store
func Write(path string, payload string) error {
	var s Store
	return s.Write(path, payload)
}

// Read returns the verified payload at path using a zero Store
func Read(path string) (string, error) {
	var s Store
	return s.Read(path)
}
