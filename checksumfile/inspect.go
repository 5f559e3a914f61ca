package checksumfile

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/tidwall/pretty"
)

// Info describes a record on disk without failing on corruption.
// For debugging / tooling; use Read to get the payload.
type Info struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	// empty if the file is too short to contain a checksum
	StoredChecksum string `json:"stored_checksum,omitempty"`
	// empty if the framing is malformed
	ComputedChecksum string `json:"computed_checksum,omitempty"`
	PayloadLength    int    `json:"payload_length"`
	Valid            bool   `json:"valid"`
}

// Stat reads the record at path and reports what it found. A
// malformed or corrupted record is not an error here: it shows up
// as Valid == false. I/O errors (including not-found) are returned.
func Stat(path string) (*Info, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info := &Info{
		Path: path,
		Size: int64(len(d)),
	}
	if len(d) < hdrSize {
		return info, nil
	}
	// full 8-byte stored field: out-of-range high bytes stay visible
	stored := binary.BigEndian.Uint64(d)
	info.StoredChecksum = fmt.Sprintf("0x%016x", stored)
	length := binary.BigEndian.Uint32(d[8:])
	if stored > math.MaxUint32 || uint64(length) != uint64(len(d)-hdrSize) {
		return info, nil
	}
	info.PayloadLength = int(length)
	got := Checksum(string(d[hdrSize:]))
	info.ComputedChecksum = fmt.Sprintf("0x%08x", got)
	info.Valid = uint64(got) == stored
	return info, nil
}

// StatJSON is Stat rendered as human-readable JSON
func StatJSON(path string) ([]byte, error) {
	info, err := Stat(path)
	if err != nil {
		return nil, err
	}
	d, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(d), nil
}
