package atomicfile

import "os"

// Append appends d to the file at path without readers ever seeing
// a half-appended file. The target is swapped out to a working copy
// at <path>.appending, appended to and fsynced, then swapped back.
//
// The trade-off: between the two swaps path doesn't exist at all,
// which readers must tolerate (same as before the first write).
// A working copy left behind by a crash is picked up and completed
// by the next Append.
func Append(path string, d []byte) error {
	work := path + ".appending"
	if err := Replace(path, work); err != nil {
		return err
	}
	if err := appendAndSync(work, d); err != nil {
		return err
	}
	return Replace(work, path)
}

// AppendString is like Append for string data
func AppendString(path string, s string) error {
	return Append(path, []byte(s))
}

func appendAndSync(path string, d []byte) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	_, err = file.Write(d)
	if err != nil {
		file.Close()
		return err
	}
	err = file.Sync()
	if err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
