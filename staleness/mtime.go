package staleness

import (
	"os"

	"github.com/spf13/afero"

	"github.com/kbukum/kbuild/errors"
)

// MtimeChecker decides staleness from modification times.
type MtimeChecker struct {
	fs afero.Fs
}

// NewMtimeChecker creates a checker reading timestamps from fs.
func NewMtimeChecker(fs afero.Fs) *MtimeChecker {
	return &MtimeChecker{fs: fs}
}

// UpToDate returns true when output exists and its mtime is strictly after
// every input's mtime. Only stat calls are made.
func (c *MtimeChecker) UpToDate(output string, inputs ...string) (bool, error) {
	out, ok, err := stat(c.fs, output)
	if !ok || err != nil {
		return false, err
	}
	for _, input := range inputs {
		in, ok, err := stat(c.fs, input)
		if !ok || err != nil {
			return false, err
		}
		if !out.ModTime().After(in.ModTime()) {
			return false, nil
		}
	}
	return true, nil
}

// Record is a no-op: the output's own mtime is the record.
func (c *MtimeChecker) Record(string, ...string) error { return nil }

// stat returns ok=false with a nil error when path does not exist.
func stat(fs afero.Fs, path string) (os.FileInfo, bool, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Filesystem("stat", path, err)
	}
	return info, true, nil
}
