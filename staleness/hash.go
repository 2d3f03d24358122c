package staleness

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/kbukum/kbuild/errors"
)

// HashChecker decides staleness from input contents.
//
// The stamp file holds the hex digest of the inputs that last produced the
// output. Input order is significant: the same files passed in a different
// order to the linker produce a different binary.
type HashChecker struct {
	fs     afero.Fs
	suffix string
}

// NewHashChecker creates a hash checker. An empty suffix uses DefaultStampSuffix.
func NewHashChecker(fs afero.Fs, suffix string) *HashChecker {
	if suffix == "" {
		suffix = DefaultStampSuffix
	}
	return &HashChecker{fs: fs, suffix: suffix}
}

// StampPath returns the sidecar path for output.
func (c *HashChecker) StampPath(output string) string {
	return output + c.suffix
}

// UpToDate returns true when output exists and the recorded digest matches
// the current contents of inputs.
func (c *HashChecker) UpToDate(output string, inputs ...string) (bool, error) {
	if _, ok, err := stat(c.fs, output); !ok || err != nil {
		return false, err
	}

	recorded, err := afero.ReadFile(c.fs, c.StampPath(output))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Filesystem("read", c.StampPath(output), err)
	}

	digest, ok, err := c.digest(inputs)
	if !ok || err != nil {
		return false, err
	}
	return strings.TrimSpace(string(recorded)) == digest, nil
}

// Record writes the digest of inputs to the stamp of output.
func (c *HashChecker) Record(output string, inputs ...string) error {
	digest, ok, err := c.digest(inputs)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NotFound("input", strings.Join(inputs, ", "))
	}
	if err := afero.WriteFile(c.fs, c.StampPath(output), []byte(digest+"\n"), 0o644); err != nil {
		return errors.Filesystem("write", c.StampPath(output), err)
	}
	return nil
}

// digest hashes each input as a length-prefixed path followed by its
// length-prefixed content. ok is false if an input does not exist.
func (c *HashChecker) digest(inputs []string) (string, bool, error) {
	h := xxhash.New()
	var prefix [8]byte
	writeField := func(n uint64) {
		binary.BigEndian.PutUint64(prefix[:], n)
		_, _ = h.Write(prefix[:])
	}

	for _, input := range inputs {
		info, ok, err := stat(c.fs, input)
		if !ok || err != nil {
			return "", false, err
		}
		writeField(uint64(len(input)))
		_, _ = h.WriteString(input)
		writeField(uint64(info.Size()))

		f, err := c.fs.Open(input)
		if err != nil {
			return "", false, errors.Filesystem("open", input, err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", false, errors.Filesystem("read", input, err)
		}
	}
	return fmt.Sprintf("%016x", h.Sum64()), true, nil
}
