// Package fsutil provides the filesystem operations the build performs
// outside of external tools: directory creation and removal, file copies
// into the sysroot and directory listings for packaging.
//
// All operations go through an afero.Fs so tests can run on an in-memory
// filesystem. Failures are returned as FILESYSTEM_ERROR AppErrors.
package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/kbukum/kbuild/errors"
)

const (
	DefaultDirPerm  = 0o755
	DefaultFilePerm = 0o644
)

// FS wraps an afero.Fs with build-oriented helpers. It is itself an
// afero.Fs and can be handed to anything that takes one.
type FS struct {
	afero.Fs
}

var _ afero.Fs = (*FS)(nil)

// New wraps fs. A nil fs uses the OS filesystem.
func New(fs afero.Fs) *FS {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FS{Fs: fs}
}

// EnsureDir creates dir and any missing parents. It is a no-op when dir exists.
func (f *FS) EnsureDir(dir string) error {
	if err := f.Fs.MkdirAll(dir, DefaultDirPerm); err != nil {
		return errors.Filesystem("mkdir", dir, err)
	}
	return nil
}

// Remove removes path and everything below it. It is a no-op when path
// does not exist.
func (f *FS) Remove(path string) error {
	if err := f.Fs.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return errors.Filesystem("remove", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func (f *FS) Exists(path string) bool {
	ok, err := afero.Exists(f.Fs, path)
	return err == nil && ok
}

// CopyFile copies src to dst, creating dst's parent directory and keeping
// src's permission bits and modification time. An existing dst is
// overwritten.
func (f *FS) CopyFile(src, dst string) error {
	in, err := f.Fs.Open(src)
	if err != nil {
		return errors.Filesystem("open", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Filesystem("stat", src, err)
	}
	if info.IsDir() {
		return errors.Filesystem("copy", src, os.ErrInvalid).WithDetail("reason", "source is a directory")
	}

	if err := f.EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	out, err := f.Fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Filesystem("create", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Filesystem("copy", dst, err)
	}
	if err := out.Close(); err != nil {
		return errors.Filesystem("close", dst, err)
	}
	if err := f.Fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return errors.Filesystem("chtimes", dst, err)
	}
	return nil
}

// Copy copies src to dst with CopyDir when src is a directory and
// CopyFile otherwise.
func (f *FS) Copy(src, dst string) error {
	info, err := f.Fs.Stat(src)
	if err != nil {
		return errors.Filesystem("stat", src, err)
	}
	if info.IsDir() {
		return f.CopyDir(src, dst)
	}
	return f.CopyFile(src, dst)
}

// CopyDir copies the tree rooted at src into dst, merging with what dst
// already holds.
func (f *FS) CopyDir(src, dst string) error {
	if err := f.EnsureDir(dst); err != nil {
		return err
	}
	names, err := f.ListDir(src)
	if err != nil {
		return err
	}
	for _, name := range names {
		from, to := filepath.Join(src, name), filepath.Join(dst, name)
		info, err := f.Fs.Stat(from)
		if err != nil {
			return errors.Filesystem("stat", from, err)
		}
		if info.IsDir() {
			err = f.CopyDir(from, to)
		} else {
			err = f.CopyFile(from, to)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ListDir returns the names of the entries in dir, sorted.
func (f *FS) ListDir(dir string) ([]string, error) {
	d, err := f.Fs.Open(dir)
	if err != nil {
		return nil, errors.Filesystem("open", dir, err)
	}
	defer d.Close()
	names, err := d.Readdirnames(-1)
	if err != nil {
		return nil, errors.Filesystem("readdir", dir, err)
	}
	sort.Strings(names)
	return names, nil
}

// Glob expands each pattern and returns the sorted, de-duplicated matches.
// A pattern without glob metacharacters is returned as is, whether or not
// the file exists, so a missing source surfaces from the tool that reads it.
func (f *FS) Glob(patterns ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		matches := []string{pattern}
		if hasMeta(pattern) {
			var err error
			matches, err = afero.Glob(f.Fs, pattern)
			if err != nil {
				return nil, errors.InvalidInput("pattern", err.Error()).WithDetail("pattern", pattern)
			}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func hasMeta(path string) bool {
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '*', '?', '[', '\\':
			return true
		}
	}
	return false
}
