package project

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/kbukum/kbuild/errors"
)

// SearchNames lists the manifest names Find tries, in order.
var SearchNames = []string{DefaultFile, "kbuild.yml", ".kbuild.yaml"}

// Load reads, defaults and validates the manifest at path. Unknown keys
// are rejected.
func Load(fs afero.Fs, path string) (*Project, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NotFound("project manifest", path)
		}
		return nil, errors.Filesystem("read", path, err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err).WithDetail("path", path)
	}
	p.Dir = filepath.Dir(path)
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse decodes a manifest without defaulting or validating it.
func Parse(data []byte) (*Project, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Project
	if err := dec.Decode(&p); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.InvalidInput("manifest", "manifest is empty")
		}
		return nil, errors.InvalidInput("manifest", err.Error()).WithCause(err)
	}
	return &p, nil
}

// Find returns the first manifest from SearchNames present in dir.
func Find(fs afero.Fs, dir string) (string, error) {
	for _, name := range SearchNames {
		candidate := filepath.Join(dir, name)
		ok, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", errors.Filesystem("stat", candidate, err)
		}
		if ok {
			return candidate, nil
		}
	}
	return "", errors.NotFound("project manifest", dir)
}
