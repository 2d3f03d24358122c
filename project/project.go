package project

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/kbukum/kbuild/validation"
)

// DefaultFile is the manifest name looked up when none is given.
const DefaultFile = "kbuild.yaml"

// Default directories, relative to the manifest.
const (
	DefaultBuildDir = "build"
	DefaultSysroot  = "build/sysroot"
)

// Project is a parsed manifest.
type Project struct {
	Name     string `yaml:"name" validate:"required,identifier"`
	BuildDir string `yaml:"build_dir"`
	Sysroot  string `yaml:"sysroot"`

	// Includes and Defines apply to every compiled source.
	Includes []string `yaml:"includes"`
	Defines  []string `yaml:"defines"`
	Strict   bool     `yaml:"strict"`

	Libraries   []Target `yaml:"libraries" validate:"dive"`
	Executables []Target `yaml:"executables" validate:"dive"`
	Files       []File   `yaml:"files" validate:"dive"`
	Package     Package  `yaml:"package"`

	// Dir is the directory the manifest was loaded from.
	Dir string `yaml:"-"`
}

// Target is a static library or an executable.
type Target struct {
	Name string `yaml:"name" validate:"required,identifier"`
	// Sources are glob patterns; .c files are compiled, .s and .asm files
	// assembled.
	Sources  []string `yaml:"sources" validate:"required,min=1"`
	Includes []string `yaml:"includes"`
	Defines  []string `yaml:"defines"`
	Strict   bool     `yaml:"strict"`
	// Libraries names the project libraries an executable links against.
	Libraries []string `yaml:"libraries"`
	// Script is the linker script of an executable.
	Script string `yaml:"script"`
	// Install is the destination inside the sysroot. Empty skips the copy.
	Install string `yaml:"install"`
}

// File is copied verbatim into the sysroot.
type File struct {
	Source string `yaml:"source" validate:"required"`
	Dest   string `yaml:"dest" validate:"required"`
}

// Package names the images built from the sysroot. Empty paths are not built.
type Package struct {
	Tar string `yaml:"tar"`
	ISO string `yaml:"iso"`
	// Root is the directory packaged into the tar image. Defaults to the
	// sysroot.
	Root string `yaml:"root"`
	// ISORoot is the directory handed to grub-mkrescue. Defaults to the
	// sysroot.
	ISORoot string `yaml:"iso_root"`
}

// ApplyDefaults fills in unset directories.
func (p *Project) ApplyDefaults() {
	if p.BuildDir == "" {
		p.BuildDir = DefaultBuildDir
	}
	if p.Sysroot == "" {
		p.Sysroot = DefaultSysroot
	}
	if p.Package.Root == "" {
		p.Package.Root = p.Sysroot
	}
	if p.Package.ISORoot == "" {
		p.Package.ISORoot = p.Sysroot
	}
	if p.Dir == "" {
		p.Dir = "."
	}
}

// Validate checks struct tags and cross-field rules: target names are
// unique, executables carry a linker script, and install destinations stay
// inside the sysroot.
func (p *Project) Validate() error {
	if err := validation.Validate(p); err != nil {
		return err
	}

	v := validation.New()
	for i, lib := range p.Libraries {
		field := fmt.Sprintf("libraries[%d]", i)
		v.Unique("target", field+".name", lib.Name)
		v.Custom(len(lib.Libraries) == 0, field+".libraries", "only executables link libraries")
		v.Custom(lib.Script == "", field+".script", "only executables take a linker script")
		v.Custom(insideRoot(lib.Install), field+".install", "must be a relative path inside the sysroot")
	}
	for i, exe := range p.Executables {
		field := fmt.Sprintf("executables[%d]", i)
		v.Unique("target", field+".name", exe.Name)
		v.Required(field+".script", exe.Script)
		v.Custom(insideRoot(exe.Install), field+".install", "must be a relative path inside the sysroot")
		for j, name := range exe.Libraries {
			v.Unique(exe.Name+" library", fmt.Sprintf("%s.libraries[%d]", field, j), name)
		}
	}
	for i, f := range p.Files {
		v.Custom(insideRoot(f.Dest), fmt.Sprintf("files[%d].dest", i), "must be a relative path inside the sysroot")
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Library returns the library with the given name.
func (p *Project) Library(name string) (Target, bool) {
	for _, lib := range p.Libraries {
		if lib.Name == name {
			return lib, true
		}
	}
	return Target{}, false
}

// Path resolves a manifest path against the manifest directory.
func (p *Project) Path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Dir, rel)
}

// Paths resolves each entry with Path.
func (p *Project) Paths(rels []string) []string {
	if len(rels) == 0 {
		return nil
	}
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = p.Path(r)
	}
	return out
}

// SysrootPath resolves a destination inside the sysroot.
func (p *Project) SysrootPath(rel string) string {
	return filepath.Join(p.Path(p.Sysroot), filepath.FromSlash(rel))
}

// insideRoot reports whether dest is empty or a relative path that does
// not climb out of its root.
func insideRoot(dest string) bool {
	if dest == "" {
		return true
	}
	if path.IsAbs(dest) || filepath.IsAbs(dest) {
		return false
	}
	clean := path.Clean(filepath.ToSlash(dest))
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
