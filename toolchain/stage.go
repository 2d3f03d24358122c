package toolchain

import (
	"time"
)

// Kind identifies a stage type.
type Kind string

const (
	KindAssemble Kind = "assemble"
	KindCompile  Kind = "compile"
	KindArchive  Kind = "archive"
	KindLink     Kind = "link"
	KindInstall  Kind = "install"
	KindTar      Kind = "tar"
	KindISO      Kind = "iso"
	KindRun      Kind = "run"
)

// Cacheable reports whether stages of this kind are skipped when their
// output is up to date. Archive membership changes are invisible to a
// single timestamp comparison, so only single-input stages qualify.
func (k Kind) Cacheable() bool {
	return k == KindAssemble || k == KindCompile
}

// Options carries per-stage settings.
type Options struct {
	Defines  []string `yaml:"defines,omitempty"`
	Includes []string `yaml:"includes,omitempty"`
	// Strict escalates compiler warnings to errors.
	Strict bool `yaml:"strict,omitempty"`
	// Script is the linker layout script.
	Script string `yaml:"script,omitempty"`
	// Libraries are static archives appended after the objects when linking.
	Libraries []string `yaml:"libraries,omitempty"`
}

// Stage is one step of the build: inputs, a single output and options.
//
// For KindTar and KindISO the single input is the directory to package.
// For KindRun the single input is the disk image and Output is empty.
type Stage struct {
	Kind    Kind
	Name    string
	Inputs  []string
	Output  string
	Options Options
}

// Dependencies returns every file the stage reads, including the layout
// script and libraries for a link.
func (s Stage) Dependencies() []string {
	deps := append([]string(nil), s.Inputs...)
	deps = append(deps, s.Options.Libraries...)
	if s.Options.Script != "" {
		deps = append(deps, s.Options.Script)
	}
	return deps
}

// Stage statuses.
const (
	StatusSkipped = "up-to-date"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// StageResult is the outcome of one stage.
type StageResult struct {
	Kind   Kind
	Name   string
	Output string
	// Tool is the binary that ran, or would have run.
	Tool string
	Args []string
	// Skipped is true when the output was up to date and nothing ran.
	Skipped  bool
	Success  bool
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
	// Err describes a failure: TOOL_FAILED for a non-zero exit, or the
	// infrastructure error the stage method also returned.
	Err error
}

// Status returns up-to-date, ok or failed.
func (r *StageResult) Status() string {
	switch {
	case r == nil || !r.Success:
		return StatusFailed
	case r.Skipped:
		return StatusSkipped
	default:
		return StatusOK
	}
}
