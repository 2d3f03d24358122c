package toolchain

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/kbuild/errors"
	"github.com/kbukum/kbuild/logger"
	"github.com/kbukum/kbuild/process"
)

// Assemble turns one assembly source into an object. Skipped when the
// object is up to date.
func (t *Toolchain) Assemble(ctx context.Context, input, output string) (*StageResult, error) {
	return t.Execute(ctx, Stage{Kind: KindAssemble, Name: output, Inputs: []string{input}, Output: output})
}

// Compile turns one C source into an object with the freestanding flag
// set, the given defines and include paths. Skipped when the object is up
// to date.
func (t *Toolchain) Compile(ctx context.Context, input, output string, opts Options) (*StageResult, error) {
	return t.Execute(ctx, Stage{Kind: KindCompile, Name: output, Inputs: []string{input}, Output: output, Options: opts})
}

// Archive packs objects into a static library. Always runs.
func (t *Toolchain) Archive(ctx context.Context, objects []string, output string) (*StageResult, error) {
	return t.Execute(ctx, Stage{Kind: KindArchive, Name: output, Inputs: objects, Output: output})
}

// Link links objects and libraries with a layout script. Always runs.
func (t *Toolchain) Link(ctx context.Context, objects, libraries []string, script, output string) (*StageResult, error) {
	return t.Execute(ctx, Stage{
		Kind: KindLink, Name: output, Inputs: objects, Output: output,
		Options: Options{Script: script, Libraries: libraries},
	})
}

// Install copies a file or directory tree into place. Always runs.
func (t *Toolchain) Install(ctx context.Context, src, dst string) (*StageResult, error) {
	return t.Execute(ctx, Stage{Kind: KindInstall, Name: dst, Inputs: []string{src}, Output: dst})
}

// PackageTar archives the entries of dir into a tar image. Always runs.
func (t *Toolchain) PackageTar(ctx context.Context, dir, output string) (*StageResult, error) {
	return t.Execute(ctx, Stage{Kind: KindTar, Name: output, Inputs: []string{dir}, Output: output})
}

// PackageISO builds a bootable ISO from dir. Always runs.
func (t *Toolchain) PackageISO(ctx context.Context, dir, output string) (*StageResult, error) {
	return t.Execute(ctx, Stage{Kind: KindISO, Name: output, Inputs: []string{dir}, Output: output})
}

// Run boots disk in the emulator attached to the configured stdio.
func (t *Toolchain) Run(ctx context.Context, disk string) (*StageResult, error) {
	return t.Execute(ctx, Stage{Kind: KindRun, Name: disk, Inputs: []string{disk}})
}

func (t *Toolchain) assemble(ctx context.Context, s Stage) (*StageResult, error) {
	tool := t.cfg.Tools.AS
	if res, skip, err := t.upToDate(s, tool); skip || err != nil {
		return res, err
	}
	args := append([]string(nil), t.cfg.Flags.AS...)
	args = append(args, s.Inputs[0], "-o", s.Output)
	return t.invoke(ctx, s, process.Command{Binary: tool, Args: args})
}

// CompileArgs returns the compiler argument list for s.
func (t *Toolchain) CompileArgs(s Stage) []string {
	args := append([]string(nil), t.cfg.Flags.CC...)
	for _, d := range s.Options.Defines {
		args = append(args, "-D"+d)
	}
	for _, inc := range s.Options.Includes {
		args = append(args, "-I"+inc)
	}
	if s.Options.Strict {
		args = append(args, t.cfg.Flags.Strict...)
	}
	return append(args, "-c", "-o", s.Output, s.Inputs[0])
}

func (t *Toolchain) compile(ctx context.Context, s Stage) (*StageResult, error) {
	tool := t.cfg.Tools.CC
	if res, skip, err := t.upToDate(s, tool); skip || err != nil {
		return res, err
	}
	return t.invoke(ctx, s, process.Command{Binary: tool, Args: t.CompileArgs(s)})
}

func (t *Toolchain) archive(ctx context.Context, s Stage) (*StageResult, error) {
	args := append([]string(nil), t.cfg.Flags.AR...)
	args = append(args, s.Output)
	args = append(args, s.Inputs...)
	return t.invoke(ctx, s, process.Command{Binary: t.cfg.Tools.AR, Args: args})
}

func (t *Toolchain) link(ctx context.Context, s Stage) (*StageResult, error) {
	args := append([]string(nil), t.cfg.Flags.LD...)
	if s.Options.Script != "" {
		args = append(args, "-T", s.Options.Script)
	}
	args = append(args, "-o", s.Output)
	args = append(args, s.Inputs...)
	args = append(args, s.Options.Libraries...)
	return t.invoke(ctx, s, process.Command{Binary: t.cfg.Tools.LD, Args: args})
}

func (t *Toolchain) install(ctx context.Context, s Stage) (*StageResult, error) {
	res := &StageResult{Kind: s.Kind, Name: s.Name, Output: s.Output, Tool: "copy", Args: []string{s.Inputs[0], s.Output}}
	if err := ctx.Err(); err != nil {
		res.Err = errors.Canceled("install", err)
		return res, res.Err
	}
	start := time.Now()
	err := t.fs.Copy(s.Inputs[0], s.Output)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res, err
	}
	res.Success = true
	return res, nil
}

func (t *Toolchain) packageTar(ctx context.Context, s Stage) (*StageResult, error) {
	dir := s.Inputs[0]
	entries, err := t.fs.ListDir(dir)
	if err != nil {
		return &StageResult{Kind: s.Kind, Name: s.Name, Output: s.Output, Tool: t.cfg.Tools.Tar, Err: err}, err
	}
	args := []string{"-cf", s.Output, "-C", dir}
	args = append(args, entries...)
	return t.invoke(ctx, s, process.Command{Binary: t.cfg.Tools.Tar, Args: args})
}

// packageISO tries each configured ISO tool in order. A tool missing from
// PATH falls through to the next one; the first tool that runs decides the
// outcome. When every tool is missing the result is a failure and the
// output is left untouched.
func (t *Toolchain) packageISO(ctx context.Context, s Stage) (*StageResult, error) {
	tools := t.cfg.Tools.ISO
	for i, tool := range tools {
		res, err := t.invoke(ctx, s, process.Command{
			Binary: tool,
			Args:   []string{"-o", s.Output, s.Inputs[0]},
		})
		if errors.HasCode(err, errors.ErrCodeToolNotFound) {
			if i+1 < len(tools) {
				t.log.Warn("iso tool not found, trying fallback", logger.Fields(
					logger.FieldTool, tool,
					"fallback", tools[i+1],
				))
			}
			continue
		}
		return res, err
	}

	err := errors.ToolNotFound(strings.Join(tools, ", ")).WithDetail("stage", s.Name)
	t.log.Error("no iso tool available", logger.Fields(logger.FieldStage, s.Name, logger.FieldTool, strings.Join(tools, ", ")))
	return &StageResult{
		Kind:   s.Kind,
		Name:   s.Name,
		Output: s.Output,
		Tool:   strings.Join(tools, ", "),
		Err:    err,
	}, nil
}

func (t *Toolchain) run(ctx context.Context, s Stage) (*StageResult, error) {
	args := []string{"-cdrom", s.Inputs[0]}
	args = append(args, t.cfg.Flags.Emulator...)
	return t.invoke(ctx, s, process.Command{
		Binary:      t.cfg.Tools.Emulator,
		Args:        args,
		Stdin:       t.stdin,
		Stdout:      t.stdout,
		Stderr:      t.stderr,
		Interactive: true,
	})
}
