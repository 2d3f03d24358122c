package build

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/kbuild/errors"
	"github.com/kbukum/kbuild/fsutil"
	"github.com/kbukum/kbuild/project"
	"github.com/kbukum/kbuild/toolchain"
)

// Plan is the ordered set of stages for one project. Stage names are
// their output paths.
type Plan struct {
	Stages []toolchain.Stage
	// Deps maps a stage name to the stages that must finish before it.
	Deps map[string][]string
}

// Stage returns the stage with the given name.
func (p *Plan) Stage(name string) (toolchain.Stage, bool) {
	for _, s := range p.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return toolchain.Stage{}, false
}

// PlanOptions adjusts planning.
type PlanOptions struct {
	// Strict forces strict compilation for every source.
	Strict bool
}

// sourceKinds maps a source extension to the stage that translates it.
var sourceKinds = map[string]toolchain.Kind{
	".c":   toolchain.KindCompile,
	".s":   toolchain.KindAssemble,
	".asm": toolchain.KindAssemble,
}

type planner struct {
	proj *project.Project
	fs   *fsutil.FS
	opts PlanOptions

	plan     *Plan
	outputs  map[string]string
	installs []string
}

// NewPlan expands source globs through fs and builds the stage list.
// Duplicate outputs, unknown libraries, unsupported sources and targets
// without sources are PLAN_ERRORs.
func NewPlan(proj *project.Project, fs *fsutil.FS, opts PlanOptions) (*Plan, error) {
	pl := &planner{
		proj:    proj,
		fs:      fs,
		opts:    opts,
		plan:    &Plan{Deps: make(map[string][]string)},
		outputs: make(map[string]string),
	}

	for _, lib := range proj.Libraries {
		if err := pl.library(lib); err != nil {
			return nil, err
		}
	}
	for _, exe := range proj.Executables {
		if err := pl.executable(exe); err != nil {
			return nil, err
		}
	}
	for _, f := range proj.Files {
		if _, err := pl.install("file "+f.Dest, proj.Path(f.Source), f.Dest, ""); err != nil {
			return nil, err
		}
	}
	if err := pl.packages(); err != nil {
		return nil, err
	}
	return pl.plan, nil
}

func (pl *planner) add(stage toolchain.Stage, owner string, deps ...string) error {
	if prev, dup := pl.outputs[stage.Output]; dup {
		return errors.Plan(fmt.Sprintf("output %s is produced by both %s and %s", stage.Output, prev, owner)).
			WithDetail("output", stage.Output)
	}
	pl.outputs[stage.Output] = owner
	stage.Name = stage.Output
	pl.plan.Stages = append(pl.plan.Stages, stage)
	if len(deps) > 0 {
		pl.plan.Deps[stage.Name] = deps
	}
	return nil
}

func (pl *planner) library(lib project.Target) error {
	objects, err := pl.objects(lib)
	if err != nil {
		return err
	}
	archive := pl.archive(lib.Name)
	stage := toolchain.Stage{Kind: toolchain.KindArchive, Inputs: objects, Output: archive}
	if err := pl.add(stage, lib.Name, objects...); err != nil {
		return err
	}
	_, err = pl.install(lib.Name, archive, lib.Install, archive)
	return err
}

func (pl *planner) executable(exe project.Target) error {
	objects, err := pl.objects(exe)
	if err != nil {
		return err
	}

	deps := append([]string(nil), objects...)
	var libs []string
	for _, name := range exe.Libraries {
		lib, ok := pl.proj.Library(name)
		if !ok {
			return errors.Plan(fmt.Sprintf("%s links unknown library %q", exe.Name, name)).
				WithDetail("target", exe.Name)
		}
		archive := pl.archive(lib.Name)
		libs = append(libs, archive)
		deps = append(deps, archive)
	}

	binary := filepath.Join(pl.proj.Path(pl.proj.BuildDir), "bin", exe.Name)
	stage := toolchain.Stage{
		Kind:   toolchain.KindLink,
		Inputs: objects,
		Output: binary,
		Options: toolchain.Options{
			Script:    pl.proj.Path(exe.Script),
			Libraries: libs,
		},
	}
	if err := pl.add(stage, exe.Name, deps...); err != nil {
		return err
	}
	_, err = pl.install(exe.Name, binary, exe.Install, binary)
	return err
}

// archive returns the path of the static library built for name.
func (pl *planner) archive(name string) string {
	return filepath.Join(pl.proj.Path(pl.proj.BuildDir), "lib", name+".a")
}

// objects adds one compile or assemble stage per source of t and returns
// the object paths in source order.
func (pl *planner) objects(t project.Target) ([]string, error) {
	sources, err := pl.fs.Glob(pl.proj.Paths(t.Sources)...)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errors.Plan(fmt.Sprintf("%s matches no sources", t.Name)).
			WithDetail("target", t.Name)
	}

	opts := toolchain.Options{
		Defines:  append(append([]string(nil), pl.proj.Defines...), t.Defines...),
		Includes: append(pl.proj.Paths(pl.proj.Includes), pl.proj.Paths(t.Includes)...),
		Strict:   pl.opts.Strict || pl.proj.Strict || t.Strict,
	}

	objDir := filepath.Join(pl.proj.Path(pl.proj.BuildDir), "obj", t.Name)
	objects := make([]string, 0, len(sources))
	for _, src := range sources {
		kind, ok := sourceKinds[strings.ToLower(filepath.Ext(src))]
		if !ok {
			return nil, errors.Plan(fmt.Sprintf("%s: unsupported source %s", t.Name, src)).
				WithDetail("target", t.Name)
		}
		obj := filepath.Join(objDir, pl.relative(src)+".o")
		stage := toolchain.Stage{Kind: kind, Inputs: []string{src}, Output: obj}
		if kind == toolchain.KindCompile {
			stage.Options = opts
		}
		if err := pl.add(stage, t.Name); err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// relative returns src relative to the project directory, or its base
// name when it lies outside.
func (pl *planner) relative(src string) string {
	rel, err := filepath.Rel(pl.proj.Dir, src)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(src)
	}
	return rel
}

// install adds a copy of src into the sysroot at dest. An empty dest adds
// nothing.
func (pl *planner) install(owner, src, dest, dep string) (string, error) {
	if dest == "" {
		return "", nil
	}
	stage := toolchain.Stage{
		Kind:   toolchain.KindInstall,
		Inputs: []string{src},
		Output: pl.proj.SysrootPath(dest),
	}
	var deps []string
	if dep != "" {
		deps = []string{dep}
	}
	if err := pl.add(stage, owner, deps...); err != nil {
		return "", err
	}
	pl.installs = append(pl.installs, stage.Output)
	return stage.Output, nil
}

// packages adds the tar and ISO stages. Both wait for every install; the
// ISO also waits for the tar image.
func (pl *planner) packages() error {
	pkg := pl.proj.Package
	installs := append([]string(nil), pl.installs...)
	sort.Strings(installs)

	var tar string
	if pkg.Tar != "" {
		tar = pl.proj.Path(pkg.Tar)
		stage := toolchain.Stage{
			Kind:   toolchain.KindTar,
			Inputs: []string{pl.proj.Path(pkg.Root)},
			Output: tar,
		}
		if err := pl.add(stage, "package.tar", installs...); err != nil {
			return err
		}
	}
	if pkg.ISO != "" {
		deps := installs
		if tar != "" {
			deps = append(deps, tar)
		}
		stage := toolchain.Stage{
			Kind:   toolchain.KindISO,
			Inputs: []string{pl.proj.Path(pkg.ISORoot)},
			Output: pl.proj.Path(pkg.ISO),
		}
		if err := pl.add(stage, "package.iso", deps...); err != nil {
			return err
		}
	}
	return nil
}
