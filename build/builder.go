package build

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/kbuild/dag"
	"github.com/kbukum/kbuild/errors"
	"github.com/kbukum/kbuild/fsutil"
	"github.com/kbukum/kbuild/logger"
	"github.com/kbukum/kbuild/observability"
	"github.com/kbukum/kbuild/project"
	"github.com/kbukum/kbuild/toolchain"
)

// Builder plans and runs builds with one toolchain.
type Builder struct {
	tc      *toolchain.Toolchain
	fs      *fsutil.FS
	log     *logger.Logger
	metrics *observability.Metrics
	jobs    int
	strict  bool
	newID   func() string
}

// Option configures a Builder.
type Option func(*Builder)

// WithJobs sets how many independent stages may run at once. Values
// below 2 build sequentially.
func WithJobs(n int) Option {
	return func(b *Builder) { b.jobs = n }
}

// WithStrict forces strict compilation of every source.
func WithStrict(strict bool) Option {
	return func(b *Builder) { b.strict = strict }
}

// WithFS sets the filesystem used to expand source globs and clean.
// It should be the one the toolchain writes to.
func WithFS(fs *fsutil.FS) Option {
	return func(b *Builder) { b.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(b *Builder) { b.log = log }
}

// WithMetrics records stage and build metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithBuildID replaces the build id generator.
func WithBuildID(fn func() string) Option {
	return func(b *Builder) { b.newID = fn }
}

// New creates a Builder around tc.
func New(tc *toolchain.Toolchain, opts ...Option) *Builder {
	b := &Builder{tc: tc, jobs: 1}
	for _, opt := range opts {
		opt(b)
	}
	if b.fs == nil {
		b.fs = fsutil.New(nil)
	}
	if b.log == nil {
		b.log = logger.Get("build")
	} else {
		b.log = b.log.WithComponent("build")
	}
	if b.newID == nil {
		b.newID = uuid.NewString
	}
	return b
}

// Plan expands proj into its stages without running anything.
func (b *Builder) Plan(proj *project.Project) (*Plan, error) {
	return NewPlan(proj, b.fs, PlanOptions{Strict: b.strict})
}

// Build runs every stage of proj. A failing stage is reported in the
// Report, not as an error; the error return covers planning failures and
// cancellation.
func (b *Builder) Build(ctx context.Context, proj *project.Project) (*Report, error) {
	report := &Report{BuildID: b.newID(), Project: proj.Name}
	ctx = logger.ContextWithBuildID(ctx, report.BuildID)
	log := b.log.WithContext(ctx)

	op := observability.NewOperation("build", report.BuildID, proj.Name, b.metrics)
	ctx, span := op.Start(ctx, observability.SpanBuild)

	plan, err := b.Plan(proj)
	if err != nil {
		op.End(ctx, span, report.Status(), err)
		return nil, err
	}

	g, err := graph(plan, b.tc, b.decorate)
	if err != nil {
		op.End(ctx, span, report.Status(), err)
		return nil, err
	}

	log.Info("build started", logger.Fields(
		logger.FieldProject, proj.Name,
		"stages", len(plan.Stages),
		"jobs", b.jobs,
	))

	engine := &dag.Engine{MaxParallel: b.jobs}
	result, runErr := engine.Execute(ctx, g, dag.NewState())
	if result != nil {
		b.collect(report, plan, result)
	}
	report.Duration = op.Duration()
	report.Success = runErr == nil && report.Failed() == nil

	ran, upToDate, failed := report.Counts()
	fields := logger.Fields(
		logger.FieldProject, proj.Name,
		logger.FieldStatus, report.Status(),
		"ran", ran,
		"up_to_date", upToDate,
		"failed", failed,
		logger.FieldDuration, report.Duration.Milliseconds(),
	)
	if report.Success {
		log.Info("build finished", fields)
	} else {
		if res := report.Failed(); res != nil {
			fields[logger.FieldStage] = res.Name
			fields[logger.FieldTool] = res.Tool
		}
		log.Error("build failed", fields)
	}

	endErr := runErr
	if endErr == nil {
		endErr = report.Err()
	}
	op.End(ctx, span, report.Status(), endErr)
	return report, runErr
}

// collect copies stage results into the report in completion order.
func (b *Builder) collect(report *Report, plan *Plan, result *dag.Result) {
	for _, name := range result.Order {
		nr := result.NodeResults[name]
		res, _ := nr.Output.(*toolchain.StageResult)
		if res == nil {
			stage, _ := plan.Stage(name)
			res = &toolchain.StageResult{Kind: stage.Kind, Name: name, Output: stage.Output, Err: nr.Error}
		}
		report.Results = append(report.Results, res)
	}
	for name, nr := range result.NodeResults {
		if nr.Status == dag.StatusSkipped {
			report.NotRun = append(report.NotRun, name)
		}
	}
	sort.Strings(report.NotRun)
}

func (b *Builder) decorate(n dag.Node) dag.Node {
	n = dag.WithLogging(n, b.log)
	if b.metrics != nil {
		n = dag.WithMetrics(n, b.metrics)
	}
	return dag.WithTracing(n, observability.SpanStage)
}

// Clean removes the build directory, the sysroot and the package images.
// Missing paths are not an error.
func (b *Builder) Clean(ctx context.Context, proj *project.Project) error {
	op := observability.NewOperation("clean", b.newID(), proj.Name, nil)
	ctx, span := op.Start(ctx, observability.SpanClean)

	var err error
	for _, p := range cleanPaths(proj) {
		if err = ctx.Err(); err != nil {
			err = errors.Canceled("clean", err)
			break
		}
		if err = b.fs.Remove(p); err != nil {
			break
		}
		b.log.Debug("removed", logger.Fields(logger.FieldOutput, p))
	}

	status := "success"
	if err != nil {
		status = "failed"
		b.log.Error("clean failed", logger.ErrorFields("clean", err))
	} else {
		b.log.Info("clean finished", logger.DurationFields("clean", op.Duration()))
	}
	op.End(ctx, span, status, err)
	return err
}

func cleanPaths(proj *project.Project) []string {
	var paths []string
	for _, p := range []string{proj.BuildDir, proj.Sysroot, proj.Package.Tar, proj.Package.ISO} {
		if p != "" {
			paths = append(paths, proj.Path(p))
		}
	}
	return paths
}

// Run boots the project's ISO image in the emulator.
func (b *Builder) Run(ctx context.Context, proj *project.Project) (*toolchain.StageResult, error) {
	if proj.Package.ISO == "" {
		return nil, errors.MissingField("package.iso")
	}
	iso := proj.Path(proj.Package.ISO)
	if !b.fs.Exists(iso) {
		return nil, errors.NotFound("disk image", iso)
	}

	op := observability.NewOperation("run", b.newID(), proj.Name, nil)
	ctx, span := op.Start(ctx, observability.SpanRun)

	start := time.Now()
	res, err := b.tc.Run(ctx, iso)
	b.log.Info("emulator exited", logger.Fields(
		logger.FieldStatus, res.Status(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))

	endErr := err
	if endErr == nil && res != nil {
		endErr = res.Err
	}
	op.End(ctx, span, res.Status(), endErr)
	return res, err
}
