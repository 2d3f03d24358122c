package toolchain

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/kbukum/kbuild/errors"
	"github.com/kbukum/kbuild/fsutil"
	"github.com/kbukum/kbuild/logger"
	"github.com/kbukum/kbuild/process"
	"github.com/kbukum/kbuild/staleness"
)

// Toolchain runs build stages through external tools.
type Toolchain struct {
	cfg     Config
	invoker process.Invoker
	checker staleness.Checker
	fs      *fsutil.FS
	log     *logger.Logger

	lookPath LookPathFunc

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Option configures a Toolchain.
type Option func(*Toolchain)

// WithInvoker replaces the subprocess invoker.
func WithInvoker(inv process.Invoker) Option {
	return func(t *Toolchain) { t.invoker = inv }
}

// WithChecker replaces the staleness checker used by cacheable stages.
func WithChecker(c staleness.Checker) Option {
	return func(t *Toolchain) { t.checker = c }
}

// WithFS sets the filesystem used for output directories, installs and
// directory listings.
func WithFS(fs *fsutil.FS) Option {
	return func(t *Toolchain) { t.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(t *Toolchain) { t.log = log }
}

// WithStdio sets the streams the emulator is attached to.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(t *Toolchain) {
		t.stdin, t.stdout, t.stderr = stdin, stdout, stderr
	}
}

// New creates a Toolchain from cfg. Unset tools and flags take their
// defaults. Without options it runs real processes on the OS filesystem
// with mtime staleness.
func New(cfg Config, opts ...Option) *Toolchain {
	cfg = cfg.clone()
	cfg.ApplyDefaults()

	t := &Toolchain{cfg: cfg}
	for _, opt := range opts {
		opt(t)
	}
	if t.fs == nil {
		t.fs = fsutil.New(nil)
	}
	if t.invoker == nil {
		t.invoker = process.NewExec(process.Config{
			Timeout:     cfg.Timeout,
			GracePeriod: cfg.GracePeriod,
		})
	}
	if t.checker == nil {
		t.checker = staleness.NewMtimeChecker(t.fs)
	}
	if t.log == nil {
		t.log = logger.Get("toolchain")
	} else {
		t.log = t.log.WithComponent("toolchain")
	}
	return t
}

// Config returns a copy of the toolchain configuration.
func (t *Toolchain) Config() Config {
	return t.cfg.clone()
}

// Execute dispatches stage to the method for its kind.
func (t *Toolchain) Execute(ctx context.Context, stage Stage) (*StageResult, error) {
	switch stage.Kind {
	case KindAssemble, KindCompile:
		if len(stage.Inputs) != 1 {
			return t.invalid(stage, "expects exactly one input")
		}
		if stage.Kind == KindAssemble {
			return t.assemble(ctx, stage)
		}
		return t.compile(ctx, stage)
	case KindArchive:
		return t.archive(ctx, stage)
	case KindLink:
		return t.link(ctx, stage)
	case KindInstall, KindTar, KindISO, KindRun:
		if len(stage.Inputs) != 1 {
			return t.invalid(stage, "expects exactly one input")
		}
		switch stage.Kind {
		case KindInstall:
			return t.install(ctx, stage)
		case KindTar:
			return t.packageTar(ctx, stage)
		case KindISO:
			return t.packageISO(ctx, stage)
		default:
			return t.run(ctx, stage)
		}
	default:
		return t.invalid(stage, "unknown stage kind")
	}
}

func (t *Toolchain) invalid(stage Stage, reason string) (*StageResult, error) {
	err := errors.InvalidInput("stage", string(stage.Kind)+" stage "+reason).
		WithDetail("stage", stage.Name)
	return &StageResult{Kind: stage.Kind, Name: stage.Name, Output: stage.Output, Err: err}, err
}

// upToDate consults the checker for cacheable stages. A skipped result is
// returned when nothing needs to run.
func (t *Toolchain) upToDate(stage Stage, tool string) (*StageResult, bool, error) {
	if !stage.Kind.Cacheable() {
		return nil, false, nil
	}
	ok, err := t.checker.UpToDate(stage.Output, stage.Dependencies()...)
	if err != nil {
		return &StageResult{Kind: stage.Kind, Name: stage.Name, Output: stage.Output, Tool: tool, Err: err}, false, err
	}
	if !ok {
		return nil, false, nil
	}
	t.log.Debug("output up to date", logger.Fields(
		logger.FieldStage, stage.Name,
		logger.FieldOutput, stage.Output,
	))
	return &StageResult{
		Kind: stage.Kind, Name: stage.Name, Output: stage.Output, Tool: tool,
		Skipped: true, Success: true,
	}, true, nil
}

// invoke runs one tool for stage and converts the process outcome into a
// StageResult.
func (t *Toolchain) invoke(ctx context.Context, stage Stage, cmd process.Command) (*StageResult, error) {
	res := &StageResult{
		Kind:   stage.Kind,
		Name:   stage.Name,
		Output: stage.Output,
		Tool:   cmd.Binary,
		Args:   cmd.Args,
	}

	if stage.Output != "" {
		if err := t.fs.EnsureDir(filepath.Dir(stage.Output)); err != nil {
			res.Err = err
			return res, err
		}
	}

	t.log.Debug("invoking tool", logger.Fields(
		logger.FieldStage, stage.Name,
		logger.FieldTool, cmd.Binary,
		"argv", cmd.String(),
	))

	start := time.Now()
	out, err := t.invoker.Invoke(ctx, cmd)
	res.Duration = time.Since(start)
	if out != nil {
		res.Stdout, res.Stderr, res.ExitCode = out.Stdout, out.Stderr, out.ExitCode
		if out.Duration > 0 {
			res.Duration = out.Duration
		}
	}
	if err != nil {
		res.Err = err
		return res, err
	}

	res.Success = out.Success()
	if !res.Success {
		res.Err = errors.ToolFailed(cmd.Binary, out.ExitCode).WithDetail("stage", stage.Name)
		return res, nil
	}

	if stage.Kind.Cacheable() {
		if err := t.checker.Record(stage.Output, stage.Dependencies()...); err != nil {
			res.Success = false
			res.Err = err
			return res, err
		}
	}
	return res, nil
}
