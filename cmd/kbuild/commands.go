package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/kbuild/bootstrap"
	"github.com/kbukum/kbuild/build"
	"github.com/kbukum/kbuild/config"
	"github.com/kbukum/kbuild/errors"
	"github.com/kbukum/kbuild/fsutil"
	"github.com/kbukum/kbuild/observability"
	"github.com/kbukum/kbuild/project"
	"github.com/kbukum/kbuild/staleness"
	"github.com/kbukum/kbuild/toolchain"
	"github.com/kbukum/kbuild/version"
)

// env carries the invocation into a command.
type env struct {
	opts   *options
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// fs defaults to the OS filesystem; toolOpts are appended to the
	// toolchain options.
	fs       *fsutil.FS
	toolOpts []toolchain.Option
}

type command func(ctx context.Context, e *env) error

var commands = map[string]command{
	"build":   withApp(buildCmd),
	"clean":   withApp(cleanCmd),
	"run":     withApp(runCmd),
	"doctor":  withApp(doctorCmd),
	"version": versionCmd,
}

// loadConfig reads config files and the environment, then applies flags.
func loadConfig(o *options) (*AppConfig, error) {
	loadOpts := []config.LoaderOption{config.WithDefaults(map[string]any{
		"name":           "kbuild",
		"jobs":           1,
		"staleness.mode": staleness.ModeMtime,
	})}
	if o.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(o.envFile))
	}

	cfg := &AppConfig{}
	if err := config.LoadConfig("kbuild", cfg, loadOpts...); err != nil {
		return nil, errors.InvalidInput("config", err.Error()).WithCause(err)
	}

	changed := o.changed
	if changed == nil {
		changed = func(string) bool { return false }
	}
	if o.project != "" {
		cfg.ProjectFile = o.project
	}
	if changed("jobs") {
		cfg.Jobs = o.jobs
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.staleness != "" {
		cfg.Staleness.Mode = o.staleness
	}
	return cfg, nil
}

// withApp wraps a task with config loading, the bootstrap lifecycle and
// telemetry setup.
func withApp(task func(ctx context.Context, e *env, app *bootstrap.App[*AppConfig]) error) command {
	return func(ctx context.Context, e *env) error {
		cfg, err := loadConfig(e.opts)
		if err != nil {
			return err
		}
		info := version.Get()
		app, err := bootstrap.NewApp(cfg, bootstrap.WithVersion(info.Short()))
		if err != nil {
			return errors.Wrap(err)
		}

		providers, err := observability.Setup(ctx, cfg.Telemetry, cfg.Name, info.Short())
		if err != nil {
			app.Logger.WithError(err).Warn("telemetry disabled")
		}
		app.OnStop(providers.Shutdown)

		if e.fs == nil {
			e.fs = fsutil.New(nil)
		}
		return app.RunTask(ctx, func(ctx context.Context) error {
			return task(ctx, e, app)
		})
	}
}

// loadProject loads the configured manifest or the one in the working
// directory.
func loadProject(e *env, cfg *AppConfig) (*project.Project, error) {
	path := cfg.ProjectFile
	if path == "" {
		found, err := project.Find(e.fs, ".")
		if err != nil {
			return nil, err
		}
		path = found
	}
	return project.Load(e.fs, path)
}

func newBuilder(e *env, app *bootstrap.App[*AppConfig]) (*build.Builder, *toolchain.Toolchain, error) {
	cfg := app.Cfg
	checker, err := staleness.New(e.fs, cfg.Staleness)
	if err != nil {
		return nil, nil, err
	}

	opts := []toolchain.Option{
		toolchain.WithFS(e.fs),
		toolchain.WithChecker(checker),
		toolchain.WithLogger(app.Logger),
		toolchain.WithStdio(e.stdin, e.stdout, e.stderr),
	}
	tc := toolchain.New(cfg.Toolchain, append(opts, e.toolOpts...)...)

	builderOpts := []build.Option{
		build.WithFS(e.fs),
		build.WithJobs(cfg.Jobs),
		build.WithStrict(e.opts.strict),
		build.WithLogger(app.Logger),
	}
	if cfg.Telemetry.Enabled {
		metrics, err := observability.NewMetrics(observability.Meter("kbuild"))
		if err != nil {
			return nil, nil, errors.Internal(err)
		}
		builderOpts = append(builderOpts, build.WithMetrics(metrics))
	}
	return build.New(tc, builderOpts...), tc, nil
}

func buildCmd(ctx context.Context, e *env, app *bootstrap.App[*AppConfig]) error {
	proj, err := loadProject(e, app.Cfg)
	if err != nil {
		return err
	}
	b, _, err := newBuilder(e, app)
	if err != nil {
		return err
	}

	if e.opts.clean {
		if err := b.Clean(ctx, proj); err != nil {
			return err
		}
	}

	report, err := b.Build(ctx, proj)
	if report != nil {
		printReport(e, report)
	}
	if err != nil {
		return err
	}
	if !report.Success {
		if err := report.Err(); err != nil {
			return err
		}
		return errors.Internal(fmt.Errorf("build %s failed", report.BuildID))
	}
	return nil
}

func cleanCmd(ctx context.Context, e *env, app *bootstrap.App[*AppConfig]) error {
	proj, err := loadProject(e, app.Cfg)
	if err != nil {
		return err
	}
	b, _, err := newBuilder(e, app)
	if err != nil {
		return err
	}
	return b.Clean(ctx, proj)
}

func runCmd(ctx context.Context, e *env, app *bootstrap.App[*AppConfig]) error {
	proj, err := loadProject(e, app.Cfg)
	if err != nil {
		return err
	}
	b, _, err := newBuilder(e, app)
	if err != nil {
		return err
	}
	res, err := b.Run(ctx, proj)
	if err != nil {
		return err
	}
	return res.Err
}

func doctorCmd(ctx context.Context, e *env, app *bootstrap.App[*AppConfig]) error {
	_, tc, err := newBuilder(e, app)
	if err != nil {
		return err
	}
	report := tc.Doctor(ctx, app.Version)

	summary := bootstrap.NewSummary("kbuild " + app.Version + " toolchain")
	items := make([]bootstrap.Item, 0, len(report.Components))
	for _, h := range report.Components {
		text := fmt.Sprintf("%s (%s)", h.Name, h.Details["role"])
		if h.Message != "" {
			text += ": " + h.Message
		}
		items = append(items, bootstrap.Item{Status: string(h.Status), Text: text})
	}
	summary.AddSection("🔧", "Tools", items...)
	summary.SetFooter("toolchain " + string(report.Status))
	summary.Fprint(e.stdout)

	if report.Status == observability.HealthStatusDown {
		var missing []string
		for _, h := range report.Components {
			if h.Status == observability.HealthStatusDown {
				missing = append(missing, h.Name)
			}
		}
		return errors.ToolNotFound(strings.Join(missing, ", "))
	}
	return nil
}

func versionCmd(_ context.Context, e *env) error {
	return version.Get().Fprint(e.stdout)
}

// printReport writes the stage tree and, for a failed stage, its output.
func printReport(e *env, report *build.Report) {
	summary := bootstrap.NewSummary(fmt.Sprintf("%s build %s", report.Project, report.Status()))
	summary.SetDuration(report.Duration)

	items := make([]bootstrap.Item, 0, len(report.Results))
	for _, res := range report.Results {
		items = append(items, bootstrap.Item{
			Status: res.Status(),
			Text:   fmt.Sprintf("%-8s %s", res.Kind, res.Output),
		})
	}
	summary.AddSection("📦", "Stages", items...)

	notRun := make([]bootstrap.Item, 0, len(report.NotRun))
	for _, name := range report.NotRun {
		notRun = append(notRun, bootstrap.Item{Status: "not-run", Text: name})
	}
	summary.AddSection("⏸️", "Not run", notRun...)

	ran, upToDate, failed := report.Counts()
	summary.SetFooter(fmt.Sprintf("%d ran, %d up to date, %d failed (build %s)", ran, upToDate, failed, report.BuildID))
	summary.Fprint(e.stdout)

	if res := report.Failed(); res != nil {
		fmt.Fprintf(e.stderr, "%s failed: %v\n", res.Name, res.Err)
		if len(res.Stderr) > 0 {
			_, _ = e.stderr.Write(res.Stderr)
		}
	}
}
