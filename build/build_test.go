package build

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/kbukum/kbuild/errors"
	"github.com/kbukum/kbuild/fsutil"
	"github.com/kbukum/kbuild/logger"
	"github.com/kbukum/kbuild/project"
	"github.com/kbukum/kbuild/toolchain"
	"github.com/kbukum/kbuild/toolchain/toolchaintest"
)

// fixture is a ten-source project on an in-memory filesystem.
type fixture struct {
	fs      afero.Fs
	clock   *toolchaintest.Clock
	invoker *toolchaintest.FakeInvoker
	proj    *project.Project
	builder *Builder
}

var kernelSources = []string{"k0.c", "k1.c", "k2.c", "k3.c", "k4.c", "k5.c", "k6.c", "k7.c", "boot.s"}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	clock := toolchaintest.NewClock()

	files := []string{"/src/libsystem/string.c", "/src/kernel/link.ld", "/src/grub.cfg"}
	for _, name := range kernelSources {
		files = append(files, "/src/kernel/"+name)
	}
	for _, f := range files {
		if err := clock.Touch(fs, f, f); err != nil {
			t.Fatalf("touch %s: %v", f, err)
		}
	}

	proj := &project.Project{
		Name: "skift",
		Dir:  "/src",
		Libraries: []project.Target{{
			Name:    "libsystem",
			Sources: []string{"libsystem/*.c"},
			Install: "lib/libsystem.a",
		}},
		Executables: []project.Target{{
			Name:      "kernel",
			Sources:   []string{"kernel/*.c", "kernel/*.s"},
			Libraries: []string{"libsystem"},
			Script:    "kernel/link.ld",
			Install:   "boot/kernel.bin",
		}},
		Files:   []project.File{{Source: "grub.cfg", Dest: "boot/grub/grub.cfg"}},
		Package: project.Package{Tar: "build/ramdisk.tar", ISO: "build/bootdisk.iso"},
	}
	proj.ApplyDefaults()

	invoker := toolchaintest.NewFakeInvoker(fs, clock)
	log := logger.NewWithWriter(&logger.Config{Level: "error", Format: "json"}, io.Discard, "build-test")
	tc := toolchain.New(toolchain.DefaultConfig(),
		toolchain.WithFS(fsutil.New(fs)),
		toolchain.WithInvoker(invoker),
		toolchain.WithLogger(log),
	)
	opts = append([]Option{
		WithFS(fsutil.New(fs)),
		WithLogger(log),
		WithBuildID(func() string { return "test-build" }),
	}, opts...)

	return &fixture{fs: fs, clock: clock, invoker: invoker, proj: proj, builder: New(tc, opts...)}
}

func (f *fixture) build(t *testing.T) *Report {
	t.Helper()
	report, err := f.builder.Build(context.Background(), f.proj)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return report
}

func (f *fixture) exists(path string) bool {
	ok, _ := afero.Exists(f.fs, path)
	return ok
}

func toolCounts(inv *toolchaintest.FakeInvoker) map[string]int {
	counts := map[string]int{}
	for _, tool := range []string{"gcc", "nasm", "ar", "ld", "tar", "grub-mkrescue", "grub2-mkrescue"} {
		if n := inv.Count(tool); n > 0 {
			counts[tool] = n
		}
	}
	return counts
}

func TestBuildFromScratch(t *testing.T) {
	f := newFixture(t)
	report := f.build(t)

	if !report.Success {
		t.Fatalf("expected success, failed at %+v", report.Failed())
	}
	if report.BuildID != "test-build" || report.Project != "skift" {
		t.Fatalf("unexpected report identity %q %q", report.BuildID, report.Project)
	}

	want := map[string]int{"gcc": 9, "nasm": 1, "ar": 1, "ld": 1, "tar": 1, "grub-mkrescue": 1}
	if diff := cmp.Diff(want, toolCounts(f.invoker)); diff != "" {
		t.Fatalf("tool invocations mismatch (-want +got):\n%s", diff)
	}

	for _, p := range []string{
		"/src/build/sysroot/boot/kernel.bin",
		"/src/build/sysroot/lib/libsystem.a",
		"/src/build/sysroot/boot/grub/grub.cfg",
		"/src/build/ramdisk.tar",
		"/src/build/bootdisk.iso",
	} {
		if !f.exists(p) {
			t.Errorf("expected %s to exist", p)
		}
	}

	ran, upToDate, failed := report.Counts()
	if ran != len(report.Results) || upToDate != 0 || failed != 0 {
		t.Fatalf("unexpected counts ran=%d up=%d failed=%d", ran, upToDate, failed)
	}
}

func TestBuildStageOrder(t *testing.T) {
	f := newFixture(t)
	report := f.build(t)

	index := map[toolchain.Kind]int{}
	for i, res := range report.Results {
		if _, seen := index[res.Kind]; !seen || res.Kind == toolchain.KindCompile {
			index[res.Kind] = i
		}
	}
	order := []toolchain.Kind{toolchain.KindCompile, toolchain.KindArchive, toolchain.KindLink, toolchain.KindTar, toolchain.KindISO}
	for i := 1; i < len(order); i++ {
		if index[order[i-1]] >= index[order[i]] {
			t.Fatalf("%s (at %d) must finish before %s (at %d)", order[i-1], index[order[i-1]], order[i], index[order[i]])
		}
	}
	if last := report.Results[len(report.Results)-1]; last.Kind != toolchain.KindISO {
		t.Fatalf("expected iso last, got %s", last.Kind)
	}
}

func TestBuildTwiceSkipsTranslation(t *testing.T) {
	f := newFixture(t)
	f.build(t)
	f.invoker.Reset()

	report := f.build(t)
	if !report.Success {
		t.Fatalf("expected success, failed at %+v", report.Failed())
	}

	want := map[string]int{"ar": 1, "ld": 1, "tar": 1, "grub-mkrescue": 1}
	if diff := cmp.Diff(want, toolCounts(f.invoker)); diff != "" {
		t.Fatalf("tool invocations mismatch (-want +got):\n%s", diff)
	}

	_, upToDate, _ := report.Counts()
	if upToDate != 10 {
		t.Fatalf("expected 10 up-to-date objects, got %d", upToDate)
	}
	for _, res := range report.Results {
		if res.Skipped && !res.Kind.Cacheable() {
			t.Fatalf("%s stage %s must never be skipped", res.Kind, res.Name)
		}
	}
}

func TestBuildOneChangedSource(t *testing.T) {
	f := newFixture(t)
	f.build(t)
	f.invoker.Reset()

	if err := f.clock.Touch(f.fs, "/src/kernel/k3.c", "changed"); err != nil {
		t.Fatal(err)
	}
	report := f.build(t)
	if !report.Success {
		t.Fatalf("expected success, failed at %+v", report.Failed())
	}

	calls := f.invoker.Calls()
	var compiled []string
	for _, c := range calls {
		if c.Binary == "gcc" {
			compiled = append(compiled, toolchaintest.OutputOf(c))
		}
	}
	if diff := cmp.Diff([]string{"/src/build/obj/kernel/kernel/k3.c.o"}, compiled); diff != "" {
		t.Fatalf("recompiled objects mismatch (-want +got):\n%s", diff)
	}
	want := map[string]int{"gcc": 1, "ar": 1, "ld": 1, "tar": 1, "grub-mkrescue": 1}
	if diff := cmp.Diff(want, toolCounts(f.invoker)); diff != "" {
		t.Fatalf("tool invocations mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildISOFallback(t *testing.T) {
	f := newFixture(t)
	f.invoker.Missing["grub-mkrescue"] = true

	report := f.build(t)
	if !report.Success {
		t.Fatalf("expected success with fallback, failed at %+v", report.Failed())
	}
	if f.invoker.Count("grub2-mkrescue") != 1 {
		t.Fatalf("expected grub2-mkrescue to run once, got %d", f.invoker.Count("grub2-mkrescue"))
	}
	if !f.exists("/src/build/bootdisk.iso") {
		t.Fatal("expected iso to be written")
	}
}

func TestBuildNoISOTool(t *testing.T) {
	f := newFixture(t)
	f.invoker.Missing["grub-mkrescue"] = true
	f.invoker.Missing["grub2-mkrescue"] = true

	report := f.build(t)
	if report.Success {
		t.Fatal("expected failure without an iso tool")
	}
	failed := report.Failed()
	if failed == nil || failed.Kind != toolchain.KindISO {
		t.Fatalf("expected iso stage to fail, got %+v", failed)
	}
	if !errors.HasCode(report.Err(), errors.ErrCodeToolNotFound) {
		t.Fatalf("expected TOOL_NOT_FOUND, got %v", report.Err())
	}
	if f.exists("/src/build/bootdisk.iso") {
		t.Fatal("expected no iso artifact")
	}
}

func TestBuildHaltsOnCompileFailure(t *testing.T) {
	f := newFixture(t)
	f.invoker.FailOutputs["/src/build/obj/kernel/kernel/k1.c.o"] = 1

	report := f.build(t)
	if report.Success {
		t.Fatal("expected failure")
	}
	if !errors.HasCode(report.Err(), errors.ErrCodeToolFailed) {
		t.Fatalf("expected TOOL_FAILED, got %v", report.Err())
	}
	if n := f.invoker.Count("ld"); n != 0 {
		t.Fatalf("expected no link after a failed compile, got %d", n)
	}
	for _, p := range []string{"/src/build/bin/kernel", "/src/build/ramdisk.tar", "/src/build/bootdisk.iso"} {
		if f.exists(p) {
			t.Errorf("expected %s not to exist", p)
		}
	}
	if len(report.NotRun) == 0 {
		t.Fatal("expected stages reported as not run")
	}
	// Sources after the failing one in the same level never start.
	if n := f.invoker.Count("gcc"); n != 2 {
		t.Fatalf("expected compilation to stop at k1.c, ran gcc %d times", n)
	}
}

func TestBuildParallel(t *testing.T) {
	f := newFixture(t, WithJobs(4))
	report := f.build(t)
	if !report.Success {
		t.Fatalf("expected success, failed at %+v", report.Failed())
	}
	want := map[string]int{"gcc": 9, "nasm": 1, "ar": 1, "ld": 1, "tar": 1, "grub-mkrescue": 1}
	if diff := cmp.Diff(want, toolCounts(f.invoker)); diff != "" {
		t.Fatalf("tool invocations mismatch (-want +got):\n%s", diff)
	}

	f.invoker.Reset()
	f.invoker.FailOutputs["/src/build/obj/kernel/kernel/k0.c.o"] = 1
	if err := f.clock.Touch(f.fs, "/src/kernel/k0.c", "changed"); err != nil {
		t.Fatal(err)
	}
	report = f.build(t)
	if report.Success || f.invoker.Count("ar") != 0 {
		t.Fatalf("expected failure before archiving, got success=%v ar=%d", report.Success, f.invoker.Count("ar"))
	}
}

func TestBuildStrict(t *testing.T) {
	f := newFixture(t, WithStrict(true))
	plan, err := f.builder.Plan(f.proj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range plan.Stages {
		if s.Kind == toolchain.KindCompile && !s.Options.Strict {
			t.Fatalf("expected %s to compile strictly", s.Name)
		}
	}
}

func TestBuildCanceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.builder.Build(ctx, f.proj)
	if !errors.HasCode(err, errors.ErrCodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if report == nil || report.Success {
		t.Fatalf("expected unsuccessful report, got %+v", report)
	}
}

func TestClean(t *testing.T) {
	f := newFixture(t)
	f.build(t)

	ctx := context.Background()
	if err := f.builder.Clean(ctx, f.proj); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range []string{"/src/build", "/src/build/sysroot"} {
		if f.exists(p) {
			t.Errorf("expected %s removed", p)
		}
	}
	if !f.exists("/src/kernel/k0.c") {
		t.Fatal("clean must not touch sources")
	}
	if err := f.builder.Clean(ctx, f.proj); err != nil {
		t.Fatalf("second clean: %v", err)
	}
}

func TestRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.builder.Run(ctx, f.proj); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND before the iso exists, got %v", err)
	}

	f.build(t)
	f.invoker.Reset()
	res, err := f.builder.Run(ctx, f.proj)
	if err != nil || !res.Success {
		t.Fatalf("unexpected result %+v %v", res, err)
	}
	calls := f.invoker.Calls()
	if len(calls) != 1 || calls[0].Binary != "qemu-system-i386" || calls[0].Args[1] != "/src/build/bootdisk.iso" {
		t.Fatalf("unexpected emulator call %+v", calls)
	}

	f.proj.Package.ISO = ""
	if _, err := f.builder.Run(ctx, f.proj); !errors.HasCode(err, errors.ErrCodeMissingField) {
		t.Fatalf("expected MISSING_FIELD, got %v", err)
	}
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *project.Project)
	}{
		{"unknown library", func(p *project.Project) {
			p.Executables[0].Libraries = []string{"libc"}
		}},
		{"no sources", func(p *project.Project) {
			p.Libraries[0].Sources = []string{"libsystem/*.cpp"}
		}},
		{"unsupported source", func(p *project.Project) {
			p.Libraries[0].Sources = []string{"grub.cfg"}
		}},
		{"duplicate install", func(p *project.Project) {
			p.Files = append(p.Files, project.File{Source: "grub.cfg", Dest: "boot/kernel.bin"})
		}},
		{"duplicate object", func(p *project.Project) {
			p.Executables[0].Name = "libsystem"
			p.Executables[0].Sources = []string{"libsystem/*.c"}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.mutate(f.proj)
			_, err := f.builder.Build(context.Background(), f.proj)
			if !errors.HasCode(err, errors.ErrCodePlan) {
				t.Fatalf("expected PLAN_ERROR, got %v", err)
			}
			if len(f.invoker.Attempts()) != 0 {
				t.Fatal("nothing may run when planning fails")
			}
		})
	}
}

func TestBuildInstallsDirectory(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"/src/files/etc/motd", "/src/files/etc/init.d/rc"} {
		if err := f.clock.Touch(f.fs, p, p); err != nil {
			t.Fatal(err)
		}
	}
	f.proj.Files = append(f.proj.Files, project.File{Source: "files/etc", Dest: "etc"})

	report := f.build(t)
	if !report.Success {
		t.Fatalf("expected success, failed at %+v", report.Failed())
	}
	for _, p := range []string{"/src/build/sysroot/etc/motd", "/src/build/sysroot/etc/init.d/rc"} {
		if !f.exists(p) {
			t.Errorf("expected %s", p)
		}
	}
}

func TestPlanShape(t *testing.T) {
	f := newFixture(t)
	plan, err := f.builder.Plan(f.proj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	link, ok := plan.Stage("/src/build/bin/kernel")
	if !ok {
		t.Fatal("expected link stage")
	}
	if link.Options.Script != "/src/kernel/link.ld" {
		t.Fatalf("unexpected script %q", link.Options.Script)
	}
	if diff := cmp.Diff([]string{"/src/build/lib/libsystem.a"}, link.Options.Libraries); diff != "" {
		t.Fatalf("libraries mismatch (-want +got):\n%s", diff)
	}

	var objects []string
	for _, name := range kernelSources {
		objects = append(objects, filepath.Join("/src/build/obj/kernel/kernel", name+".o"))
	}
	if len(link.Inputs) != len(objects) {
		t.Fatalf("expected %d objects, got %v", len(objects), link.Inputs)
	}

	iso, _ := plan.Stage("/src/build/bootdisk.iso")
	if iso.Inputs[0] != "/src/build/sysroot" {
		t.Fatalf("unexpected iso root %q", iso.Inputs[0])
	}
	deps := fmt.Sprint(plan.Deps[iso.Name])
	for _, want := range []string{"/src/build/ramdisk.tar", "/src/build/sysroot/boot/kernel.bin"} {
		if !contains(plan.Deps[iso.Name], want) {
			t.Fatalf("expected iso to depend on %s, got %s", want, deps)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
