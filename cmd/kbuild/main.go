// Command kbuild builds a freestanding kernel and its userspace into
// bootable images by driving nasm, gcc, ar, ld, tar and grub-mkrescue.
//
// Usage:
//
//	kbuild [flags] [build|clean|run|doctor|version]
//
// The default command is build.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/kbuild/errors"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options holds the command line.
type options struct {
	command    string
	configFile string
	envFile    string
	project    string
	jobs       int
	strict     bool
	clean      bool
	logLevel   string
	staleness  string

	changed func(name string) bool
}

const usage = `Usage: kbuild [flags] [command]

Commands:
  build    build every stale stage and package the images (default)
  clean    remove the build directory, sysroot and images
  run      boot the ISO image in the emulator
  doctor   check that the configured tools are installed
  version  print version information

Flags:
`

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := pflag.NewFlagSet("kbuild", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	o := &options{}
	fs.StringVarP(&o.configFile, "config", "c", "", "config file (default: search ./config.yml and friends)")
	fs.StringVar(&o.envFile, "env-file", "", ".env file loaded before reading KBUILD_* variables")
	fs.StringVarP(&o.project, "project", "p", "", "project manifest (default: ./kbuild.yaml)")
	fs.IntVarP(&o.jobs, "jobs", "j", 1, "stages run at once")
	fs.BoolVar(&o.strict, "strict", false, "compile every source with warnings as errors")
	fs.BoolVar(&o.clean, "clean", false, "clean before building")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&o.staleness, "staleness", "", "staleness check: mtime or hash")

	if err := fs.Parse(args); err != nil {
		return nil, errors.InvalidInput("args", err.Error()).WithCause(err)
	}

	switch fs.NArg() {
	case 0:
		o.command = "build"
	case 1:
		o.command = fs.Arg(0)
	default:
		fs.Usage()
		return nil, errors.InvalidInput("args", fmt.Sprintf("unexpected arguments %v", fs.Args()[1:]))
	}
	if _, ok := commands[o.command]; !ok {
		fs.Usage()
		return nil, errors.InvalidInput("command", fmt.Sprintf("unknown command %q", o.command))
	}
	o.changed = fs.Changed
	return o, nil
}

// run executes one kbuild invocation and returns the process exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseArgs(args, stderr)
	if err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "kbuild:", err)
		return exitCode(err)
	}

	return execute(ctx, &env{opts: o, stdin: stdin, stdout: stdout, stderr: stderr})
}

func execute(ctx context.Context, e *env) int {
	if err := commands[e.opts.command](ctx, e); err != nil {
		fmt.Fprintln(e.stderr, "kbuild:", err)
		return exitCode(err)
	}
	return 0
}

// exitCode maps an error to a process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.ExitCode()
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.ExitCodeFor(errors.ErrCodeCanceled)
	}
	return 1
}
