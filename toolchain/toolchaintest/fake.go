// Package toolchaintest provides a fake process invoker for tests that
// drive the toolchain without real compilers.
package toolchaintest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/kbuild/errors"
	"github.com/kbukum/kbuild/process"
)

// Clock hands out strictly increasing timestamps so tests control mtime
// ordering without sleeping.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Next advances the clock by one second and returns the new time.
func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// Touch writes content to path with the next clock time as its mtime.
func (c *Clock) Touch(fs afero.Fs, path, content string) error {
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		return err
	}
	ts := c.Next()
	return fs.Chtimes(path, ts, ts)
}

// FakeInvoker records commands and, for tools that succeed, writes the
// output file named on the command line into FS.
type FakeInvoker struct {
	FS    afero.Fs
	Clock *Clock

	// Missing lists binaries reported as absent from PATH.
	Missing map[string]bool
	// ExitCodes maps a binary to the status it exits with.
	ExitCodes map[string]int
	// FailOutputs maps an output path to the status of the command that
	// produces it, for failing one stage among many of the same tool.
	FailOutputs map[string]int

	mu       sync.Mutex
	calls    []process.Command
	attempts []process.Command
}

// NewFakeInvoker creates a fake that materialises outputs in fs.
func NewFakeInvoker(fs afero.Fs, clock *Clock) *FakeInvoker {
	if clock == nil {
		clock = NewClock()
	}
	return &FakeInvoker{
		FS:          fs,
		Clock:       clock,
		Missing:     map[string]bool{},
		ExitCodes:   map[string]int{},
		FailOutputs: map[string]int{},
	}
}

// Invoke implements process.Invoker.
func (f *FakeInvoker) Invoke(ctx context.Context, cmd process.Command) (*process.Result, error) {
	f.mu.Lock()
	f.attempts = append(f.attempts, cmd)
	missing := f.Missing[cmd.Binary]
	if !missing {
		f.calls = append(f.calls, cmd)
	}
	code := f.ExitCodes[cmd.Binary]
	output := OutputOf(cmd)
	if c, ok := f.FailOutputs[output]; ok {
		code = c
	}
	f.mu.Unlock()

	if missing {
		return nil, errors.ToolNotFound(cmd.Binary)
	}
	if err := ctx.Err(); err != nil {
		return &process.Result{ExitCode: -1}, errors.Canceled(cmd.Binary, err)
	}
	if code != 0 {
		return &process.Result{
			ExitCode: code,
			Stderr:   []byte(fmt.Sprintf("%s: error\n", cmd.Binary)),
		}, nil
	}
	if output != "" && f.FS != nil {
		if err := f.Clock.Touch(f.FS, output, cmd.String()); err != nil {
			return nil, err
		}
	}
	return &process.Result{ExitCode: 0, Stdout: []byte(cmd.String())}, nil
}

// Calls returns the commands that ran, in order.
func (f *FakeInvoker) Calls() []process.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]process.Command(nil), f.calls...)
}

// Attempts returns every command, including those for missing tools.
func (f *FakeInvoker) Attempts() []process.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]process.Command(nil), f.attempts...)
}

// Count returns how many times binary ran.
func (f *FakeInvoker) Count(binary string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Binary == binary {
			n++
		}
	}
	return n
}

// Outputs returns the outputs written by commands that ran, in order.
func (f *FakeInvoker) Outputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if o := OutputOf(c); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Reset forgets recorded commands.
func (f *FakeInvoker) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls, f.attempts = nil, nil
}

// OutputOf extracts the output path from a toolchain command line:
// the argument after -o or -cf, or the archive of "ar rcs out ...".
func OutputOf(cmd process.Command) string {
	for i, a := range cmd.Args {
		if (a == "-o" || a == "-cf") && i+1 < len(cmd.Args) {
			return cmd.Args[i+1]
		}
	}
	if len(cmd.Args) >= 2 && cmd.Args[0] == "rcs" {
		return cmd.Args[1]
	}
	return ""
}
