package process

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/kbukum/kbuild/errors"
)

// Run executes a subprocess and waits for it to complete.
//
// A process that starts and exits non-zero is not an error: the exit status
// is in Result.ExitCode. Errors are reserved for a binary missing from PATH
// (TOOL_NOT_FOUND), a process that could not be started, and context
// cancellation, in which case SIGTERM is sent first, then SIGKILL after
// GracePeriod.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errors.MissingField("binary")
	}

	path, err := exec.LookPath(cmd.Binary)
	if err != nil {
		return nil, errors.ToolNotFound(cmd.Binary).WithCause(err)
	}

	gracePeriod := cmd.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = 5 * time.Second
	}

	c := exec.CommandContext(ctx, path, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}
	if cmd.Stderr != nil {
		c.Stderr = cmd.Stderr
	}
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	if !cmd.Interactive {
		// Own process group so cancellation reaches the whole tree
		// (gcc forks cc1 and as).
		c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		c.Cancel = func() error {
			if c.Process == nil {
				return nil
			}
			return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
		}
	}
	c.WaitDelay = gracePeriod

	start := time.Now()
	err = c.Run()
	duration := time.Since(start)

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: duration,
	}

	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return result, errors.Canceled(cmd.Binary, ctx.Err())
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return result, nil
	}
	if c.ProcessState == nil {
		return nil, errors.Internal(fmt.Errorf("process: starting %s: %w", cmd.Binary, err))
	}
	return result, errors.Internal(fmt.Errorf("process: %s: %w", cmd.Binary, err))
}

// mergeEnv merges additional env vars with the current environment.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit parent env
	}
	env := os.Environ()
	return append(env, extra...)
}
