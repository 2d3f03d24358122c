package process

import (
	"context"
	"time"
)

// Invoker runs commands. The toolchain depends on this interface so tests
// can substitute a recording fake for real processes.
type Invoker interface {
	Invoke(ctx context.Context, cmd Command) (*Result, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, cmd Command) (*Result, error)

// Invoke calls f(ctx, cmd).
func (f InvokerFunc) Invoke(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}

// Config configures an Exec invoker.
type Config struct {
	// GracePeriod is the default grace period for SIGTERM→SIGKILL.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period"`
	// Timeout bounds every invocation. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// Exec is the Invoker backed by real subprocesses.
type Exec struct {
	config Config
}

// NewExec creates a new subprocess invoker.
func NewExec(cfg Config) *Exec {
	return &Exec{config: cfg}
}

// Invoke executes a command, applying invoker-level defaults.
func (e *Exec) Invoke(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.GracePeriod == 0 && e.config.GracePeriod > 0 {
		cmd.GracePeriod = e.config.GracePeriod
	}
	if e.config.Timeout > 0 && !cmd.Interactive {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}
	return Run(ctx, cmd)
}
