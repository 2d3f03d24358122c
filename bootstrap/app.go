package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/kbuild/logger"
)

// App runs one finite task with uniform setup and teardown.
// The type parameter C is the config type.
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger

	gracefulTimeout time.Duration
	signals         []os.Signal

	onStart []Hook
	onStop  []Hook
}

// NewApp applies defaults to cfg, validates it and initialises the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetBaseConfig()
	o := resolveOptions(opts)

	app := &App[C]{
		Name:            base.Name,
		Version:         o.version,
		Cfg:             cfg,
		gracefulTimeout: 10 * time.Second,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.signalsSet {
		app.signals = o.signals
	}

	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&base.Logging)
		logger.RegisterDefaults("toolchain", "build")
		app.Logger = logger.GetGlobalLogger()
	}
	return app, nil
}

// RunTask runs start hooks, then task, then stop hooks. The task context is
// canceled on the configured signals. Stop hooks run even when the task
// fails; the task error wins over a stop hook error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	a.Logger.Debug("starting", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := runHooks(taskCtx, a.onStart); err != nil {
		stopErr := a.stop()
		if stopErr != nil {
			a.Logger.Error("stop hook failed after start failure", logger.ErrorFields("stop", stopErr))
		}
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	if len(a.signals) > 0 {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, a.signals...)
		defer signal.Stop(sigCh)

		go func() {
			select {
			case sig := <-sigCh:
				a.Logger.Warn("received signal, canceling", map[string]interface{}{
					"signal": sig.String(),
				})
				cancel()
			case <-taskCtx.Done():
			}
		}()
	}

	taskErr := task(taskCtx)
	cancel()

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

// stop runs the stop hooks within the graceful timeout.
func (a *App[C]) stop() error {
	if len(a.onStop) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("stop hook failed", logger.ErrorFields("stop", err))
		return err
	}
	return nil
}
