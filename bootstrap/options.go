package bootstrap

import (
	"os"
	"time"

	"github.com/kbukum/kbuild/logger"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	version         string
	gracefulTimeout *time.Duration
	signals         []os.Signal
	signalsSet      bool
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger. If not set, the logger is initialised
// from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithVersion sets the version logged at startup.
func WithVersion(v string) Option {
	return func(o *appOptions) { o.version = v }
}

// WithGracefulTimeout bounds the time stop hooks may take.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = &d }
}

// WithSignals replaces the signals that cancel the task. With no
// arguments the task ignores signals.
func WithSignals(sigs ...os.Signal) Option {
	return func(o *appOptions) {
		o.signals = sigs
		o.signalsSet = true
	}
}
