package process

import (
	"io"
	"strings"
	"time"
)

// Command configures a subprocess to execute.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Dir is the working directory. If empty, uses the current directory.
	Dir string
	// Env is additional environment variables (key=value). Merged with os.Environ.
	Env []string
	// Stdin provides input to the process. May be nil.
	Stdin io.Reader
	// Stdout and Stderr, when set, receive the stream instead of the
	// captured buffers in Result.
	Stdout io.Writer
	Stderr io.Writer
	// Interactive keeps the child in the caller's process group so it can
	// own the terminal (emulators with a serial console).
	Interactive bool
	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	// Defaults to 5 seconds if zero.
	GracePeriod time.Duration
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Args, " ")
}
