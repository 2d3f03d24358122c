package build

import (
	"time"

	"github.com/kbukum/kbuild/toolchain"
)

// Report summarises one build.
type Report struct {
	BuildID string
	Project string
	// Results holds every stage that started, in completion order.
	Results []*toolchain.StageResult
	// NotRun lists stages never started because an earlier stage failed.
	NotRun   []string
	Duration time.Duration
	// Success is true when every stage that ran succeeded.
	Success bool
}

// Counts returns how many stages ran, were up to date and failed.
func (r *Report) Counts() (ran, upToDate, failed int) {
	for _, res := range r.Results {
		switch res.Status() {
		case toolchain.StatusSkipped:
			upToDate++
		case toolchain.StatusFailed:
			failed++
		default:
			ran++
		}
	}
	return ran, upToDate, failed
}

// Failed returns the first failed stage, or nil.
func (r *Report) Failed() *toolchain.StageResult {
	for _, res := range r.Results {
		if !res.Success {
			return res
		}
	}
	return nil
}

// Err returns the error of the first failed stage, or nil.
func (r *Report) Err() error {
	if res := r.Failed(); res != nil {
		return res.Err
	}
	return nil
}

// Status returns "success" or "failed".
func (r *Report) Status() string {
	if r.Success {
		return "success"
	}
	return "failed"
}
