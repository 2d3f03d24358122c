package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags -X.
var (
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit,omitempty"`
	GitBranch string    `json:"git_branch,omitempty"`
	BuildDate time.Time `json:"build_date,omitempty"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	IsRelease bool      `json:"is_release"`
	IsDirty   bool      `json:"is_dirty"`
}

// Get collects version information from the link-time variables and the
// embedded build info.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		IsRelease: Version != "dev" && !strings.Contains(Version, "dirty"),
	}
	if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
		info.BuildDate = t
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = setting.Value
				}
			case "vcs.modified":
				info.IsDirty = setting.Value == "true"
			case "vcs.time":
				if info.BuildDate.IsZero() {
					if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
						info.BuildDate = t
					}
				}
			}
		}
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	return info
}

// Short returns "version[-commit][-dirty]".
func (i Info) Short() string {
	s := i.Version
	if i.GitCommit != "" {
		s += "-" + i.GitCommit
	}
	if i.IsDirty {
		s += "-dirty"
	}
	return s
}

// String returns the short version, the branch unless it is main or
// master, and the build date.
func (i Info) String() string {
	s := i.Short()
	if i.GitBranch != "" && i.GitBranch != "main" && i.GitBranch != "master" {
		s += " (" + i.GitBranch + ")"
	}
	if !i.BuildDate.IsZero() {
		s += ", built " + i.BuildDate.UTC().Format(time.RFC3339)
	}
	return s
}

// Fields returns the version as structured log fields.
func (i Info) Fields() map[string]interface{} {
	return map[string]interface{}{
		"version":    i.Short(),
		"go_version": i.GoVersion,
		"platform":   i.Platform,
	}
}

// Fprint writes the multi-line form printed by "kbuild version".
func (i Info) Fprint(w io.Writer) error {
	_, err := fmt.Fprintf(w, "kbuild %s\n  go:       %s\n  platform: %s\n", i, i.GoVersion, i.Platform)
	return err
}
