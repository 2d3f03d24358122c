package version

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBranch, origBuildTime := Version, GitCommit, GitBranch, BuildTime
	return func() {
		Version = origVersion
		GitCommit = origCommit
		GitBranch = origBranch
		BuildTime = origBuildTime
	}
}

func TestGetDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version, GitCommit, GitBranch, BuildTime = "dev", "", "", ""

	info := Get()
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.IsRelease {
		t.Error("dev should not be a release")
	}
	if info.GoVersion == "" || info.Platform == "" {
		t.Errorf("expected runtime fields, got %+v", info)
	}
}

func TestGetLinkTimeValues(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"
	BuildTime = "2024-01-15T10:30:00Z"
	GitCommit = "abc1234def"
	GitBranch = "main"

	info := Get()
	if !info.IsRelease {
		t.Error("1.0.0 should be a release")
	}
	if info.GitCommit != "abc1234" {
		t.Errorf("expected commit truncated to abc1234, got %q", info.GitCommit)
	}
	if info.BuildDate.Year() != 2024 {
		t.Errorf("expected build year 2024, got %d", info.BuildDate.Year())
	}
}

func TestDirtyIsNotRelease(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0-dirty"
	if Get().IsRelease {
		t.Error("dirty version should not be a release")
	}
}

func TestInfoFormatting(t *testing.T) {
	date := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name      string
		info      Info
		wantShort string
		wantLong  string
	}{
		{"dev", Info{Version: "dev"}, "dev", "dev"},
		{"commit", Info{Version: "1.0.0", GitCommit: "abc1234"}, "1.0.0-abc1234", "1.0.0-abc1234"},
		{"dirty", Info{Version: "1.0.0", GitCommit: "abc1234", IsDirty: true}, "1.0.0-abc1234-dirty", "1.0.0-abc1234-dirty"},
		{"main branch hidden", Info{Version: "1.0.0", GitBranch: "main", BuildDate: date}, "1.0.0", "1.0.0, built 2024-01-15T10:30:00Z"},
		{"feature branch", Info{Version: "1.0.0", GitBranch: "feature/iso"}, "1.0.0", "1.0.0 (feature/iso)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.Short(); got != tc.wantShort {
				t.Errorf("Short() = %q, want %q", got, tc.wantShort)
			}
			if got := tc.info.String(); got != tc.wantLong {
				t.Errorf("String() = %q, want %q", got, tc.wantLong)
			}
		})
	}
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	info := Info{Version: "1.0.0", GoVersion: "go1.26.0", Platform: "linux/amd64"}
	if err := info.Fprint(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "kbuild 1.0.0\n") || !strings.Contains(buf.String(), "linux/amd64") {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if info.Fields()["version"] != "1.0.0" {
		t.Fatalf("unexpected fields %v", info.Fields())
	}
}
