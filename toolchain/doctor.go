package toolchain

import (
	"context"
	"os/exec"

	"github.com/kbukum/kbuild/observability"
)

// LookPathFunc resolves a binary name to its path.
type LookPathFunc func(file string) (string, error)

// WithLookPath replaces the PATH lookup used by Doctor.
func WithLookPath(fn LookPathFunc) Option {
	return func(t *Toolchain) { t.lookPath = fn }
}

// Doctor checks that every configured tool is on PATH. A missing build tool
// marks the report down. The ISO tools are alternatives: the report is
// down only when none is found. A missing emulator only degrades it.
func (t *Toolchain) Doctor(ctx context.Context, version string) *observability.HealthReport {
	lookPath := t.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	report := observability.NewHealthReport("toolchain", version)

	tools := t.cfg.Tools
	for _, tool := range []struct{ role, name string }{
		{"as", tools.AS},
		{"cc", tools.CC},
		{"ar", tools.AR},
		{"ld", tools.LD},
		{"tar", tools.Tar},
	} {
		report.AddComponent(checkTool(ctx, lookPath, tool.role, tool.name, observability.HealthStatusDown))
	}

	var iso []observability.Health
	found := false
	for _, name := range tools.ISO {
		h := checkTool(ctx, lookPath, "iso", name, observability.HealthStatusDegraded)
		found = found || h.Status == observability.HealthStatusUp
		iso = append(iso, h)
	}
	for _, h := range iso {
		if !found {
			h.Status = observability.HealthStatusDown
		}
		report.AddComponent(h)
	}

	report.AddComponent(checkTool(ctx, lookPath, "emulator", tools.Emulator, observability.HealthStatusDegraded))
	return report
}

func checkTool(ctx context.Context, lookPath LookPathFunc, role, name string, missing observability.HealthStatus) observability.Health {
	h := observability.Health{
		Name:    name,
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"role": role},
	}
	if err := ctx.Err(); err != nil {
		h.Status = observability.HealthStatusDown
		h.Message = err.Error()
		return h
	}
	path, err := lookPath(name)
	if err != nil {
		h.Status = missing
		h.Message = "not found in PATH"
		return h
	}
	h.Details["path"] = path
	return h
}
