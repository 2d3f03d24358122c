package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBaseConfigApplyDefaults(t *testing.T) {
	t.Run("empty config gets name and logging defaults", func(t *testing.T) {
		var cfg BaseConfig
		cfg.ApplyDefaults()
		if cfg.Name != "kbuild" {
			t.Errorf("expected 'kbuild', got %q", cfg.Name)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info level, got %q", cfg.Logging.Level)
		}
		if cfg.Logging.ServiceName != "kbuild" {
			t.Errorf("expected logging service name kbuild, got %q", cfg.Logging.ServiceName)
		}
	})

	t.Run("debug raises log level", func(t *testing.T) {
		cfg := BaseConfig{Debug: true}
		cfg.ApplyDefaults()
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug level, got %q", cfg.Logging.Level)
		}
	})

	t.Run("explicit level wins over debug", func(t *testing.T) {
		cfg := BaseConfig{Debug: true}
		cfg.Logging.Level = "warn"
		cfg.ApplyDefaults()
		if cfg.Logging.Level != "warn" {
			t.Errorf("expected warn level, got %q", cfg.Logging.Level)
		}
	})
}

func TestBaseConfigValidate(t *testing.T) {
	valid := BaseConfig{Name: "kbuild"}
	valid.ApplyDefaults()
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := BaseConfig{Name: "kbuild"}
	bad.ApplyDefaults()
	bad.Logging.Format = "xml"
	err := bad.Validate()
	if err == nil || !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("expected logging.format error, got %v", err)
	}

	missing := BaseConfig{}
	if err := missing.Validate(); err == nil || !strings.Contains(err.Error(), "name: is required") {
		t.Fatalf("expected name error, got %v", err)
	}
}

type testConfig struct {
	BaseConfig `yaml:",inline" mapstructure:",squash"`
	Toolchain  struct {
		CC      string   `mapstructure:"cc"`
		Defines []string `mapstructure:"defines"`
	} `mapstructure:"toolchain"`
	Jobs int `mapstructure:"jobs"`
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: skift
toolchain:
  cc: i686-elf-gcc
  defines: [__KERNEL__]
jobs: 4
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg testConfig
	if err := LoadConfig("kbuild", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "skift" {
		t.Errorf("expected name 'skift', got %q", cfg.Name)
	}
	if cfg.Toolchain.CC != "i686-elf-gcc" {
		t.Errorf("expected cc i686-elf-gcc, got %q", cfg.Toolchain.CC)
	}
	if len(cfg.Toolchain.Defines) != 1 || cfg.Toolchain.Defines[0] != "__KERNEL__" {
		t.Errorf("unexpected defines %v", cfg.Toolchain.Defines)
	}
	if cfg.Jobs != 4 {
		t.Errorf("expected jobs 4, got %d", cfg.Jobs)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("toolchain:\n  cc: gcc\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KBUILD_TOOLCHAIN_CC", "clang")
	t.Setenv("TOOLCHAIN_CC", "ignored-without-prefix")

	var cfg testConfig
	if err := LoadConfig("kbuild", &cfg, WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, "none.env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Toolchain.CC != "clang" {
		t.Errorf("expected env override clang, got %q", cfg.Toolchain.CC)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("kbuild", &cfg,
		WithConfigFile("/nonexistent/config.yml"),
		WithEnvFile("/nonexistent/.env"),
		WithDefaults(map[string]any{"jobs": 1, "toolchain.cc": "gcc"}),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Jobs != 1 || cfg.Toolchain.CC != "gcc" {
		t.Errorf("expected defaults, got jobs=%d cc=%q", cfg.Jobs, cfg.Toolchain.CC)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	// With no config file found, LoadConfig should still succeed (just empty config)
	err := LoadConfig("nonexistent-tool", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("toolchain: [unterminated\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var cfg testConfig
	if err := LoadConfig("kbuild", &cfg, WithConfigFile(configPath)); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/kbuild/config.yml": true,
		"./config.yml":            true,
		"./.env":                  true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("kbuild", LoaderConfig{})
	if files.ConfigFile != "./cmd/kbuild/config.yml" {
		t.Errorf("expected config file at ./cmd/kbuild/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected env file ./.env, got %q", files.EnvFile)
	}
}

func TestResolverExplicitPathsWin(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./config.yml": true}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("kbuild", LoaderConfig{ConfigFile: "custom.yml", EnvFile: "custom.env"})
	if files.ConfigFile != "custom.yml" || files.EnvFile != "custom.env" {
		t.Errorf("expected explicit paths, got %+v", files)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }
func (m *mockFS) Getwd() (string, error)    { return "/mock", nil }

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithDefaults(map[string]any{"jobs": 2})(&lc)
	if lc.ConfigFile != "/path/to/config.yml" || lc.EnvFile != "/path/to/.env" {
		t.Errorf("unexpected paths %+v", lc)
	}
	if lc.Defaults["jobs"] != 2 {
		t.Errorf("expected defaults to be set")
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("TOOLCHAIN_CC")
	want := map[string]bool{"toolchain_cc": true, "toolchain.cc": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d variants, got %v", len(want), got)
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("unexpected variant %q", v)
		}
	}

	got = generateEnvKeyVariants("STALENESS_STAMP_SUFFIX")
	found := false
	for _, v := range got {
		if v == "staleness.stamp_suffix" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected staleness.stamp_suffix variant in %v", got)
	}

	if got := generateEnvKeyVariants("JOBS"); len(got) != 1 || got[0] != "jobs" {
		t.Errorf("unexpected single-part variants %v", got)
	}
}
