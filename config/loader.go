package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables bound into the config.
// KBUILD_TOOLCHAIN_CC=clang sets toolchain.cc.
const EnvPrefix = "KBUILD"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	Getwd() (string, error)
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

func (rfs *RealFileSystem) Getwd() (string, error) {
	return os.Getwd()
}

// Resolver handles finding and resolving config and env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles finds config and env files for a tool.
// Returns explicit paths if provided, otherwise searches for them.
func (cr *Resolver) ResolveFiles(name string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}

	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.findFirst(configSearchPaths(name))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.findFirst(envSearchPaths(name))
	}

	return resolved
}

func (cr *Resolver) findFirst(paths []string) string {
	for _, path := range paths {
		if cr.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// configSearchPaths lists config.yml locations, most specific first.
func configSearchPaths(name string) []string {
	paths := []string{
		fmt.Sprintf("./cmd/%s/config.yml", name),
		"./config/config.yml",
		"./config.yml",
		fmt.Sprintf("./.%s.yml", name),
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, name, "config.yml"))
	}
	return paths
}

// envSearchPaths lists .env locations, most specific first.
func envSearchPaths(name string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/.env", name),
		fmt.Sprintf("./.env.%s", name),
		"./.env",
	}
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string         // Direct config file path (optional)
	EnvFile    string         // Direct env file path (optional)
	Defaults   map[string]any // Viper defaults keyed by dotted path (optional)
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithDefaults registers default values applied before the file and environment.
func WithDefaults(defaults map[string]any) LoaderOption {
	return func(lc *LoaderConfig) { lc.Defaults = defaults }
}

// LoadConfig loads configuration for the named tool into the provided cfg struct.
// It searches for config.yml and .env files in standard locations, binds
// KBUILD_* environment variables, and unmarshals the result into cfg.
// A missing config file is not an error; an unreadable one is.
func LoadConfig(name string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(name, lc)

	return loadFromResolvedFiles(cfg, files, lc)
}

// loadFromResolvedFiles loads configuration from specific files.
func loadFromResolvedFiles(cfg interface{}, files ResolvedFiles, lc LoaderConfig) error {
	v := viper.New()

	for key, value := range lc.Defaults {
		v.SetDefault(key, value)
	}

	// 1. YAML config (base configuration)
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: reading %s: %w", files.ConfigFile, err)
		}
	}

	// 2. .env file feeds the process environment
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("config: loading %s: %w", files.EnvFile, err)
		}
	}

	// 3. Environment overrides
	bindPrefixedEnv(v, os.Environ())

	// 4. Unmarshal into config struct
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}

	return nil
}

// bindPrefixedEnv sets every KBUILD_* variable on v under all nested key
// variants, since viper cannot tell which underscores separate sections.
func bindPrefixedEnv(v *viper.Viper, environ []string) {
	prefix := EnvPrefix + "_"
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		for _, variant := range generateEnvKeyVariants(strings.TrimPrefix(key, prefix)) {
			v.Set(variant, value)
		}
	}
}

// generateEnvKeyVariants creates all possible key variants for environment variable binding.
// Examples:
//
//	TOOLCHAIN_CC -> [toolchain_cc, toolchain.cc]
//	STALENESS_STAMP_SUFFIX -> [staleness_stamp_suffix, staleness.stamp.suffix, staleness.stamp_suffix, ...]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}

	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		suffix := strings.Join(parts[i:], "_")
		variants = append(variants, prefix+"."+suffix)
	}

	if len(parts) >= 3 {
		prefix := strings.Join(parts[:len(parts)-1], ".")
		variants = append(variants, prefix+"."+parts[len(parts)-1])
	}

	return removeDuplicates(variants)
}

// removeDuplicates removes duplicate strings from a slice.
func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}
