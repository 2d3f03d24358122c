package logger

import "fmt"

// Config contains logging configuration.
type Config struct {
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"`
	Output      string `yaml:"output" mapstructure:"output"`
	NoColor     bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp   bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller      bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults applies default values to logging configuration.
// Build tools talk to a terminal, so the default output is stderr and
// the default format is console.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	c.Timestamp = true
}

// Validate validates logging configuration.
func (c *Config) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error", "fatal", "trace"}
	if !contains(validLevels, c.Level) {
		return fmt.Errorf("logging.level must be one of %v (got: %s)", validLevels, c.Level)
	}
	validFormats := []string{"json", "console", "text", FormatPretty}
	if !contains(validFormats, c.Format) {
		return fmt.Errorf("logging.format must be one of %v (got: %s)", validFormats, c.Format)
	}
	return nil
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
