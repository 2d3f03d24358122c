package staleness

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/kbukum/kbuild/validation"
)

// Staleness modes.
const (
	ModeMtime = "mtime"
	ModeHash  = "hash"
)

// DefaultStampSuffix is appended to an output path to name its hash stamp.
const DefaultStampSuffix = ".stamp"

// Checker reports whether an output is up to date with respect to its inputs.
type Checker interface {
	// UpToDate returns true when output exists and no input is newer.
	// A missing output or input is reported as stale, not as an error.
	UpToDate(output string, inputs ...string) (bool, error)

	// Record is called after output was produced from inputs.
	Record(output string, inputs ...string) error
}

// Config selects and configures the checker.
type Config struct {
	Mode        string `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=mtime hash"`
	StampSuffix string `yaml:"stamp_suffix" mapstructure:"stamp_suffix"`
}

// ApplyDefaults sets mtime mode and the default stamp suffix.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeMtime
	}
	if c.StampSuffix == "" {
		c.StampSuffix = DefaultStampSuffix
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// New creates the checker selected by cfg.
func New(fs afero.Fs, cfg Config) (Checker, error) {
	cfg.ApplyDefaults()
	switch cfg.Mode {
	case ModeMtime:
		return NewMtimeChecker(fs), nil
	case ModeHash:
		return NewHashChecker(fs, cfg.StampSuffix), nil
	default:
		return nil, fmt.Errorf("staleness: unknown mode %q", cfg.Mode)
	}
}

// Always is a Checker that reports every output as stale.
type Always struct{}

func (Always) UpToDate(string, ...string) (bool, error) { return false, nil }
func (Always) Record(string, ...string) error          { return nil }
