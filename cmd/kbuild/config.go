package main

import (
	"github.com/kbukum/kbuild/config"
	"github.com/kbukum/kbuild/observability"
	"github.com/kbukum/kbuild/staleness"
	"github.com/kbukum/kbuild/toolchain"
	"github.com/kbukum/kbuild/validation"
)

// AppConfig is the kbuild configuration, read from config.yml and
// KBUILD_* environment variables.
type AppConfig struct {
	config.BaseConfig `yaml:",inline" mapstructure:",squash"`

	// ProjectFile is the manifest path. Empty searches the working directory.
	ProjectFile string `yaml:"project_file" mapstructure:"project_file"`
	// Jobs is the number of stages run at once.
	Jobs int `yaml:"jobs" mapstructure:"jobs"`

	Toolchain toolchain.Config     `yaml:"toolchain" mapstructure:"toolchain"`
	Staleness staleness.Config     `yaml:"staleness" mapstructure:"staleness"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills every section.
func (c *AppConfig) ApplyDefaults() {
	c.BaseConfig.ApplyDefaults()
	if c.Jobs == 0 {
		c.Jobs = 1
	}
	c.Toolchain.ApplyDefaults()
	c.Staleness.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return err
	}
	if appErr := validation.New().Min("jobs", c.Jobs, 1).Validate(); appErr != nil {
		return appErr
	}
	if err := c.Toolchain.Validate(); err != nil {
		return err
	}
	if err := c.Staleness.Validate(); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}
