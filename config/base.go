package config

import (
	"fmt"

	"github.com/kbukum/kbuild/logger"
	"github.com/kbukum/kbuild/validation"
)

// BaseConfig contains the fields every kbuild configuration carries.
// Tools extend it by embedding it in their own config structs.
//
// Example:
//
//	type AppConfig struct {
//	    config.BaseConfig `yaml:",inline" mapstructure:",squash"`
//	    Toolchain toolchain.Config `yaml:"toolchain" mapstructure:"toolchain"`
//	}
type BaseConfig struct {
	Name    string        `yaml:"name" mapstructure:"name" validate:"required"`
	Debug   bool          `yaml:"debug" mapstructure:"debug"`
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetBaseConfig returns the BaseConfig. When embedded, this method is
// promoted so the embedding struct can be handled generically.
func (c *BaseConfig) GetBaseConfig() *BaseConfig {
	return c
}

// ApplyDefaults applies default values to the base configuration.
// Embedding structs call c.BaseConfig.ApplyDefaults() first.
func (c *BaseConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "kbuild"
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
// Embedding structs call c.BaseConfig.Validate() first.
func (c *BaseConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
