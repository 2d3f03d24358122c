package bootstrap

import (
	"github.com/kbukum/kbuild/config"
)

// Config is the constraint for application configuration types. Any struct
// embedding config.BaseConfig satisfies it through promoted methods.
//
//	type AppConfig struct {
//	    config.BaseConfig `yaml:",inline" mapstructure:",squash"`
//	    Jobs int `yaml:"jobs" mapstructure:"jobs"`
//	}
type Config interface {
	GetBaseConfig() *config.BaseConfig
	ApplyDefaults()
	Validate() error
}
