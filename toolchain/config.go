package toolchain

import (
	"slices"
	"time"

	"github.com/kbukum/kbuild/validation"
)

// Tools names the external binaries. Each is resolved through PATH.
type Tools struct {
	AS  string `yaml:"as" mapstructure:"as" validate:"required"`
	CC  string `yaml:"cc" mapstructure:"cc" validate:"required"`
	AR  string `yaml:"ar" mapstructure:"ar" validate:"required"`
	LD  string `yaml:"ld" mapstructure:"ld" validate:"required"`
	Tar string `yaml:"tar" mapstructure:"tar" validate:"required"`
	// ISO lists the bootable-image tools in fallback order.
	ISO      []string `yaml:"iso" mapstructure:"iso" validate:"required,min=1,dive,required"`
	Emulator string   `yaml:"emulator" mapstructure:"emulator" validate:"required"`
}

// Flags holds the fixed arguments passed to each tool.
type Flags struct {
	AS []string `yaml:"as" mapstructure:"as"`
	CC []string `yaml:"cc" mapstructure:"cc"`
	// Strict is appended to CC for stages compiled in strict mode.
	Strict   []string `yaml:"strict" mapstructure:"strict"`
	AR       []string `yaml:"ar" mapstructure:"ar"`
	LD       []string `yaml:"ld" mapstructure:"ld"`
	Emulator []string `yaml:"emulator" mapstructure:"emulator"`
}

// Config is the toolchain configuration. A Toolchain keeps its own copy,
// so changes made after New have no effect.
type Config struct {
	Tools Tools `yaml:"tools" mapstructure:"tools"`
	Flags Flags `yaml:"flags" mapstructure:"flags"`
	// Timeout bounds each tool invocation. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"min=0"`
	// GracePeriod is the time between SIGTERM and SIGKILL on cancellation.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period" validate:"min=0"`
}

// DefaultConfig returns the i386 freestanding toolchain.
func DefaultConfig() Config {
	return Config{
		Tools: Tools{
			AS:       "nasm",
			CC:       "gcc",
			AR:       "ar",
			LD:       "ld",
			Tar:      "tar",
			ISO:      []string{"grub-mkrescue", "grub2-mkrescue"},
			Emulator: "qemu-system-i386",
		},
		Flags: Flags{
			AS:       []string{"-f", "elf32"},
			CC:       []string{"-m32", "-fno-pie", "-ffreestanding", "-nostdlib", "-std=gnu11", "-nostdinc"},
			Strict:   []string{"-Wall", "-Wextra", "-Werror"},
			AR:       []string{"rcs"},
			LD:       []string{"-melf_i386"},
			Emulator: []string{"-m", "256M", "-serial", "mon:stdio", "-M", "accel=kvm:tcg"},
		},
		GracePeriod: 5 * time.Second,
	}
}

// ApplyDefaults fills unset tool names and flag sets from DefaultConfig.
// A flag set explicitly configured as empty stays empty only when given as
// a non-nil slice.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	setString(&c.Tools.AS, d.Tools.AS)
	setString(&c.Tools.CC, d.Tools.CC)
	setString(&c.Tools.AR, d.Tools.AR)
	setString(&c.Tools.LD, d.Tools.LD)
	setString(&c.Tools.Tar, d.Tools.Tar)
	setString(&c.Tools.Emulator, d.Tools.Emulator)
	setSlice(&c.Tools.ISO, d.Tools.ISO)
	setSlice(&c.Flags.AS, d.Flags.AS)
	setSlice(&c.Flags.CC, d.Flags.CC)
	setSlice(&c.Flags.Strict, d.Flags.Strict)
	setSlice(&c.Flags.AR, d.Flags.AR)
	setSlice(&c.Flags.LD, d.Flags.LD)
	setSlice(&c.Flags.Emulator, d.Flags.Emulator)
	if c.GracePeriod == 0 {
		c.GracePeriod = d.GracePeriod
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// clone returns a deep copy of c.
func (c Config) clone() Config {
	c.Tools.ISO = slices.Clone(c.Tools.ISO)
	c.Flags.AS = slices.Clone(c.Flags.AS)
	c.Flags.CC = slices.Clone(c.Flags.CC)
	c.Flags.Strict = slices.Clone(c.Flags.Strict)
	c.Flags.AR = slices.Clone(c.Flags.AR)
	c.Flags.LD = slices.Clone(c.Flags.LD)
	c.Flags.Emulator = slices.Clone(c.Flags.Emulator)
	return c
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setSlice(dst *[]string, def []string) {
	if *dst == nil {
		*dst = slices.Clone(def)
	}
}
