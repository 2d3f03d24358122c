// Package config loads kbuild configuration.
//
// It uses Viper to read a YAML config file and KBUILD_* environment
// variables, optionally seeded from a .env file through godotenv.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("kbuild", &cfg, config.WithConfigFile(path))
//
// Environment variables override file values using the KBUILD_ prefix with
// underscore-separated paths (e.g., KBUILD_TOOLCHAIN_CC=clang).
package config
